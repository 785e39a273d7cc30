package vendorapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uarix/WashWise/config"
)

func newTestClient(serverURL string) *Client {
	return NewClient(&config.PollerConfig{
		BaseURL:        serverURL,
		TimeoutSeconds: 5,
		Headers:        map[string]string{"channel": "wechat"},
	})
}

func TestMachineTypes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, machineTypesPath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "wechat", r.Header.Get("channel"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "shop-1", r.PostForm.Get("shopId"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":0,"data":{"items":[
			{"machineTypeId":"t1","machineTypeName":"洗衣机"},
			{"machineTypeId":"t2","machineTypeName":"烘干机"}
		]}}`))
	}))
	defer server.Close()

	types, err := newTestClient(server.URL).MachineTypes(context.Background(), "shop-1")
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "洗衣机", types[0].Name)
}

func TestMachines(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "t1", r.PostForm.Get("machineTypeId"))
		assert.Equal(t, "1000", r.PostForm.Get("pageSize"))

		w.Write([]byte(`{"code":0,"data":{"items":[{"id":"101","name":"洗衣机-1"}]}}`))
	}))
	defer server.Close()

	machines, err := newTestClient(server.URL).Machines(context.Background(), "shop-1", "t1")
	require.NoError(t, err)
	require.Len(t, machines, 1)
	assert.Equal(t, "101", machines[0].ID)
}

func TestMachineDetail_Defaults(t *testing.T) {
	// The vendor omits the error fields while a machine is idle.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":0,"data":{"name":"洗衣机-1"}}`))
	}))
	defer server.Close()

	obs, err := newTestClient(server.URL).MachineDetail(context.Background(), "101")
	require.NoError(t, err)
	assert.Equal(t, "101", obs.MachineID)
	assert.Equal(t, 0, obs.ErrorCode)
	assert.Equal(t, "Idle", obs.ErrorMessage)
}

func TestMachineDetail_ReportedState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "101", r.PostForm.Get("goodsId"))

		w.Write([]byte(`{"code":0,"data":{"name":"洗衣机-1","deviceErrorCode":2,"deviceErrorMsg":"运行中"}}`))
	}))
	defer server.Close()

	obs, err := newTestClient(server.URL).MachineDetail(context.Background(), "101")
	require.NoError(t, err)
	assert.Equal(t, 2, obs.ErrorCode)
	assert.Equal(t, "运行中", obs.ErrorMessage)
}

func TestEnvelopeErrorCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":401,"data":{}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).MachineDetail(context.Background(), "101")
	assert.ErrorContains(t, err, "non-zero application code")
}

func TestNon200Status(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).MachineTypes(context.Background(), "shop-1")
	assert.ErrorContains(t, err, "non-200")
}

func TestMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Machines(context.Background(), "shop-1", "t1")
	assert.ErrorContains(t, err, "unmarshal")
}
