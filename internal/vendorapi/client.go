package vendorapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/uarix/WashWise/config"
)

const (
	machineTypesPath  = "/machineModel/nearByList"
	machinesPath      = "/machineModel/near/machines"
	machineDetailPath = "/goods/normal/details"

	machinesPageSize = 1000
)

// Client talks to the vendor's machine API. All calls are form-encoded POSTs
// wrapped in a {code, data} envelope; a non-zero code is an error.
type Client struct {
	baseURL string
	headers map[string]string
	client  *http.Client
}

// NewClient builds a vendor API client from the poller configuration.
func NewClient(cfg *config.PollerConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		headers: cfg.Headers,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// MachineType is one machine category available at a shop.
type MachineType struct {
	ID   string `json:"machineTypeId"`
	Name string `json:"machineTypeName"`
}

// Machine is one machine listed under a shop and category.
type Machine struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Observation is the instantaneous hardware state reported for one machine.
type Observation struct {
	MachineID    string
	Name         string
	ErrorCode    int
	ErrorMessage string
}

// MachineTypes fetches the machine categories available at a shop.
func (c *Client) MachineTypes(ctx context.Context, shopID string) ([]MachineType, error) {
	form := url.Values{"shopId": {shopID}}

	var envelope struct {
		Code int `json:"code"`
		Data struct {
			Items []MachineType `json:"items"`
		} `json:"data"`
	}
	if err := c.post(ctx, machineTypesPath, form, &envelope, &envelope.Code); err != nil {
		return nil, fmt.Errorf("machine types for shop %s: %w", shopID, err)
	}
	return envelope.Data.Items, nil
}

// Machines fetches the machines of a given category at a shop.
func (c *Client) Machines(ctx context.Context, shopID, machineTypeID string) ([]Machine, error) {
	form := url.Values{
		"shopId":        {shopID},
		"machineTypeId": {machineTypeID},
		"pageSize":      {fmt.Sprintf("%d", machinesPageSize)},
		"page":          {"1"},
	}

	var envelope struct {
		Code int `json:"code"`
		Data struct {
			Items []Machine `json:"items"`
		} `json:"data"`
	}
	if err := c.post(ctx, machinesPath, form, &envelope, &envelope.Code); err != nil {
		return nil, fmt.Errorf("machines for shop %s type %s: %w", shopID, machineTypeID, err)
	}
	return envelope.Data.Items, nil
}

// MachineDetail fetches the current hardware state of one machine. The vendor
// omits the error fields on idle machines; an absent code means idle (0) and
// an absent message defaults to "Idle".
func (c *Client) MachineDetail(ctx context.Context, machineID string) (Observation, error) {
	form := url.Values{"goodsId": {machineID}}

	var envelope struct {
		Code int `json:"code"`
		Data struct {
			Name            string  `json:"name"`
			DeviceErrorCode *int    `json:"deviceErrorCode"`
			DeviceErrorMsg  *string `json:"deviceErrorMsg"`
		} `json:"data"`
	}
	if err := c.post(ctx, machineDetailPath, form, &envelope, &envelope.Code); err != nil {
		return Observation{}, fmt.Errorf("detail for machine %s: %w", machineID, err)
	}

	obs := Observation{
		MachineID:    machineID,
		Name:         envelope.Data.Name,
		ErrorMessage: "Idle",
	}
	if envelope.Data.DeviceErrorCode != nil {
		obs.ErrorCode = *envelope.Data.DeviceErrorCode
	}
	if envelope.Data.DeviceErrorMsg != nil && *envelope.Data.DeviceErrorMsg != "" {
		obs.ErrorMessage = *envelope.Data.DeviceErrorMsg
	}
	return obs, nil
}

// post issues one form-encoded POST and decodes the response into out.
// envelopeCode must point into out so the vendor application code can be
// checked after decoding.
func (c *Client) post(ctx context.Context, path string, form url.Values, out any, envelopeCode *int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal api response: %w", err)
	}

	if *envelopeCode != 0 {
		return fmt.Errorf("API returned non-zero application code: %d", *envelopeCode)
	}
	return nil
}
