package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/uarix/WashWise/internal/reconcile"
)

// machineStateResponse flattens the derived state for API consumers and adds
// the fault classification downstream clients key off.
type machineStateResponse struct {
	reconcile.MachineState
	Faulted bool `json:"faulted"`
}

// GetLaundryMachines handles GET /api/v1/getLaundryMachines?LaundryID={id}.
// It returns, per machine category at the shop, every known machine id and
// its latest derived state.
func (h *Handler) GetLaundryMachines(c *gin.Context) {
	laundryID := c.Query("LaundryID")

	shop, ok := h.snapshots.Shop(laundryID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Laundry room not found"})
		return
	}

	response := make(map[string]map[string]machineStateResponse, len(shop))
	for category, machineIDs := range shop {
		response[category] = make(map[string]machineStateResponse, len(machineIDs))
		for _, machineID := range machineIDs {
			state, ok := h.snapshots.MachineState(machineID)
			if !ok {
				// Registered but not yet observed this lifetime.
				continue
			}
			response[category][machineID] = machineStateResponse{
				MachineState: state,
				Faulted:      state.Faulted(),
			}
		}
	}

	c.JSON(http.StatusOK, response)
}

// GetMachineDetail handles GET /api/v1/getMachineDetail?MachineID={id}.
// It returns the machine's usage counts for the 7 calendar dates ending
// today, every date present even with a zero count.
func (h *Handler) GetMachineDetail(c *gin.Context) {
	machineID := c.Query("MachineID")

	days, found, err := h.usage.LastSevenDays(c.Request.Context(), machineID, time.Now())
	if err != nil {
		h.log.Errorw("usage lookup failed", "machine", machineID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve usage data"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Laundry machine not found or no usage data available"})
		return
	}

	response := make(map[string]int, len(days))
	for _, day := range days {
		response[day.Date] = day.Count
	}
	c.JSON(http.StatusOK, response)
}
