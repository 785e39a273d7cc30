package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "washwise_"

var (
	registerOnce sync.Once

	pollCycles   prometheus.Counter
	fetchErrors  *prometheus.CounterVec
	usageEvents  prometheus.Counter
	ledgerErrors prometheus.Counter
	machinesSeen prometheus.Gauge
)

// Init registers the service metrics with the default registry. Safe to call
// more than once.
func Init() {
	registerOnce.Do(func() {
		pollCycles = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "poll_cycles_total",
			Help: "Completed poll cycles",
		})
		fetchErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "vendor_fetch_errors_total",
				Help: "Vendor API fetch failures by stage",
			},
			[]string{"stage"},
		)
		usageEvents = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "usage_events_total",
			Help: "Detected wash/dry cycle starts",
		})
		ledgerErrors = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "ledger_write_errors_total",
			Help: "Usage events lost to ledger write failures",
		})
		machinesSeen = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "machines_tracked",
			Help: "Machines observed in the most recent poll cycle",
		})

		prometheus.MustRegister(pollCycles, fetchErrors, usageEvents, ledgerErrors, machinesSeen)
	})
}

// PollCycleCompleted counts one finished sweep.
func PollCycleCompleted() {
	if pollCycles != nil {
		pollCycles.Inc()
	}
}

// FetchError counts one failed vendor call. Stage is one of
// "machine_types", "machines", "machine_detail".
func FetchError(stage string) {
	if fetchErrors != nil {
		fetchErrors.WithLabelValues(stage).Inc()
	}
}

// UsageEventRecorded counts one cycle start committed to the ledger.
func UsageEventRecorded() {
	if usageEvents != nil {
		usageEvents.Inc()
	}
}

// LedgerWriteFailed counts one usage event lost to a storage error.
func LedgerWriteFailed() {
	if ledgerErrors != nil {
		ledgerErrors.Inc()
	}
}

// MachinesTracked records how many machines the last sweep touched.
func MachinesTracked(n int) {
	if machinesSeen != nil {
		machinesSeen.Set(float64(n))
	}
}
