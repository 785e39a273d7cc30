package poller

import (
	"context"
	"sync"
	"time"

	"github.com/uarix/WashWise/config"
	"github.com/uarix/WashWise/internal/ledger"
	"github.com/uarix/WashWise/internal/logger"
	"github.com/uarix/WashWise/internal/metrics"
	"github.com/uarix/WashWise/internal/notification"
	"github.com/uarix/WashWise/internal/reconcile"
	"github.com/uarix/WashWise/internal/snapshot"
	"github.com/uarix/WashWise/internal/vendorapi"
)

// Service drives the poll loop: one sweep over all configured shops per
// interval, reconciling every machine's reported state into the snapshot
// store and recording cycle starts in the ledger.
type Service struct {
	cfg       *config.Config
	client    *vendorapi.Client
	snapshots *snapshot.Store
	usage     ledger.Ledger
	pool      *notification.WorkerPool
	log       *logger.Logger
}

// NewService wires up a poller. The notification pool may be nil when push
// is not configured.
func NewService(cfg *config.Config, client *vendorapi.Client, snapshots *snapshot.Store,
	usage ledger.Ledger, pool *notification.WorkerPool, log *logger.Logger) *Service {
	return &Service{
		cfg:       cfg,
		client:    client,
		snapshots: snapshots,
		usage:     usage,
		pool:      pool,
		log:       log,
	}
}

// Run polls immediately and then on every interval tick until ctx is
// cancelled. A failed cycle never stops the loop.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Poller.Enabled {
		s.log.Infow("poller is disabled, not starting")
		return
	}
	s.log.Infow("starting poller", "interval", s.cfg.Poller.Interval, "shops", len(s.cfg.Poller.Shops))

	if s.pool != nil {
		s.pool.Start(ctx)
	}

	s.PollOnce(ctx)

	timer := time.NewTimer(s.cfg.Poller.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Infow("poller shutting down")
			return
		case <-timer.C:
			s.PollOnce(ctx)
			timer.Reset(s.cfg.Poller.Interval)
		}
	}
}

// PollOnce performs a single sweep. Failures are isolated per shop, per
// category and per machine; a panic is contained to the cycle.
func (s *Service) PollOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("poll cycle panicked", "panic", r)
		}
	}()

	s.log.Debugw("executing poll cycle")
	tracked := 0
	for _, shopID := range s.cfg.Poller.Shops {
		n, err := s.pollShop(ctx, shopID)
		tracked += n
		if err != nil {
			s.log.Errorw("shop sweep failed", "shop", shopID, "err", err)
		}
	}

	metrics.PollCycleCompleted()
	metrics.MachinesTracked(tracked)
	s.log.Debugw("poll cycle finished", "machines", tracked)
}

// pollShop sweeps one shop: category listing, machine listing per category,
// registry merge, then per-machine reconciliation.
func (s *Service) pollShop(ctx context.Context, shopID string) (int, error) {
	machineTypes, err := s.client.MachineTypes(ctx, shopID)
	if err != nil {
		metrics.FetchError("machine_types")
		return 0, err
	}

	tracked := 0
	for _, mt := range machineTypes {
		machines, err := s.client.Machines(ctx, shopID, mt.ID)
		if err != nil {
			metrics.FetchError("machines")
			s.log.Errorw("machine listing failed", "shop", shopID, "type", mt.Name, "err", err)
			continue
		}

		ids := make([]string, 0, len(machines))
		for _, m := range machines {
			ids = append(ids, m.ID)
		}
		s.snapshots.MergeShop(shopID, mt.Name, ids)

		s.pollMachines(ctx, machines)
		tracked += len(machines)
	}
	return tracked, nil
}

// pollMachines fans the per-machine detail fetches out over a bounded number
// of workers. Each machine id appears at most once per sweep, so two
// reconciliations of the same machine never run concurrently.
func (s *Service) pollMachines(ctx context.Context, machines []vendorapi.Machine) {
	sem := make(chan struct{}, s.cfg.Poller.Concurrency)
	var wg sync.WaitGroup

	for _, m := range machines {
		wg.Add(1)
		sem <- struct{}{}
		go func(m vendorapi.Machine) {
			defer wg.Done()
			defer func() { <-sem }()
			s.pollMachine(ctx, m)
		}(m)
	}
	wg.Wait()
}

// pollMachine fetches one machine's observation, reconciles it against the
// previous cycle's state and commits the result. A fetch failure skips the
// machine for this cycle only.
func (s *Service) pollMachine(ctx context.Context, m vendorapi.Machine) {
	obs, err := s.client.MachineDetail(ctx, m.ID)
	if err != nil {
		metrics.FetchError("machine_detail")
		s.log.Warnw("machine detail fetch failed", "machine", m.ID, "err", err)
		return
	}

	var prev *reconcile.MachineState
	if p, ok := s.snapshots.MachineState(m.ID); ok {
		prev = &p
	}

	next, fired := reconcile.Reconcile(prev, obs, s.cfg.Poller.Interval)
	s.snapshots.PutMachineState(next)

	if fired {
		if err := s.usage.RecordUsage(ctx, m.ID, time.Now()); err != nil {
			// At-most-once: a lost event is logged, not retried.
			metrics.LedgerWriteFailed()
			s.log.Errorw("failed to record usage event", "machine", m.ID, "err", err)
		} else {
			metrics.UsageEventRecorded()
			s.log.Infow("usage event recorded", "machine", m.ID)
		}
	}

	if s.pool != nil && prev != nil &&
		prev.Code == reconcile.CodeRunning && next.Code == reconcile.CodeIdle {
		s.pool.Dispatch(m.ID, next.DisplayName)
	}
}
