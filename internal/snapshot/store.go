package snapshot

import (
	"sort"
	"sync"

	"github.com/uarix/WashWise/internal/reconcile"
)

// Store holds the latest derived machine states and the per-shop registry of
// known machines. Both rebuild within one poll interval after a restart, so
// everything lives in memory behind a single lock.
type Store struct {
	mu       sync.RWMutex
	machines map[string]reconcile.MachineState
	shops    map[string]map[string][]string // shopID -> category -> sorted machine ids
}

// NewStore creates an empty snapshot store.
func NewStore() *Store {
	return &Store{
		machines: make(map[string]reconcile.MachineState),
		shops:    make(map[string]map[string][]string),
	}
}

// MachineState returns the last committed state for a machine.
func (s *Store) MachineState(machineID string) (reconcile.MachineState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.machines[machineID]
	return st, ok
}

// PutMachineState commits a machine's derived state, replacing the previous
// cycle's value.
func (s *Store) PutMachineState(st reconcile.MachineState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.machines[st.MachineID] = st
}

// MergeShop unions newly observed machine ids into a shop's category listing.
// The registry never shrinks: ids seen in a previous cycle stay registered
// even if the vendor stops listing them.
func (s *Store) MergeShop(shopID, category string, machineIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shop, ok := s.shops[shopID]
	if !ok {
		shop = make(map[string][]string)
		s.shops[shopID] = shop
	}

	seen := make(map[string]struct{}, len(shop[category])+len(machineIDs))
	merged := make([]string, 0, len(shop[category])+len(machineIDs))
	for _, id := range shop[category] {
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			merged = append(merged, id)
		}
	}
	for _, id := range machineIDs {
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			merged = append(merged, id)
		}
	}

	// Vendor ids are decimal strings; shorter means numerically smaller.
	sort.Slice(merged, func(i, j int) bool {
		if len(merged[i]) != len(merged[j]) {
			return len(merged[i]) < len(merged[j])
		}
		return merged[i] < merged[j]
	})
	shop[category] = merged
}

// Shop returns a copy of a shop's category → machine ids registry.
func (s *Store) Shop(shopID string) (map[string][]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shop, ok := s.shops[shopID]
	if !ok {
		return nil, false
	}

	out := make(map[string][]string, len(shop))
	for category, ids := range shop {
		out[category] = append([]string(nil), ids...)
	}
	return out, true
}
