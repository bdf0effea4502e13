package engine

import (
	"sync"

	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/coaching"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/domain"
)

// Snapshot is the full artifact set of one case evaluation, served read-only
// by the query surface.
type Snapshot struct {
	Case           domain.Case
	Assessment     domain.RiskAssessment
	Finding        domain.ComplianceFinding
	Trajectory     domain.SentimentTrajectory
	OpenAlerts     []domain.Alert
	Recommendation coaching.Recommendation
}

// SnapshotStore keeps the latest snapshot per case. The query surface reads
// only this store, so it can never desynchronize from the pipeline.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
}

// NewSnapshotStore creates an empty store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{snapshots: make(map[string]Snapshot)}
}

// Put replaces the snapshot for a case.
func (s *SnapshotStore) Put(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.Case.ID] = snapshot
}

// Get returns the latest snapshot for a case.
func (s *SnapshotStore) Get(caseID string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.snapshots[caseID]
	return snapshot, ok
}

// MarkStale flags the stored assessment without touching the rest of the
// snapshot; used when a later evaluation fails outright.
func (s *SnapshotStore) MarkStale(caseID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot, ok := s.snapshots[caseID]
	if !ok {
		return
	}
	snapshot.Assessment.Stale = true
	s.snapshots[caseID] = snapshot
}
