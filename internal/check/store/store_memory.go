package store

import (
	"context"
	"sort"
	"sync"

	"licensecheck/internal/check"
	"licensecheck/pkg/platform/sentinel"
)

// InMemory implements check.AgentStore and check.HistoryStore for local runs
// and tests. Values are copied in and out so callers never share state with
// the store.
type InMemory struct {
	mu      sync.RWMutex
	agents  map[string]check.Agent
	history map[string][]check.CheckRecord // oldest first
}

func NewInMemory() *InMemory {
	return &InMemory{
		agents:  make(map[string]check.Agent),
		history: make(map[string][]check.CheckRecord),
	}
}

func (s *InMemory) Get(_ context.Context, id string) (*check.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agent, ok := s.agents[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &agent, nil
}

func (s *InMemory) Save(_ context.Context, agent *check.Agent) error {
	if agent == nil || agent.ID == "" {
		return sentinel.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[agent.ID] = *agent
	return nil
}

// ListMonitored returns monitored agents ordered by id.
func (s *InMemory) ListMonitored(_ context.Context) ([]*check.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*check.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		if a.Monitored() {
			agent := a
			out = append(out, &agent)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) Append(_ context.Context, record *check.CheckRecord) error {
	if record == nil || record.AgentID == "" {
		return sentinel.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[record.AgentID] = append(s.history[record.AgentID], *record)
	return nil
}

// ListByAgent returns up to limit records, newest first. Records with equal
// timestamps come back in reverse insertion order.
func (s *InMemory) ListByAgent(_ context.Context, agentID string, limit int) ([]*check.CheckRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.history[agentID]
	out := make([]*check.CheckRecord, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		out = append(out, &r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CheckedAt.After(out[j].CheckedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
