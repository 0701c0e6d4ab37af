// Package monitortest provides an in-memory monitor.Store.
package monitortest

import (
	"context"
	"sort"
	"sync"

	"github.com/newsradar/newsradar/internal/monitor"
)

var _ monitor.Store = (*Memory)(nil)

type Memory struct {
	mu     sync.Mutex
	states map[string]monitor.CycleState
	alerts map[string]monitor.Alert

	// Fail, when set, is returned by every call.
	Fail error
}

func NewMemory() *Memory {
	return &Memory{
		states: map[string]monitor.CycleState{},
		alerts: map[string]monitor.Alert{},
	}
}

func (m *Memory) State(ctx context.Context, id string) (monitor.CycleState, bool, error) {
	if err := m.check(ctx); err != nil {
		return monitor.CycleState{}, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[id]
	return st, ok, nil
}

func (m *Memory) SaveState(ctx context.Context, st monitor.CycleState) error {
	if err := m.check(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.states[st.ID]; ok && prev.LastCycleID == st.LastCycleID {
		return nil
	}
	m.states[st.ID] = st
	return nil
}

func (m *Memory) InsertAlert(ctx context.Context, a monitor.Alert) (bool, error) {
	if err := m.check(ctx); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.alerts[a.ID]; ok {
		return false, nil
	}
	m.alerts[a.ID] = a
	return true, nil
}

func (m *Memory) ListAlerts(ctx context.Context, email string, limit int) ([]monitor.Alert, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > monitor.MaxAlertsPerPage {
		limit = monitor.MaxAlertsPerPage
	}
	out := []monitor.Alert{}
	for _, a := range m.Alerts() {
		if a.Email == email {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].GeneratedAt.After(out[j].GeneratedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Alerts returns every stored alert ordered by id.
func (m *Memory) Alerts() []monitor.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]monitor.Alert, 0, len(m.alerts))
	for _, a := range m.alerts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Seed stores st as is.
func (m *Memory) Seed(st monitor.CycleState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[st.ID] = st
}

func (m *Memory) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.Fail
}
