package services

import (
	"context"
	"sync"
	"time"

	"communityhub/internal/core/domain"
	"communityhub/internal/core/ports"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeNotifier struct {
	mu         sync.Mutex
	configured bool
	status     int
	err        error
	sent       []domain.BackupNotification
}

func (n *fakeNotifier) Notify(ctx context.Context, note domain.BackupNotification) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return 0, n.err
	}
	n.sent = append(n.sent, note)
	return n.status, nil
}

func (n *fakeNotifier) Configured() bool { return n.configured }

func (n *fakeNotifier) Sent() []domain.BackupNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.BackupNotification(nil), n.sent...)
}

type memChatRepo struct {
	mu      sync.Mutex
	limit   int
	msgs    []domain.ChatMessage
	loadErr error
	saveErr error
}

func (r *memChatRepo) Load(ctx context.Context) ([]domain.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return append([]domain.ChatMessage(nil), r.msgs...), nil
}

func (r *memChatRepo) Append(ctx context.Context, msg domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.msgs = append(r.msgs, msg)
	if r.limit > 0 && len(r.msgs) > r.limit {
		r.msgs = r.msgs[len(r.msgs)-r.limit:]
	}
	return nil
}

func (r *memChatRepo) Save(ctx context.Context, msgs []domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append([]domain.ChatMessage(nil), msgs...)
	return nil
}

type recordingViewer struct {
	mu     sync.Mutex
	id     string
	events []ports.ChatEvent
	full   bool
}

func (v *recordingViewer) ID() string { return v.id }

func (v *recordingViewer) Deliver(event ports.ChatEvent) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.full {
		return false
	}
	v.events = append(v.events, event)
	return true
}

func (v *recordingViewer) Events() []ports.ChatEvent {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]ports.ChatEvent(nil), v.events...)
}

type countingMetrics struct {
	ports.NopMetrics
	mu         sync.Mutex
	triggers   map[string]int
	rejections map[string]int
	viewers    int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{triggers: map[string]int{}, rejections: map[string]int{}}
}

func (m *countingMetrics) ObserveTrigger(mode domain.TriggerMode, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggers[string(mode)+":"+result]++
}

func (m *countingMetrics) ObserveChatRejection(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejections[reason]++
}

func (m *countingMetrics) SetChatViewers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.viewers = n
}

// sharedGate stands in for a cooldown lease held in a shared store
type sharedGate struct {
	mu       sync.Mutex
	held     bool
	err      error
	claims   int
	releases int
}

func (g *sharedGate) Acquire(ctx context.Context) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return false, g.err
	}
	if g.held {
		return false, nil
	}
	g.held = true
	return true, nil
}

func (g *sharedGate) Claim(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.held = true
	g.claims++
	return g.err
}

func (g *sharedGate) Release(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.held = false
	g.releases++
	return nil
}
