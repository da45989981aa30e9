package ports

import (
	"context"

	"communityhub/internal/core/domain"
)

// Notifier delivers a backup notification and returns the destination's status code.
// A returned error means the notification was not delivered.
type Notifier interface {
	Notify(ctx context.Context, n domain.BackupNotification) (int, error)
	Configured() bool
}

// CooldownGate shares the automatic trigger cooldown between instances.
// Acquire reports false while another instance is cooling down.
type CooldownGate interface {
	Acquire(ctx context.Context) (bool, error)
	Claim(ctx context.Context) error
	Release(ctx context.Context) error
}

// ChatRelay forwards chat messages to other instances sharing the chat log
type ChatRelay interface {
	Publish(ctx context.Context, msg domain.ChatMessage) error
}

type StatusFetcher interface {
	Fetch(ctx context.Context, host, port string) (domain.ServerStatus, error)
}

// Viewer is one connected chat client. Deliver must not block; it returns
// false when the viewer can no longer keep up and should be dropped.
type Viewer interface {
	ID() string
	Deliver(event ChatEvent) bool
}

// ChatEvent is a server to client chat frame
type ChatEvent struct {
	Event string      `json:"event"`
	ID    string      `json:"id,omitempty"`
	Data  interface{} `json:"data"`
}

const (
	EventHistory    = "history"
	EventNewMessage = "new-message"
	EventAck        = "ack"
	EventSend       = "send"
)

// Metrics receives domain level measurements.
type Metrics interface {
	ObserveSnapshot(s domain.SecuritySnapshot)
	ObserveTrigger(mode domain.TriggerMode, result string)
	ObserveChatMessage(t domain.MessageType)
	ObserveChatRejection(reason string)
	SetChatViewers(n int)
}

// NopMetrics discards every measurement
type NopMetrics struct{}

func (NopMetrics) ObserveSnapshot(domain.SecuritySnapshot)   {}
func (NopMetrics) ObserveTrigger(domain.TriggerMode, string) {}
func (NopMetrics) ObserveChatMessage(domain.MessageType)     {}
func (NopMetrics) ObserveChatRejection(string)               {}
func (NopMetrics) SetChatViewers(int)                        {}
