package tui

import (
	"time"

	"github.com/stackboot/stackboot/internal/daemon"
)

// ConnectionStatus represents the IPC connection state.
type ConnectionStatus int

const (
	StatusConnecting ConnectionStatus = iota
	StatusConnected
	StatusDisconnected
)

// String returns a human-readable status
func (s ConnectionStatus) String() string {
	switch s {
	case StatusConnecting:
		return "Connecting..."
	case StatusConnected:
		return "Connected"
	case StatusDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// Custom messages for Bubble Tea

// StatusMsg carries a fresh run snapshot from the daemon.
type StatusMsg daemon.StatusPayload

// EventMsg carries one orchestration event from the daemon.
type EventMsg daemon.Event

// DisconnectedMsg is sent when the IPC connection drops.
type DisconnectedMsg struct {
	Reason string
}

// TickMsg drives the periodic status refresh.
type TickMsg time.Time

// ToastMsg shows a transient one-line notice.
type ToastMsg string

// ActionErrMsg reports a failed stop/restart request.
type ActionErrMsg struct {
	Err error
}
