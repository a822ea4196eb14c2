package daemon

import (
	"encoding/json"
	"time"
)

// IPCMessage is the framing for all daemon <-> client traffic.
type IPCMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message types
const (
	MsgTypeStatus         = "status"
	MsgTypeEvent          = "event"
	MsgTypeStopService    = "stop_service"
	MsgTypeRestartService = "restart_service"
	MsgTypeShutdown       = "shutdown"
	MsgTypePing           = "ping"
	MsgTypePong           = "pong"
	MsgTypeError          = "error"
	MsgTypeOK             = "ok"
)

// Run states
const (
	StatePreflight = "preflight"
	StateWaiting   = "waiting"
	StateStarting  = "starting"
	StateRunning   = "running"
	StateStopping  = "stopping"
)

// GateStatus describes the readiness gate in a status payload.
type GateStatus struct {
	Target   string `json:"target"`
	Ready    bool   `json:"ready"`
	Attempts int    `json:"attempts"`
}

// ServiceStatus describes one managed service in a status payload.
type ServiceStatus struct {
	Name       string    `json:"name"`
	State      string    `json:"state"` // "pending", "running", "exited"
	PID        int       `json:"pid,omitempty"`
	Port       int       `json:"port,omitempty"`
	PortReady  bool      `json:"port_ready"`
	ExitCode   int       `json:"exit_code"`
	Foreground bool      `json:"foreground"`
	StartedAt  time.Time `json:"started_at,omitzero"`
}

// StatusPayload is the full run snapshot sent to IPC clients.
type StatusPayload struct {
	RunID     string          `json:"run_id"`
	State     string          `json:"state"`
	StartedAt time.Time       `json:"started_at"`
	Gate      GateStatus      `json:"gate"`
	Services  []ServiceStatus `json:"services"`
}

// Event is one orchestration log record, broadcast to connected clients
// and kept in a bounded ring for late joiners.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // "info", "warn", "error"
	Service   string    `json:"service,omitempty"`
	Message   string    `json:"message"`
}

// ServiceNamePayload targets stop/restart operations.
type ServiceNamePayload struct {
	Name string `json:"name"`
}
