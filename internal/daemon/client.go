package daemon

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"runtime"
	"sync"
	"time"
)

// Client connects to a running stack over IPC.
type Client struct {
	conn     net.Conn
	encoder  *json.Encoder
	decoder  *json.Decoder
	handlers ClientHandlers
	mu       sync.Mutex
	closed   bool
}

// ClientHandlers contains callbacks for daemon events, used by the TUI.
type ClientHandlers struct {
	OnStatus func(StatusPayload)
	OnEvent  func(Event)
	OnError  func(string)
}

// Connect connects to the running stack.
func Connect() (*Client, error) {
	socketPath := GetSocketPath()
	var conn net.Conn
	var err error

	if runtime.GOOS == "windows" {
		data, rerr := os.ReadFile(socketPath)
		if rerr != nil {
			return nil, fmt.Errorf("stack is not running (no port file)")
		}
		conn, err = net.DialTimeout("tcp", string(data), 5*time.Second)
		if err != nil {
			return nil, fmt.Errorf("stack is not responding: %w", err)
		}
	} else {
		conn, err = net.DialTimeout("unix", socketPath, 5*time.Second)
		if err != nil {
			return nil, fmt.Errorf("stack is not running: %w", err)
		}
	}

	return &Client{
		conn:    conn,
		encoder: json.NewEncoder(conn),
		decoder: json.NewDecoder(conn),
	}, nil
}

// SetHandlers sets the event handlers for Listen.
func (c *Client) SetHandlers(h ClientHandlers) {
	c.handlers = h
}

// Status returns the current run snapshot. The daemon pushes a snapshot on
// connect and on request; either way the next status frame is the answer.
func (c *Client) Status() (StatusPayload, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.encoder.Encode(IPCMessage{Type: MsgTypeStatus}); err != nil {
		return StatusPayload{}, fmt.Errorf("failed to request status: %w", err)
	}

	for {
		var msg IPCMessage
		if err := c.decoder.Decode(&msg); err != nil {
			return StatusPayload{}, fmt.Errorf("connection lost: %w", err)
		}
		if msg.Type != MsgTypeStatus {
			continue // skip interleaved events
		}
		var status StatusPayload
		if err := json.Unmarshal(msg.Payload, &status); err != nil {
			return StatusPayload{}, fmt.Errorf("malformed status: %w", err)
		}
		return status, nil
	}
}

// StopService asks the daemon to stop one service.
func (c *Client) StopService(name string) error {
	return c.request(MsgTypeStopService, ServiceNamePayload{Name: name})
}

// RestartService asks the daemon to restart one service.
func (c *Client) RestartService(name string) error {
	return c.request(MsgTypeRestartService, ServiceNamePayload{Name: name})
}

// Shutdown asks the daemon to stop the whole stack.
func (c *Client) Shutdown() error {
	return c.request(MsgTypeShutdown, nil)
}

// request sends one message and waits for ok/error, skipping broadcasts.
func (c *Client) request(msgType string, payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := IPCMessage{Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		msg.Payload = raw
	}

	if err := c.encoder.Encode(msg); err != nil {
		return fmt.Errorf("failed to send %s: %w", msgType, err)
	}

	for {
		var reply IPCMessage
		if err := c.decoder.Decode(&reply); err != nil {
			return fmt.Errorf("connection lost: %w", err)
		}
		switch reply.Type {
		case MsgTypeOK:
			return nil
		case MsgTypeError:
			var errPayload map[string]string
			if err := json.Unmarshal(reply.Payload, &errPayload); err != nil {
				return fmt.Errorf("operation failed")
			}
			return fmt.Errorf("%s", errPayload["error"])
		default:
			continue // status/event broadcasts
		}
	}
}

// Listen consumes daemon broadcasts until the connection drops (blocking).
func (c *Client) Listen() {
	for {
		var msg IPCMessage
		if err := c.decoder.Decode(&msg); err != nil {
			if !c.isClosed() && c.handlers.OnError != nil {
				c.handlers.OnError("connection lost")
			}
			return
		}

		switch msg.Type {
		case MsgTypeStatus:
			if c.handlers.OnStatus != nil {
				var status StatusPayload
				if err := json.Unmarshal(msg.Payload, &status); err == nil {
					c.handlers.OnStatus(status)
				}
			}
		case MsgTypeEvent:
			if c.handlers.OnEvent != nil {
				var ev Event
				if err := json.Unmarshal(msg.Payload, &ev); err == nil {
					c.handlers.OnEvent(ev)
				}
			}
		case MsgTypeError:
			if c.handlers.OnError != nil {
				var errPayload map[string]string
				if err := json.Unmarshal(msg.Payload, &errPayload); err == nil {
					c.handlers.OnError(errPayload["error"])
				}
			}
		}
	}
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close closes the connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.conn.Close()
	}
}
