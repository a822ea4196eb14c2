// Package gate blocks startup until a TCP endpoint accepts connections.
//
// The gate has two states, polling and ready, and a single transition: a
// successful zero-payload dial. By default there is no timeout — if the
// dependency never comes up, the gate blocks forever, which is the desired
// behavior for a container entrypoint whose dependency is still booting.
package gate

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrTimeout is returned when a timeout was configured and expired before
// the endpoint became reachable.
var ErrTimeout = errors.New("gate: dependency did not become reachable in time")

const defaultDialTimeout = time.Second

// Gate polls one host:port until it accepts a TCP connection.
type Gate struct {
	Host     string
	Port     int
	Interval time.Duration // delay between probes; 0 means 1s
	Timeout  time.Duration // 0 means wait forever

	// DialTimeout bounds a single probe. Defaults to 1s.
	DialTimeout time.Duration

	// OnProgress is called after each failed probe, before sleeping.
	OnProgress func(attempt int, elapsed time.Duration)

	// OnReady is called once, after the successful probe.
	OnReady func(attempt int, elapsed time.Duration)
}

// New returns a gate for host:port with the default 1s poll interval and no
// timeout.
func New(host string, port int) *Gate {
	return &Gate{Host: host, Port: port}
}

// Addr returns the dial target.
func (g *Gate) Addr() string {
	return fmt.Sprintf("%s:%d", g.Host, g.Port)
}

// Probe makes a single connection attempt.
func (g *Gate) Probe() bool {
	dt := g.DialTimeout
	if dt <= 0 {
		dt = defaultDialTimeout
	}
	conn, err := net.DialTimeout("tcp", g.Addr(), dt)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Wait blocks until the endpoint accepts a connection, the context is
// cancelled, or the configured timeout expires. An already-open endpoint
// returns on the first probe, without sleeping.
func (g *Gate) Wait(ctx context.Context) error {
	interval := g.Interval
	if interval <= 0 {
		interval = time.Second
	}

	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	start := time.Now()
	timer := time.NewTimer(0) // first probe happens immediately
	defer timer.Stop()

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			if g.Timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrTimeout
			}
			return ctx.Err()
		case <-timer.C:
		}

		if g.Probe() {
			if g.OnReady != nil {
				g.OnReady(attempt, time.Since(start))
			}
			return nil
		}

		if g.OnProgress != nil {
			g.OnProgress(attempt, time.Since(start))
		}
		timer.Reset(interval)
	}
}
