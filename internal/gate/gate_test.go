package gate

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"
)

// closedPort returns a localhost port that nothing is listening on.
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func openListener(t *testing.T) (net.Listener, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	port := ln.Addr().(*net.TCPAddr).Port
	return ln, port
}

func TestWaitProceedsImmediatelyWhenOpen(t *testing.T) {
	_, port := openListener(t)

	g := New("127.0.0.1", port)
	g.Interval = time.Second

	ready := false
	g.OnReady = func(attempt int, elapsed time.Duration) {
		ready = true
		if attempt != 1 {
			t.Errorf("Expected success on first attempt, got %d", attempt)
		}
	}

	start := time.Now()
	if err := g.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	// Far below one poll interval: an open port must not cost a sleep.
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Open port took %v to pass the gate", elapsed)
	}
	if !ready {
		t.Error("OnReady was not called")
	}
}

func TestWaitKeepsPollingWhileClosed(t *testing.T) {
	port := closedPort(t)

	g := New("127.0.0.1", port)
	g.Interval = 30 * time.Millisecond

	var mu sync.Mutex
	progress := 0
	g.OnProgress = func(attempt int, elapsed time.Duration) {
		mu.Lock()
		progress++
		mu.Unlock()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := g.Wait(ctx)
	if err == nil {
		t.Fatal("Wait returned nil for a closed port")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context deadline error, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if progress < 2 {
		t.Errorf("Expected repeated progress output, got %d", progress)
	}
}

func TestWaitUnblocksWhenPortOpens(t *testing.T) {
	port := closedPort(t)

	g := New("127.0.0.1", port)
	g.Interval = 20 * time.Millisecond

	go func() {
		time.Sleep(100 * time.Millisecond)
		ln, err := net.Listen("tcp", "127.0.0.1:"+strconv.Itoa(port))
		if err != nil {
			return // port got reused elsewhere; the test will time out and fail
		}
		time.Sleep(2 * time.Second)
		ln.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := g.Wait(ctx); err != nil {
		t.Fatalf("Wait failed after port opened: %v", err)
	}
}

func TestProgressRespectsInterval(t *testing.T) {
	port := closedPort(t)

	g := New("127.0.0.1", port)
	g.Interval = 50 * time.Millisecond

	var mu sync.Mutex
	var stamps []time.Time
	g.OnProgress = func(attempt int, elapsed time.Duration) {
		mu.Lock()
		stamps = append(stamps, time.Now())
		mu.Unlock()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()
	g.Wait(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(stamps) < 2 {
		t.Fatalf("Not enough progress samples: %d", len(stamps))
	}
	for i := 1; i < len(stamps); i++ {
		if gap := stamps[i].Sub(stamps[i-1]); gap < g.Interval {
			t.Errorf("Progress gap %v shorter than interval %v", gap, g.Interval)
		}
	}
}

func TestConfiguredTimeout(t *testing.T) {
	port := closedPort(t)

	g := New("127.0.0.1", port)
	g.Interval = 20 * time.Millisecond
	g.Timeout = 150 * time.Millisecond

	err := g.Wait(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Expected ErrTimeout, got %v", err)
	}
}

func TestProbe(t *testing.T) {
	_, port := openListener(t)
	if !New("127.0.0.1", port).Probe() {
		t.Error("Probe failed against an open listener")
	}

	if New("127.0.0.1", closedPort(t)).Probe() {
		t.Error("Probe succeeded against a closed port")
	}
}
