package serial

import (
	"errors"
	"io"
	"sync"
	"time"
)

type fakePort struct {
	mu      sync.Mutex
	written [][]byte
	writes  chan []byte
	reads   chan []byte
	closed  chan struct{}
	once    sync.Once
	failW   error
}

func newFakePort() *fakePort {
	return &fakePort{
		writes: make(chan []byte, 64),
		reads:  make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (p *fakePort) Read(b []byte) (int, error) {
	select {
	case data := <-p.reads:
		return copy(b, data), nil
	case <-p.closed:
		return 0, io.EOF
	}
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failW != nil {
		return 0, p.failW
	}
	c := append([]byte(nil), b...)
	p.written = append(p.written, c)
	p.writes <- c
	return len(b), nil
}

func (p *fakePort) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func (p *fakePort) isClosed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}

func (p *fakePort) nextWrite(t interface{ Fatalf(string, ...any) }) []byte {
	select {
	case w := <-p.writes:
		return w
	case <-time.After(2 * time.Second):
		t.Fatalf("no write within timeout")
		return nil
	}
}

func (p *fakePort) writeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.written)
}

func openerFor(ports ...*fakePort) Opener {
	var mu sync.Mutex
	i := 0
	return func(path string, baud int) (Port, error) {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(ports) {
			return nil, errors.New("no such port")
		}
		p := ports[i]
		i++
		return p, nil
	}
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// fakeClock records scheduled callbacks; tests fire them by hand.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// fireLast runs the most recently scheduled timer and returns its duration.
func (c *fakeClock) fireLast() time.Duration {
	c.mu.Lock()
	t := c.timers[len(c.timers)-1]
	c.mu.Unlock()
	t.f()
	return t.d
}

func (c *fakeClock) last() *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		return nil
	}
	return c.timers[len(c.timers)-1]
}

func (c *fakeClock) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}
