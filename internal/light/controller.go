// Package light turns visualizer colors into fixture commands.
package light

import (
	"sort"
	"sync"
	"time"

	"github.com/JadenB/Luxamp-sub000/internal/config"
	"github.com/JadenB/Luxamp-sub000/internal/logging"
	"github.com/JadenB/Luxamp-sub000/internal/visualizer"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/sirupsen/logrus"
)

// Output is a light that takes corrected colors and a power state.
type Output interface {
	SendColor(r, g, b byte)
	SetPower(on bool)
}

type job struct {
	at      time.Time
	gen     uint64
	r, g, b byte
}

// Controller gamma corrects colors and forwards them to an Output, optionally
// after a fixed delay. All writes to the Output happen one at a time.
type Controller struct {
	out Output
	log *logrus.Entry

	mu            sync.Mutex
	on            bool
	gen           uint64
	maxBrightness float64
	delay         time.Duration
	// pending is ordered by send time. It holds at most delay worth of colors.
	pending []job

	sendMu sync.Mutex
	wake   chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewController starts a controller writing to out. Close stops it.
func NewController(out Output) *Controller {
	c := &Controller{
		out:           out,
		log:           logging.For("light"),
		maxBrightness: 1,
		wake:          make(chan struct{}, 1),
		done:          make(chan struct{}),
	}
	c.wg.Add(1)
	go c.worker()
	return c
}

// Close stops the delay worker. Queued colors are dropped.
func (c *Controller) Close() {
	c.once.Do(func() {
		close(c.done)
		c.wg.Wait()
	})
}

func (c *Controller) IsOn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.on
}

// SetMaxBrightness scales every later color by b, clamped to [0, 1].
func (c *Controller) SetMaxBrightness(b float64) {
	b = min(max(b, 0), 1)
	c.mu.Lock()
	c.maxBrightness = b
	c.mu.Unlock()
}

func (c *Controller) MaxBrightness() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxBrightness
}

// SetDelay sets how long colors wait before they are sent.
func (c *Controller) SetDelay(d time.Duration) {
	c.mu.Lock()
	c.delay = max(d, 0)
	c.mu.Unlock()
}

func (c *Controller) Delay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delay
}

// Follow applies the delay and max brightness from s now and on every change.
// The returned function stops following.
func (c *Controller) Follow(s *config.Settings) (unsubscribe func()) {
	v := s.Values()
	c.SetDelay(time.Duration(v.DelayMS) * time.Millisecond)
	c.SetMaxBrightness(v.MaxBrightness)
	return s.Subscribe(func(e config.Event) {
		switch e.Key {
		case config.KeyDelay:
			c.SetDelay(time.Duration(e.Values.DelayMS) * time.Millisecond)
		case config.KeyMaxBrightness:
			c.SetMaxBrightness(e.Values.MaxBrightness)
		}
	})
}

// TurnOn powers the light.
func (c *Controller) TurnOn() {
	c.mu.Lock()
	c.on = true
	c.mu.Unlock()
	c.log.Debug("power on")

	c.sendMu.Lock()
	c.out.SetPower(true)
	c.sendMu.Unlock()
}

// TurnOff sends black and then powers the light down. Colors still waiting
// on the delay are discarded.
func (c *Controller) TurnOff() {
	c.mu.Lock()
	c.on = false
	c.gen++
	c.pending = nil
	c.mu.Unlock()
	c.log.Debug("power off")

	c.sendMu.Lock()
	c.out.SendColor(0, 0, 0)
	c.out.SetPower(false)
	c.sendMu.Unlock()
}

// Toggle flips the power state and reports the new one.
func (c *Controller) Toggle() bool {
	if c.IsOn() {
		c.TurnOff()
		return false
	}
	c.TurnOn()
	return true
}

// OffReported handles a fixture reporting that it is off. If the controller
// believes the light is on, power is reissued.
func (c *Controller) OffReported() {
	if c.IsOn() {
		c.log.Info("fixture reported off, resyncing power")
		c.TurnOn()
	}
}

// SetColor sends col if the light is on. With no delay the send happens
// before SetColor returns.
func (c *Controller) SetColor(col colorful.Color) {
	c.mu.Lock()
	if !c.on {
		c.mu.Unlock()
		return
	}
	col = col.Clamped()
	j := job{
		gen: c.gen,
		r:   correct(col.R, c.maxBrightness),
		g:   correct(col.G, c.maxBrightness),
		b:   correct(col.B, c.maxBrightness),
	}
	delay := c.delay
	if delay == 0 {
		c.mu.Unlock()
		c.send(j)
		return
	}
	j.at = time.Now().Add(delay)
	// shortening the delay can put a color ahead of ones already waiting
	i := sort.Search(len(c.pending), func(i int) bool { return c.pending[i].at.After(j.at) })
	c.pending = append(c.pending, job{})
	copy(c.pending[i+1:], c.pending[i:])
	c.pending[i] = j
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Visualized implements visualizer.Observer.
func (c *Controller) Visualized(fr visualizer.Frame) { c.SetColor(fr.Color) }

func (c *Controller) send(j job) {
	c.mu.Lock()
	stale := j.gen != c.gen || !c.on
	c.mu.Unlock()
	if stale {
		return
	}
	c.sendMu.Lock()
	c.out.SendColor(j.r, j.g, j.b)
	c.sendMu.Unlock()
}

func (c *Controller) worker() {
	defer c.wg.Done()
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		c.mu.Lock()
		wait := time.Duration(-1)
		if len(c.pending) > 0 {
			wait = time.Until(c.pending[0].at)
			if wait <= 0 {
				j := c.pending[0]
				c.pending = c.pending[1:]
				c.mu.Unlock()
				c.send(j)
				continue
			}
		}
		c.mu.Unlock()

		if wait < 0 {
			select {
			case <-c.done:
				return
			case <-c.wake:
			}
			continue
		}
		timer.Reset(wait)
		select {
		case <-c.done:
			timer.Stop()
			return
		case <-c.wake:
			if !timer.Stop() {
				<-timer.C
			}
		case <-timer.C:
		}
	}
}
