package serial

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/JadenB/Luxamp-sub000/internal/logging"
	"github.com/sirupsen/logrus"
)

// State is the connection state of a Device.
type State int

const (
	Disconnected State = iota
	Opening
	AwaitingReady
	Ready
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Opening:
		return "opening"
	case AwaitingReady:
		return "waiting for controller"
	case Ready:
		return "ready"
	}
	return "unknown"
}

// ErrSuperseded is returned by Connect when another Connect or Disconnect
// ran while the port was opening.
var ErrSuperseded = errors.New("connection superseded")

// ErrNotOpen is returned when writing without an open port.
var ErrNotOpen = errors.New("port not open")

// Config wires a device to its environment. Zero fields use defaults.
type Config struct {
	Open  Opener
	Clock Clock
	// OnState is called after every state change.
	OnState func(State)
	// OnReady is called with the port path once the controller is usable.
	OnReady func(path string)
}

func (c Config) withDefaults() Config {
	if c.Open == nil {
		c.Open = OpenPort
	}
	if c.Clock == nil {
		c.Clock = SystemClock
	}
	return c
}

// Device drives a controller that speaks the framed protocol. The ready
// handshake runs on connect; channel writes made before the controller is
// ready are kept and the latest one is sent once it becomes ready.
//
// Every port, timer and reader belongs to a connection epoch. Callbacks from
// an older epoch are ignored.
type Device struct {
	cfg          Config
	channelCount int
	log          *logrus.Entry

	mu      sync.Mutex
	state   State
	port    Port
	path    string
	epoch   uint64
	retries int
	pending byte // request type awaiting a response, 0 when none
	timer   Timer

	packet  []byte
	sending bool
	written bool

	// delivered after unlocking
	stateEvents []State
	readyPath   string
}

// NewDevice returns a disconnected device with channelCount data channels.
func NewDevice(channelCount int, cfg Config) *Device {
	if channelCount <= 0 {
		panic("serial: channel count must be positive")
	}
	return &Device{
		cfg:          cfg.withDefaults(),
		channelCount: channelCount,
		log:          logging.For("serial"),
		packet:       newPacket(OpWriteChannels, channelCount),
	}
}

func (d *Device) ChannelCount() int { return d.channelCount }

// State returns the current connection state.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Path returns the path of the current or last connection.
func (d *Device) Path() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.path
}

// Retries returns the number of ready requests re-sent on this connection.
func (d *Device) Retries() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.retries
}

// Connect opens path and starts the ready handshake. Any existing connection
// is closed first.
func (d *Device) Connect(path string) error {
	d.mu.Lock()
	d.teardownLocked()
	d.epoch++
	epoch := d.epoch
	d.path = path
	d.setStateLocked(Opening)
	d.unlock()

	port, err := d.cfg.Open(path, BaudRate)

	d.mu.Lock()
	defer d.unlock()
	if epoch != d.epoch {
		if err == nil {
			port.Close()
		}
		return ErrSuperseded
	}
	if err != nil {
		d.setStateLocked(Disconnected)
		d.log.WithError(err).WithField("path", path).Warn("open failed")
		return err
	}

	d.log.WithField("path", path).Info("port opened")
	d.port = port
	d.retries = 0
	d.setStateLocked(AwaitingReady)
	go d.readLoop(epoch, port)
	if err := d.sendReadyRequestLocked(); err != nil {
		return fmt.Errorf("sending ready request to %s: %w", path, err)
	}
	return nil
}

// Disconnect closes the port. Queued work for the connection is dropped.
func (d *Device) Disconnect() {
	d.mu.Lock()
	defer d.unlock()
	d.teardownLocked()
	d.epoch++
	d.setStateLocked(Disconnected)
}

// StartChannelSend opens a channel write transaction. Starting a second
// transaction before ending the first panics.
func (d *Device) StartChannelSend() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sending {
		panic("serial: channel send started twice")
	}
	d.sending = true
}

// SendChannel sets one channel value in the open transaction.
func (d *Device) SendChannel(channel int, value byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.sending {
		panic("serial: SendChannel outside a channel send")
	}
	if channel < 0 || channel >= d.channelCount {
		panic(fmt.Sprintf("serial: channel %d out of range [0, %d)", channel, d.channelCount))
	}
	d.packet[firstPayloadIndex+channel] = value
}

// EndChannelSend closes the transaction and transmits it if the controller is
// ready.
func (d *Device) EndChannelSend() {
	d.mu.Lock()
	defer d.unlock()
	if !d.sending {
		panic("serial: EndChannelSend outside a channel send")
	}
	writeChecksum(d.packet)
	d.sending = false
	d.written = true
	if d.state == Ready {
		d.writeLocked(d.packet)
	}
}

func (d *Device) sendReadyRequestLocked() error {
	epoch := d.epoch
	d.pending = RequestReady
	if err := d.writeLocked(NewRequestPacket(RequestReady)); err != nil {
		return err
	}
	d.timer = d.cfg.Clock.AfterFunc(RequestTimeout, func() { d.requestFailed(epoch) })
	return nil
}

// requestFailed handles a timed out ready request.
func (d *Device) requestFailed(epoch uint64) {
	d.mu.Lock()
	defer d.unlock()
	if epoch != d.epoch || d.state != AwaitingReady || d.pending == 0 {
		return
	}
	d.retryLocked()
}

// retryLocked schedules the next ready request with exponential backoff, or
// gives up once MaxRetries re-sends have failed.
func (d *Device) retryLocked() {
	epoch := d.epoch
	d.pending = 0
	d.stopTimerLocked()
	if d.retries >= MaxRetries {
		d.log.WithField("path", d.path).Error("controller did not become ready, giving up")
		return
	}

	backoff := time.Duration(1<<d.retries) * time.Second
	d.retries++
	d.log.WithFields(logrus.Fields{"retry": d.retries, "backoff": backoff}).Warn("ready request failed")
	d.timer = d.cfg.Clock.AfterFunc(backoff, func() {
		d.mu.Lock()
		defer d.unlock()
		if epoch != d.epoch || d.state != AwaitingReady {
			return
		}
		// a failed write has already torn the connection down
		_ = d.sendReadyRequestLocked()
	})
}

// handleResponse reports whether frame was a valid response to the pending
// request.
func (d *Device) handleResponse(epoch uint64, frame []byte) bool {
	d.mu.Lock()
	defer d.unlock()
	if epoch != d.epoch || d.pending == 0 || !ValidateResponse(frame, d.pending) {
		return false
	}
	if code := frame[2]; code != 1 {
		d.log.WithField("code", code).Warn("controller not ready")
		d.retryLocked()
		return true
	}

	d.pending = 0
	d.stopTimerLocked()
	d.retries = 0
	d.setStateLocked(Ready)
	d.readyPath = d.path
	d.log.WithField("path", d.path).Info("controller ready")
	if d.written {
		d.writeLocked(d.packet)
	}
	return true
}

func (d *Device) readLoop(epoch uint64, port Port) {
	buf := make([]byte, 64)
	var acc []byte
	for {
		n, err := port.Read(buf)
		if err != nil {
			d.portFailed(epoch, err)
			return
		}
		acc = append(acc, buf[:n]...)
		for len(acc) >= ResponseLength {
			i := bytes.IndexByte(acc, StartByte)
			if i < 0 {
				acc = acc[:0]
				break
			}
			acc = acc[i:]
			if len(acc) < ResponseLength {
				break
			}
			if d.handleResponse(epoch, acc[:ResponseLength]) {
				acc = acc[ResponseLength:]
			} else {
				acc = acc[1:]
			}
		}
	}
}

func (d *Device) portFailed(epoch uint64, err error) {
	d.mu.Lock()
	defer d.unlock()
	if epoch != d.epoch {
		return
	}
	d.log.WithError(err).Warn("port lost")
	d.teardownLocked()
	d.epoch++
	d.setStateLocked(Disconnected)
}

// writeLocked sends p and tears the connection down on error.
func (d *Device) writeLocked(p []byte) error {
	if d.port == nil {
		return ErrNotOpen
	}
	if _, err := d.port.Write(p); err != nil {
		d.log.WithError(err).Warn("write failed")
		d.teardownLocked()
		d.epoch++
		d.setStateLocked(Disconnected)
		return err
	}
	return nil
}

func (d *Device) teardownLocked() {
	d.stopTimerLocked()
	d.pending = 0
	if d.port != nil {
		d.port.Close()
		d.port = nil
	}
}

func (d *Device) stopTimerLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Device) setStateLocked(s State) {
	if d.state == s {
		return
	}
	d.state = s
	d.stateEvents = append(d.stateEvents, s)
}

// unlock releases the mutex and then runs the hooks queued while it was held.
func (d *Device) unlock() {
	events := d.stateEvents
	d.stateEvents = nil
	readyPath := d.readyPath
	d.readyPath = ""
	d.mu.Unlock()

	if d.cfg.OnState != nil {
		for _, s := range events {
			d.cfg.OnState(s)
		}
	}
	if readyPath != "" && d.cfg.OnReady != nil {
		d.cfg.OnReady(readyPath)
	}
}
