package serial

import (
	"sync"

	"github.com/JadenB/Luxamp-sub000/internal/logging"
	"github.com/sirupsen/logrus"
)

// Legacy controllers take unframed four byte commands followed by a two's
// complement checksum, so that all five bytes sum to zero.
const (
	LegacyBaudRate = 9600

	LegacyOpColor byte = 0x63 // 'c'
	LegacyOpPower byte = 0x70 // 'p'
)

// NewLegacyPacket builds a command for a legacy controller.
func NewLegacyPacket(op, a, b, c byte) []byte {
	return []byte{op, a, b, c, ^(op + a + b + c) + 1}
}

// LegacyConfig wires a LegacyDevice to its environment.
type LegacyConfig struct {
	Open Opener
	// OnOff is called when the controller reports the light is off.
	OnOff func()
	// OnOpen is called with the path after a successful open.
	OnOpen func(path string)
}

// LegacyDevice drives a controller that speaks the older single command
// protocol. It has no handshake; it is usable as soon as the port opens.
type LegacyDevice struct {
	cfg LegacyConfig
	log *logrus.Entry

	mu    sync.Mutex
	port  Port
	path  string
	epoch uint64
}

func NewLegacyDevice(cfg LegacyConfig) *LegacyDevice {
	if cfg.Open == nil {
		cfg.Open = OpenPort
	}
	return &LegacyDevice{cfg: cfg, log: logging.For("serial.legacy")}
}

// Connect opens path, closing any previous port.
func (d *LegacyDevice) Connect(path string) error {
	d.Disconnect()
	port, err := d.cfg.Open(path, LegacyBaudRate)
	if err != nil {
		d.log.WithError(err).WithField("path", path).Warn("open failed")
		return err
	}

	d.mu.Lock()
	if d.port != nil {
		d.port.Close()
	}
	d.epoch++
	epoch := d.epoch
	d.port = port
	d.path = path
	d.mu.Unlock()

	d.log.WithField("path", path).Info("port opened")
	go d.readLoop(epoch, port)
	if d.cfg.OnOpen != nil {
		d.cfg.OnOpen(path)
	}
	return nil
}

// Disconnect closes the port if one is open.
func (d *LegacyDevice) Disconnect() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.epoch++
	if d.port != nil {
		d.port.Close()
		d.port = nil
	}
}

// Active reports whether a port is open.
func (d *LegacyDevice) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.port != nil
}

func (d *LegacyDevice) Path() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.path
}

// SendPacket writes a command. It is a no-op when no port is open.
func (d *LegacyDevice) SendPacket(op, a, b, c byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.port == nil {
		return
	}
	if _, err := d.port.Write(NewLegacyPacket(op, a, b, c)); err != nil {
		d.log.WithError(err).Warn("write failed")
		d.port.Close()
		d.port = nil
		d.epoch++
	}
}

func (d *LegacyDevice) readLoop(epoch uint64, port Port) {
	buf := make([]byte, 16)
	for {
		n, err := port.Read(buf)
		if err != nil {
			d.mu.Lock()
			if epoch == d.epoch && d.port != nil {
				d.log.WithError(err).Warn("port lost")
				d.port.Close()
				d.port = nil
				d.epoch++
			}
			d.mu.Unlock()
			return
		}
		if n == 0 {
			continue
		}
		d.mu.Lock()
		current := epoch == d.epoch
		d.mu.Unlock()
		if current && buf[0] == 0 && d.cfg.OnOff != nil {
			d.cfg.OnOff()
		}
	}
}
