package serial

import (
	"fmt"
	"io"
	"sort"
	"time"

	bugst "go.bug.st/serial"
)

// Port is an open serial connection.
type Port interface {
	io.ReadWriteCloser
}

// Opener opens the port at path with the given baud rate.
type Opener func(path string, baud int) (Port, error)

// OpenPort opens path as 8N1 at baud.
func OpenPort(path string, baud int) (Port, error) {
	p, err := bugst.Open(path, &bugst.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return p, nil
}

// Ports lists the serial devices present on the system.
func Ports() ([]string, error) {
	ports, err := bugst.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("listing serial ports: %w", err)
	}
	sort.Strings(ports)
	return ports, nil
}

// Clock schedules callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending callback.
type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SystemClock uses the time package.
var SystemClock Clock = realClock{}
