// Package fixture describes the channel layout of a light attached to a
// controller.
package fixture

import (
	"fmt"
	"sync"

	"github.com/JadenB/Luxamp-sub000/internal/dsp"
)

// Channels is the transaction API of a controller. Every SendChannel must
// happen between StartChannelSend and EndChannelSend.
type Channels interface {
	StartChannelSend()
	SendChannel(channel int, value byte)
	EndChannelSend()
}

// Parameter is a group of consecutive channels.
type Parameter struct {
	Name   string
	Offset int
	Width  int
}

var (
	Dimmer   = Parameter{Name: "dimmer", Offset: 0, Width: 1}
	ColorRGB = Parameter{Name: "color", Offset: 1, Width: 3}
)

// StripRGB is an RGB strip with a master dimmer on the first channel.
type StripRGB struct {
	ch Channels

	mu     sync.Mutex
	values [4]byte
}

// StripRGBChannelCount is the number of controller channels a StripRGB uses.
const StripRGBChannelCount = 4

// NewStripRGB panics if ch reports fewer channels than the strip needs.
func NewStripRGB(ch Channels) *StripRGB {
	if c, ok := ch.(interface{ ChannelCount() int }); ok && c.ChannelCount() < StripRGBChannelCount {
		panic(fmt.Sprintf("fixture: strip needs %d channels, controller has %d", StripRGBChannelCount, c.ChannelCount()))
	}
	return &StripRGB{ch: ch}
}

// SetDimmer sets the master level in [0, 1].
func (s *StripRGB) SetDimmer(level float64) {
	v := byte(dsp.RemapFromUnit(float32(level), 0, 255))
	s.mu.Lock()
	s.values[Dimmer.Offset] = v
	s.mu.Unlock()
}

// SetColor sets the raw color channels.
func (s *StripRGB) SetColor(r, g, b byte) {
	s.mu.Lock()
	s.values[ColorRGB.Offset] = r
	s.values[ColorRGB.Offset+1] = g
	s.values[ColorRGB.Offset+2] = b
	s.mu.Unlock()
}

// Values returns the current channel values.
func (s *StripRGB) Values() [4]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values
}

// SendChannels writes every channel in one transaction.
func (s *StripRGB) SendChannels() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ch.StartChannelSend()
	for i, v := range s.values {
		s.ch.SendChannel(i, v)
	}
	s.ch.EndChannelSend()
}

// SendColor sets and sends the color channels.
func (s *StripRGB) SendColor(r, g, b byte) {
	s.SetColor(r, g, b)
	s.SendChannels()
}

// SetPower drives the dimmer fully on or off and sends.
func (s *StripRGB) SetPower(on bool) {
	if on {
		s.SetDimmer(1)
	} else {
		s.SetDimmer(0)
	}
	s.SendChannels()
}
