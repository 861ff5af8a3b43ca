// Package audio captures or plays sound and publishes the most recent mono
// samples for analysis.
package audio

import "sync"

const (
	SampleRate = 44100
	// FrameSize is the number of samples analyzed per refresh.
	FrameSize = 1024
)

// Slot holds the most recent samples written to it. Writers never block on
// readers; a reader always sees the latest window, older audio is dropped.
type Slot struct {
	mu   sync.Mutex
	buf  []float32
	size int
	w    int // write position
	len  int // current fill level
	seq  uint64
}

// NewSlot returns a slot holding the last size samples.
func NewSlot(size int) *Slot {
	return &Slot{buf: make([]float32, size), size: size}
}

// Write appends samples, overwriting the oldest.
func (s *Slot) Write(p []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(p) >= s.size {
		copy(s.buf, p[len(p)-s.size:])
		s.w = 0
		s.len = s.size
		s.seq++
		return
	}
	for _, v := range p {
		s.buf[s.w] = v
		s.w = (s.w + 1) % s.size
	}
	s.len = min(s.len+len(p), s.size)
	s.seq++
}

// Latest copies the most recent len(dst) samples into dst, oldest first, and
// returns the write sequence number. Missing history reads as silence.
func (s *Slot) Latest(dst []float32) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := min(len(dst), s.len)
	pad := len(dst) - n
	for i := 0; i < pad; i++ {
		dst[i] = 0
	}
	start := (s.w - n + s.size) % s.size
	for i := 0; i < n; i++ {
		dst[pad+i] = s.buf[(start+i)%s.size]
	}
	return s.seq
}

// Clear drops all buffered samples.
func (s *Slot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w = 0
	s.len = 0
	s.seq++
}
