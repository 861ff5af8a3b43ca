package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func TestSlotLatestPadsWithSilence(t *testing.T) {
	s := NewSlot(8)
	s.Write([]float32{1, 2, 3})

	dst := make([]float32, 5)
	s.Latest(dst)
	want := []float32{0, 0, 1, 2, 3}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("Latest() = %v, want %v", dst, want)
		}
	}
}

func TestSlotLastWriteWins(t *testing.T) {
	s := NewSlot(4)
	s.Write([]float32{1, 2, 3})
	s.Write([]float32{4, 5, 6})

	dst := make([]float32, 4)
	s.Latest(dst)
	want := []float32{3, 4, 5, 6}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("Latest() = %v, want %v", dst, want)
		}
	}

	s.Write([]float32{7, 8, 9, 10, 11, 12})
	s.Latest(dst)
	want = []float32{9, 10, 11, 12}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("Latest() after oversized write = %v, want %v", dst, want)
		}
	}
}

func TestSlotSequence(t *testing.T) {
	s := NewSlot(4)
	dst := make([]float32, 4)
	first := s.Latest(dst)
	s.Write([]float32{1})
	if got := s.Latest(dst); got == first {
		t.Fatalf("sequence did not advance after Write")
	}
	s.Clear()
	s.Latest(dst)
	for _, v := range dst {
		if v != 0 {
			t.Fatalf("Latest() after Clear = %v, want silence", dst)
		}
	}
}

func TestTapPublishesMono(t *testing.T) {
	var pcm bytes.Buffer
	for _, frame := range [][2]int16{{16384, 16384}, {-32768, 0}, {0, 0}} {
		binary.Write(&pcm, binary.LittleEndian, frame)
	}
	raw := pcm.Bytes()

	slot := NewSlot(4)
	tp := &tap{r: bytes.NewReader(raw), slot: slot}
	// Split mid-frame to exercise the remainder path.
	buf := make([]byte, 5)
	var out []byte
	for {
		n, err := tp.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			break
		}
	}
	if !bytes.Equal(out, raw) {
		t.Fatalf("tap altered PCM")
	}
	if got := tp.Pos(); got != int64(len(raw)) {
		t.Fatalf("Pos() = %d, want %d", got, len(raw))
	}

	dst := make([]float32, 3)
	slot.Latest(dst)
	want := []float32{0.5, -0.5, 0}
	for i := range want {
		if math.Abs(float64(dst[i]-want[i])) > 1e-6 {
			t.Fatalf("mono = %v, want %v", dst, want)
		}
	}
}

func writeWAV(t *testing.T, path string, rate, channels int, samples []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer f.Close()
	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestWAVDecoderMonoToStereo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeWAV(t, path, 22050, 1, []int{100, -200, 300})

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()
	dec, err := newDecoder(f)
	if err != nil {
		t.Fatalf("newDecoder() error = %v", err)
	}
	if got := dec.SampleRate(); got != 22050 {
		t.Fatalf("SampleRate() = %d, want 22050", got)
	}
	if got := dec.Length(); got != 3*bytesPerFrame {
		t.Fatalf("Length() = %d, want %d", got, 3*bytesPerFrame)
	}

	out, err := io.ReadAll(dec)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	want := []int16{100, 100, -200, -200, 300, 300}
	if len(out) != len(want)*2 {
		t.Fatalf("decoded %d bytes, want %d", len(out), len(want)*2)
	}
	for i, w := range want {
		if got := int16(binary.LittleEndian.Uint16(out[i*2:])); got != w {
			t.Fatalf("sample %d = %d, want %d", i, got, w)
		}
	}
}

func TestNewDecoderUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hi"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()
	if _, err := newDecoder(f); err == nil {
		t.Fatalf("newDecoder(.txt) error = nil, want error")
	}
}

func TestTo16(t *testing.T) {
	tests := []struct {
		sample, depth int
		want          int16
	}{
		{1 << 23, 24, 32767},
		{-(1 << 23), 24, -32768},
		{127, 8, 127 << 8},
		{1000, 16, 1000},
	}
	for _, tt := range tests {
		if got := to16(tt.sample, tt.depth); got != tt.want {
			t.Fatalf("to16(%d, %d) = %d, want %d", tt.sample, tt.depth, got, tt.want)
		}
	}
}

func TestMutedPlayerFeedsSlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Quiet Song.wav")
	samples := make([]int, FrameSize*2)
	for i := range samples {
		samples[i] = 8192
	}
	writeWAV(t, path, SampleRate, 1, samples)

	slot := NewSlot(FrameSize)
	p, err := NewFilePlayer(path, slot, true)
	if err != nil {
		t.Fatalf("NewFilePlayer() error = %v", err)
	}
	if got := p.Name(); got != "Quiet Song" {
		t.Fatalf("Name() = %q, want %q", got, "Quiet Song")
	}
	if got, want := p.Duration(), time.Duration(float64(2*FrameSize)/SampleRate*float64(time.Second)); got != want {
		t.Fatalf("Duration() = %v, want %v", got, want)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Run(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v", err)
	}

	dst := make([]float32, FrameSize)
	slot.Latest(dst)
	if got := dst[FrameSize-1]; math.Abs(float64(got)-0.25) > 1e-6 {
		t.Fatalf("last sample = %v, want 0.25", got)
	}
}

func TestReadMetadataFallback(t *testing.T) {
	m := ReadMetadata("/music/Some Track.flac")
	if m.Title != "Some Track" || m.Artist != "" {
		t.Fatalf("ReadMetadata() = %+v, want title only", m)
	}
	if got := (Metadata{Title: "T", Artist: "A"}).Label(); got != "A - T" {
		t.Fatalf("Label() = %q, want %q", got, "A - T")
	}
}
