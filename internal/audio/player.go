package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/JadenB/Luxamp-sub000/internal/logging"
	"github.com/ebitengine/oto/v3"
	"github.com/sirupsen/logrus"
)

// Source produces audio into a Slot until ctx is done or the audio ends.
type Source interface {
	Name() string
	Run(ctx context.Context) error
}

// tap passes PCM through unchanged while publishing a mono float copy.
type tap struct {
	r    io.Reader
	slot *Slot

	mu   sync.Mutex
	pos  int64
	rem  []byte // partial frame from the last read
	mono []float32
}

func (t *tap) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n > 0 {
		t.publish(p[:n])
	}
	return n, err
}

func (t *tap) publish(b []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pos += int64(len(b))

	if len(t.rem) > 0 {
		b = append(t.rem, b...)
		t.rem = nil
	}
	frames := len(b) / bytesPerFrame
	if whole := frames * bytesPerFrame; whole < len(b) {
		t.rem = append([]byte(nil), b[whole:]...)
	}
	if cap(t.mono) < frames {
		t.mono = make([]float32, frames)
	}
	mono := t.mono[:frames]
	for i := range mono {
		l := int16(binary.LittleEndian.Uint16(b[i*bytesPerFrame:]))
		r := int16(binary.LittleEndian.Uint16(b[i*bytesPerFrame+2:]))
		mono[i] = (float32(l) + float32(r)) / 2 / 32768
	}
	t.slot.Write(mono)
}

// Pos returns how many PCM bytes have passed through.
func (t *tap) Pos() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pos
}

var (
	otoCtx     *oto.Context
	otoRate    int
	otoOnce    sync.Once
	otoInitErr error
)

// initOto creates the process-wide output context. oto allows one per process,
// so every later call must ask for the same rate.
func initOto(sampleRate int) (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: playbackChannels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   50 * time.Millisecond,
		}
		var ready chan struct{}
		otoCtx, ready, otoInitErr = oto.NewContext(op)
		if otoInitErr == nil {
			<-ready
			otoRate = sampleRate
		}
	})
	if otoInitErr != nil {
		return nil, fmt.Errorf("opening audio output: %w", otoInitErr)
	}
	if sampleRate != otoRate {
		return nil, fmt.Errorf("audio output already open at %d Hz, file is %d Hz", otoRate, sampleRate)
	}
	return otoCtx, nil
}

// FilePlayer decodes an audio file, plays it and feeds the slot with what is
// being played. When muted, the file is paced in real time without output.
type FilePlayer struct {
	path string
	meta Metadata
	mute bool
	log  *logrus.Entry

	file *os.File
	dec  pcmDecoder
	tap  *tap
}

// NewFilePlayer opens path for playback into slot.
func NewFilePlayer(path string, slot *Slot, mute bool) (*FilePlayer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	dec, err := newDecoder(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &FilePlayer{
		path: path,
		meta: ReadMetadata(path),
		mute: mute,
		log:  logging.For("audio").WithField("file", path),
		file: f,
		dec:  dec,
		tap:  &tap{r: dec, slot: slot},
	}, nil
}

func (p *FilePlayer) Name() string { return p.meta.Title }

// Metadata returns the track tags.
func (p *FilePlayer) Metadata() Metadata { return p.meta }

// Duration returns the track length, or 0 when unknown.
func (p *FilePlayer) Duration() time.Duration {
	n := p.dec.Length()
	if n <= 0 {
		return 0
	}
	return bytesToDuration(n, p.dec.SampleRate())
}

// Position returns how much audio has been decoded.
func (p *FilePlayer) Position() time.Duration {
	return bytesToDuration(p.tap.Pos(), p.dec.SampleRate())
}

func bytesToDuration(n int64, sampleRate int) time.Duration {
	secs := float64(n) / float64(sampleRate*bytesPerFrame)
	return time.Duration(secs * float64(time.Second))
}

// Run plays until the file ends or ctx is done. The file is closed on return.
func (p *FilePlayer) Run(ctx context.Context) error {
	defer p.file.Close()
	p.log.WithField("title", p.meta.Title).Info("playing")
	if p.mute {
		return p.pace(ctx)
	}

	octx, err := initOto(p.dec.SampleRate())
	if err != nil {
		return err
	}
	player := octx.NewPlayer(p.tap)
	defer player.Pause()
	player.Play()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !player.IsPlaying() {
				if err := player.Err(); err != nil {
					return fmt.Errorf("playing %s: %w", p.path, err)
				}
				p.log.Info("playback finished")
				return nil
			}
		}
	}
}

// pace reads one analysis frame per frame period so the slot advances at the
// speed the audio would play.
func (p *FilePlayer) pace(ctx context.Context) error {
	period := time.Duration(float64(FrameSize) / float64(p.dec.SampleRate()) * float64(time.Second))
	buf := make([]byte, FrameSize*bytesPerFrame)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		if _, err := io.ReadFull(p.tap, buf); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				p.log.Info("playback finished")
				return nil
			}
			return fmt.Errorf("decoding %s: %w", p.path, err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
