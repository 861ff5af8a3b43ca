package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

const (
	playbackChannels = 2
	bytesPerSample   = 2
	bytesPerFrame    = playbackChannels * bytesPerSample
)

// pcmDecoder yields interleaved stereo signed 16-bit little endian PCM.
type pcmDecoder interface {
	io.Reader
	SampleRate() int
	// Length is the decoded size in bytes, or -1 when unknown.
	Length() int64
}

// Formats lists the file extensions FilePlayer can decode.
var Formats = []string{".mp3", ".wav", ".flac", ".ogg"}

// newDecoder picks a decoder by file extension.
func newDecoder(f *os.File) (pcmDecoder, error) {
	ext := strings.ToLower(filepath.Ext(f.Name()))
	switch ext {
	case ".mp3":
		return newMP3Decoder(f)
	case ".wav":
		return newWAVDecoder(f)
	case ".flac":
		return newFLACDecoder(f)
	case ".ogg":
		return newOGGDecoder(f)
	default:
		return nil, fmt.Errorf("unsupported format: %s", ext)
	}
}

// to16 rescales a sample of the given bit depth to 16 bits.
func to16(sample, bitDepth int) int16 {
	switch {
	case bitDepth > 16:
		sample >>= bitDepth - 16
	case bitDepth < 16:
		sample <<= 16 - bitDepth
	}
	if sample > 32767 {
		sample = 32767
	} else if sample < -32768 {
		sample = -32768
	}
	return int16(sample)
}

// putFrame writes one stereo frame. Mono is duplicated and channels past the
// second are dropped.
func putFrame(dst []byte, frame []int16) {
	l := frame[0]
	r := l
	if len(frame) > 1 {
		r = frame[1]
	}
	binary.LittleEndian.PutUint16(dst, uint16(l))
	binary.LittleEndian.PutUint16(dst[2:], uint16(r))
}

// pending drains converted bytes left from an earlier read.
type pending struct{ buf []byte }

func (p *pending) drain(dst []byte) int {
	n := copy(dst, p.buf)
	p.buf = p.buf[n:]
	return n
}

func (p *pending) fill(dst, raw []byte) int {
	n := copy(dst, raw)
	if n < len(raw) {
		p.buf = raw[n:]
	}
	return n
}

// --- MP3 ---

type mp3Decoder struct {
	dec *mp3.Decoder
}

func newMP3Decoder(f *os.File) (*mp3Decoder, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("decoding MP3: %w", err)
	}
	return &mp3Decoder{dec: dec}, nil
}

func (d *mp3Decoder) Read(p []byte) (int, error) { return d.dec.Read(p) }
func (d *mp3Decoder) SampleRate() int            { return d.dec.SampleRate() }
func (d *mp3Decoder) Length() int64              { return d.dec.Length() }

// --- WAV ---

type wavDecoder struct {
	dec      *wav.Decoder
	ibuf     *goaudio.IntBuffer
	channels int
	bitDepth int
	frames   int64
	pending
}

func newWAVDecoder(f *os.File) (*wavDecoder, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("reading WAV PCM data: %w", err)
	}

	channels := int(dec.NumChans)
	bitDepth := int(dec.BitDepth)
	if channels == 0 || bitDepth == 0 {
		return nil, fmt.Errorf("invalid WAV format: %d channels, %d bits", channels, bitDepth)
	}
	frames := dec.PCMLen() / int64(channels*bitDepth/8)

	return &wavDecoder{
		dec: dec,
		ibuf: &goaudio.IntBuffer{
			Format:         dec.Format(),
			Data:           make([]int, FrameSize*channels),
			SourceBitDepth: bitDepth,
		},
		channels: channels,
		bitDepth: bitDepth,
		frames:   frames,
	}, nil
}

func (d *wavDecoder) Read(p []byte) (int, error) {
	if len(d.buf) > 0 {
		return d.drain(p), nil
	}

	n, err := d.dec.PCMBuffer(d.ibuf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("reading WAV samples: %w", err)
	}
	nFrames := n / d.channels
	if nFrames == 0 {
		return 0, io.EOF
	}

	raw := make([]byte, nFrames*bytesPerFrame)
	frame := make([]int16, d.channels)
	for i := 0; i < nFrames; i++ {
		for ch := 0; ch < d.channels; ch++ {
			sample := d.ibuf.Data[i*d.channels+ch]
			if d.bitDepth == 8 {
				// 8-bit WAV is unsigned.
				sample -= 128
			}
			frame[ch] = to16(sample, d.bitDepth)
		}
		putFrame(raw[i*bytesPerFrame:], frame)
	}
	return d.fill(p, raw), nil
}

func (d *wavDecoder) SampleRate() int { return int(d.dec.SampleRate) }
func (d *wavDecoder) Length() int64   { return d.frames * bytesPerFrame }

// --- FLAC ---

type flacDecoder struct {
	stream *flac.Stream
	pending
}

func newFLACDecoder(f *os.File) (*flacDecoder, error) {
	stream, err := flac.New(f)
	if err != nil {
		return nil, fmt.Errorf("decoding FLAC: %w", err)
	}
	return &flacDecoder{stream: stream}, nil
}

func (d *flacDecoder) Read(p []byte) (int, error) {
	if len(d.buf) > 0 {
		return d.drain(p), nil
	}

	fr, err := d.stream.ParseNext()
	if err != nil {
		return 0, err
	}

	channels := len(fr.Subframes)
	bps := int(d.stream.Info.BitsPerSample)
	nSamples := int(fr.Subframes[0].NSamples)
	raw := make([]byte, nSamples*bytesPerFrame)
	frame := make([]int16, channels)
	for i := 0; i < nSamples; i++ {
		for ch := 0; ch < channels; ch++ {
			frame[ch] = to16(int(fr.Subframes[ch].Samples[i]), bps)
		}
		putFrame(raw[i*bytesPerFrame:], frame)
	}
	return d.fill(p, raw), nil
}

func (d *flacDecoder) SampleRate() int { return int(d.stream.Info.SampleRate) }
func (d *flacDecoder) Length() int64   { return int64(d.stream.Info.NSamples) * bytesPerFrame }

// --- OGG Vorbis ---

type oggDecoder struct {
	reader *oggvorbis.Reader
	pending
}

func newOGGDecoder(f *os.File) (*oggDecoder, error) {
	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decoding OGG: %w", err)
	}
	return &oggDecoder{reader: reader}, nil
}

func (d *oggDecoder) Read(p []byte) (int, error) {
	if len(d.buf) > 0 {
		return d.drain(p), nil
	}

	channels := d.reader.Channels()
	frames := max(len(p)/bytesPerFrame, 1)
	samples := make([]float32, frames*channels)
	n, err := d.reader.Read(samples)
	nFrames := n / channels
	if nFrames == 0 {
		if err != nil {
			return 0, err
		}
		return 0, io.EOF
	}

	raw := make([]byte, nFrames*bytesPerFrame)
	frame := make([]int16, channels)
	for i := 0; i < nFrames; i++ {
		for ch := 0; ch < channels; ch++ {
			s := max(min(samples[i*channels+ch], 1), -1)
			frame[ch] = int16(s * 32767)
		}
		putFrame(raw[i*bytesPerFrame:], frame)
	}
	return d.fill(p, raw), err
}

func (d *oggDecoder) SampleRate() int { return d.reader.SampleRate() }
func (d *oggDecoder) Length() int64   { return d.reader.Length() * bytesPerFrame }
