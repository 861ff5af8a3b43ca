package light

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/JadenB/Luxamp-sub000/internal/config"
	"github.com/JadenB/Luxamp-sub000/internal/serial"
	"github.com/lucasb-eyer/go-colorful"
)

type call struct {
	power   bool
	on      bool
	r, g, b byte
}

type fakeOutput struct {
	mu    sync.Mutex
	calls []call
	sent  chan call
}

func newFakeOutput() *fakeOutput {
	return &fakeOutput{sent: make(chan call, 64)}
}

func (o *fakeOutput) SendColor(r, g, b byte) {
	o.record(call{r: r, g: g, b: b})
}

func (o *fakeOutput) SetPower(on bool) {
	o.record(call{power: true, on: on})
}

func (o *fakeOutput) record(c call) {
	o.mu.Lock()
	o.calls = append(o.calls, c)
	o.mu.Unlock()
	select {
	case o.sent <- c:
	default:
	}
}

func (o *fakeOutput) colorCount() int {
	n := 0
	for _, c := range o.snapshot() {
		if !c.power {
			n++
		}
	}
	return n
}

func (o *fakeOutput) snapshot() []call {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]call(nil), o.calls...)
}

func TestGammaTableMonotonic(t *testing.T) {
	if gammaTable[0] != 0 || gammaTable[255] != 255 {
		t.Fatalf("endpoints = %d, %d, want 0, 255", gammaTable[0], gammaTable[255])
	}
	for i := 1; i < len(gammaTable); i++ {
		if gammaTable[i] < gammaTable[i-1] {
			t.Fatalf("gammaTable[%d] = %d < gammaTable[%d] = %d", i, gammaTable[i], i-1, gammaTable[i-1])
		}
	}
}

func TestSetColorIgnoredWhileOff(t *testing.T) {
	out := newFakeOutput()
	c := NewController(out)
	defer c.Close()

	c.SetColor(colorful.Color{R: 1, G: 1, B: 1})
	if got := len(out.snapshot()); got != 0 {
		t.Fatalf("sends while off = %d, want 0", got)
	}
}

func TestSetColorSynchronous(t *testing.T) {
	out := newFakeOutput()
	c := NewController(out)
	defer c.Close()

	c.TurnOn()
	c.SetColor(colorful.Color{R: 1, G: 0.5, B: 0})
	calls := out.snapshot()
	if len(calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(calls))
	}
	if !calls[0].power || !calls[0].on {
		t.Fatalf("first call = %+v, want power on", calls[0])
	}
	want := call{r: 255, g: gammaTable[127], b: 0}
	if calls[1] != want {
		t.Fatalf("color = %+v, want %+v", calls[1], want)
	}
}

func TestMaxBrightnessScales(t *testing.T) {
	out := newFakeOutput()
	c := NewController(out)
	defer c.Close()

	c.SetMaxBrightness(0.5)
	c.TurnOn()
	c.SetColor(colorful.Color{R: 1, G: 1, B: 1})
	calls := out.snapshot()
	if got, want := calls[len(calls)-1].r, gammaTable[127]; got != want {
		t.Fatalf("red at half brightness = %d, want %d", got, want)
	}

	c.SetMaxBrightness(7)
	if got := c.MaxBrightness(); got != 1 {
		t.Fatalf("MaxBrightness() = %v, want 1", got)
	}
}

func TestDelayedSendDoesNotBlock(t *testing.T) {
	out := newFakeOutput()
	c := NewController(out)
	defer c.Close()

	c.TurnOn()
	<-out.sent
	c.SetDelay(50 * time.Millisecond)

	start := time.Now()
	c.SetColor(colorful.Color{R: 1})
	if elapsed := time.Since(start); elapsed > 20*time.Millisecond {
		t.Fatalf("SetColor blocked for %v", elapsed)
	}
	if got := len(out.snapshot()); got != 1 {
		t.Fatalf("calls right after SetColor = %d, want 1", got)
	}

	select {
	case got := <-out.sent:
		if got.r != 255 {
			t.Fatalf("delayed color = %+v, want red", got)
		}
		if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
			t.Fatalf("delayed color arrived after %v, want >= 50ms", elapsed)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("delayed color never sent")
	}
}

func TestTurnOffSendsBlackThenPowerOff(t *testing.T) {
	out := newFakeOutput()
	c := NewController(out)
	defer c.Close()

	c.TurnOn()
	c.TurnOff()
	calls := out.snapshot()
	if len(calls) != 3 {
		t.Fatalf("calls = %+v, want 3", calls)
	}
	if calls[1] != (call{}) {
		t.Fatalf("second call = %+v, want black", calls[1])
	}
	if calls[2] != (call{power: true, on: false}) {
		t.Fatalf("third call = %+v, want power off", calls[2])
	}
}

func TestTurnOffDropsDelayedColors(t *testing.T) {
	out := newFakeOutput()
	c := NewController(out)
	defer c.Close()

	c.TurnOn()
	c.SetDelay(30 * time.Millisecond)
	c.SetColor(colorful.Color{G: 1})
	c.TurnOff()
	time.Sleep(80 * time.Millisecond)

	for _, got := range out.snapshot() {
		if !got.power && got.g != 0 {
			t.Fatalf("delayed color sent after power off: %+v", got)
		}
	}
}

// A long delay at a high refresh rate keeps hundreds of colors in flight.
func TestDelayedSendKeepsEveryColor(t *testing.T) {
	out := newFakeOutput()
	c := NewController(out)
	defer c.Close()

	c.TurnOn()
	c.SetDelay(100 * time.Millisecond)
	const n = 300
	for i := 0; i < n; i++ {
		c.SetColor(colorful.Color{R: float64(i%2) * 0.5})
	}

	deadline := time.Now().Add(3 * time.Second)
	for out.colorCount() < n && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := out.colorCount(); got != n {
		t.Fatalf("delayed colors sent = %d, want %d", got, n)
	}
	calls := out.snapshot()[1:]
	for i, got := range calls {
		want := correct(float64(i%2)*0.5, 1)
		if got.r != want {
			t.Fatalf("color %d red = %d, want %d (out of order)", i, got.r, want)
		}
	}
}

func TestOffReportedResyncs(t *testing.T) {
	out := newFakeOutput()
	c := NewController(out)
	defer c.Close()

	c.OffReported()
	if got := len(out.snapshot()); got != 0 {
		t.Fatalf("calls after off report while off = %d, want 0", got)
	}
	c.TurnOn()
	c.OffReported()
	calls := out.snapshot()
	if len(calls) != 2 || !calls[1].power || !calls[1].on {
		t.Fatalf("calls = %+v, want power on twice", calls)
	}
}

func TestFollowSettings(t *testing.T) {
	s, err := config.Load(filepath.Join(t.TempDir(), "settings.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := s.SetDelayMS(120); err != nil {
		t.Fatalf("SetDelayMS() error = %v", err)
	}
	c := NewController(newFakeOutput())
	defer c.Close()

	stop := c.Follow(s)
	defer stop()
	if got := c.Delay(); got != 120*time.Millisecond {
		t.Fatalf("Delay() = %v, want 120ms", got)
	}
	if err := s.SetMaxBrightness(0.25); err != nil {
		t.Fatalf("SetMaxBrightness() error = %v", err)
	}
	if got := c.MaxBrightness(); got != 0.25 {
		t.Fatalf("MaxBrightness() = %v, want 0.25", got)
	}
}

type packetRecorder struct{ packets [][4]byte }

func (p *packetRecorder) SendPacket(op, a, b, c byte) {
	p.packets = append(p.packets, [4]byte{op, a, b, c})
}

func TestLegacyOutput(t *testing.T) {
	rec := &packetRecorder{}
	o := NewLegacyOutput(rec)
	o.SetPower(true)
	o.SendColor(1, 2, 3)
	o.SetPower(false)

	want := [][4]byte{
		{serial.LegacyOpPower, 1, 0, 0},
		{serial.LegacyOpColor, 1, 2, 3},
		{serial.LegacyOpPower, 0, 0, 0},
	}
	if len(rec.packets) != len(want) {
		t.Fatalf("packets = %v, want %v", rec.packets, want)
	}
	for i := range want {
		if rec.packets[i] != want[i] {
			t.Fatalf("packet %d = %v, want %v", i, rec.packets[i], want[i])
		}
	}
}
