package visualizer

import (
	"math"

	"github.com/JadenB/Luxamp-sub000/internal/analysis"
	"github.com/JadenB/Luxamp-sub000/internal/dsp"
)

const defaultPostAlpha = 0.707

// Data is the per-tick result of one Mapper.
type Data struct {
	InputVal   float32
	OutputVal  float32
	DynamicMin float32
	DynamicMax float32
}

// MapperSettings is the persisted configuration of a Mapper. Smoothing values
// are in user units; the post-filter alpha is their square root.
type MapperSettings struct {
	DriverID           int
	InputMin           float32
	InputMax           float32
	OutputMin          float32
	OutputMax          float32
	Invert             bool
	UseDynamicRange    bool
	DynamicUseMin      bool
	DynamicUseMax      bool
	DynamicAggression  float32
	UpwardsSmoothing   float32
	DownwardsSmoothing float32
}

// Mapper turns one driver's output into a value in [OutputMin, OutputMax]:
// driver, Savitzky-Golay pre-filter, biased IIR post-filter, fixed or dynamic
// range normalization, optional inversion, output remap.
type Mapper struct {
	InputMin  float32
	InputMax  float32
	OutputMin float32
	OutputMax float32
	Invert    bool

	driver          Driver
	useDynamicRange bool
	dynamicRange    *dsp.DynamicRange

	preFilter  *dsp.SavitzkyGolay
	postFilter *dsp.BiasedIIR
	chain      *dsp.Multipass
}

func NewMapper() *Mapper {
	m := &Mapper{
		InputMax:     1,
		OutputMax:    1,
		driver:       drivers[0],
		dynamicRange: dsp.NewDynamicRange(),
		preFilter:    dsp.NewSavitzkyGolay(dsp.Order9),
		postFilter:   dsp.NewBiasedIIR(defaultPostAlpha, defaultPostAlpha),
	}
	m.chain = dsp.NewMultipass(m.preFilter, m.postFilter)
	return m
}

// GenerateMapping runs one tick of the pipeline.
func (m *Mapper) GenerateMapping(f *analysis.Features) Data {
	var data Data
	v := m.chain.Filter(m.driver.Output(f))
	data.InputVal = v

	if m.useDynamicRange {
		lo, hi := m.dynamicRange.CalculateRange(v)
		v = dsp.RemapToUnit(v, lo, hi)
		data.DynamicMin, data.DynamicMax = lo, hi
	} else {
		v = dsp.RemapToUnit(v, m.InputMin, m.InputMax)
	}

	if m.Invert {
		v = 1 - v
	}
	data.OutputVal = dsp.RemapFromUnit(v, m.OutputMin, m.OutputMax)
	return data
}

func (m *Mapper) Driver() Driver { return m.driver }

func (m *Mapper) SetDriverByName(name string) { m.driver = DriverByName(name) }
func (m *Mapper) SetDriverByID(id int)        { m.driver = DriverByID(id) }

func (m *Mapper) UseDynamicRange() bool { return m.useDynamicRange }

// SetUseDynamicRange seeds the envelope with the fixed input range when
// dynamic range is switched on.
func (m *Mapper) SetUseDynamicRange(on bool) {
	if on && !m.useDynamicRange {
		m.dynamicRange.ResetRangeWithInitial(m.InputMin, m.InputMax)
	}
	m.useDynamicRange = on
}

func (m *Mapper) DynamicRange() *dsp.DynamicRange { return m.dynamicRange }

func (m *Mapper) UpwardsSmoothing() float32 {
	a := m.postFilter.UpwardsAlpha()
	return a * a
}

func (m *Mapper) SetUpwardsSmoothing(v float32) {
	m.postFilter.SetUpwardsAlpha(sqrt32(dsp.Clip(v, 0, 1)))
}

func (m *Mapper) DownwardsSmoothing() float32 {
	a := m.postFilter.DownwardsAlpha()
	return a * a
}

func (m *Mapper) SetDownwardsSmoothing(v float32) {
	m.postFilter.SetDownwardsAlpha(sqrt32(dsp.Clip(v, 0, 1)))
}

// Settings captures the current configuration.
func (m *Mapper) Settings() MapperSettings {
	return MapperSettings{
		DriverID:           m.driver.ID(),
		InputMin:           m.InputMin,
		InputMax:           m.InputMax,
		OutputMin:          m.OutputMin,
		OutputMax:          m.OutputMax,
		Invert:             m.Invert,
		UseDynamicRange:    m.useDynamicRange,
		DynamicUseMin:      m.dynamicRange.UseMin,
		DynamicUseMax:      m.dynamicRange.UseMax,
		DynamicAggression:  m.dynamicRange.Aggression(),
		UpwardsSmoothing:   m.UpwardsSmoothing(),
		DownwardsSmoothing: m.DownwardsSmoothing(),
	}
}

// Apply replaces the configuration with s.
func (m *Mapper) Apply(s MapperSettings) {
	m.SetDriverByID(s.DriverID)
	m.InputMin = s.InputMin
	m.InputMax = s.InputMax
	m.OutputMin = dsp.Clip(s.OutputMin, 0, 1)
	m.OutputMax = dsp.Clip(s.OutputMax, 0, 1)
	m.Invert = s.Invert
	m.SetUseDynamicRange(s.UseDynamicRange)
	m.dynamicRange.UseMin = s.DynamicUseMin
	m.dynamicRange.UseMax = s.DynamicUseMax
	m.dynamicRange.SetAggression(s.DynamicAggression)
	m.SetUpwardsSmoothing(s.UpwardsSmoothing)
	m.SetDownwardsSmoothing(s.DownwardsSmoothing)
}

func sqrt32(v float32) float32 { return float32(math.Sqrt(float64(v))) }
