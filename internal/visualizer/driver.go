package visualizer

import "github.com/JadenB/Luxamp-sub000/internal/analysis"

// Driver selects one scalar from an analyzed frame. IDs are persisted in
// presets and must never be renumbered.
type Driver interface {
	Name() string
	ID() int
	Output(f *analysis.Features) float32
}

type featureDriver struct {
	name string
	id   int
	fn   func(f *analysis.Features) float32
}

func (d featureDriver) Name() string                        { return d.name }
func (d featureDriver) ID() int                             { return d.id }
func (d featureDriver) Output(f *analysis.Features) float32 { return d.fn(f) }

// Driver IDs.
const (
	DriverPeakEnergy = iota
	DriverRMS
	DriverPitch
	DriverSpectralDifference
	DriverSpectralCrest
	DriverDeepBass
	DriverBass
	DriverMids
	DriverTreble
)

// Band drivers scale their averages so typical input lands near [0, 1].
var drivers = []Driver{
	featureDriver{"Peak Energy", DriverPeakEnergy, func(f *analysis.Features) float32 { return f.PeakEnergy }},
	featureDriver{"Root Mean Square", DriverRMS, func(f *analysis.Features) float32 { return f.RMS }},
	featureDriver{"Pitch", DriverPitch, func(f *analysis.Features) float32 { return f.Pitch * 0.00125 }},
	featureDriver{"Spectral Difference", DriverSpectralDifference, func(f *analysis.Features) float32 { return f.SpectralDifference }},
	featureDriver{"Spectral Crest", DriverSpectralCrest, func(f *analysis.Features) float32 { return f.SpectralCrest }},
	featureDriver{"Deep Bass Volume", DriverDeepBass, func(f *analysis.Features) float32 { return f.AverageMagOfRange(0, 3, 2) * 0.0075 }},
	featureDriver{"Bass Volume", DriverBass, func(f *analysis.Features) float32 { return f.AverageMagOfRange(0, 6, 3) * 0.01 }},
	featureDriver{"Mids Volume", DriverMids, func(f *analysis.Features) float32 { return f.AverageMagOfRange(12, 20, 3) * 0.02 }},
	featureDriver{"Treble Volume", DriverTreble, func(f *analysis.Features) float32 { return f.AverageMagOfRange(25, 50, 5) * 0.04 }},
}

// Drivers returns every registered driver in display order.
func Drivers() []Driver {
	out := make([]Driver, len(drivers))
	copy(out, drivers)
	return out
}

// DriverNames returns the display names of all drivers.
func DriverNames() []string {
	names := make([]string, len(drivers))
	for i, d := range drivers {
		names[i] = d.Name()
	}
	return names
}

// DriverByName falls back to the first driver for unknown names.
func DriverByName(name string) Driver {
	for _, d := range drivers {
		if d.Name() == name {
			return d
		}
	}
	return drivers[0]
}

// DriverByID falls back to the first driver for unknown ids.
func DriverByID(id int) Driver {
	for _, d := range drivers {
		if d.ID() == id {
			return d
		}
	}
	return drivers[0]
}
