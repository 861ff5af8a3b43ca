package visualizer

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
)

// Stop is one color anchor of a Gradient, at a location in [0, 1].
type Stop struct {
	Location float64
	Color    colorful.Color
}

// stopJSON keeps the hex form for people reading the file and the exact
// components for round trips. Hex alone is read when rgb is absent.
type stopJSON struct {
	Location float64   `json:"location"`
	Color    string    `json:"color"`
	RGB      []float64 `json:"rgb,omitempty"`
}

func (s Stop) MarshalJSON() ([]byte, error) {
	return json.Marshal(stopJSON{
		Location: s.Location,
		Color:    s.Color.Hex(),
		RGB:      []float64{s.Color.R, s.Color.G, s.Color.B},
	})
}

func (s *Stop) UnmarshalJSON(b []byte) error {
	var raw stopJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	s.Location = raw.Location
	if len(raw.RGB) == 3 {
		s.Color = colorful.Color{R: raw.RGB[0], G: raw.RGB[1], B: raw.RGB[2]}
		return nil
	}
	c, err := colorful.Hex(raw.Color)
	if err != nil {
		return fmt.Errorf("gradient stop color %q: %w", raw.Color, err)
	}
	s.Color = c
	return nil
}

// Gradient interpolates linearly in RGB between sorted stops.
type Gradient struct {
	Stops []Stop `json:"stops"`
}

// NewGradient sorts a copy of stops by location.
func NewGradient(stops ...Stop) Gradient {
	g := Gradient{Stops: append([]Stop(nil), stops...)}
	sort.SliceStable(g.Stops, func(i, j int) bool { return g.Stops[i].Location < g.Stops[j].Location })
	return g
}

// DefaultGradient runs from red to yellow.
func DefaultGradient() Gradient {
	return NewGradient(
		Stop{Location: 0, Color: colorful.Color{R: 1}},
		Stop{Location: 1, Color: colorful.Color{R: 1, G: 1}},
	)
}

// At returns the interpolated color at location t. Locations outside the
// stops take the nearest end color.
func (g Gradient) At(t float64) colorful.Color {
	switch len(g.Stops) {
	case 0:
		return colorful.Color{}
	case 1:
		return g.Stops[0].Color
	}
	first, last := g.Stops[0], g.Stops[len(g.Stops)-1]
	if t <= first.Location {
		return first.Color
	}
	if t >= last.Location {
		return last.Color
	}
	for i := 1; i < len(g.Stops); i++ {
		hi := g.Stops[i]
		if t > hi.Location {
			continue
		}
		lo := g.Stops[i-1]
		span := hi.Location - lo.Location
		if span <= 0 {
			return hi.Color
		}
		return lo.Color.BlendRgb(hi.Color, (t-lo.Location)/span)
	}
	return last.Color
}

// Equal reports whether both gradients have the same stops.
func (g Gradient) Equal(o Gradient) bool {
	if len(g.Stops) != len(o.Stops) {
		return false
	}
	for i := range g.Stops {
		if g.Stops[i].Location != o.Stops[i].Location || g.Stops[i].Color != o.Stops[i].Color {
			return false
		}
	}
	return true
}
