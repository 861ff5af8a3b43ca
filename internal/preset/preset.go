// Package preset stores named snapshots of the visualizer configuration.
package preset

import (
	"encoding/json"
	"fmt"

	"github.com/JadenB/Luxamp-sub000/internal/visualizer"
)

// DefaultName is the preset that always exists.
const DefaultName = "Default"

// Preset is a named visualizer configuration.
type Preset struct {
	Name     string
	Settings visualizer.Settings
}

func defaultMapper() visualizer.MapperSettings {
	return visualizer.MapperSettings{
		DriverID:           visualizer.DriverBass,
		InputMin:           0,
		InputMax:           1,
		OutputMin:          0,
		OutputMax:          1,
		DynamicUseMin:      true,
		DynamicUseMax:      true,
		DynamicAggression:  0.5,
		UpwardsSmoothing:   0.5,
		DownwardsSmoothing: 0.5,
	}
}

// Default returns the canonical default preset.
func Default() Preset {
	return Preset{
		Name: DefaultName,
		Settings: visualizer.Settings{
			Gradient:   visualizer.DefaultGradient(),
			Brightness: defaultMapper(),
			Color:      defaultMapper(),
		},
	}
}

// presetJSON is the flat persisted form. Every field is optional on decode.
type presetJSON struct {
	Name     string              `json:"name"`
	Gradient visualizer.Gradient `json:"gradient"`

	BrightnessInputMax           float32 `json:"brightnessInputMax"`
	BrightnessInputMin           float32 `json:"brightnessInputMin"`
	BrightnessOutputMax          float32 `json:"brightnessOutputMax"`
	BrightnessOutputMin          float32 `json:"brightnessOutputMin"`
	BrightnessDriverID           int     `json:"brightnessDriverId"`
	BrightnessInvert             bool    `json:"brightnessInvert"`
	BrightnessUseDynamicRange    bool    `json:"brightnessUseDynamicRange"`
	BrightnessDynamicUseMin      bool    `json:"brightnessDynamicUseMin"`
	BrightnessDynamicUseMax      bool    `json:"brightnessDynamicUseMax"`
	BrightnessDynamicAggression  float32 `json:"brightnessDynamicAggression"`
	BrightnessUpwardsSmoothing   float32 `json:"brightnessUpwardsSmoothing"`
	BrightnessDownwardsSmoothing float32 `json:"brightnessDownwardsSmoothing"`

	ColorInputMax           float32 `json:"colorInputMax"`
	ColorInputMin           float32 `json:"colorInputMin"`
	ColorOutputMax          float32 `json:"colorOutputMax"`
	ColorOutputMin          float32 `json:"colorOutputMin"`
	ColorDriverID           int     `json:"colorDriverId"`
	ColorInvert             bool    `json:"colorInvert"`
	ColorUseDynamicRange    bool    `json:"colorUseDynamicRange"`
	ColorDynamicUseMin      bool    `json:"colorDynamicUseMin"`
	ColorDynamicUseMax      bool    `json:"colorDynamicUseMax"`
	ColorDynamicAggression  float32 `json:"colorDynamicAggression"`
	ColorUpwardsSmoothing   float32 `json:"colorUpwardsSmoothing"`
	ColorDownwardsSmoothing float32 `json:"colorDownwardsSmoothing"`
}

func toJSON(p Preset) presetJSON {
	b, c := p.Settings.Brightness, p.Settings.Color
	return presetJSON{
		Name:     p.Name,
		Gradient: p.Settings.Gradient,

		BrightnessInputMax:           b.InputMax,
		BrightnessInputMin:           b.InputMin,
		BrightnessOutputMax:          b.OutputMax,
		BrightnessOutputMin:          b.OutputMin,
		BrightnessDriverID:           b.DriverID,
		BrightnessInvert:             b.Invert,
		BrightnessUseDynamicRange:    b.UseDynamicRange,
		BrightnessDynamicUseMin:      b.DynamicUseMin,
		BrightnessDynamicUseMax:      b.DynamicUseMax,
		BrightnessDynamicAggression:  b.DynamicAggression,
		BrightnessUpwardsSmoothing:   b.UpwardsSmoothing,
		BrightnessDownwardsSmoothing: b.DownwardsSmoothing,

		ColorInputMax:           c.InputMax,
		ColorInputMin:           c.InputMin,
		ColorOutputMax:          c.OutputMax,
		ColorOutputMin:          c.OutputMin,
		ColorDriverID:           c.DriverID,
		ColorInvert:             c.Invert,
		ColorUseDynamicRange:    c.UseDynamicRange,
		ColorDynamicUseMin:      c.DynamicUseMin,
		ColorDynamicUseMax:      c.DynamicUseMax,
		ColorDynamicAggression:  c.DynamicAggression,
		ColorUpwardsSmoothing:   c.UpwardsSmoothing,
		ColorDownwardsSmoothing: c.DownwardsSmoothing,
	}
}

func (j presetJSON) preset() Preset {
	return Preset{
		Name: j.Name,
		Settings: visualizer.Settings{
			Gradient: j.Gradient,
			Brightness: visualizer.MapperSettings{
				DriverID:           j.BrightnessDriverID,
				InputMin:           j.BrightnessInputMin,
				InputMax:           j.BrightnessInputMax,
				OutputMin:          j.BrightnessOutputMin,
				OutputMax:          j.BrightnessOutputMax,
				Invert:             j.BrightnessInvert,
				UseDynamicRange:    j.BrightnessUseDynamicRange,
				DynamicUseMin:      j.BrightnessDynamicUseMin,
				DynamicUseMax:      j.BrightnessDynamicUseMax,
				DynamicAggression:  j.BrightnessDynamicAggression,
				UpwardsSmoothing:   j.BrightnessUpwardsSmoothing,
				DownwardsSmoothing: j.BrightnessDownwardsSmoothing,
			},
			Color: visualizer.MapperSettings{
				DriverID:           j.ColorDriverID,
				InputMin:           j.ColorInputMin,
				InputMax:           j.ColorInputMax,
				OutputMin:          j.ColorOutputMin,
				OutputMax:          j.ColorOutputMax,
				Invert:             j.ColorInvert,
				UseDynamicRange:    j.ColorUseDynamicRange,
				DynamicUseMin:      j.ColorDynamicUseMin,
				DynamicUseMax:      j.ColorDynamicUseMax,
				DynamicAggression:  j.ColorDynamicAggression,
				UpwardsSmoothing:   j.ColorUpwardsSmoothing,
				DownwardsSmoothing: j.ColorDownwardsSmoothing,
			},
		},
	}
}

func (p Preset) MarshalJSON() ([]byte, error) {
	return json.Marshal(toJSON(p))
}

// UnmarshalJSON fills fields missing from b with the default preset's values.
// Malformed JSON or a wrongly typed field is an error.
func (p *Preset) UnmarshalJSON(b []byte) error {
	j := toJSON(Default())
	if err := json.Unmarshal(b, &j); err != nil {
		return fmt.Errorf("decoding preset: %w", err)
	}
	*p = j.preset()
	return nil
}
