package camera

import (
	"fmt"
	"sort"
)

// Largest resolution a preset or explicit request may ask for (8K UHD).
const (
	SensorMaxWidth  = 7680
	SensorMaxHeight = 4320
)

// Preset names for common capture resolutions
const (
	PresetVGA   = "vga"
	Preset720p  = "720p"
	Preset1080p = "1080p"
	Preset4K    = "4k"
)

// Resolution is a width/height pair.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Presets returns all available resolution presets.
func Presets() map[string]Resolution {
	return map[string]Resolution{
		PresetVGA:   {Width: 640, Height: 480},
		Preset720p:  {Width: 1280, Height: 720},
		Preset1080p: {Width: 1920, Height: 1080},
		Preset4K:    {Width: 3840, Height: 2160},
	}
}

// PresetNames returns the sorted list of preset names.
func PresetNames() []string {
	names := make([]string, 0, len(Presets()))
	for name := range Presets() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetPreset returns a preset by name.
func GetPreset(name string) (Resolution, error) {
	res, ok := Presets()[name]
	if !ok {
		return Resolution{}, fmt.Errorf("%w: %q (want one of %v)", ErrUnknownPreset, name, PresetNames())
	}
	return res, nil
}

// ApplyPreset fills Width and Height from the named preset, leaving any
// dimension that is already set untouched.
func (c *Config) ApplyPreset(name string) error {
	if name == "" {
		return nil
	}
	res, err := GetPreset(name)
	if err != nil {
		return err
	}
	if c.Width == 0 {
		c.Width = res.Width
	}
	if c.Height == 0 {
		c.Height = res.Height
	}
	return nil
}
