package onboard

import "fmt"

// AllianceColor is the competition team color the robot is configured to
// favor. Rings matching it pass through the intake; anything else known
// gets ejected.
type AllianceColor int

const (
	Unknown AllianceColor = iota
	Red
	Blue
)

func (c AllianceColor) String() string {
	switch c {
	case Red:
		return "red"
	case Blue:
		return "blue"
	default:
		return "unknown"
	}
}

func ParseAllianceColor(name string) (AllianceColor, error) {
	switch name {
	case "red", "RED":
		return Red, nil
	case "blue", "BLUE":
		return Blue, nil
	}
	return Unknown, fmt.Errorf("bad alliance color %q", name)
}

func (c AllianceColor) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

func (c *AllianceColor) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}

	parsed, err := ParseAllianceColor(name)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Hue bands for the game rings. Red wraps around the top of the color
// wheel; boundary values are inclusive.
const (
	RED_HUE_MAX  = 30
	RED_HUE_MIN  = 330
	BLUE_HUE_MIN = 210
	BLUE_HUE_MAX = 270
)

// ClassifyHue maps a color wheel angle (0-360 degrees) onto an alliance
// color.
func ClassifyHue(hue float64) AllianceColor {
	switch {
	case hue >= RED_HUE_MIN || hue <= RED_HUE_MAX:
		return Red
	case hue >= BLUE_HUE_MIN && hue <= BLUE_HUE_MAX:
		return Blue
	default:
		return Unknown
	}
}
