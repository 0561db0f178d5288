package onboard

import (
	"time"
)

type DevicePorts struct {
	Intake  uint8 `yaml:"intake"`
	Optical uint8 `yaml:"optical"`
	Screen  uint8 `yaml:"screen"`
}

type SorterBotConfig struct {
	Version  int
	Link     string // tty carrying the smart port link
	Alliance AllianceColor
	Devices  DevicePorts
	Sorter   SorterParams
	Stall    StallParams
}

type YAMLSorterParams struct {
	Poll   string `yaml:"poll"`
	Travel string `yaml:"travel"`
	Stop   string `yaml:"stop"`
	RPM    int16  `yaml:"rpm"`
}

func (p SorterParams) MarshalYAML() (interface{}, error) {
	return &YAMLSorterParams{
		p.PollInterval.String(),
		p.TravelDelay.String(),
		p.StopDelay.String(),
		p.IntakeRPM,
	}, nil
}

func (p *SorterParams) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var yp YAMLSorterParams
	if err := unmarshal(&yp); err != nil {
		return err
	}

	var err error
	if p.PollInterval, err = parseDuration(yp.Poll); err != nil {
		return err
	}
	if p.TravelDelay, err = parseDuration(yp.Travel); err != nil {
		return err
	}
	if p.StopDelay, err = parseDuration(yp.Stop); err != nil {
		return err
	}
	p.IntakeRPM = yp.RPM
	return nil
}

type YAMLStallParams struct {
	RPM            int16   `yaml:"rpm"`
	Threshold      float64 `yaml:"threshold"`
	ReverseDegrees float64 `yaml:"reverse_degrees"`
	ReverseRPM     int16   `yaml:"reverse_rpm"`
	Grace          string  `yaml:"grace"`
	Poll           string  `yaml:"poll"`
	SettlePoll     string  `yaml:"settle_poll"`
	SettleRPM      float64 `yaml:"settle_rpm"`
	Alpha          float64 `yaml:"alpha"`
}

func (p StallParams) MarshalYAML() (interface{}, error) {
	return &YAMLStallParams{
		p.DesiredRPM,
		p.ThresholdRPM,
		p.ReverseDegrees,
		p.ReverseRPM,
		p.SpinUpGrace.String(),
		p.PollInterval.String(),
		p.SettlePoll.String(),
		p.RecoverSettleRPM,
		p.SmoothingAlpha,
	}, nil
}

func (p *StallParams) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var yp YAMLStallParams
	if err := unmarshal(&yp); err != nil {
		return err
	}

	var err error
	if p.SpinUpGrace, err = parseDuration(yp.Grace); err != nil {
		return err
	}
	if p.PollInterval, err = parseDuration(yp.Poll); err != nil {
		return err
	}
	if p.SettlePoll, err = parseDuration(yp.SettlePoll); err != nil {
		return err
	}
	p.DesiredRPM = yp.RPM
	p.ThresholdRPM = yp.Threshold
	p.ReverseDegrees = yp.ReverseDegrees
	p.ReverseRPM = yp.ReverseRPM
	p.RecoverSettleRPM = yp.SettleRPM
	p.SmoothingAlpha = yp.Alpha
	return nil
}

// parseDuration treats an absent value as zero so the task defaults apply.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
