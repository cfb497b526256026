package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Initial process values applied once at startup.
type Initial struct {
	TemperatureC  float64 `yaml:"temperatureC"`
	ChillerPct    float64 `yaml:"chillerPct"`
	SetpointC     float64 `yaml:"setpointC"`
	IntakePct     float64 `yaml:"intakePct"`
	ExhaustPct    float64 `yaml:"exhaustPct"`
	EmergencyStop bool    `yaml:"emergencyStop"`
}

type Control struct {
	Kp            float64 `yaml:"kp"`
	Ki            float64 `yaml:"ki"`
	LagCoeff      float64 `yaml:"lagCoeff"`
	IntegralLimit float64 `yaml:"integralLimit"`
}

// Dynamics knobs. Consistent, not accurate physics.
type Dynamics struct {
	AmbientLoadC     float64 `yaml:"ambientLoadC"`
	TimeConstantS    float64 `yaml:"timeConstantS"`
	AirflowCoolCoeff float64 `yaml:"airflowCoolCoeff"`
	ChillerCoolCoeff float64 `yaml:"chillerCoolCoeff"`
	NoiseTempC       float64 `yaml:"noiseTempC"`
	NoiseChillerPct  float64 `yaml:"noiseChillerPct"`
}

// SimConfig is the immutable simulation configuration, loaded once at
// startup.
type SimConfig struct {
	TickSeconds       float64  `yaml:"tickSeconds"`
	AutoControl       bool     `yaml:"autoControl"`
	TelemetryCapacity int      `yaml:"telemetryCapacity"`
	Initial           Initial  `yaml:"initial"`
	Control           Control  `yaml:"control"`
	Dynamics          Dynamics `yaml:"dynamics"`
}

func DefaultSimConfig() *SimConfig {
	return &SimConfig{
		TickSeconds:       1.0,
		AutoControl:       true,
		TelemetryCapacity: 600,
		Initial: Initial{
			TemperatureC:  25.0,
			ChillerPct:    30.0,
			SetpointC:     23.0,
			IntakePct:     20.0,
			ExhaustPct:    20.0,
			EmergencyStop: false,
		},
		Control: Control{
			Kp:            40.0,
			Ki:            0.3,
			LagCoeff:      0.2,
			IntegralLimit: 400.0,
		},
		Dynamics: Dynamics{
			AmbientLoadC:     30.0,
			TimeConstantS:    50.0,
			AirflowCoolCoeff: 0.04,
			ChillerCoolCoeff: 0.25,
			NoiseTempC:       0.03,
			NoiseChillerPct:  1.0,
		},
	}
}

// LoadSimConfig returns the defaults overlaid with the YAML file at
// path. A missing file is not an error; the defaults apply as-is.
func LoadSimConfig(path string) (*SimConfig, error) {
	cfg := DefaultSimConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, err)
	}
	return cfg, nil
}
