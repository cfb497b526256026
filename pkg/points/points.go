package points

import "sync"

// Point names keep the vocabulary of the BACnet device this simulator
// stands in for, so existing client scripts keep working unchanged.
const (
	TemperatureSetpointC = "temperature_setpoint_c"
	IntakeFanSpeedPct    = "intake_fan_speed_percent"
	ExhaustFanSpeedPct   = "exhaust_fan_speed_percent"
	EmergencyStop        = "emergency_stop"
	CurrentTemperatureC  = "current_temperature_c"
	ChillerSpeedPct      = "chiller_speed_percent"
	SimulationSpeed      = "simulation_speed_factor"
)

// Commanded is one consistent view of every point an external client may
// write. The simulation reads exactly one Commanded per tick.
type Commanded struct {
	SetpointC     float64 `json:"setpointC"`
	IntakePct     float64 `json:"intakePct"`
	ExhaustPct    float64 `json:"exhaustPct"`
	EmergencyStop bool    `json:"emergencyStop"`
	SpeedFactor   float64 `json:"speedFactor"`
}

// Sensors is the published output pair. Both values always come from the
// same simulation tick; readers never see a mixed pair.
type Sensors struct {
	TemperatureC float64 `json:"temperatureC"`
	ChillerPct   float64 `json:"chillerPct"`
}

// Registry holds the named process values shared between the simulation
// loop and external clients. Every method is a single short critical
// section; nothing here ever blocks on I/O.
type Registry struct {
	analog   map[string]float64
	discrete map[string]bool
	sync.RWMutex
}

func New(commanded Commanded, sensors Sensors) *Registry {
	return &Registry{
		analog: map[string]float64{
			TemperatureSetpointC: commanded.SetpointC,
			IntakeFanSpeedPct:    commanded.IntakePct,
			ExhaustFanSpeedPct:   commanded.ExhaustPct,
			SimulationSpeed:      commanded.SpeedFactor,
			CurrentTemperatureC:  sensors.TemperatureC,
			ChillerSpeedPct:      sensors.ChillerPct,
		},
		discrete: map[string]bool{
			EmergencyStop: commanded.EmergencyStop,
		},
	}
}

// Float returns the value of an analog point. No bounds are enforced
// here; out-of-range writes are clamped where the value is used.
func (r *Registry) Float(name string) (float64, bool) {
	r.RLock()
	defer r.RUnlock()
	v, ok := r.analog[name]
	return v, ok
}

func (r *Registry) SetFloat(name string, value float64) {
	r.Lock()
	r.analog[name] = value
	r.Unlock()
}

// Bool returns the value of a discrete point.
func (r *Registry) Bool(name string) (bool, bool) {
	r.RLock()
	defer r.RUnlock()
	v, ok := r.discrete[name]
	return v, ok
}

func (r *Registry) SetBool(name string, value bool) {
	r.Lock()
	r.discrete[name] = value
	r.Unlock()
}

// Commanded copies all commanded inputs under one lock so a tick never
// operates on a view torn by a concurrent writer.
func (r *Registry) Commanded() Commanded {
	r.RLock()
	defer r.RUnlock()
	return Commanded{
		SetpointC:     r.analog[TemperatureSetpointC],
		IntakePct:     r.analog[IntakeFanSpeedPct],
		ExhaustPct:    r.analog[ExhaustFanSpeedPct],
		EmergencyStop: r.discrete[EmergencyStop],
		SpeedFactor:   r.analog[SimulationSpeed],
	}
}

// Sensors copies both published outputs under one lock.
func (r *Registry) Sensors() Sensors {
	r.RLock()
	defer r.RUnlock()
	return Sensors{
		TemperatureC: r.analog[CurrentTemperatureC],
		ChillerPct:   r.analog[ChillerSpeedPct],
	}
}

// SetSensors publishes both outputs of a tick atomically.
func (r *Registry) SetSensors(s Sensors) {
	r.Lock()
	r.analog[CurrentTemperatureC] = s.TemperatureC
	r.analog[ChillerSpeedPct] = s.ChillerPct
	r.Unlock()
}
