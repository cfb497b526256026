package sim

import (
	"math"
	"math/rand"
	"time"

	"github.com/nergy-se/hvacsim/pkg/points"
	"github.com/nergy-se/hvacsim/pkg/telemetry"
	"github.com/sirupsen/logrus"
)

// Physical clamp limits of the simulated room and chiller.
const (
	MinTemperatureC = 10.0
	MaxTemperatureC = 40.0
	MinChillerPct   = 0.0
	MaxChillerPct   = 100.0
)

// Config enumerates every knob of the control law and the thermal model.
// One parameterized controller replaces the per-variant copies the old
// simulator scripts carried.
type Config struct {
	Kp            float64
	Ki            float64
	LagCoeff      float64 // fraction of the demand gap the actuator closes per tick
	IntegralLimit float64

	AmbientLoadC     float64 // temperature the room drifts toward with no cooling
	TimeConstantS    float64
	AirflowCoolCoeff float64 // degrees C per second removed at 100% airflow
	ChillerCoolCoeff float64 // degrees C per second removed at 100% chiller

	NoiseTempC      float64
	NoiseChillerPct float64

	// AutoControl drives the fan points from the temperature error when
	// no external client does, like the original simulator's built-in
	// mode.
	AutoControl bool
}

// ProcessState is the canonical simulated state. It is owned by the
// Controller and mutated only inside Tick.
type ProcessState struct {
	TemperatureC float64
	ChillerPct   float64

	integral float64
	ticks    uint64
}

func (s ProcessState) Ticks() uint64 {
	return s.ticks
}

// Controller advances the process one discrete step per Tick: it reads
// one consistent snapshot of the commanded points, runs the clamped PI
// law and the thermal model, then publishes both sensor values and one
// telemetry sample. It never blocks on external clients and never
// returns an error; invalid input is absorbed by clamping.
type Controller struct {
	cfg       Config
	points    *points.Registry
	sink      *telemetry.Ring
	interlock *Interlock
	rnd       *rand.Rand

	state ProcessState
	last  points.Commanded
}

func New(cfg Config, registry *points.Registry, sink *telemetry.Ring) *Controller {
	sensors := registry.Sensors()
	return &Controller{
		cfg:       cfg,
		points:    registry,
		sink:      sink,
		interlock: NewInterlock(),
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		state: ProcessState{
			TemperatureC: clamp(sensors.TemperatureC, MinTemperatureC, MaxTemperatureC),
			ChillerPct:   clamp(sensors.ChillerPct, MinChillerPct, MaxChillerPct),
		},
		last: registry.Commanded(),
	}
}

// State returns a copy of the simulated process state.
func (c *Controller) State() ProcessState {
	return c.state
}

// Tick advances the simulation by the nominal period dt. dt is the
// modeled timestep, not wall-clock elapsed time; pacing is the caller's
// concern.
func (c *Controller) Tick(dt time.Duration) {
	sec := dt.Seconds()
	if sec <= 0 || math.IsNaN(sec) || math.IsInf(sec, 0) {
		logrus.WithField("dt", dt).Warn("sim: skipping tick, invalid timestep")
		return
	}

	in := c.sanitize(c.points.Commanded())
	c.last = in

	if c.cfg.AutoControl {
		in = c.autopilot(in)
	}

	airflow := clamp((in.IntakePct+in.ExhaustPct)/2, 0, 100)

	var demand float64
	if c.interlock.Update(in.EmergencyStop) == StateEstopActive {
		demand = 0
		airflow = 0
		c.state.integral = 0
	} else {
		err := c.state.TemperatureC - in.SetpointC
		c.state.integral = clamp(c.state.integral+err*sec, -c.cfg.IntegralLimit, c.cfg.IntegralLimit)
		demand = clamp(c.cfg.Kp*err+c.cfg.Ki*c.state.integral, MinChillerPct, MaxChillerPct)
	}

	// First order actuator lag, then bounded noise.
	c.state.ChillerPct += (demand - c.state.ChillerPct) * c.cfg.LagCoeff
	c.state.ChillerPct = clamp(c.state.ChillerPct+c.noise(c.cfg.NoiseChillerPct), MinChillerPct, MaxChillerPct)

	cooling := airflow/100*c.cfg.AirflowCoolCoeff + c.state.ChillerPct/100*c.cfg.ChillerCoolCoeff
	dT := ((c.cfg.AmbientLoadC-c.state.TemperatureC)/c.cfg.TimeConstantS - cooling) * sec
	c.state.TemperatureC = clamp(c.state.TemperatureC+dT+c.noise(c.cfg.NoiseTempC), MinTemperatureC, MaxTemperatureC)

	c.state.ticks++

	c.points.SetSensors(points.Sensors{
		TemperatureC: c.state.TemperatureC,
		ChillerPct:   c.state.ChillerPct,
	})
	c.sink.Append(telemetry.Sample{
		Time:         time.Now(),
		TemperatureC: c.state.TemperatureC,
		SetpointC:    in.SetpointC,
		ChillerPct:   c.state.ChillerPct,
		IntakePct:    in.IntakePct,
		ExhaustPct:   in.ExhaustPct,
	})

	if c.state.ticks%5 == 0 {
		logrus.WithFields(logrus.Fields{
			"setpoint": in.SetpointC,
			"temp":     c.state.TemperatureC,
			"intake":   in.IntakePct,
			"exhaust":  in.ExhaustPct,
			"chiller":  c.state.ChillerPct,
			"estop":    in.EmergencyStop,
		}).Info("sim: status")
	}
}

// autopilot mirrors the original simulator's built-in mode: both fans
// follow the temperature error, zero while the e-stop is engaged. The
// writes go through the registry like any other client's.
func (c *Controller) autopilot(in points.Commanded) points.Commanded {
	fan := 0.0
	if !in.EmergencyStop {
		fan = clamp(50+2.5*(c.state.TemperatureC-in.SetpointC), 0, 100)
	}
	c.points.SetFloat(points.IntakeFanSpeedPct, fan)
	c.points.SetFloat(points.ExhaustFanSpeedPct, fan)
	in.IntakePct = fan
	in.ExhaustPct = fan
	return in
}

// sanitize substitutes the last known good value for non-finite
// commanded inputs so a bad write can never poison the integrator.
func (c *Controller) sanitize(in points.Commanded) points.Commanded {
	in.SetpointC = finiteOr(in.SetpointC, c.last.SetpointC)
	in.IntakePct = finiteOr(in.IntakePct, c.last.IntakePct)
	in.ExhaustPct = finiteOr(in.ExhaustPct, c.last.ExhaustPct)
	in.SpeedFactor = finiteOr(in.SpeedFactor, c.last.SpeedFactor)
	return in
}

func (c *Controller) noise(magnitude float64) float64 {
	if magnitude == 0 {
		return 0
	}
	return (c.rnd.Float64()*2 - 1) * magnitude
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func finiteOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
