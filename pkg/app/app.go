package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nergy-se/hvacsim/pkg/alarm"
	"github.com/nergy-se/hvacsim/pkg/api/v1/config"
	"github.com/nergy-se/hvacsim/pkg/mqtt"
	"github.com/nergy-se/hvacsim/pkg/points"
	"github.com/nergy-se/hvacsim/pkg/pointserver"
	"github.com/nergy-se/hvacsim/pkg/sim"
	"github.com/nergy-se/hvacsim/pkg/telemetry"
	"github.com/sirupsen/logrus"
)

const alarmEmergencyStop = "emergency stop engaged"

// App wires the point registry, the simulation loop and the external
// surfaces together and owns their lifecycle.
type App struct {
	wg     *sync.WaitGroup
	config *config.CliConfig
	sim    *config.SimConfig

	registry   *points.Registry
	sink       *telemetry.Ring
	controller *sim.Controller
	alarms     *alarm.ActiveAlarms

	pointServer *pointserver.Server
	broker      *mqtt.Broker
}

func New(cliConfig *config.CliConfig, simConfig *config.SimConfig) *App {
	registry := points.New(points.Commanded{
		SetpointC:     simConfig.Initial.SetpointC,
		IntakePct:     simConfig.Initial.IntakePct,
		ExhaustPct:    simConfig.Initial.ExhaustPct,
		EmergencyStop: simConfig.Initial.EmergencyStop,
		SpeedFactor:   1.0,
	}, points.Sensors{
		TemperatureC: simConfig.Initial.TemperatureC,
		ChillerPct:   simConfig.Initial.ChillerPct,
	})
	sink := telemetry.NewRing(simConfig.TelemetryCapacity)
	controller := sim.New(sim.Config{
		Kp:               simConfig.Control.Kp,
		Ki:               simConfig.Control.Ki,
		LagCoeff:         simConfig.Control.LagCoeff,
		IntegralLimit:    simConfig.Control.IntegralLimit,
		AmbientLoadC:     simConfig.Dynamics.AmbientLoadC,
		TimeConstantS:    simConfig.Dynamics.TimeConstantS,
		AirflowCoolCoeff: simConfig.Dynamics.AirflowCoolCoeff,
		ChillerCoolCoeff: simConfig.Dynamics.ChillerCoolCoeff,
		NoiseTempC:       simConfig.Dynamics.NoiseTempC,
		NoiseChillerPct:  simConfig.Dynamics.NoiseChillerPct,
		AutoControl:      simConfig.AutoControl,
	}, registry, sink)

	return &App{
		wg:         &sync.WaitGroup{},
		config:     cliConfig,
		sim:        simConfig,
		registry:   registry,
		sink:       sink,
		controller: controller,
		alarms:     &alarm.ActiveAlarms{},
	}
}

// Start brings up the external surfaces and spawns the loops. Any error
// here is fatal; the tick loop never starts without a working point
// server.
func (a *App) Start(ctx context.Context) error {
	a.pointServer = pointserver.New(a.registry)
	if err := a.pointServer.ListenTCP(a.config.ModbusListen); err != nil {
		return fmt.Errorf("error starting point server on %s: %w", a.config.ModbusListen, err)
	}
	if err := a.waitReady(ctx); err != nil {
		return err
	}

	broker, err := mqtt.Start(a.config.MQTTListen)
	if err != nil {
		return err
	}
	a.broker = broker

	if a.config.HTTPListen != "" {
		a.startHTTP()
	}

	a.wg.Add(2)
	go a.tickLoop(ctx)
	go a.publishLoop(ctx)
	return nil
}

// Wait blocks until the loops have drained, then releases the external
// surfaces. The tick loop always stops first so no client observes a
// half torn down process.
func (a *App) Wait() {
	a.wg.Wait()
	if a.pointServer != nil {
		a.pointServer.Close()
	}
	if a.broker != nil {
		if err := a.broker.Close(); err != nil {
			logrus.Error(err)
		}
	}
}

// waitReady probes the point server socket with a bounded deadline so we
// fail fast instead of ticking against a dead registry.
func (a *App) waitReady(ctx context.Context) error {
	deadline := time.Now().Add(time.Duration(a.config.StartupTimeoutSeconds) * time.Second)
	for {
		conn, err := net.DialTimeout("tcp", a.config.ModbusListen, time.Second)
		if err == nil {
			return conn.Close()
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timeout waiting for point server on %s: %w", a.config.ModbusListen, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func (a *App) tickLoop(ctx context.Context) {
	defer a.wg.Done()
	dt := time.Duration(a.sim.TickSeconds * float64(time.Second))
	timer := time.NewTimer(a.sleepFor(dt))
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			// dt stays the nominal period regardless of scheduler
			// jitter, so the dynamics are deterministic.
			a.controller.Tick(dt)
			a.updateAlarms()
			timer.Reset(a.sleepFor(dt))
		case <-ctx.Done():
			return
		}
	}
}

// sleepFor scales the nominal tick period by the commanded speed factor.
// The factor changes pacing only, never the timestep handed to the
// model.
func (a *App) sleepFor(dt time.Duration) time.Duration {
	speed, ok := a.registry.Float(points.SimulationSpeed)
	if !ok || !(speed > 0) {
		speed = 1.0
	}
	if speed < 0.25 {
		speed = 0.25
	}
	if speed > 4.0 {
		speed = 4.0
	}
	delay := time.Duration(float64(dt) / speed)
	if delay < 50*time.Millisecond {
		delay = 50 * time.Millisecond
	}
	return delay
}

func (a *App) updateAlarms() {
	if estop, _ := a.registry.Bool(points.EmergencyStop); estop {
		if a.alarms.Add(alarmEmergencyStop) {
			logrus.Warn("alarm: emergency stop engaged")
		}
		return
	}
	if a.alarms.Clear() {
		logrus.Info("alarm: emergency stop cleared")
	}
}

func (a *App) publishLoop(ctx context.Context) {
	defer a.wg.Done()
	ticker := time.NewTicker(time.Duration(a.sim.TickSeconds * float64(time.Second)))
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sample, ok := a.sink.Latest()
			if !ok {
				continue
			}
			if err := a.broker.PublishSample(sample); err != nil {
				logrus.Errorf("error publishing telemetry: %s", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) startHTTP() {
	mux := http.NewServeMux()
	mux.HandleFunc("/state", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(map[string]interface{}{
			"commanded": a.registry.Commanded(),
			"sensors":   a.registry.Sensors(),
			"alarms":    a.alarms.Active(),
		})
		if err != nil {
			logrus.Error(err)
		}
	})
	mux.HandleFunc("/telemetry", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(a.sink.Snapshot()); err != nil {
			logrus.Error(err)
		}
	})

	go func() {
		err := http.ListenAndServe(a.config.HTTPListen, mux)
		if err != nil {
			logrus.Error(err)
		}
	}()
}
