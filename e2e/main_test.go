package e2e

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/goburrow/modbus"
	"github.com/nergy-se/hvacsim/pkg/api/v1/config"
	"github.com/nergy-se/hvacsim/pkg/app"
	"github.com/nergy-se/hvacsim/pkg/modbusclient"
	"github.com/nergy-se/hvacsim/pkg/pointserver"
	"github.com/nergy-se/hvacsim/pkg/telemetry"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfigs(modbusAddr, mqttAddr, httpAddr string) (*config.CliConfig, *config.SimConfig) {
	cliConfig := &config.CliConfig{
		ModbusListen:          modbusAddr,
		MQTTListen:            mqttAddr,
		HTTPListen:            httpAddr,
		StartupTimeoutSeconds: 5,
		LogLevel:              "debug",
	}

	simConfig := config.DefaultSimConfig()
	simConfig.TickSeconds = 0.05
	simConfig.AutoControl = false
	simConfig.Initial.TemperatureC = 25.0
	simConfig.Initial.ChillerPct = 0.0
	simConfig.Initial.SetpointC = 25.0
	simConfig.Initial.IntakePct = 0.0
	simConfig.Initial.ExhaustPct = 0.0
	simConfig.Dynamics.NoiseTempC = 0.0
	simConfig.Dynamics.NoiseChillerPct = 0.0
	return cliConfig, simConfig
}

func TestSimulatorEndToEnd(t *testing.T) {
	logrus.SetLevel(logrus.DebugLevel)
	cliConfig, simConfig := testConfigs("127.0.0.1:15601", "127.0.0.1:11884", "127.0.0.1:18085")

	a := app.New(cliConfig, simConfig)
	ctx, cancel := context.WithCancel(context.TODO())
	require.NoError(t, a.Start(ctx))
	defer func() {
		cancel()
		a.Wait()
	}()

	handler := modbus.NewTCPClientHandler(cliConfig.ModbusListen)
	handler.Timeout = 2 * time.Second
	defer handler.Close()
	client := modbusclient.New(modbus.NewClient(handler))

	// Drop the setpoint far below the room temperature; the chiller must
	// spin up.
	_, err := client.WriteSingleRegister(pointserver.HoldingSetpointC, 1600)
	require.NoError(t, err)

	tempBefore, err := client.ReadInputRegister(pointserver.InputTemperatureC)
	require.NoError(t, err)

	WaitFor(t, 10*time.Second, "chiller spins up past 50%", func() bool {
		chiller, err := client.ReadInputRegister(pointserver.InputChillerPct)
		return err == nil && chiller > 5000
	})

	WaitFor(t, 20*time.Second, "room temperature falls toward the setpoint", func() bool {
		temp, err := client.ReadInputRegister(pointserver.InputTemperatureC)
		return err == nil && temp < tempBefore-10
	})

	// Engage the emergency stop; actuation must decay to zero.
	require.NoError(t, client.WriteSingleCoil(pointserver.CoilEmergencyStop, true))

	WaitFor(t, 10*time.Second, "chiller decays to zero under e-stop", func() bool {
		chiller, err := client.ReadInputRegister(pointserver.InputChillerPct)
		return err == nil && chiller < 100
	})

	resp, err := http.Get("http://" + cliConfig.HTTPListen + "/telemetry")
	require.NoError(t, err)
	defer resp.Body.Close()
	var samples []telemetry.Sample
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&samples))
	assert.NotEmpty(t, samples)
	assert.Equal(t, 16.0, samples[len(samples)-1].SetpointC)

	resp, err = http.Get("http://" + cliConfig.HTTPListen + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	var state struct {
		Commanded struct {
			EmergencyStop bool `json:"emergencyStop"`
		} `json:"commanded"`
		Alarms []string `json:"alarms"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.True(t, state.Commanded.EmergencyStop)
	assert.Contains(t, state.Alarms, "emergency stop engaged")
}

func TestStartupFailsWhenPointPortBusy(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:15611")
	require.NoError(t, err)
	defer l.Close()

	cliConfig, simConfig := testConfigs("127.0.0.1:15611", "127.0.0.1:11885", "")
	a := app.New(cliConfig, simConfig)

	ctx, cancel := context.WithCancel(context.TODO())
	defer cancel()
	assert.Error(t, a.Start(ctx))
}

func WaitFor(t *testing.T, timeout time.Duration, msg string, ok func() bool) {
	end := time.Now().Add(timeout)
	for {
		if end.Before(time.Now()) {
			t.Fatalf("timeout waiting for: %s", msg)
			return
		}
		time.Sleep(10 * time.Millisecond)
		if ok() {
			return
		}
	}
}
