package pointserver

import (
	"testing"
	"time"

	"github.com/goburrow/modbus"
	"github.com/nergy-se/hvacsim/pkg/modbusclient"
	"github.com/nergy-se/hvacsim/pkg/points"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, addr string) (*Server, *points.Registry, modbus.Client) {
	registry := points.New(points.Commanded{
		SetpointC:   23.0,
		IntakePct:   20.0,
		ExhaustPct:  20.0,
		SpeedFactor: 1.0,
	}, points.Sensors{
		TemperatureC: 25.0,
		ChillerPct:   30.0,
	})

	server := New(registry)
	require.NoError(t, server.ListenTCP(addr))
	t.Cleanup(server.Close)

	handler := modbus.NewTCPClientHandler(addr)
	handler.Timeout = 2 * time.Second
	t.Cleanup(func() { handler.Close() })

	return server, registry, modbus.NewClient(handler)
}

func TestWriteHoldingRegisterUpdatesPoint(t *testing.T) {
	_, registry, mcli := newTestServer(t, "127.0.0.1:15511")
	client := modbusclient.New(mcli)

	_, err := client.WriteSingleRegister(HoldingSetpointC, 2150)
	require.NoError(t, err)

	v, ok := registry.Float(points.TemperatureSetpointC)
	assert.True(t, ok)
	assert.Equal(t, 21.5, v)

	got, err := client.ReadHoldingRegister(HoldingSetpointC)
	require.NoError(t, err)
	assert.Equal(t, 2150, got)
}

func TestReadHoldingRegisterDefaults(t *testing.T) {
	_, _, mcli := newTestServer(t, "127.0.0.1:15512")
	client := modbusclient.New(mcli)

	intake, err := client.ReadHoldingRegister(HoldingIntakePct)
	require.NoError(t, err)
	assert.Equal(t, 2000, intake)

	speed, err := client.ReadHoldingRegister(HoldingSpeed)
	require.NoError(t, err)
	assert.Equal(t, 100, speed)
}

func TestInputRegistersServedFromOneSnapshot(t *testing.T) {
	_, registry, mcli := newTestServer(t, "127.0.0.1:15513")

	registry.SetSensors(points.Sensors{TemperatureC: 21.5, ChillerPct: 42.0})

	b, err := mcli.ReadInputRegisters(InputTemperatureC, 2)
	require.NoError(t, err)
	require.Len(t, b, 4)
	assert.Equal(t, 2150, modbusclient.Decode(b[0:2]))
	assert.Equal(t, 4200, modbusclient.Decode(b[2:4]))
}

func TestEmergencyStopCoil(t *testing.T) {
	_, registry, mcli := newTestServer(t, "127.0.0.1:15514")
	client := modbusclient.New(mcli)

	on, err := client.ReadCoil(CoilEmergencyStop)
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, client.WriteSingleCoil(CoilEmergencyStop, true))
	estop, _ := registry.Bool(points.EmergencyStop)
	assert.True(t, estop)

	on, err = client.ReadCoil(CoilEmergencyStop)
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, client.WriteSingleCoil(CoilEmergencyStop, false))
	estop, _ = registry.Bool(points.EmergencyStop)
	assert.False(t, estop)
}

func TestUnknownRegisterIsIllegalAddress(t *testing.T) {
	_, _, mcli := newTestServer(t, "127.0.0.1:15515")
	client := modbusclient.New(mcli)

	_, err := client.ReadHoldingRegister(9)
	assert.Error(t, err)

	_, err = client.ReadInputRegister(9)
	assert.Error(t, err)

	_, err = client.WriteSingleRegister(9, 1)
	assert.Error(t, err)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	assert.Equal(t, uint16(2345), encode(23.45))
	assert.Equal(t, 23.45, decode(2345))
	assert.Equal(t, 0.25, decode(encode(0.25)))
}
