package pointserver

import (
	"encoding/binary"
	"math"

	"github.com/nergy-se/hvacsim/pkg/points"
	"github.com/tbrandon/mbserver"
)

// Register map exposed over Modbus TCP. Analog values carry two implied
// decimals and are encoded as big endian int16, the same convention the
// heat pumps we integrate with use.
const (
	HoldingSetpointC  = 0
	HoldingIntakePct  = 1
	HoldingExhaustPct = 2
	HoldingSpeed      = 3

	CoilEmergencyStop = 0

	InputTemperatureC = 0
	InputChillerPct   = 1
)

const scale = 100.0

// Server serves the point registry over Modbus TCP. Every register
// access delegates straight to the registry, so a multi-register read
// within one request is served from a single registry snapshot.
type Server struct {
	registry *points.Registry
	server   *mbserver.Server
}

func New(registry *points.Registry) *Server {
	s := &Server{
		registry: registry,
		server:   mbserver.NewServer(),
	}
	s.server.RegisterFunctionHandler(1, s.readCoils)
	s.server.RegisterFunctionHandler(3, s.readHoldingRegisters)
	s.server.RegisterFunctionHandler(4, s.readInputRegisters)
	s.server.RegisterFunctionHandler(5, s.writeSingleCoil)
	s.server.RegisterFunctionHandler(6, s.writeSingleRegister)
	return s
}

func (s *Server) ListenTCP(addr string) error {
	return s.server.ListenTCP(addr)
}

func (s *Server) Close() {
	s.server.Close()
}

func frameAddressAndCount(frame mbserver.Framer) (int, int) {
	data := frame.GetData()
	return int(binary.BigEndian.Uint16(data[0:2])), int(binary.BigEndian.Uint16(data[2:4]))
}

func (s *Server) readHoldingRegisters(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	address, count := frameAddressAndCount(frame)
	in := s.registry.Commanded()
	values := make([]uint16, 0, count)
	for register := address; register < address+count; register++ {
		switch register {
		case HoldingSetpointC:
			values = append(values, encode(in.SetpointC))
		case HoldingIntakePct:
			values = append(values, encode(in.IntakePct))
		case HoldingExhaustPct:
			values = append(values, encode(in.ExhaustPct))
		case HoldingSpeed:
			values = append(values, encode(in.SpeedFactor))
		default:
			return nil, &mbserver.IllegalDataAddress
		}
	}
	return append([]byte{byte(len(values) * 2)}, mbserver.Uint16ToBytes(values)...), &mbserver.Success
}

func (s *Server) readInputRegisters(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	address, count := frameAddressAndCount(frame)
	sensors := s.registry.Sensors()
	values := make([]uint16, 0, count)
	for register := address; register < address+count; register++ {
		switch register {
		case InputTemperatureC:
			values = append(values, encode(sensors.TemperatureC))
		case InputChillerPct:
			values = append(values, encode(sensors.ChillerPct))
		default:
			return nil, &mbserver.IllegalDataAddress
		}
	}
	return append([]byte{byte(len(values) * 2)}, mbserver.Uint16ToBytes(values)...), &mbserver.Success
}

func (s *Server) writeSingleRegister(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	address := int(binary.BigEndian.Uint16(data[0:2]))
	value := decode(binary.BigEndian.Uint16(data[2:4]))
	switch address {
	case HoldingSetpointC:
		s.registry.SetFloat(points.TemperatureSetpointC, value)
	case HoldingIntakePct:
		s.registry.SetFloat(points.IntakeFanSpeedPct, value)
	case HoldingExhaustPct:
		s.registry.SetFloat(points.ExhaustFanSpeedPct, value)
	case HoldingSpeed:
		s.registry.SetFloat(points.SimulationSpeed, value)
	default:
		return nil, &mbserver.IllegalDataAddress
	}
	return data[0:4], &mbserver.Success
}

func (s *Server) readCoils(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	address, count := frameAddressAndCount(frame)
	out := make([]byte, (count+7)/8)
	for i := 0; i < count; i++ {
		if address+i != CoilEmergencyStop {
			return nil, &mbserver.IllegalDataAddress
		}
		if estop, _ := s.registry.Bool(points.EmergencyStop); estop {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return append([]byte{byte(len(out))}, out...), &mbserver.Success
}

func (s *Server) writeSingleCoil(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	address := int(binary.BigEndian.Uint16(data[0:2]))
	if address != CoilEmergencyStop {
		return nil, &mbserver.IllegalDataAddress
	}
	s.registry.SetBool(points.EmergencyStop, binary.BigEndian.Uint16(data[2:4]) == 0xff00)
	return data[0:4], &mbserver.Success
}

func encode(v float64) uint16 {
	return uint16(int16(math.Round(v * scale)))
}

func decode(raw uint16) float64 {
	return float64(int16(raw)) / scale
}
