package modbusclient

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/goburrow/modbus"
)

// Client is the small register-level surface the modc tool and the e2e
// tests need to drive the simulator.
type Client interface {
	ReadInputRegister(address uint16) (int, error)
	ReadHoldingRegister(address uint16) (int, error)
	WriteSingleRegister(address, value uint16) ([]byte, error)
	WriteSingleCoil(address uint16, on bool) error
	ReadCoil(address uint16) (bool, error)
}

type client struct {
	client modbus.Client
}

func New(c modbus.Client) *client {
	return &client{client: c}
}

func (c *client) ReadInputRegister(address uint16) (int, error) {
	b, err := c.client.ReadInputRegisters(address, 1)
	if err != nil {
		return 0, fmt.Errorf("error reading input register %d: %w", address, err)
	}
	return Decode(b), nil
}

func (c *client) ReadHoldingRegister(address uint16) (int, error) {
	b, err := c.client.ReadHoldingRegisters(address, 1)
	if err != nil {
		return 0, fmt.Errorf("error reading holding register %d: %w", address, err)
	}
	return Decode(b), nil
}

func (c *client) WriteSingleRegister(address, value uint16) ([]byte, error) {
	b, err := c.client.WriteSingleRegister(address, value)
	if err != nil {
		return b, fmt.Errorf("error writing register %d value %d: %w", address, value, err)
	}
	return b, nil
}

func (c *client) WriteSingleCoil(address uint16, on bool) error {
	_, err := c.client.WriteSingleCoil(address, CoilValue(on))
	if err != nil {
		return fmt.Errorf("error writing coil %d value %t: %w", address, on, err)
	}
	return nil
}

func (c *client) ReadCoil(address uint16) (bool, error) {
	b, err := c.client.ReadCoils(address, 1)
	if err != nil {
		return false, fmt.Errorf("error reading coil %d: %w", address, err)
	}
	return len(b) > 0 && b[0]&1 == 1, nil
}

// Decode reads a signed big endian integer, high byte first high word
// first.
func Decode(data []byte) int {
	switch len(data) {
	case 1:
		var i int8
		binary.Read(bytes.NewBuffer(data), binary.BigEndian, &i)
		return int(i)
	case 2:
		var i int16
		binary.Read(bytes.NewBuffer(data), binary.BigEndian, &i)
		return int(i)
	case 4:
		var i int32
		binary.Read(bytes.NewBuffer(data), binary.BigEndian, &i)
		return int(i)
	case 8:
		var i int64
		binary.Read(bytes.NewBuffer(data), binary.BigEndian, &i)
		return int(i)
	}

	return 0
}

// Scale100itof converts a register value carrying two implied decimals.
func Scale100itof(i int, err error) (float64, error) {
	return float64(i) / 100.0, err
}

func CoilValue(b bool) uint16 {
	if b {
		return WriteCoilValueOn
	}
	return WriteCoilValueOff
}

const (
	WriteCoilValueOn  uint16 = 0xff00
	WriteCoilValueOff uint16 = 0
)
