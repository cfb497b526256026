package main

import (
	"flag"
	"log"
	"math"

	"github.com/goburrow/modbus"
	"github.com/nergy-se/hvacsim/pkg/modbusclient"
)

var decimals = flag.Int("decimals", 2, "implied decimals in analog registers")

func main() {
	address := flag.String("addr", "127.0.0.1:5502", "tcp modbus address of the simulator")

	inputreg := flag.Int("inputreg", 0, "input register to read")
	holdingreg := flag.Int("holdingreg", 0, "holding register to read, or write with -value")
	coil := flag.Int("coil", 0, "coil to read, or write with -value")
	value := flag.Int("value", 0, "value to write")
	flag.Parse()

	handler := modbus.NewTCPClientHandler(*address)
	defer handler.Close()
	client := modbusclient.New(modbus.NewClient(handler))

	var f interface{}
	var err error
	switch {
	case isFlagPassed("inputreg"):
		f, err = scale(client.ReadInputRegister(uint16(*inputreg)))
	case isFlagPassed("holdingreg") && isFlagPassed("value"):
		f, err = client.WriteSingleRegister(uint16(*holdingreg), uint16(*value))
	case isFlagPassed("holdingreg"):
		f, err = scale(client.ReadHoldingRegister(uint16(*holdingreg)))
	case isFlagPassed("coil") && isFlagPassed("value"):
		f = *value != 0
		err = client.WriteSingleCoil(uint16(*coil), *value != 0)
	case isFlagPassed("coil"):
		f, err = client.ReadCoil(uint16(*coil))
	default:
		flag.Usage()
		return
	}

	if err != nil {
		log.Println("error was: ", err)
	}
	log.Println("value is: ", f)
}

func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func scale(i int, err error) (float64, error) {
	return float64(i) / math.Pow10(*decimals), err
}
