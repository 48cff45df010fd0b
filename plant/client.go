// Package plant reads a live snapshot from a Sigenergy-compatible plant
// controller over Modbus TCP. The sizing tool uses the snapshot to center
// its consumption sampling on the measured site load instead of the
// configured default.
package plant

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/goburrow/modbus"
)

// PlantAddress is the fixed Modbus slave address of the plant controller.
const PlantAddress = 247

// Snapshot is the subset of the plant's running info the sizing tool
// consumes.
type Snapshot struct {
	GridActivePowerKW  float64 // power at the grid sensor, >0 importing
	PlantActivePowerKW float64 // total plant active power
	PVPowerKW          float64 // current photovoltaic output
	BatterySOCPercent  float64 // state of charge, 0-100
}

// LoadWatts estimates the current site load in watts: everything the
// plant and the grid supply together.
func (s *Snapshot) LoadWatts() float64 {
	load := (s.PlantActivePowerKW + s.GridActivePowerKW) * 1000
	if load < 0 {
		return 0
	}
	return load
}

// Client is a read-only Modbus TCP client for the plant controller.
type Client struct {
	client  modbus.Client
	handler *modbus.TCPClientHandler
}

// Dial connects to the plant controller at address (IP:PORT).
func Dial(address string) (*Client, error) {
	handler := modbus.NewTCPClientHandler(address)
	handler.SlaveId = PlantAddress
	handler.Timeout = 1 * time.Second

	if err := handler.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect: %v", err)
	}

	return &Client{
		client:  modbus.NewClient(handler),
		handler: handler,
	}, nil
}

// Close closes the Modbus connection.
func (c *Client) Close() error {
	return c.handler.Close()
}

// ReadSnapshot reads the plant running-info block and extracts the fields
// the sizing tool calibrates from.
func (c *Client) ReadSnapshot() (*Snapshot, error) {
	// Input registers 30000-30051; offsets follow the vendor register map.
	data, err := c.client.ReadInputRegisters(30000, 52)
	if err != nil {
		return nil, fmt.Errorf("failed to read plant running info: %v", err)
	}

	return &Snapshot{
		GridActivePowerKW:  float64(bytesToS32(data[10:14])) / 1000.0,
		BatterySOCPercent:  float64(bytesToU16(data[28:30])) / 10.0,
		PlantActivePowerKW: float64(bytesToS32(data[62:66])) / 1000.0,
		PVPowerKW:          float64(bytesToS32(data[70:74])) / 1000.0,
	}, nil
}

func bytesToU16(data []byte) uint16 {
	return binary.BigEndian.Uint16(data)
}

func bytesToS32(data []byte) int32 {
	return int32(binary.BigEndian.Uint32(data))
}
