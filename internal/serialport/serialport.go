// Package serialport wraps go.bug.st/serial for testability: opening a
// device at the robot's line settings and enumerating candidate USB
// devices.
package serialport

import (
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Port is the minimal device surface the adapters use.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Open opens a device at baud, 8N1, with the given read timeout
// (0 blocks).
func Open(path string, baud int, readTimeout time.Duration) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}
	if readTimeout > 0 {
		if err := p.SetReadTimeout(readTimeout); err != nil {
			_ = p.Close()
			return nil, err
		}
	}
	return p, nil
}

// DeviceInfo describes one enumerated serial device.
type DeviceInfo struct {
	Path string
	VID  string // USB vendor id in hex as the enumerator reports it (letter case varies), empty for non-USB ports
}

// List enumerates the system's serial devices.
func List() ([]DeviceInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	devs := make([]DeviceInfo, 0, len(ports))
	for _, p := range ports {
		d := DeviceInfo{Path: p.Name}
		if p.IsUSB {
			d.VID = p.VID
		}
		devs = append(devs, d)
	}
	return devs, nil
}
