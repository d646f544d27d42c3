package model

import (
	"fmt"
	"strconv"
	"strings"
)

// DeviceKind is the compute backend a model runs on.
type DeviceKind string

const (
	DeviceAuto DeviceKind = "auto"
	DeviceCPU  DeviceKind = "cpu"
	DeviceCUDA DeviceKind = "cuda"
)

// Device selects where inference runs. ID is the accelerator ordinal and is
// only meaningful for CUDA.
type Device struct {
	Kind DeviceKind
	ID   int
}

// CPU is the general-purpose device.
var CPU = Device{Kind: DeviceCPU}

// ParseDevice accepts "auto", "cpu", "cuda" and "cuda:N".
func ParseDevice(s string) (Device, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "" || s == string(DeviceAuto):
		return Device{Kind: DeviceAuto}, nil
	case s == string(DeviceCPU):
		return CPU, nil
	case s == string(DeviceCUDA):
		return Device{Kind: DeviceCUDA}, nil
	case strings.HasPrefix(s, string(DeviceCUDA)+":"):
		id, err := strconv.Atoi(strings.TrimPrefix(s, string(DeviceCUDA)+":"))
		if err != nil || id < 0 {
			return Device{}, fmt.Errorf("invalid cuda device ordinal in %q", s)
		}
		return Device{Kind: DeviceCUDA, ID: id}, nil
	default:
		return Device{}, fmt.Errorf("unknown device %q (want auto, cpu, cuda or cuda:N)", s)
	}
}

func (d Device) String() string {
	if d.Kind == DeviceCUDA {
		return fmt.Sprintf("cuda:%d", d.ID)
	}
	if d.Kind == "" {
		return string(DeviceAuto)
	}
	return string(d.Kind)
}
