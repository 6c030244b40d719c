package app

import (
	"fmt"
	"io"

	"github.com/emmett/ferryvox/internal/audio"
)

// DeviceManager handles microphone listing and selection
type DeviceManager struct {
	out  io.Writer
	list func() ([]audio.DeviceInfo, error)
}

// NewDeviceManager creates a DeviceManager that prints to out.
// A nil out discards output.
func NewDeviceManager(out io.Writer) *DeviceManager {
	if out == nil {
		out = io.Discard
	}
	return &DeviceManager{out: out, list: audio.ListDevices}
}

// ListDevices prints all available capture devices
func (dm *DeviceManager) ListDevices() error {
	devices, err := dm.list()
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	if len(devices) == 0 {
		fmt.Fprintln(dm.out, "No audio capture devices found.")
		return fmt.Errorf("no devices found")
	}

	fmt.Fprintf(dm.out, "Found %d capture device(s):\n\n", len(devices))
	for i, device := range devices {
		marker := ""
		if device.IsDefault {
			marker = " [DEFAULT]"
		}
		fmt.Fprintf(dm.out, "%d. %s%s\n", i+1, device.Name, marker)
		fmt.Fprintf(dm.out, "   ID: %s\n", device.ID)
	}

	fmt.Fprintln(dm.out)
	fmt.Fprintln(dm.out, "To use a specific device, run:")
	fmt.Fprintf(dm.out, "  ferryvox run --device \"%s\"\n", devices[0].Name)
	return nil
}

// Select resolves name (ID or name fragment) to a device, or the
// default device when name is empty
func (dm *DeviceManager) Select(name string) (*audio.DeviceInfo, error) {
	devices, err := dm.list()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	device, err := audio.PickDevice(devices, name)
	if err != nil {
		fmt.Fprintln(dm.out, "Available devices:")
		for _, d := range devices {
			fmt.Fprintf(dm.out, "  - %s\n", d)
		}
		return nil, fmt.Errorf("invalid audio device specified: %w", err)
	}
	return device, nil
}
