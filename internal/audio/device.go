package audio

import (
	"fmt"
	"strings"

	"github.com/gen2brain/malgo"
)

// DeviceInfo describes a capture device
type DeviceInfo struct {
	ID        string // "capture-N", stable for the current device order
	Name      string // Human-readable device name
	IsDefault bool
}

func (d DeviceInfo) String() string {
	defaultMarker := ""
	if d.IsDefault {
		defaultMarker = " [DEFAULT]"
	}
	return fmt.Sprintf("%s: %s%s", d.ID, d.Name, defaultMarker)
}

// ListDevices returns the capture devices malgo can see
func ListDevices() ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for i, info := range infos {
		devices = append(devices, DeviceInfo{
			ID:        fmt.Sprintf("capture-%d", i),
			Name:      info.Name(),
			IsDefault: info.IsDefault > 0,
		})
	}
	return devices, nil
}

// PickDevice chooses from devices. An empty want selects the default
// device (or the first one); otherwise want matches an ID exactly or a
// name case-insensitively by substring.
func PickDevice(devices []DeviceInfo, want string) (*DeviceInfo, error) {
	if len(devices) == 0 {
		return nil, fmt.Errorf("no capture devices found")
	}

	if want == "" {
		for i := range devices {
			if devices[i].IsDefault {
				return &devices[i], nil
			}
		}
		return &devices[0], nil
	}

	for i := range devices {
		if devices[i].ID == want {
			return &devices[i], nil
		}
	}
	needle := strings.ToLower(want)
	for i := range devices {
		if strings.Contains(strings.ToLower(devices[i].Name), needle) {
			return &devices[i], nil
		}
	}
	return nil, fmt.Errorf("no device found matching: %s", want)
}
