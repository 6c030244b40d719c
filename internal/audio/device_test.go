package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickDevice(t *testing.T) {
	devices := []DeviceInfo{
		{ID: "capture-0", Name: "Built-in Microphone"},
		{ID: "capture-1", Name: "USB Headset", IsDefault: true},
	}

	d, err := PickDevice(devices, "")
	require.NoError(t, err)
	assert.Equal(t, "capture-1", d.ID)

	d, err = PickDevice(devices, "capture-0")
	require.NoError(t, err)
	assert.Equal(t, "Built-in Microphone", d.Name)

	d, err = PickDevice(devices, "headset")
	require.NoError(t, err)
	assert.Equal(t, "capture-1", d.ID)

	_, err = PickDevice(devices, "webcam")
	require.Error(t, err)
}

func TestPickDeviceFallsBackToFirst(t *testing.T) {
	d, err := PickDevice([]DeviceInfo{{ID: "capture-0", Name: "Only"}}, "")
	require.NoError(t, err)
	assert.Equal(t, "capture-0", d.ID)

	_, err = PickDevice(nil, "")
	require.Error(t, err)
}

func TestDeviceInfoString(t *testing.T) {
	assert.Equal(t, "capture-1: USB [DEFAULT]", DeviceInfo{ID: "capture-1", Name: "USB", IsDefault: true}.String())
}
