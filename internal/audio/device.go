// SPDX-License-Identifier: MIT
package audio

// Device represents an audio device
type Device struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
}

// IQCapable reports whether the device has the two input channels an I/Q
// stream needs.
func (d Device) IQCapable() bool {
	return d.MaxInputChannels >= 2
}

// HostDevices returns all available audio devices. PortAudio must be
// initialized.
func HostDevices() ([]Device, error) {
	paDeviceInfos, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}

	devices := make([]Device, len(paDeviceInfos))
	for i, info := range paDeviceInfos {
		devices[i] = Device{
			ID:                i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
		}
	}

	return devices, nil
}

// IQDevices filters devices down to the I/Q capable ones.
func IQDevices(devices []Device) []Device {
	var out []Device
	for _, d := range devices {
		if d.IQCapable() {
			out = append(out, d)
		}
	}
	return out
}
