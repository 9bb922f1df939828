package record

import (
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

type paSource struct {
	stream *portaudio.Stream
	in     []int16
}

// OpenPortAudio opens a blocking PortAudio input stream on the configured
// device, or the system default when DeviceIndex is negative.
func OpenPortAudio(cfg StreamConfig) (Source, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, &CaptureError{Op: "portaudio init", Err: err}
	}

	in := make([]int16, cfg.FrameSize*cfg.Channels)
	stream, err := openStream(cfg, in)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, &CaptureError{Op: "open stream", Err: err}
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, &CaptureError{Op: "start stream", Err: err}
	}
	return &paSource{stream: stream, in: in}, nil
}

func openStream(cfg StreamConfig, in []int16) (*portaudio.Stream, error) {
	if cfg.DeviceIndex < 0 {
		if _, err := portaudio.DefaultInputDevice(); err != nil {
			return nil, fmt.Errorf("no input device available: %w", err)
		}
		return portaudio.OpenDefaultStream(cfg.Channels, 0, float64(cfg.SampleRate), cfg.FrameSize, in)
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	if cfg.DeviceIndex >= len(devices) {
		return nil, fmt.Errorf("input device %d not found (%d devices)", cfg.DeviceIndex, len(devices))
	}
	dev := devices[cfg.DeviceIndex]
	if dev.MaxInputChannels < cfg.Channels {
		return nil, fmt.Errorf("device %q has no input channels", dev.Name)
	}
	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = cfg.Channels
	params.SampleRate = float64(cfg.SampleRate)
	params.FramesPerBuffer = cfg.FrameSize
	return portaudio.OpenStream(params, in)
}

func (s *paSource) Read(dst []int16) (int, error) {
	if err := s.stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
		return 0, err
	}
	return copy(dst, s.in), nil
}

func (s *paSource) Close() error {
	err := errors.Join(s.stream.Stop(), s.stream.Close())
	return errors.Join(err, portaudio.Terminate())
}

// Device describes an audio input device.
type Device struct {
	Index      int
	Name       string
	Channels   int
	SampleRate float64
	Default    bool
}

// Devices lists the available input devices.
func Devices() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, &CaptureError{Op: "portaudio init", Err: err}
	}
	defer portaudio.Terminate()

	all, err := portaudio.Devices()
	if err != nil {
		return nil, &CaptureError{Op: "list devices", Err: err}
	}
	def, _ := portaudio.DefaultInputDevice()

	var out []Device
	for i, d := range all {
		if d.MaxInputChannels <= 0 {
			continue
		}
		out = append(out, Device{
			Index:      i,
			Name:       d.Name,
			Channels:   d.MaxInputChannels,
			SampleRate: d.DefaultSampleRate,
			Default:    def != nil && d.Name == def.Name && d.HostApi == def.HostApi,
		})
	}
	return out, nil
}
