// Package device connects the sonar transport to sound hardware through
// miniaudio, and provides a software loopback for running without it.
package device

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"unsafe"

	"github.com/gen2brain/malgo"

	"github.com/cwbudde/echotrace/sonar"
)

// ErrDeviceNotFound is returned when a named device does not exist.
var ErrDeviceNotFound = errors.New("device: not found")

// Options selects the hardware used by the malgo driver. Empty names pick
// the system default.
type Options struct {
	CaptureName  string
	PlaybackName string
}

// Malgo opens full-duplex mono float32 streams with miniaudio.
type Malgo struct {
	opts Options
}

// NewMalgo creates a malgo driver.
func NewMalgo(opts Options) *Malgo {
	return &Malgo{opts: opts}
}

// Open initialises a miniaudio context and a duplex device. The context
// belongs to the returned device and is released by Close.
func (m *Malgo) Open(cfg sonar.StreamConfig, cb sonar.Callback, notify sonar.Notify) (sonar.Device, error) {
	if notify == nil {
		notify = func(string) {}
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		notify("miniaudio: " + strings.TrimSpace(message))
	})
	if err != nil {
		return nil, fmt.Errorf("init context: %w", err)
	}

	d := &stream{ctx: ctx}
	devCfg := deviceConfig(cfg)
	if err := m.selectDevices(&ctx.Context, &devCfg); err != nil {
		d.releaseContext()
		return nil, err
	}

	callbacks := malgo.DeviceCallbacks{
		Data: d.data(cb, notify),
		Stop: func() {
			if !d.stopping.Load() {
				notify("audio device stopped unexpectedly")
			}
		},
	}
	dev, err := malgo.InitDevice(ctx.Context, devCfg, callbacks)
	if err != nil {
		d.releaseContext()
		return nil, fmt.Errorf("init device: %w", err)
	}
	d.dev = dev
	return d, nil
}

func deviceConfig(cfg sonar.StreamConfig) malgo.DeviceConfig {
	dc := malgo.DefaultDeviceConfig(malgo.Duplex)
	dc.Capture.Format = malgo.FormatF32
	dc.Capture.Channels = 1
	dc.Playback.Format = malgo.FormatF32
	dc.Playback.Channels = 1
	dc.SampleRate = uint32(math.Round(cfg.SampleRate))
	dc.PeriodSizeInFrames = uint32(cfg.BlockSize)
	return dc
}

func (m *Malgo) selectDevices(ctx *malgo.Context, dc *malgo.DeviceConfig) error {
	if m.opts.CaptureName != "" {
		id, err := findDevice(ctx, malgo.Capture, m.opts.CaptureName)
		if err != nil {
			return err
		}
		dc.Capture.DeviceID = id.Pointer()
	}
	if m.opts.PlaybackName != "" {
		id, err := findDevice(ctx, malgo.Playback, m.opts.PlaybackName)
		if err != nil {
			return err
		}
		dc.Playback.DeviceID = id.Pointer()
	}
	return nil
}

func findDevice(ctx *malgo.Context, kind malgo.DeviceType, name string) (*malgo.DeviceID, error) {
	devs, err := ctx.Devices(kind)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	for _, d := range devs {
		if strings.TrimSpace(d.Name()) == name {
			id := d.ID
			return &id, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrDeviceNotFound, name)
}

type stream struct {
	ctx      *malgo.AllocatedContext
	dev      *malgo.Device
	stopping atomic.Bool
}

// data adapts the byte-oriented miniaudio callback to float32 slices.
// Panics are reported through notify instead of unwinding into C.
func (s *stream) data(cb sonar.Callback, notify sonar.Notify) malgo.DataProc {
	return func(output, input []byte, frames uint32) {
		defer func() {
			if r := recover(); r != nil {
				notify(fmt.Sprintf("audio callback panic: %v", r))
			}
		}()
		cb(asFloat32(output, frames), asFloat32(input, frames))
	}
}

// asFloat32 reinterprets up to frames mono float32 samples stored in b.
func asFloat32(b []byte, frames uint32) []float32 {
	n := min(int(frames), len(b)/4)
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), n)
}

func (s *stream) Start() error {
	s.stopping.Store(false)
	return s.dev.Start()
}

func (s *stream) Stop() error {
	s.stopping.Store(true)
	return s.dev.Stop()
}

// CaptureLatency is zero: miniaudio hands capture and playback of the same
// period to one duplex callback.
func (s *stream) CaptureLatency() int {
	return 0
}

func (s *stream) Close() error {
	s.stopping.Store(true)
	if s.dev != nil {
		s.dev.Uninit()
		s.dev = nil
	}
	return s.releaseContext()
}

func (s *stream) releaseContext() error {
	if s.ctx == nil {
		return nil
	}
	err := s.ctx.Uninit()
	s.ctx.Free()
	s.ctx = nil
	return err
}
