package sonar

// StreamConfig describes the duplex stream a Driver must open. Both
// directions are mono 32-bit float.
type StreamConfig struct {
	SampleRate float64
	BlockSize  int
}

// Callback is invoked by the device for every block. out receives the
// playback samples, in holds the captured samples.
type Callback func(out, in []float32)

// Notify receives device status messages such as backend log lines or an
// unexpected stop. It must not block.
type Notify func(msg string)

// Driver opens duplex audio devices.
type Driver interface {
	Open(cfg StreamConfig, cb Callback, notify Notify) (Device, error)
}

// Device is an opened duplex stream.
type Device interface {
	Start() error
	Stop() error
	// Close releases the device. No callback runs after Close returns.
	Close() error
}

// LatencyReporter is implemented by devices that deliver captured audio
// later than the playback it was recorded against. CaptureLatency returns
// that lag in frames. Devices without it are assumed to have none.
type LatencyReporter interface {
	CaptureLatency() int
}
