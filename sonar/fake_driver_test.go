package sonar

import "errors"

var errFake = errors.New("fake device failure")

// fakeDriver records how the transport drives it and lets tests invoke the
// callback synchronously.
type fakeDriver struct {
	openErr  error
	startErr error
	stopErr  error
	closeErr error
	latency  int // reported capture latency in frames

	opens  int
	cfg    StreamConfig
	cb     Callback
	notify Notify
	dev    *fakeDevice
}

type fakeDevice struct {
	drv     *fakeDriver
	started int
	stopped int
	closed  int
}

func (d *fakeDriver) Open(cfg StreamConfig, cb Callback, notify Notify) (Device, error) {
	d.opens++
	if d.openErr != nil {
		return nil, d.openErr
	}
	d.cfg = cfg
	d.cb = cb
	d.notify = notify
	d.dev = &fakeDevice{drv: d}
	return d.dev, nil
}

func (d *fakeDevice) Start() error {
	d.started++
	return d.drv.startErr
}

func (d *fakeDevice) Stop() error {
	d.stopped++
	return d.drv.stopErr
}

func (d *fakeDevice) Close() error {
	d.closed++
	return d.drv.closeErr
}

func (d *fakeDevice) CaptureLatency() int {
	return d.drv.latency
}

// run invokes the callback with the given frame counts and returns the
// concatenated playback output.
func (d *fakeDriver) run(frames ...int) []float32 {
	var played []float32
	for _, n := range frames {
		out := make([]float32, n)
		in := make([]float32, n)
		d.cb(out, in)
		played = append(played, out...)
	}
	return played
}

// capture feeds in to the callback in chunks of at most block frames.
func (d *fakeDriver) capture(in []float32, block int) {
	for len(in) > 0 {
		n := min(block, len(in))
		out := make([]float32, n)
		d.cb(out, in[:n])
		in = in[n:]
	}
}
