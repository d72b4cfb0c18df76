package core_test

import (
	"fmt"

	"github.com/cwbudde/echotrace/dsp/core"
)

func ExampleApplyProcessorOptions() {
	cfg := core.ApplyProcessorOptions(
		core.WithSampleRate(48000),
		core.WithBlockSize(512),
	)

	fmt.Printf("sampleRate=%.0f blockSize=%d period=%d\n", cfg.SampleRate, cfg.BlockSize, cfg.Samples(0.1))

	// Output:
	// sampleRate=48000 blockSize=512 period=4800
}
