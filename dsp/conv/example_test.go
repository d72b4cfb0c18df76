package conv_test

import (
	"fmt"

	"github.com/cwbudde/echotrace/dsp/conv"
)

func ExampleCorrelate() {
	template := []float64{1, -1, 2}
	signal := []float64{0, 0, 0, 1, -1, 2, 0, 0}

	corr, err := conv.Correlate(signal, template)
	if err != nil {
		panic(err)
	}

	idx, _ := conv.ArgMaxAbs(corr)
	fmt.Println("lag:", conv.LagFromIndex(idx, len(template)))

	// Output:
	// lag: 3
}
