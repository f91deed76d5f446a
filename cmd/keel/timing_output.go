package main

import (
	"fmt"
	"io"
	"time"

	"keel/internal/pipeline"
)

func printStageTimings(out io.Writer, timings pipeline.Timings) {
	for _, stage := range pipeline.Stages {
		if timings.Has(stage) {
			fmt.Fprintf(out, "%-10s %8.1f ms\n", stage, toMillis(timings.Duration(stage)))
		}
	}
	fmt.Fprintf(out, "%-10s %8.1f ms\n", "total", toMillis(timings.Sum()))
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
