// Package report summarizes timed sorting runs.
package report

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/gonum/stat"

	"github.com/exascience/pmerge/comm"
)

// A Trial is one timed run: the parallel sort and the sequential baseline on
// the same input.
type Trial struct {
	Parallel   time.Duration
	Sequential time.Duration
	Sorted     bool
}

// Timing holds the mean and standard deviation of a series of durations,
// in seconds.
type Timing struct {
	Mean   float64
	StdDev float64
}

func timing(durations []float64) Timing {
	t := Timing{Mean: stat.Mean(durations, nil)}
	if len(durations) > 1 {
		t.StdDev = stat.StdDev(durations, nil)
	}
	return t
}

// A Summary aggregates a series of trials.
type Summary struct {
	Trials     int
	Parallel   Timing
	Sequential Timing
	SpeedUp    float64
	Sorted     bool
}

// Summarize aggregates trials. The speed-up is the ratio of the mean
// sequential time to the mean parallel time.
func Summarize(trials []Trial) Summary {
	s := Summary{Trials: len(trials), Sorted: len(trials) > 0}
	if len(trials) == 0 {
		return s
	}
	par := make([]float64, len(trials))
	seq := make([]float64, len(trials))
	for i, t := range trials {
		par[i] = t.Parallel.Seconds()
		seq[i] = t.Sequential.Seconds()
		s.Sorted = s.Sorted && t.Sorted
	}
	s.Parallel, s.Sequential = timing(par), timing(seq)
	if s.Parallel.Mean > 0 {
		s.SpeedUp = s.Sequential.Mean / s.Parallel.Mean
	} else {
		s.SpeedUp = math.Inf(1)
	}
	return s
}

var reportedTags = []comm.Tag{comm.TagInit, comm.TagData, comm.TagAnsw, comm.TagFini, comm.TagArray1, comm.TagArray2}

// Write prints the summary of sorting size elements with nProc ranks. If m is
// not nil, the message counts are printed as well.
func (s Summary) Write(w io.Writer, size, nProc int, m *comm.Metrics) error {
	var b bytes.Buffer
	if s.Sorted {
		fmt.Fprintln(&b, "Sorting succeeds.")
	} else {
		fmt.Fprintln(&b, "SORTING FAILS.")
	}
	fmt.Fprintf(&b, "  Elements:  %s on %d processes, %d trials\n", humanize.Comma(int64(size)), nProc, s.Trials)
	s.writeTiming(&b, "  Parallel", s.Parallel)
	s.writeTiming(&b, "Sequential", s.Sequential)
	fmt.Fprintf(&b, "  Speed-up:  %3.3f\n", s.SpeedUp)

	if m != nil {
		fmt.Fprintln(&b, "  Messages:")
		for _, tag := range reportedTags {
			messages, elements := m.Count(tag)
			fmt.Fprintf(&b, "%10v:  %s messages, %s elements\n", tag,
				humanize.Comma(messages), humanize.Comma(elements))
		}
	}
	_, err := w.Write(b.Bytes())
	return err
}

func (s Summary) writeTiming(b *bytes.Buffer, label string, t Timing) {
	if s.Trials > 1 {
		fmt.Fprintf(b, "%s:  %3.3f ± %3.3f\n", label, t.Mean, t.StdDev)
		return
	}
	fmt.Fprintf(b, "%s:  %3.3f\n", label, t.Mean)
}
