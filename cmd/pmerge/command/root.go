// Package command implements the pmerge command line.
package command

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/exascience/pmerge/comm"
	"github.com/exascience/pmerge/internal/report"
	"github.com/exascience/pmerge/sequential"
	"github.com/exascience/pmerge/topology"
	"github.com/exascience/pmerge/treesort"
	"github.com/exascience/pmerge/workload"
)

// Config holds the settings of one invocation.
type Config struct {
	Procs      int    `mapstructure:"procs"`
	Size       int    `mapstructure:"size"`
	Trials     int    `mapstructure:"trials"`
	Seed       uint64 `mapstructure:"seed"`
	MetricsOut string `mapstructure:"metrics-out"`
}

// NewRoot returns the pmerge root command. Settings are read from flags,
// from PMERGE_* environment variables, and from an optional config file, in
// that order of precedence.
func NewRoot() *cobra.Command {
	v := viper.New()
	var configFile string

	root := &cobra.Command{
		Use:   "pmerge [size]",
		Short: "Sort a shuffled vector with a tree-structured parallel merge sort",
		Long: "pmerge sorts a shuffled permutation of 1..size with a tree of cooperating ranks,\n" +
			"times it against a sequential merge sort, and checks the result.\n" +
			"If no size is given, it is read from standard input.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				v.SetConfigFile(configFile)
				if err := v.ReadInConfig(); err != nil {
					return errors.Wrapf(err, "read config %s", configFile)
				}
			}
			var cfg Config
			if err := v.Unmarshal(&cfg); err != nil {
				return errors.Wrap(err, "decode settings")
			}
			if len(args) == 1 {
				size, err := strconv.Atoi(args[0])
				if err != nil {
					return errors.Wrapf(err, "invalid size %q", args[0])
				}
				cfg.Size = size
			}
			return Run(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	fs := root.Flags()
	fs.StringVar(&configFile, "config", "", "optional config file (yaml, json or toml)")
	fs.Int("procs", runtime.GOMAXPROCS(0), "number of ranks taking part in the sort")
	fs.Int("size", 0, "number of elements to sort; prompted for if 0")
	fs.Int("trials", 1, "number of timed runs")
	fs.Uint64("seed", uint64(time.Now().UnixNano()), "seed for shuffling the input")
	fs.String("metrics-out", "", "write message counters in Prometheus text format to this file")

	v.SetEnvPrefix("PMERGE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		panic(err)
	}
	return root
}

// Run sorts cfg.Trials shuffled vectors and writes a report to out. If
// cfg.Size is not positive, the size is read from in.
func Run(ctx context.Context, cfg Config, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Procs < 1 {
		return errors.Errorf("invalid process count: %d", cfg.Procs)
	}
	if cfg.Trials < 1 {
		cfg.Trials = 1
	}
	if cfg.Size <= 0 {
		fmt.Fprint(out, "Size:  ")
		if _, err := fmt.Fscan(in, &cfg.Size); err != nil {
			return errors.Wrap(err, "read size")
		}
		if cfg.Size < 0 {
			return errors.Errorf("invalid size: %d", cfg.Size)
		}
	} else {
		fmt.Fprintf(out, "Size:  %d\n", cfg.Size)
	}
	fmt.Fprintf(out, "%d processes mandates root height of %d\n", cfg.Procs, topology.RootHeight(cfg.Procs))

	reg := prometheus.NewRegistry()
	metrics := comm.NewMetrics(reg)
	r := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))

	trials := make([]report.Trial, 0, cfg.Trials)
	for i := 0; i < cfg.Trials; i++ {
		vector := workload.Generate(cfg.Size, r)
		solo := slices.Clone(vector)

		start := time.Now()
		if err := treesort.Sort(ctx, vector, cfg.Procs, treesort.WithMetrics(metrics)); err != nil {
			return errors.Wrapf(err, "trial %d", i+1)
		}
		middle := time.Now()
		sequential.MergeSort(solo)
		finish := time.Now()

		trial := report.Trial{
			Parallel:   middle.Sub(start),
			Sequential: finish.Sub(middle),
			Sorted:     workload.IsIdentity(vector) && slices.Equal(vector, solo),
		}
		glog.V(1).Infof("trial %d: parallel %v, sequential %v, sorted %v", i+1, trial.Parallel, trial.Sequential, trial.Sorted)
		trials = append(trials, trial)
	}

	summary := report.Summarize(trials)
	if err := summary.Write(out, cfg.Size, cfg.Procs, metrics); err != nil {
		return err
	}
	if cfg.MetricsOut != "" {
		if err := prometheus.WriteToTextfile(cfg.MetricsOut, reg); err != nil {
			return errors.Wrapf(err, "write metrics to %s", cfg.MetricsOut)
		}
	}
	if !summary.Sorted {
		return errors.New("sorting fails")
	}
	return nil
}
