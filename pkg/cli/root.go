// Copyright 2022 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

//go:build linux

package cli

import (
	"errors"
	"fmt"
	stdos "os"
	"strconv"
	"time"

	"github.com/redpanda-data/ptune/pkg/config"
	"github.com/redpanda-data/ptune/pkg/tuners/hwloc"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Execute runs the root command against the real filesystem. A fatal
// error yields a non zero exit with a descriptive message.
func Execute() {
	fs := afero.NewOsFs()
	if err := NewRootCommand(fs).Execute(); err != nil {
		fmt.Fprintf(stdos.Stderr,
			"ERROR: %v. Your system can't be tuned until the issue is fixed.\n", err)
		stdos.Exit(1)
	}
}

func NewRootCommand(fs afero.Fs) *cobra.Command {
	var (
		opts           config.Options
		writeBackCache string
		arfs           string
		cpuSet         string
		params         runParams
		verbose        bool
	)
	cmd := &cobra.Command{
		Use:   "ptune",
		Short: "Tune the OS for predictable storage and networking latency",
		Long: `Tune the OS for predictable storage and networking latency.

Modes description:

  sq - set all IRQs of a given NIC to CPU0 and configure RPS
       to spread NAPIs' handling between other CPUs.

  sq_split - divide all IRQs of a given NIC between CPU0 and its HT
       siblings and configure RPS to spread NAPIs' handling between
       other CPUs.

  mq - distribute NIC's IRQs among all CPUs instead of binding them
       all to CPU0. In this mode RPS is always enabled to spread
       NAPIs' handling between all CPUs.

If no mode is given the most restrictive default mode of the tuned
subsystems is used.
`,
		Args:          cobra.ExactArgs(0),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			zap.ReplaceGlobals(newLogger(verbose))
			var err error
			if opts.WriteBackCache, err = triState(writeBackCache, "--write-back-cache"); err != nil {
				return err
			}
			if opts.Arfs, err = triState(arfs, "--arfs"); err != nil {
				return err
			}
			if params.optionsFile != "" {
				fileOpts, err := config.ReadOptions(fs, params.optionsFile)
				if err != nil {
					return err
				}
				opts.Merge(fileOpts)
			}
			if err := opts.Validate(); err != nil {
				return err
			}
			if cpuSet != "all" {
				if opts.CPUMask != "" {
					return errors.New("use either --cpu-set or --cpu-mask, not both")
				}
				if opts.CPUMask, err = hwloc.TranslateToHwLocCPUSet(cpuSet); err != nil {
					return err
				}
			}
			if params.dumpOptions {
				dump, err := opts.Dump()
				if err != nil {
					return err
				}
				fmt.Print(dump)
				return nil
			}
			if len(opts.Tune) == 0 {
				return errors.New("at least one tuning category must be given, " +
					"see --tune")
			}
			exit1, err := run(fs, &opts, &params)
			if err != nil {
				return err
			}
			if exit1 {
				stdos.Exit(1)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Mode, "mode", "", "Configuration mode: one of [sq, sq_split, mq, no_irq_restrictions]")
	stringListVar(flags, &opts.Nics, "nic", "Network interface name(s) to tune, 'eth0' when none is given (may appear more than once)")
	stringListVar(flags, &opts.Tune, "tune", "Categories to configure: any of [disks, net, system] (may appear more than once)")
	flags.BoolVar(&opts.TuneClock, "tune-clock", false, "Force tuning of the system clocksource")
	flags.StringVar(&opts.CPUMask, "cpu-mask", "", "Mask of cores to use, all available cores when none is given")
	flags.StringVar(&cpuSet, "cpu-set", "all", "Set of CPUs to use in cpuset(7) format, an alternative to --cpu-mask")
	flags.StringVar(&opts.IRQCPUMask, "irq-cpu-mask", "", "Mask of cores to use for IRQs binding, mutually exclusive with --mode")
	stringListVar(flags, &opts.Directories, "dir", "Directory to optimize (may appear more than once)")
	stringListVar(flags, &opts.Devices, "dev", "Device to optimize, e.g. sda1 (may appear more than once)")
	flags.StringVar(&writeBackCache, "write-back-cache", "", "Enable/disable the 'write back' write cache mode (true/false)")
	flags.StringVar(&arfs, "arfs", "", "Enable/disable accelerated RFS (true/false)")
	flags.StringVar(&params.optionsFile, "options-file", "", "Configuration YAML file")
	flags.BoolVar(&params.dumpOptions, "dump-options-file", false, "Print the YAML file containing the current configuration")
	flags.BoolVar(&params.getCPUMask, "get-cpu-mask", false, "Print the CPU mask to be used for compute")
	flags.BoolVar(&params.getCPUMaskQuiet, "get-cpu-mask-quiet", false, "Like --get-cpu-mask but print the zero CPU set if that's what it turns out to be")
	flags.BoolVar(&params.dryRun, "dry-run", false, "Don't take any action, print the tuning script instead")
	flags.StringVar(&params.outScript, "output-script", "", "Render the tuning commands to a script instead of executing them")
	flags.DurationVar(&params.timeout, "timeout", 10*time.Second, "The maximum time to wait for external tooling to complete (e.g. 300ms, 1.5s, 2h45m)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Be more verbose about operations and their result")

	cmd.AddCommand(newCheckCommand(fs))

	return cmd
}

// stringListVar registers a repeatable string flag bound to a
// config.StringList.
func stringListVar(
	flags *pflag.FlagSet, list *config.StringList, name, usage string,
) {
	flags.StringSliceVar((*[]string)(list), name, nil, usage)
}

// triState parses an optional boolean flag: an empty value means "not
// requested" and maps to nil.
func triState(value string, flagName string) (*bool, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value '%s': expected a boolean", flagName, value)
	}
	return &parsed, nil
}

func newLogger(verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(stdos.Stderr),
		level,
	)
	return zap.New(core)
}
