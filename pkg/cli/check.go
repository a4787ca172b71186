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
	"fmt"
	stdos "os"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/redpanda-data/ptune/pkg/tuners"
	"github.com/redpanda-data/ptune/pkg/tuners/irq"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCheckCommand(fs afero.Fs) *cobra.Command {
	var (
		mode    string
		params  tuners.CheckerParams
		timeout time.Duration
		verbose bool
	)
	cmd := &cobra.Command{
		Use:           "check",
		Short:         "Verify the tuned state of the system",
		Args:          cobra.ExactArgs(0),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(*cobra.Command, []string) error {
			zap.ReplaceGlobals(newLogger(verbose))
			parsedMode, err := irq.ModeFromString(mode)
			if err != nil {
				return err
			}
			params.Mode = parsedMode
			if params.CPUMask == "" {
				params.CPUMask = "all"
			}
			results, err := tuners.Check(fs, &params, timeout)
			if err != nil {
				return err
			}
			printCheckResults(results)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&mode, "mode", "", "Configuration mode to verify against: one of [sq, sq_split, mq, no_irq_restrictions]")
	flags.StringVar(&params.CPUMask, "cpu-mask", "", "Mask of cores the system was tuned with, all available cores when none is given")
	flags.StringSliceVar(&params.Nics, "nic", nil, "Network interface name(s) to verify (may appear more than once)")
	flags.StringSliceVar(&params.Directories, "dir", nil, "Directory to verify (may appear more than once)")
	flags.StringSliceVar(&params.Devices, "dev", nil, "Device to verify, e.g. sda1 (may appear more than once)")
	flags.DurationVar(&timeout, "timeout", 10*time.Second, "The maximum time to wait for external tooling to complete (e.g. 300ms, 1.5s, 2h45m)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Be more verbose about operations and their result")

	return cmd
}

func printCheckResults(results []tuners.CheckResult) {
	table := tablewriter.NewWriter(stdos.Stdout)
	table.SetHeader([]string{"Condition", "Required", "Current", "Severity", "Passed"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	for _, res := range results {
		current := res.Current
		if res.Err != nil {
			current = res.Err.Error()
		}
		row := []string{
			res.Desc,
			res.Required,
			current,
			fmt.Sprint(res.Severity),
			fmt.Sprint(res.IsOk),
		}
		c := green
		if !res.IsOk {
			c = yellow
			if res.Severity == tuners.Fatal {
				c = red
			}
		}
		table.Append(colorRow(c, row))
	}
	table.Render()
}
