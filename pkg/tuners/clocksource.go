// Copyright 2022 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package tuners

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/redpanda-data/ptune/pkg/tuners/executors"
	"github.com/redpanda-data/ptune/pkg/tuners/executors/commands"
	"github.com/spf13/afero"
)

const (
	preferredClkSource = "tsc"

	currentClkSourceFile   = "/sys/devices/system/clocksource/clocksource0/current_clocksource"
	availableClkSourceFile = "/sys/devices/system/clocksource/clocksource0/available_clocksource"
)

func NewClockSourceChecker(fs afero.Fs) Checker {
	return NewEqualityChecker(
		ClockSourceChecker,
		"Clock Source",
		Warning,
		preferredClkSource,
		func() (interface{}, error) {
			content, err := afero.ReadFile(fs, currentClkSourceFile)
			if err != nil {
				return "", err
			}
			return strings.TrimSpace(string(content)), nil
		},
	)
}

func NewClockSourceTuner(fs afero.Fs, executor executors.Executor) Tunable {
	return NewCheckedTunable(
		NewClockSourceChecker(fs),
		func() TuneResult {
			err := executor.Execute(
				commands.NewWriteFileCmd(fs, currentClkSourceFile, preferredClkSource))
			if err != nil {
				return NewTuneError(err)
			}
			return NewTuneResult(false)
		},
		func() (bool, string) {
			// tsc clocksource is only available in x86 architectures.
			if runtime.GOARCH != "amd64" && runtime.GOARCH != "386" {
				return false, "Clocksource setting not available for this architecture"
			}
			content, err := afero.ReadFile(fs, availableClkSourceFile)
			if err != nil {
				return false, err.Error()
			}
			for _, src := range strings.Fields(string(content)) {
				if src == preferredClkSource {
					return true, ""
				}
			}
			return false, fmt.Sprintf(
				"Preferred clocksource '%s' not available", preferredClkSource)
		},
		executor.IsLazy(),
	)
}
