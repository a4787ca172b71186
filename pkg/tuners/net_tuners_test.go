// Copyright 2022 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package tuners_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/redpanda-data/ptune/pkg/os"
	"github.com/redpanda-data/ptune/pkg/tuners"
	"github.com/redpanda-data/ptune/pkg/tuners/ethtool"
	"github.com/redpanda-data/ptune/pkg/tuners/executors"
	"github.com/redpanda-data/ptune/pkg/tuners/hwloc"
	"github.com/redpanda-data/ptune/pkg/tuners/irq"
	"github.com/redpanda-data/ptune/pkg/tuners/network"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const tuningScriptHeader = "#!/usr/bin/env bash\n\nset -e\n\n"

func mockNetTunersFactory(
	fs afero.Fs, exec executors.Executor,
) (tuners.NetTunersFactory, error) {
	procFile := irq.NewProcFile(fs)
	proc := os.NewProc()
	timeout := 1 * time.Second
	hwlocCmd := hwloc.NewHwLocCmd(proc, timeout)
	eth, err := ethtool.NewEthtoolWrapper()
	if err != nil {
		return nil, err
	}
	return tuners.NewNetTunersFactory(
		fs,
		procFile,
		irq.NewDeviceInfo(fs, procFile),
		eth,
		irq.NewBalanceService(fs, proc, exec, timeout),
		irq.NewCPUMasks(fs, hwlocCmd, exec),
		exec,
	), nil
}

func TestSynBacklogTuner(t *testing.T) {
	tests := []struct {
		name           string
		before         func(fs afero.Fs) error
		expectChange   bool
		expected       int
		expectedErrMsg string
	}{
		{
			name: "it shouldn't do anything if current > reference",
			before: func(fs afero.Fs) error {
				return afero.WriteFile(
					fs, network.SynBacklogFile, []byte("20000000"), 0o644)
			},
		},
		{
			name: "it shouldn't do anything if current == reference",
			before: func(fs afero.Fs) error {
				return afero.WriteFile(
					fs, network.SynBacklogFile, []byte("4096"), 0o644)
			},
		},
		{
			name: "it should set the value if current < reference",
			before: func(fs afero.Fs) error {
				return afero.WriteFile(
					fs, network.SynBacklogFile, []byte("12"), 0o644)
			},
			expectChange: true,
			expected:     4096,
		},
		{
			name:           "it should fail if the file is missing",
			expectedErrMsg: network.SynBacklogFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(st *testing.T) {
			const scriptPath = "/tune.sh"
			fs := afero.NewMemMapFs()
			exec := executors.NewScriptRenderingExecutor(fs, scriptPath)
			if tt.before != nil {
				err := tt.before(fs)
				require.NoError(st, err)
			}
			f, err := mockNetTunersFactory(fs, exec)
			require.NoError(st, err)
			tuner := f.NewSynBacklogTuner()
			res := tuner.Tune()
			if tt.expectedErrMsg != "" {
				require.Contains(st, res.Error().Error(), tt.expectedErrMsg)
				return
			}
			require.NoError(st, res.Error())
			if !tt.expectChange {
				// nothing rendered, the script is never created
				exists, err := afero.Exists(fs, scriptPath)
				require.NoError(st, err)
				require.False(st, exists)
				return
			}
			contents, err := afero.ReadFile(fs, scriptPath)
			require.NoError(st, err)
			expected := tuningScriptHeader + fmt.Sprintf(
				"echo '%d' > %s\n", tt.expected, network.SynBacklogFile)
			require.Exactly(st, expected, string(contents))
		})
	}
}

func TestListenBacklogTuner(t *testing.T) {
	tests := []struct {
		name           string
		before         func(fs afero.Fs) error
		expectChange   bool
		expected       int
		expectedErrMsg string
	}{
		{
			name: "it shouldn't do anything if current > reference",
			before: func(fs afero.Fs) error {
				return afero.WriteFile(
					fs, network.ListenBacklogFile, []byte("20000000"), 0o644)
			},
		},
		{
			name: "it shouldn't do anything if current == reference",
			before: func(fs afero.Fs) error {
				return afero.WriteFile(
					fs, network.ListenBacklogFile, []byte("4096"), 0o644)
			},
		},
		{
			name: "it should set the value if current < reference",
			before: func(fs afero.Fs) error {
				return afero.WriteFile(
					fs, network.ListenBacklogFile, []byte("12"), 0o644)
			},
			expectChange: true,
			expected:     4096,
		},
		{
			name:           "it should fail if the file is missing",
			expectedErrMsg: network.ListenBacklogFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(st *testing.T) {
			const scriptPath = "/tune.sh"
			fs := afero.NewMemMapFs()
			exec := executors.NewScriptRenderingExecutor(fs, scriptPath)
			if tt.before != nil {
				err := tt.before(fs)
				require.NoError(st, err)
			}
			f, err := mockNetTunersFactory(fs, exec)
			require.NoError(st, err)
			tuner := f.NewListenBacklogTuner()
			res := tuner.Tune()
			if tt.expectedErrMsg != "" {
				require.Contains(st, res.Error().Error(), tt.expectedErrMsg)
				return
			}
			require.NoError(st, res.Error())
			if !tt.expectChange {
				// nothing rendered, the script is never created
				exists, err := afero.Exists(fs, scriptPath)
				require.NoError(st, err)
				require.False(st, exists)
				return
			}
			contents, err := afero.ReadFile(fs, scriptPath)
			require.NoError(st, err)
			expected := tuningScriptHeader + fmt.Sprintf(
				"echo '%d' > %s\n", tt.expected, network.ListenBacklogFile)
			require.Exactly(st, expected, string(contents))
		})
	}
}
