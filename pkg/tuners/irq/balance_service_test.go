// Copyright 2022 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package irq

import (
	"testing"
	"time"

	"github.com/redpanda-data/ptune/pkg/os"
	"github.com/redpanda-data/ptune/pkg/tuners/executors"
	"github.com/redpanda-data/ptune/pkg/utils"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

type procMock struct {
	os.Proc
	run       func(command string, args ...string) ([]string, error)
	isRunning func(processName string) bool
}

func (procMock *procMock) RunWithSystemLdPath(
	_ time.Duration, command string, args ...string,
) ([]string, error) {
	return procMock.run(command, args...)
}

func (procMock *procMock) IsRunning(_ time.Duration, processName string) bool {
	return procMock.isRunning(processName)
}

type balanceServiceMock struct {
	BalanceService
	getBannedIRQs func() ([]int, error)
	isRunning     bool
}

func (m *balanceServiceMock) GetBannedIRQs() ([]int, error) {
	return m.getBannedIRQs()
}

func (m *balanceServiceMock) IsRunning() bool {
	return m.isRunning
}

func Test_BalanceService_BanIRQsAndRestart(t *testing.T) {
	running := func(_ string) bool {
		return true
	}
	tests := []struct {
		name           string
		bannedIRQs     []int
		configFilename string
		configLines    []string
		wantCommand    string
		wantArgs       []string
		wantOptions    string
	}{
		{
			name:           "shall append banned IRQs and restart via systemd",
			bannedIRQs:     []int{5, 12, 15},
			configFilename: "/etc/sysconfig/irqbalance",
			configLines: []string{
				"# irqbalance args",
				"IRQBALANCE_ARGS=\"\"",
			},
			wantCommand: "systemctl",
			wantArgs:    []string{"try-restart", "irqbalance"},
			wantOptions: "IRQBALANCE_ARGS=\" --banirq=5 --banirq=12 --banirq=15\"",
		},
		{
			name:           "shall leave already banned IRQs intact",
			bannedIRQs:     []int{12, 15},
			configFilename: "/etc/sysconfig/irqbalance",
			configLines: []string{
				"# irqbalance args",
				"IRQBALANCE_ARGS=\" --banirq=5\"",
			},
			wantCommand: "systemctl",
			wantArgs:    []string{"try-restart", "irqbalance"},
			wantOptions: "IRQBALANCE_ARGS=\" --banirq=5 --banirq=12 --banirq=15\"",
		},
		{
			name:           "shall prevent duplicated --banirq arguments",
			bannedIRQs:     []int{5, 12},
			configFilename: "/etc/sysconfig/irqbalance",
			configLines: []string{
				"IRQBALANCE_ARGS=\" --banirq=5 --banirq=12\"",
			},
			wantCommand: "systemctl",
			wantArgs:    []string{"try-restart", "irqbalance"},
			wantOptions: "IRQBALANCE_ARGS=\" --banirq=5 --banirq=12\"",
		},
		{
			name:           "shall add an options line when the key is missing",
			bannedIRQs:     []int{7},
			configFilename: "/etc/default/irqbalance",
			configLines: []string{
				"# Debian style config without any options set",
			},
			wantCommand: "/etc/init.d/irqbalance",
			wantArgs:    []string{"restart"},
			wantOptions: "OPTIONS=\" --banirq=7\"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, utils.WriteFileLines(fs, tt.configLines, tt.configFilename))
			var gotCommand string
			var gotArgs []string
			proc := &procMock{
				isRunning: running,
				run: func(command string, args ...string) ([]string, error) {
					gotCommand = command
					gotArgs = args
					return nil, nil
				},
			}
			balanceService := NewBalanceService(
				fs, proc, executors.NewDirectExecutor(), time.Second)

			require.NoError(t, balanceService.BanIRQsAndRestart(tt.bannedIRQs))

			require.Equal(t, tt.wantCommand, gotCommand)
			require.Equal(t, tt.wantArgs, gotArgs)
			fileContent, err := utils.ReadFileLines(fs, tt.configFilename)
			require.NoError(t, err)
			require.Equal(t, tt.wantOptions, fileContent[len(fileContent)-1])

			// a backup of the original config must exist
			backups, err := afero.Glob(fs, tt.configFilename+".ptune.*.bk")
			require.NoError(t, err)
			require.Len(t, backups, 1)
		})
	}
}

func Test_BalanceService_GetBannedIRQs(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, utils.WriteFileLines(fs,
		[]string{"IRQBALANCE_ARGS=\" --banirq=5 --banirq=91 --other-flag\""},
		"/etc/sysconfig/irqbalance"))
	balanceService := NewBalanceService(
		fs, &procMock{}, executors.NewDirectExecutor(), time.Second)

	bannedIRQs, err := balanceService.GetBannedIRQs()
	require.NoError(t, err)
	require.Equal(t, []int{5, 91}, bannedIRQs)
}

func Test_AreIRQsStaticallyAssigned(t *testing.T) {
	tests := []struct {
		name    string
		irqs    []int
		service BalanceService
		want    bool
	}{
		{
			name: "statically assigned when irqbalance is not running",
			irqs: []int{1, 2},
			service: &balanceServiceMock{
				isRunning: false,
			},
			want: true,
		},
		{
			name: "statically assigned when all IRQs are banned",
			irqs: []int{1, 2},
			service: &balanceServiceMock{
				isRunning: true,
				getBannedIRQs: func() ([]int, error) {
					return []int{1, 2, 3}, nil
				},
			},
			want: true,
		},
		{
			name: "not statically assigned when an IRQ is unbanned",
			irqs: []int{1, 4},
			service: &balanceServiceMock{
				isRunning: true,
				getBannedIRQs: func() ([]int, error) {
					return []int{1, 2, 3}, nil
				},
			},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AreIRQsStaticallyAssigned(tt.irqs, tt.service)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
