// Copyright 2022 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

//go:build linux
// +build linux

package factory

import (
	"runtime"
	"sort"
	"time"

	"github.com/redpanda-data/ptune/pkg/os"
	"github.com/redpanda-data/ptune/pkg/tuners"
	"github.com/redpanda-data/ptune/pkg/tuners/disk"
	"github.com/redpanda-data/ptune/pkg/tuners/ethtool"
	"github.com/redpanda-data/ptune/pkg/tuners/executors"
	"github.com/redpanda-data/ptune/pkg/tuners/hwloc"
	"github.com/redpanda-data/ptune/pkg/tuners/irq"
	"github.com/spf13/afero"
)

var allTuners = map[string]func(*tunersFactory, *TunerParams) tuners.Tunable{
	"disk_irq":         (*tunersFactory).newDiskIRQTuner,
	"disk_scheduler":   (*tunersFactory).newDiskSchedulerTuner,
	"disk_nomerges":    (*tunersFactory).newDiskNomergesTuner,
	"disk_write_cache": (*tunersFactory).newDiskWriteCacheTuner,
	"net":              (*tunersFactory).newNetworkTuner,
	"clocksource":      (*tunersFactory).newClockSourceTuner,
}

// TunerParams carries the resolved, validated tuning request. When
// IRQCPUMask is set the mode is ignored and the IRQ CPU set is taken
// verbatim.
type TunerParams struct {
	Mode        irq.Mode
	CPUMask     string
	IRQCPUMask  string
	Arfs        tuners.ArfsSetting
	Disks       []string
	Directories []string
	Nics        []string
	// WriteCachePolicy is what the disk_write_cache tuner writes,
	// 'write through' when left empty.
	WriteCachePolicy string
}

type TunersFactory interface {
	CreateTuner(tunerType string, params *TunerParams) tuners.Tunable
}

type tunersFactory struct {
	fs                afero.Fs
	irqDeviceInfo     irq.DeviceInfo
	cpuMasks          irq.CPUMasks
	irqBalanceService irq.BalanceService
	irqProcFile       irq.ProcFile
	blockDevices      disk.BlockDevices
	proc              os.Proc
	executor          executors.Executor
}

func NewDirectExecutorTunersFactory(
	fs afero.Fs, irqCPUMask string, timeout time.Duration,
) TunersFactory {
	return newTunersFactory(
		fs, irqCPUMask, executors.NewDirectExecutor(), timeout)
}

func NewScriptRenderingTunersFactory(
	fs afero.Fs, irqCPUMask string, out string, timeout time.Duration,
) TunersFactory {
	return newTunersFactory(
		fs, irqCPUMask, executors.NewScriptRenderingExecutor(fs, out), timeout)
}

func newTunersFactory(
	fs afero.Fs,
	irqCPUMask string,
	executor executors.Executor,
	timeout time.Duration,
) TunersFactory {
	proc := os.NewProc()
	irqProcFile := irq.NewProcFile(fs)
	irqDeviceInfo := irq.NewDeviceInfo(fs, irqProcFile)
	hwLoc := hwloc.NewHwLocCmd(proc, timeout)
	var cpuMasks irq.CPUMasks
	if irqCPUMask != "" {
		cpuMasks = irq.NewCPUMasksWithIRQMask(fs, hwLoc, executor, irqCPUMask)
	} else {
		cpuMasks = irq.NewCPUMasks(fs, hwLoc, executor)
	}
	return &tunersFactory{
		fs:                fs,
		irqProcFile:       irqProcFile,
		irqDeviceInfo:     irqDeviceInfo,
		cpuMasks:          cpuMasks,
		irqBalanceService: irq.NewBalanceService(fs, proc, executor, timeout),
		blockDevices:      disk.NewBlockDevices(fs, irqDeviceInfo, irqProcFile, proc, timeout),
		proc:              proc,
		executor:          executor,
	}
}

func AvailableTuners() []string {
	var keys []string
	for key := range allTuners {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func IsTunerAvailable(tuner string) bool {
	return allTuners[tuner] != nil
}

func (factory *tunersFactory) CreateTuner(
	tunerName string, tunerParams *TunerParams,
) tuners.Tunable {
	return allTuners[tunerName](factory, tunerParams)
}

func (factory *tunersFactory) newDiskIRQTuner(
	params *TunerParams,
) tuners.Tunable {
	return tuners.NewDiskIRQTuner(
		factory.fs,
		params.Mode,
		params.CPUMask,
		params.Directories,
		params.Disks,
		factory.irqDeviceInfo,
		factory.cpuMasks,
		factory.irqBalanceService,
		factory.irqProcFile,
		factory.blockDevices,
		runtime.NumCPU(),
		factory.executor,
	)
}

func (factory *tunersFactory) newDiskSchedulerTuner(
	params *TunerParams,
) tuners.Tunable {
	return tuners.NewSchedulerTuner(
		factory.fs,
		params.Directories,
		params.Disks,
		factory.blockDevices,
		factory.executor,
	)
}

func (factory *tunersFactory) newDiskNomergesTuner(
	params *TunerParams,
) tuners.Tunable {
	return tuners.NewNomergesTuner(
		factory.fs,
		params.Directories,
		params.Disks,
		factory.blockDevices,
		factory.executor,
	)
}

func (factory *tunersFactory) newDiskWriteCacheTuner(
	params *TunerParams,
) tuners.Tunable {
	cachePolicy := params.WriteCachePolicy
	if cachePolicy == "" {
		cachePolicy = disk.CachePolicyWriteThrough
	}
	return tuners.NewWriteCacheTuner(
		factory.fs,
		params.Directories,
		params.Disks,
		cachePolicy,
		factory.blockDevices,
		factory.executor,
	)
}

func (factory *tunersFactory) newNetworkTuner(
	params *TunerParams,
) tuners.Tunable {
	ethtool, err := ethtool.NewEthtoolWrapper()
	if err != nil {
		panic(err)
	}
	return tuners.NewNetTuner(
		params.Mode,
		params.CPUMask,
		params.Nics,
		params.Arfs,
		factory.fs,
		factory.irqDeviceInfo,
		factory.cpuMasks,
		factory.irqBalanceService,
		factory.irqProcFile,
		ethtool,
		factory.executor,
	)
}

func (factory *tunersFactory) newClockSourceTuner(
	_ *TunerParams,
) tuners.Tunable {
	return tuners.NewClockSourceTuner(factory.fs, factory.executor)
}
