// Copyright 2022 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

//go:build !windows

package tuners

import (
	"sort"
	"time"

	"github.com/redpanda-data/ptune/pkg/os"
	"github.com/redpanda-data/ptune/pkg/tuners/disk"
	"github.com/redpanda-data/ptune/pkg/tuners/ethtool"
	"github.com/redpanda-data/ptune/pkg/tuners/executors"
	"github.com/redpanda-data/ptune/pkg/tuners/hwloc"
	"github.com/redpanda-data/ptune/pkg/tuners/irq"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// CheckerParams describes what to verify: the interfaces, directories
// and devices the checkers should inspect, and the mode and CPU mask
// the tuned state is expected to match.
type CheckerParams struct {
	Mode        irq.Mode
	CPUMask     string
	Directories []string
	Devices     []string
	Nics        []string
	// WriteCachePolicy is the cache policy the write cache checkers
	// expect, 'write through' when left empty.
	WriteCachePolicy string
}

// SystemCheckers builds the whole checker set for the given
// parameters, grouped by checker ID.
func SystemCheckers(
	fs afero.Fs, params *CheckerParams, timeout time.Duration,
) (map[CheckerID][]Checker, error) {
	proc := os.NewProc()
	ethtool, err := ethtool.NewEthtoolWrapper()
	if err != nil {
		return nil, err
	}
	executor := executors.NewDirectExecutor()
	irqProcFile := irq.NewProcFile(fs)
	irqDeviceInfo := irq.NewDeviceInfo(fs, irqProcFile)
	blockDevices := disk.NewBlockDevices(fs, irqDeviceInfo, irqProcFile, proc, timeout)
	deviceFeatures := disk.NewDeviceFeatures(fs, blockDevices)
	balanceService := irq.NewBalanceService(fs, proc, executor, timeout)
	cpuMasks := irq.NewCPUMasks(fs, hwloc.NewHwLocCmd(proc, timeout), executor)
	netCheckersFactory := NewNetCheckersFactory(
		fs, irqProcFile, irqDeviceInfo, ethtool, balanceService, cpuMasks)
	cachePolicy := params.WriteCachePolicy
	if cachePolicy == "" {
		cachePolicy = disk.CachePolicyWriteThrough
	}

	checkers := map[CheckerID][]Checker{
		SynBacklogChecker:            {netCheckersFactory.NewSynBacklogChecker()},
		ListenBacklogChecker:         {netCheckersFactory.NewListenBacklogChecker()},
		RfsTableEntriesChecker:       {netCheckersFactory.NewRfsTableSizeChecker()},
		NicIRQsAffinityStaticChecker: {netCheckersFactory.NewNicIRQAffinityStaticChecker(params.Nics)},
		NicIRQsAffinityChecker:       netCheckersFactory.NewNicIRQAffinityCheckers(params.Nics, params.Mode, params.CPUMask),
		NicRpsChecker:                netCheckersFactory.NewNicRpsSetCheckers(params.Nics, params.Mode, params.CPUMask),
		NicRfsChecker:                netCheckersFactory.NewNicRfsCheckers(params.Nics),
		NicNTupleChecker:             netCheckersFactory.NewNicNTupleCheckers(params.Nics),
		NicXpsChecker:                netCheckersFactory.NewNicXpsCheckers(params.Nics),
		ClockSourceChecker:           {NewClockSourceChecker(fs)},
	}

	for _, dir := range params.Directories {
		checkers[SchedulerChecker] = append(checkers[SchedulerChecker],
			NewDirectorySchedulerChecker(dir, deviceFeatures, blockDevices))
		checkers[NomergesChecker] = append(checkers[NomergesChecker],
			NewDirectoryNomergesChecker(dir, deviceFeatures, blockDevices))
		checkers[WriteCacheChecker] = append(checkers[WriteCacheChecker],
			NewDirectoryWriteCacheChecker(dir, cachePolicy, deviceFeatures, blockDevices))
		checkers[DiskIRQsAffinityChecker] = append(checkers[DiskIRQsAffinityChecker],
			NewDirectoryIRQAffinityChecker(dir, params.CPUMask, params.Mode, blockDevices, cpuMasks))
		checkers[DiskIRQsAffinityStaticChecker] = append(checkers[DiskIRQsAffinityStaticChecker],
			NewDirectoryIRQsAffinityStaticChecker(dir, blockDevices, balanceService))
	}
	for _, device := range params.Devices {
		checkers[SchedulerChecker] = append(checkers[SchedulerChecker],
			NewDeviceSchedulerChecker(device, deviceFeatures))
		checkers[NomergesChecker] = append(checkers[NomergesChecker],
			NewDeviceNomergesChecker(device, deviceFeatures))
		checkers[WriteCacheChecker] = append(checkers[WriteCacheChecker],
			NewDeviceWriteCacheChecker(device, cachePolicy, deviceFeatures))
	}
	if len(params.Devices) > 0 {
		checkers[DiskIRQsAffinityChecker] = append(checkers[DiskIRQsAffinityChecker],
			NewDisksIRQAffinityChecker(params.Devices, params.CPUMask, params.Mode, blockDevices, cpuMasks))
		checkers[DiskIRQsAffinityStaticChecker] = append(checkers[DiskIRQsAffinityStaticChecker],
			NewDisksIRQAffinityStaticChecker(params.Devices, blockDevices, balanceService))
	}

	return checkers, nil
}

// Check runs every checker and returns the results sorted by
// description. A fatal checker error aborts the run, non fatal errors
// are reported in the results.
func Check(
	fs afero.Fs, params *CheckerParams, timeout time.Duration,
) ([]CheckResult, error) {
	var results []CheckResult
	checkersMap, err := SystemCheckers(fs, params, timeout)
	if err != nil {
		return results, err
	}

	for _, checkers := range checkersMap {
		for _, c := range checkers {
			result := c.Check()
			if result.Err != nil {
				if c.GetSeverity() == Fatal {
					return results, result.Err
				}
				zap.L().Sugar().Warnf("System check '%s' failed with non-fatal error '%s'",
					c.GetDesc(), result.Err)
			}
			zap.L().Sugar().Debugf("Checker '%s' result %+v", c.GetDesc(), result)
			results = append(results, *result)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Desc < results[j].Desc })
	return results, nil
}
