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
	"github.com/redpanda-data/ptune/pkg/tuners/disk"
	"github.com/redpanda-data/ptune/pkg/tuners/executors"
	"github.com/redpanda-data/ptune/pkg/tuners/executors/commands"
	"github.com/spf13/afero"
)

// NewWriteCacheTuner sets the requested cache policy on the disks
// under the given directories and devices. 'write back' trades safety
// against power loss for throughput, which is why the tuner has to be
// requested explicitly.
func NewWriteCacheTuner(
	fs afero.Fs,
	directories []string,
	devices []string,
	cachePolicy string,
	blockDevices disk.BlockDevices,
	executor executors.Executor,
) Tunable {
	deviceFeatures := disk.NewDeviceFeatures(fs, blockDevices)
	return NewDiskTuner(
		fs,
		directories,
		devices,
		blockDevices,
		func(device string) Tunable {
			return newFeatureGatedTunable(
				device,
				func() (string, error) {
					return deviceFeatures.GetWriteCacheFeatureFile(device)
				},
				NewDeviceWriteCacheTuner(
					fs, device, cachePolicy, deviceFeatures, executor),
			)
		},
	)
}

func NewDeviceWriteCacheTuner(
	fs afero.Fs,
	device string,
	cachePolicy string,
	deviceFeatures disk.DeviceFeatures,
	executor executors.Executor,
) Tunable {
	return NewCheckedTunable(
		NewDeviceWriteCacheChecker(device, cachePolicy, deviceFeatures),
		func() TuneResult {
			return tuneWriteCache(fs, device, cachePolicy, deviceFeatures, executor)
		},
		func() (bool, string) {
			if _, err := deviceFeatures.GetWriteCacheFeatureFile(device); err != nil {
				return false, err.Error()
			}
			return true, ""
		},
		executor.IsLazy(),
	)
}

func tuneWriteCache(
	fs afero.Fs,
	device string,
	cachePolicy string,
	deviceFeatures disk.DeviceFeatures,
	executor executors.Executor,
) TuneResult {
	featureFile, err := deviceFeatures.GetWriteCacheFeatureFile(device)
	if err != nil {
		return NewTuneError(err)
	}
	err = executor.Execute(
		commands.NewWriteFileCmd(fs, featureFile, cachePolicy))
	if err != nil {
		return NewTuneError(err)
	}

	return NewTuneResult(false)
}
