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
	"testing"

	"github.com/redpanda-data/ptune/pkg/tuners/disk"
	"github.com/redpanda-data/ptune/pkg/tuners/executors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const fWriteCache = "/sys/devices/pci0000:00/0000:00:1d.0/0000:71:00.0/nvme/fake/queue/write_cache"

func TestDeviceWriteCacheTuner_Tune(t *testing.T) {
	tests := []struct {
		name        string
		cachePolicy string
	}{
		{
			name:        "it should set the 'write through' policy",
			cachePolicy: disk.CachePolicyWriteThrough,
		},
		{
			name:        "it should set the 'write back' policy",
			cachePolicy: disk.CachePolicyWriteBack,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deviceFeatures := &deviceFeaturesMock{
				getWriteCacheFeatureFile: func(string) (string, error) {
					return fWriteCache, nil
				},
				getWriteCache: func(string) (string, error) {
					return "", nil
				},
			}
			fs := afero.NewMemMapFs()
			fs.MkdirAll("/sys/devices/pci0000:00/0000:00:1d.0/0000:71:00.0/nvme/fake/queue", 0o644)
			tuner := NewDeviceWriteCacheTuner(
				fs, "fake", tt.cachePolicy, deviceFeatures, executors.NewDirectExecutor())

			tuner.Tune()

			setValue, _ := afero.ReadFile(fs, fWriteCache)
			require.Equal(t, tt.cachePolicy, string(setValue))
		})
	}
}

func TestDeviceWriteCacheTuner_UnsupportedDevice(t *testing.T) {
	deviceFeatures := &deviceFeaturesMock{
		getWriteCacheFeatureFile: func(string) (string, error) {
			return "", &disk.FeatureUnavailableError{Device: "/dev/fake", Feature: "write_cache"}
		},
	}
	fs := afero.NewMemMapFs()
	tuner := NewDeviceWriteCacheTuner(
		fs, "fake", disk.CachePolicyWriteThrough, deviceFeatures, executors.NewDirectExecutor())

	supported, reason := tuner.CheckIfSupported()

	require.False(t, supported)
	require.Equal(t, "'write_cache' feature is not available for '/dev/fake'", reason)
}
