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
	"errors"

	"github.com/redpanda-data/ptune/pkg/tuners/disk"
	"go.uber.org/zap"
)

// newFeatureGatedTunable wraps a per-device tunable so that a device
// lacking the backing feature file is logged and skipped instead of
// failing the whole device set. Virtualized disks often miss queue
// features like write_cache.
func newFeatureGatedTunable(
	device string,
	featureFile func() (string, error),
	tunable Tunable,
) Tunable {
	return &featureGatedTunable{
		device:      device,
		featureFile: featureFile,
		tunable:     tunable,
	}
}

type featureGatedTunable struct {
	device      string
	featureFile func() (string, error)
	tunable     Tunable
}

func (t *featureGatedTunable) featureUnavailable() *disk.FeatureUnavailableError {
	_, err := t.featureFile()
	var unavailableErr *disk.FeatureUnavailableError
	if errors.As(err, &unavailableErr) {
		return unavailableErr
	}
	return nil
}

func (t *featureGatedTunable) CheckIfSupported() (supported bool, reason string) {
	if t.featureUnavailable() != nil {
		return true, ""
	}
	return t.tunable.CheckIfSupported()
}

func (t *featureGatedTunable) Tune() TuneResult {
	if unavailableErr := t.featureUnavailable(); unavailableErr != nil {
		zap.L().Sugar().Infof(
			"Skipping tuning of '%s', %s", t.device, unavailableErr.Error())
		return NewTuneResult(false)
	}
	return t.tunable.Tune()
}
