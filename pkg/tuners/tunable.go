// Copyright 2022 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package tuners

// Tunable applies one tuning to the system. CheckIfSupported reports
// whether the tuning can run at all in this environment, e.g. whether
// the required binaries or sysfs files are present.
type Tunable interface {
	CheckIfSupported() (supported bool, reason string)
	Tune() TuneResult
}
