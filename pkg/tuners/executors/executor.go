// Copyright 2022 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package executors

import "github.com/redpanda-data/ptune/pkg/tuners/executors/commands"

// Executor runs tuning commands. A lazy executor does not touch the
// system; it records what would be done instead.
type Executor interface {
	Execute(commands.Command) error
	IsLazy() bool
}
