// Copyright 2022 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package commands

import "bufio"

// Command is a single reversible-in-principle tuning action. Execute
// applies it to the live system, RenderScript writes its shell
// equivalent for dry runs.
type Command interface {
	Execute() error
	RenderScript(w *bufio.Writer) error
}
