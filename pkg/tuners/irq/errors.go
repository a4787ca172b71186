// Copyright 2022 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package irq

import "fmt"

// MalformedMaskError reports a CPU mask whose hex groups could not be
// parsed. A mask full of zeroes is not malformed, it is merely zero.
type MalformedMaskError struct {
	Mask string
}

func (e *MalformedMaskError) Error() string {
	return fmt.Sprintf("malformed CPU mask '%s'", e.Mask)
}

// ZeroMaskError reports a mode and mask combination that leaves no
// CPUs for the given purpose (computations or IRQs).
type ZeroMaskError struct {
	Mode    Mode
	Mask    string
	Purpose string
}

func (e *ZeroMaskError) Error() string {
	return fmt.Sprintf(
		"bad configuration mode '%s' and cpu-mask value '%s': this results in a zero-mask for '%s'",
		e.Mode, e.Mask, e.Purpose)
}
