// Copyright 2022 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package disk

import "fmt"

// FeatureUnavailableError reports a block device that does not expose
// the requested queue feature. It is a soft error: the device is
// skipped and the remaining devices are still tuned.
type FeatureUnavailableError struct {
	Device  string
	Feature string
}

func (e *FeatureUnavailableError) Error() string {
	return fmt.Sprintf("'%s' feature is not available for '%s'", e.Feature, e.Device)
}
