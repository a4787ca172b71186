// Copyright 2022 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package hwloc

import (
	"fmt"
	"regexp"
	"strings"
)

var cpuSetPattern = regexp.MustCompile(`^(\d+-)?(\d+)(,(\d+-)?(\d+))*$`)

// TranslateToHwLocCPUSet turns a cpuset(7) list like "0-1,4" into the
// hwloc location string "PU:0-1 PU:4". The special value "all" is
// passed through unchanged.
func TranslateToHwLocCPUSet(cpuset string) (string, error) {
	if cpuset == "all" {
		return cpuset, nil
	}
	if !cpuSetPattern.MatchString(cpuset) {
		return "", fmt.Errorf("configured cpuset '%s' is invalid", cpuset)
	}
	var logicalCores []string
	for _, part := range strings.Split(cpuset, ",") {
		logicalCores = append(logicalCores, fmt.Sprintf("PU:%s", part))
	}
	return strings.Join(logicalCores, " "), nil
}
