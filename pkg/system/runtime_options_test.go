// Copyright 2022 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package system

import (
	"testing"

	"github.com/redpanda-data/ptune/pkg/utils"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestReadRuntimeOptions(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		wantActive    string
		wantAvailable []string
	}{
		{
			name:          "active scheduler in brackets",
			content:       "noop deadline [cfq]",
			wantActive:    "cfq",
			wantAvailable: []string{"cfq", "deadline", "noop"},
		},
		{
			name:          "single option is active",
			content:       "none",
			wantActive:    "none",
			wantAvailable: []string{"none"},
		},
		{
			name:          "no active option",
			content:       "mq-deadline kyber",
			wantActive:    "",
			wantAvailable: []string{"kyber", "mq-deadline"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, utils.WriteFileLines(fs,
				[]string{tt.content}, "/sys/block/sda/queue/scheduler"))
			opts, err := ReadRuntimeOptions(fs, "/sys/block/sda/queue/scheduler")
			require.NoError(t, err)
			require.Equal(t, tt.wantActive, opts.GetActive())
			require.Equal(t, tt.wantAvailable, opts.GetAvailable())
		})
	}
}
