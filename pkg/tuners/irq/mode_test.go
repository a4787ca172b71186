// Copyright 2022 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package irq

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModeFromString(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{input: "sq", want: Sq},
		{input: "sq_split", want: SqSplit},
		{input: "sq-split", want: SqSplit},
		{input: "mq", want: Mq},
		{input: "no_irq_restrictions", want: NoIRQRestrictions},
		{input: "", want: Default},
		{input: "bogus", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ModeFromString(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestModeStringRoundTrip(t *testing.T) {
	for _, mode := range []Mode{SqSplit, Sq, Mq, NoIRQRestrictions} {
		parsed, err := ModeFromString(mode.String())
		require.NoError(t, err)
		require.Equal(t, mode, parsed)
	}
}

func TestCombineModes(t *testing.T) {
	tests := []struct {
		name  string
		modes []Mode
		want  Mode
	}{
		{
			name:  "most restrictive mode wins",
			modes: []Mode{Mq, Sq, NoIRQRestrictions},
			want:  Sq,
		},
		{
			name:  "sq_split beats everything",
			modes: []Mode{NoIRQRestrictions, SqSplit, Mq},
			want:  SqSplit,
		},
		{
			name:  "default entries are ignored",
			modes: []Mode{Default, Mq, Default},
			want:  Mq,
		},
		{
			name:  "all default stays default",
			modes: []Mode{Default, Default},
			want:  Default,
		},
		{
			name: "no modes stays default",
			want: Default,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, CombineModes(tt.modes...))
		})
	}
}
