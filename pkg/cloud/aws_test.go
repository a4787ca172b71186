// Copyright 2022 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package cloud

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAWSInstanceType(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("i3.4xlarge"))
		}))
	defer ts.Close()
	require.Equal(t, "i3.4xlarge", awsInstanceType(ts.URL))
}

func TestIsI3NonMetal(t *testing.T) {
	tests := []struct {
		instanceType string
		want         bool
	}{
		{"i3.4xlarge", true},
		{"i3.large", true},
		{"i3.metal", false},
		{"i3en.metal", false},
		{"m5.large", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.instanceType, func(t *testing.T) {
			require.Equal(t, tt.want, isI3NonMetal(tt.instanceType))
		})
	}
}
