package hwloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTranslateToHwLocCPUSet(t *testing.T) {
	tests := []struct {
		name    string
		cpuset  string
		want    string
		wantErr bool
	}{
		{
			name:   "all is passed through",
			cpuset: "all",
			want:   "all",
		},
		{
			name:   "cpuset(7) list is translated to hwloc PUs",
			cpuset: "0-1,4,10-12,3",
			want:   "PU:0-1 PU:4 PU:10-12 PU:3",
		},
		{
			name:    "invalid list is rejected",
			cpuset:  "0 to 1",
			wantErr: true,
		},
		{
			name:    "empty list is rejected",
			cpuset:  "",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TranslateToHwLocCPUSet(tt.cpuset)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
