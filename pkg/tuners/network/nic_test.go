// Copyright 2022 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package network

import (
	"fmt"
	"testing"

	"github.com/redpanda-data/ptune/pkg/tuners/ethtool"
	"github.com/redpanda-data/ptune/pkg/tuners/irq"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

type procFileMock struct {
	irq.ProcFile
	getIRQProcFileLinesMap func() (map[int]string, error)
}

func (m *procFileMock) GetIRQProcFileLinesMap() (map[int]string, error) {
	return m.getIRQProcFileLinesMap()
}

type deviceInfoMock struct {
	irq.DeviceInfo
	getIRQs func(string, string) ([]int, error)
}

func (m *deviceInfoMock) GetIRQs(path string, device string) ([]int, error) {
	return m.getIRQs(path, device)
}

type ethtoolMock struct {
	ethtool.EthtoolWrapper
	driverName func(string) (string, error)
	features   func(string) (map[string]bool, error)
}

func (m *ethtoolMock) DriverName(iface string) (string, error) {
	return m.driverName(iface)
}

func (m *ethtoolMock) Features(iface string) (map[string]bool, error) {
	return m.features(iface)
}

func genericDriver() *ethtoolMock {
	return &ethtoolMock{
		driverName: func(string) (string, error) {
			return "e1000e", nil
		},
	}
}

func Test_nic_IsBondIface(t *testing.T) {
	// given
	fs := afero.NewMemMapFs()
	nic := NewNic(fs, &procFileMock{}, &deviceInfoMock{}, &ethtoolMock{}, "test0")
	afero.WriteFile(fs, "/sys/class/net/bonding_masters", []byte(fmt.Sprintln("test0")), 0o644)
	// when
	bond := nic.IsBondIface()
	// then
	require.True(t, bond)
}

func Test_nic_IsBondIface_NameIsNotASubstringMatch(t *testing.T) {
	fs := afero.NewMemMapFs()
	nic := NewNic(fs, &procFileMock{}, &deviceInfoMock{}, &ethtoolMock{}, "bond1")
	afero.WriteFile(fs, "/sys/class/net/bonding_masters", []byte(fmt.Sprintln("bond10")), 0o644)
	require.False(t, nic.IsBondIface())
}

func Test_nic_Slaves_ReturnAllSlavesOfAnInterface(t *testing.T) {
	// given
	fs := afero.NewMemMapFs()
	nic := NewNic(fs, &procFileMock{}, &deviceInfoMock{}, &ethtoolMock{}, "test0")
	afero.WriteFile(fs, "/sys/class/net/bonding_masters", []byte(fmt.Sprintln("test0")), 0o644)
	afero.WriteFile(fs, "/sys/class/net/test0/bonding/slaves", []byte("sl0\nsl1\nsl2"), 0o644)
	// when
	slaves, err := nic.Slaves()
	// then
	require.NoError(t, err)
	require.Len(t, slaves, 3)
	require.Equal(t, slaves[0].Name(), "sl0")
	require.Equal(t, slaves[1].Name(), "sl1")
	require.Equal(t, slaves[2].Name(), "sl2")
}

func Test_nic_Slaves_ReturnEmptyForNotBondInterface(t *testing.T) {
	// given
	fs := afero.NewMemMapFs()
	nic := NewNic(fs, &procFileMock{}, &deviceInfoMock{}, &ethtoolMock{}, "test0")
	// when
	slaves, err := nic.Slaves()
	// then
	require.NoError(t, err)
	require.Empty(t, slaves)
}

func Test_nic_GetIRQs(t *testing.T) {
	tests := []struct {
		name          string
		irqProcFile   irq.ProcFile
		irqDeviceInfo irq.DeviceInfo
		ethtool       ethtool.EthtoolWrapper
		want          []int
	}{
		{
			name: "shall return all device IRQs when there are no fast path vectors",
			irqProcFile: &procFileMock{
				getIRQProcFileLinesMap: func() (map[int]string, error) {
					return map[int]string{
						54: "54:       9076       8545       3081       1372  IR-PCI-MSI 333825-edge      iwlwifi: queue 1",
						56: "56:      24300       3370        681       2725  IR-PCI-MSI 333826-edge      iwlwifi: queue 2",
						58: "58:       8444      10072       3025       2732  IR-PCI-MSI 333827-edge      iwlwifi: queue 3",
					}, nil
				},
			},
			irqDeviceInfo: &deviceInfoMock{
				getIRQs: func(string, string) ([]int, error) {
					return []int{54, 56, 58}, nil
				},
			},
			ethtool: genericDriver(),
			want:    []int{54, 56, 58},
		},
		{
			name: "shall return fast path IRQs only, sorted by queue number",
			irqProcFile: &procFileMock{
				getIRQProcFileLinesMap: func() (map[int]string, error) {
					return map[int]string{
						91: "91:      40351          0          0          0   PCI-MSI 1572868-edge      eth0",
						92: "92:      79079          0          0          0   PCI-MSI 1572865-edge      eth0-TxRx-2",
						93: "93:      60344          0          0          0   PCI-MSI 1572866-edge      eth0-TxRx-0",
						94: "94:      48929          0          0          0   PCI-MSI 1572867-edge      eth0-TxRx-1",
					}, nil
				},
			},
			irqDeviceInfo: &deviceInfoMock{
				getIRQs: func(string, string) ([]int, error) {
					return []int{91, 92, 93, 94}, nil
				},
			},
			ethtool: genericDriver(),
			want:    []int{93, 94, 92},
		},
		{
			name: "fdir fast path IRQs should be moved to the end of the list",
			irqProcFile: &procFileMock{
				getIRQProcFileLinesMap: func() (map[int]string, error) {
					return map[int]string{
						91: "91:      40351          0          0          0   PCI-MSI 1572868-edge      eth0",
						92: "92:      79079          0          0          0   PCI-MSI 1572865-edge      eth0-fdir-TxRx-0",
						93: "93:      60344          0          0          0   PCI-MSI 1572866-edge      eth0-TxRx-1",
						94: "94:      48929          0          0          0   PCI-MSI 1572867-edge      eth0-TxRx-0",
					}, nil
				},
			},
			irqDeviceInfo: &deviceInfoMock{
				getIRQs: func(string, string) ([]int, error) {
					return []int{91, 92, 93, 94}, nil
				},
			},
			ethtool: genericDriver(),
			want:    []int{94, 93, 92},
		},
		{
			name: "mlx5 IRQs are ordered by the mellanox queue naming",
			irqProcFile: &procFileMock{
				getIRQProcFileLinesMap: func() (map[int]string, error) {
					return map[int]string{
						50: "50:          0          0          0          0   PCI-MSI 1048576-edge      mlx5_async@pci:0000:00:04.0",
						51: "51:      12321          0          0          0   PCI-MSI 1048577-edge      mlx5_comp2@pci:0000:00:04.0",
						52: "52:      11847          0          0          0   PCI-MSI 1048578-edge      mlx5_comp0@pci:0000:00:04.0",
						53: "53:      11740          0          0          0   PCI-MSI 1048579-edge      mlx5_comp1@pci:0000:00:04.0",
					}, nil
				},
			},
			irqDeviceInfo: &deviceInfoMock{
				getIRQs: func(string, string) ([]int, error) {
					return []int{50, 51, 52, 53}, nil
				},
			},
			ethtool: &ethtoolMock{
				driverName: func(string) (string, error) {
					return "mlx5_core", nil
				},
			},
			want: []int{52, 53, 51},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nic := NewNic(afero.NewMemMapFs(), tt.irqProcFile,
				tt.irqDeviceInfo, tt.ethtool, "eth0")
			got, err := nic.GetIRQs()
			require.NoError(t, err)
			require.Exactly(t, tt.want, got)
		})
	}
}

func Test_nic_GetMaxRxQueueCount(t *testing.T) {
	tests := []struct {
		driver string
		want   int
	}{
		{driver: "ixgbe", want: 16},
		{driver: "ixgbevf", want: 4},
		{driver: "i40e", want: 64},
		{driver: "i40evf", want: 16},
		{driver: "e1000e", want: MaxInt},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			nic := NewNic(afero.NewMemMapFs(), &procFileMock{}, &deviceInfoMock{},
				&ethtoolMock{
					driverName: func(string) (string, error) {
						return tt.driver, nil
					},
				}, "eth0")
			got, err := nic.GetMaxRxQueueCount()
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func Test_nic_GetRxQueueCount_LimitedByDriver(t *testing.T) {
	fs := afero.NewMemMapFs()
	for i := 0; i < 8; i++ {
		afero.WriteFile(fs,
			fmt.Sprintf("/sys/class/net/eth0/queues/rx-%d/rps_cpus", i),
			[]byte("0"), 0o644)
	}
	nic := NewNic(fs, &procFileMock{}, &deviceInfoMock{},
		&ethtoolMock{
			driverName: func(string) (string, error) {
				return "ixgbevf", nil
			},
		}, "eth0")
	count, err := nic.GetRxQueueCount()
	require.NoError(t, err)
	require.Equal(t, 4, count)
}

func Test_nic_GetNTupleStatus(t *testing.T) {
	tests := []struct {
		name     string
		features map[string]bool
		want     NTupleStatus
	}{
		{
			name:     "ntuple on",
			features: map[string]bool{"ntuple": true},
			want:     NTupleEnabled,
		},
		{
			name:     "ntuple off",
			features: map[string]bool{"ntuple": false},
			want:     NTupleDisabled,
		},
		{
			name:     "ntuple missing",
			features: map[string]bool{"rx-checksum": true},
			want:     NTupleNotSupported,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nic := NewNic(afero.NewMemMapFs(), &procFileMock{}, &deviceInfoMock{},
				&ethtoolMock{
					features: func(string) (map[string]bool, error) {
						return tt.features, nil
					},
				}, "eth0")
			got, err := nic.GetNTupleStatus()
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
