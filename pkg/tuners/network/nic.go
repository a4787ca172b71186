// Copyright 2022 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

//go:build !windows

package network

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/redpanda-data/ptune/pkg/tuners/ethtool"
	"github.com/redpanda-data/ptune/pkg/tuners/irq"
	"github.com/redpanda-data/ptune/pkg/utils"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Networking drivers serving HW with a known maximum RSS queue
// limitation (due to lack of RSS bits):
//
//	ixgbe:   PF NICs support up to 16 RSS queues.
//	ixgbevf: VF NICs support up to 4 RSS queues.
//	i40e:    PF NICs support up to 64 RSS queues.
//	i40evf:  VF NICs support up to 16 RSS queues.
var driverMaxRssQueues = map[string]int{
	"ixgbe":   16,
	"ixgbevf": 4,
	"i40e":    64,
	"i40evf":  16,
}

var (
	fastPathIRQsPattern = regexp.MustCompile(`-TxRx-|-fp-|-Tx-Rx-|mlx4-\d+@|mlx5_comp\d+@`)

	intelFastPathIrqPattern = regexp.MustCompile(`-TxRx-(\d+)`)
	fdirPattern             = regexp.MustCompile(`fdir-TxRx-\d+`)

	mlx5IrqPattern = regexp.MustCompile(`mlx5_comp(\d+)`)
	mlx4IrqPattern = regexp.MustCompile(`mlx4-(\d+)`)
)

type NTupleStatus int

const (
	NTupleEnabled NTupleStatus = iota
	NTupleDisabled
	NTupleNotSupported
)

type Nic interface {
	IsHwInterface() bool
	IsBondIface() bool
	Slaves() ([]Nic, error)
	GetIRQs() ([]int, error)
	GetMaxRxQueueCount() (int, error)
	GetRxQueueCount() (int, error)
	GetRpsCPUFiles() ([]string, error)
	GetXpsCPUFiles() ([]string, error)
	GetRpsLimitFiles() ([]string, error)
	GetNTupleStatus() (NTupleStatus, error)
	Name() string
}

type nic struct {
	fs            afero.Fs
	irqProcFile   irq.ProcFile
	irqDeviceInfo irq.DeviceInfo
	ethtool       ethtool.EthtoolWrapper
	name          string
}

func NewNic(
	fs afero.Fs,
	irqProcFile irq.ProcFile,
	irqDeviceInfo irq.DeviceInfo,
	ethtool ethtool.EthtoolWrapper,
	name string,
) Nic {
	return &nic{
		name:          name,
		fs:            fs,
		irqDeviceInfo: irqDeviceInfo,
		irqProcFile:   irqProcFile,
		ethtool:       ethtool,
	}
}

func (n *nic) Name() string {
	return n.name
}

func (n *nic) IsBondIface() bool {
	zap.L().Sugar().Debugf("Checking if '%s' is bond interface", n.name)
	if exists, _ := afero.Exists(n.fs, "/sys/class/net/bonding_masters"); !exists {
		return false
	}
	lines, _ := utils.ReadFileLines(n.fs, "/sys/class/net/bonding_masters")
	for _, line := range lines {
		for _, master := range strings.Fields(line) {
			if master == n.name {
				zap.L().Sugar().Debugf("'%s' is bond interface", n.name)
				return true
			}
		}
	}
	return false
}

func (n *nic) Slaves() ([]Nic, error) {
	slaves := []Nic{}
	if n.IsBondIface() {
		var slaveNames []string
		zap.L().Sugar().Debugf("Reading slaves of '%s'", n.name)
		lines, err := utils.ReadFileLines(n.fs,
			fmt.Sprintf("/sys/class/net/%s/bonding/slaves", n.name))
		if err != nil {
			return nil, err
		}
		for _, line := range lines {
			slaveNames = append(slaveNames, strings.Fields(line)...)
		}

		for _, name := range slaveNames {
			slaves = append(slaves, NewNic(n.fs, n.irqProcFile, n.irqDeviceInfo, n.ethtool, name))
		}
	}
	return slaves, nil
}

func (n *nic) IsHwInterface() bool {
	zap.L().Sugar().Debugf("Checking if '%s' is HW interface", n.name)
	exists, _ := afero.Exists(n.fs, fmt.Sprintf("/sys/class/net/%s/device", n.name))
	return exists
}

// GetIRQs returns the NIC's fast path IRQs ordered by the queue each
// vector serves, or all of its IRQs when no fast path vector is found.
func (n *nic) GetIRQs() ([]int, error) {
	zap.L().Sugar().Debugf("Getting NIC '%s' IRQs", n.name)
	IRQs, err := n.irqDeviceInfo.GetIRQs(fmt.Sprintf("/sys/class/net/%s/device", n.name),
		n.name)
	if err != nil {
		return nil, err
	}
	procFileLines, err := n.irqProcFile.GetIRQProcFileLinesMap()
	if err != nil {
		return nil, err
	}
	var fastPathIRQs []int
	for _, irq := range IRQs {
		if fastPathIRQsPattern.MatchString(procFileLines[irq]) {
			fastPathIRQs = append(fastPathIRQs, irq)
		}
	}
	if len(fastPathIRQs) == 0 {
		return IRQs, nil
	}
	irqToQueueIdx := n.queueIdxExtractor()
	sort.SliceStable(fastPathIRQs,
		func(i, j int) bool {
			return irqToQueueIdx(procFileLines[fastPathIRQs[i]]) <
				irqToQueueIdx(procFileLines[fastPathIRQs[j]])
		})
	return fastPathIRQs, nil
}

// queueIdxExtractor picks the queue naming convention matching the
// NIC's driver. Mellanox drivers encode the queue index their own
// way, everything else follows the Intel convention.
func (n *nic) queueIdxExtractor() func(procLine string) int {
	driverName, err := n.ethtool.DriverName(n.name)
	if err != nil {
		zap.L().Sugar().Debugf("Unable to read '%s' driver name: %v", n.name, err)
		return intelIrqToQueueIdx
	}
	if strings.HasPrefix(driverName, "mlx") {
		return mlxIrqToQueueIdx
	}
	return intelIrqToQueueIdx
}

func intelIrqToQueueIdx(procLine string) int {
	intelFastPathMatch := intelFastPathIrqPattern.FindStringSubmatch(procLine)
	fdirPatternMatch := fdirPattern.FindStringSubmatch(procLine)

	// flow director vectors do not handle an Rx queue, they go last
	if len(intelFastPathMatch) > 0 && len(fdirPatternMatch) == 0 {
		idx, _ := strconv.Atoi(intelFastPathMatch[1])
		return idx
	}
	return MaxInt
}

func mlxIrqToQueueIdx(procLine string) int {
	for _, pattern := range []*regexp.Regexp{mlx5IrqPattern, mlx4IrqPattern} {
		if match := pattern.FindStringSubmatch(procLine); len(match) > 0 {
			idx, _ := strconv.Atoi(match[1])
			return idx
		}
	}
	return MaxInt
}

func (n *nic) GetMaxRxQueueCount() (int, error) {
	zap.L().Sugar().Debugf("Getting max RSS queues count for '%s'", n.name)

	driverName, err := n.ethtool.DriverName(n.name)
	if err != nil {
		return 0, err
	}
	zap.L().Sugar().Debugf("NIC '%s' uses '%s' driver", n.name, driverName)
	if maxQueues, present := driverMaxRssQueues[driverName]; present {
		return maxQueues, nil
	}

	return MaxInt, nil
}

func (n *nic) GetRxQueueCount() (int, error) {
	rpsCpus, err := n.GetRpsCPUFiles()
	if err != nil {
		return 0, utils.ChainedError(err, "Unable to get the RPS number")
	}
	rxQueuesCount := len(rpsCpus)
	zap.L().Sugar().Debugf("Getting number of Rx queues for '%s'", n.name)
	if rxQueuesCount == 0 {
		IRQs, err := n.GetIRQs()
		if err != nil {
			return 0, err
		}
		rxQueuesCount = len(IRQs)
	}

	maxRxQueueCount, err := n.GetMaxRxQueueCount()
	if err != nil {
		return 0, err
	}
	if rxQueuesCount < maxRxQueueCount {
		return rxQueuesCount, nil
	}
	return maxRxQueueCount, nil
}

func (n *nic) GetRpsCPUFiles() ([]string, error) {
	// There is a single rps_cpus file for each RPS queue and a single
	// RPS queue for each HW Rx queue. Each HW Rx queue should have an
	// IRQ, therefore the number of these files equals the number of
	// fast path Rx IRQs for this interface.
	return n.sortedGlob(fmt.Sprintf("/sys/class/net/%s/queues/*/rps_cpus", n.name))
}

func (n *nic) GetXpsCPUFiles() ([]string, error) {
	return n.sortedGlob(fmt.Sprintf("/sys/class/net/%s/queues/*/xps_cpus", n.name))
}

func (n *nic) GetRpsLimitFiles() ([]string, error) {
	return n.sortedGlob(fmt.Sprintf("/sys/class/net/%s/queues/*/rps_flow_cnt", n.name))
}

func (n *nic) sortedGlob(pattern string) ([]string, error) {
	files, err := afero.Glob(n.fs, pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func (n *nic) GetNTupleStatus() (NTupleStatus, error) {
	features, err := n.ethtool.Features(n.name)
	if err != nil {
		return 0, err
	}
	if enabled, exists := features["ntuple"]; exists {
		if enabled {
			return NTupleEnabled, nil
		}
		return NTupleDisabled, nil
	}
	return NTupleNotSupported, nil
}
