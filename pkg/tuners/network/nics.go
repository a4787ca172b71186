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

	"github.com/redpanda-data/ptune/pkg/tuners/irq"
	"go.uber.org/zap"
)

// UnsupportedDeviceError reports a virtual, non-bonded interface that
// has no IRQs to tune.
type UnsupportedDeviceError struct {
	Name string
}

func (e *UnsupportedDeviceError) Error() string {
	return fmt.Sprintf("virtual device '%s' is not supported", e.Name)
}

// GetDefaultMode derives the IRQ binding mode for the interface from
// the topology under the given mask. Small machines keep all CPUs for
// IRQs ('mq'), bigger ones sacrifice CPU0 ('sq') or the whole first
// core ('sq_split'). Bonded interfaces combine the defaults of their
// slaves into the most restrictive one.
func GetDefaultMode(
	nic Nic, cpuMask string, cpuMasks irq.CPUMasks,
) (irq.Mode, error) {
	if nic.IsHwInterface() {
		zap.L().Sugar().Debugf("Calculating default mode for '%s'", nic.Name())
		numOfCores, err := cpuMasks.GetNumberOfCores(cpuMask)
		if err != nil {
			return irq.Default, err
		}
		numOfPUs, err := cpuMasks.GetNumberOfPUs(cpuMask)
		if err != nil {
			return irq.Default, err
		}
		zap.L().Sugar().Debugf("Considering '%d' cores and '%d' PUs", numOfCores, numOfPUs)

		if numOfPUs <= 4 {
			return irq.Mq, nil
		}
		if numOfCores <= 4 {
			return irq.Sq, nil
		}
		return irq.SqSplit, nil
	}

	if nic.IsBondIface() {
		slaves, err := nic.Slaves()
		if err != nil {
			return irq.Default, err
		}
		modes := make([]irq.Mode, 0, len(slaves))
		for _, slave := range slaves {
			slaveDefaultMode, err := GetDefaultMode(slave, cpuMask, cpuMasks)
			if err != nil {
				return irq.Default, err
			}
			modes = append(modes, slaveDefaultMode)
		}
		if combined := irq.CombineModes(modes...); combined != irq.Default {
			return combined, nil
		}
		return irq.Mq, nil
	}
	return irq.Default, &UnsupportedDeviceError{Name: nic.Name()}
}

func GetRpsCPUMask(
	nic Nic, mode irq.Mode, cpuMask string, cpuMasks irq.CPUMasks,
) (string, error) {
	effectiveCPUMask, err := cpuMasks.BaseCPUMask(cpuMask)
	if err != nil {
		return "", err
	}
	effectiveMode := mode
	if mode == irq.Default {
		effectiveMode, err = GetDefaultMode(nic, effectiveCPUMask, cpuMasks)
		if err != nil {
			return "", err
		}
	}
	return cpuMasks.CPUMaskForComputations(effectiveMode, effectiveCPUMask)
}

// GetHwInterfaceIRQsDistribution spreads the interface's IRQs over
// the IRQ CPU set. When the driver caps the number of Rx queues, the
// leading vectors (those serving Rx queues) are distributed first and
// the remainder gets its own distribution, so Rx queue vectors land
// on distinct CPUs before any doubling up.
func GetHwInterfaceIRQsDistribution(
	nic Nic, mode irq.Mode, cpuMask string, cpuMasks irq.CPUMasks,
) (map[int]string, error) {
	effectiveCPUMask, err := cpuMasks.BaseCPUMask(cpuMask)
	if err != nil {
		return nil, err
	}
	effectiveMode := mode
	if mode == irq.Default {
		effectiveMode, err = GetDefaultMode(nic, effectiveCPUMask, cpuMasks)
		if err != nil {
			return nil, err
		}
	}

	maxRxQueues, err := nic.GetMaxRxQueueCount()
	if err != nil {
		return nil, err
	}
	allIRQs, err := nic.GetIRQs()
	if err != nil {
		return nil, err
	}

	irqCPUMask, err := cpuMasks.CPUMaskForIRQs(effectiveMode, effectiveCPUMask)
	if err != nil {
		return nil, err
	}

	if maxRxQueues >= len(allIRQs) {
		zap.L().Sugar().Debugf("Calculating distribution of '%s' IRQs", nic.Name())
		return cpuMasks.GetIRQsDistributionMasks(allIRQs, irqCPUMask)
	}

	rxQueues, err := nic.GetRxQueueCount()
	if err != nil {
		return nil, err
	}
	zap.L().Sugar().Debugf("Number of Rx queues for '%s' = '%d'", nic.Name(), rxQueues)
	zap.L().Sugar().Debugf("Distributing '%s' IRQs handling Rx queues", nic.Name())
	IRQsDistribution, err := cpuMasks.GetIRQsDistributionMasks(
		allIRQs[0:rxQueues], irqCPUMask)
	if err != nil {
		return nil, err
	}
	zap.L().Sugar().Debugf("Distributing rest of '%s' IRQs", nic.Name())
	restIRQsDistribution, err := cpuMasks.GetIRQsDistributionMasks(
		allIRQs[rxQueues:], irqCPUMask)
	if err != nil {
		return nil, err
	}
	for irq, mask := range restIRQsDistribution {
		IRQsDistribution[irq] = mask
	}
	return IRQsDistribution, nil
}

// CollectIRQs gathers IRQs of the interface and, for bonds, of every
// slave recursively.
func CollectIRQs(nic Nic) ([]int, error) {
	var IRQs []int
	if nic.IsHwInterface() {
		nicIRQs, err := nic.GetIRQs()
		if err != nil {
			return nil, err
		}
		IRQs = append(IRQs, nicIRQs...)
	}
	if nic.IsBondIface() {
		slaves, err := nic.Slaves()
		if err != nil {
			return nil, err
		}
		for _, slave := range slaves {
			slaveIRQs, err := CollectIRQs(slave)
			if err != nil {
				return nil, err
			}
			IRQs = append(IRQs, slaveIRQs...)
		}
	}
	return IRQs, nil
}

// OneRPSQueueLimit splits the RFS table size evenly between the RPS
// queues.
func OneRPSQueueLimit(limits []string) int {
	return RfsTableSize / len(limits)
}
