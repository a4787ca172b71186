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
	"fmt"
	"strconv"
	"strings"

	"github.com/redpanda-data/ptune/pkg/tuners/executors"
	"github.com/redpanda-data/ptune/pkg/tuners/executors/commands"
	"github.com/redpanda-data/ptune/pkg/tuners/hwloc"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

type CPUMasks interface {
	BaseCPUMask(cpuMask string) (string, error)
	CPUMaskForComputations(mode Mode, cpuMask string) (string, error)
	CPUMaskForIRQs(mode Mode, cpuMask string) (string, error)
	SetMask(path string, mask string) error
	ReadMask(path string) (string, error)
	ReadIRQMask(IRQ int) (string, error)
	DistributeIRQs(irqsDistribution map[int]string)
	GetDistributionMasks(count uint) ([]string, error)
	GetIRQsDistributionMasks(IRQs []int, cpuMask string) (map[int]string, error)
	GetNumberOfCores(mask string) (uint, error)
	GetNumberOfPUs(mask string) (uint, error)
	GetAllCpusMask() (string, error)
	GetLogicalCoreIDsFromPhysCore(core uint) ([]uint, error)
	IsSupported() bool
}

func NewCPUMasks(
	fs afero.Fs, hwloc hwloc.HwLoc, executor executors.Executor,
) CPUMasks {
	return &cpuMasks{
		fs:       fs,
		hwloc:    hwloc,
		executor: executor,
	}
}

// NewCPUMasksWithIRQMask returns CPUMasks whose IRQ CPU set is the
// explicit irqCPUMask instead of one derived from the mode. The
// computations set becomes the remainder of the total mask. The mode
// argument of the mask queries is ignored.
func NewCPUMasksWithIRQMask(
	fs afero.Fs, hwloc hwloc.HwLoc, executor executors.Executor, irqCPUMask string,
) CPUMasks {
	return &explicitIRQMask{
		cpuMasks: cpuMasks{
			fs:       fs,
			hwloc:    hwloc,
			executor: executor,
		},
		irqCPUMask: irqCPUMask,
	}
}

type cpuMasks struct {
	hwloc    hwloc.HwLoc
	fs       afero.Fs
	executor executors.Executor
}

type explicitIRQMask struct {
	cpuMasks
	irqCPUMask string
}

func (masks *explicitIRQMask) CPUMaskForIRQs(
	mode Mode, cpuMask string,
) (string, error) {
	maskForIRQs, err := masks.hwloc.CalcSingle(masks.irqCPUMask)
	if err != nil {
		return "", err
	}
	zero, err := IsZero(maskForIRQs)
	if err != nil {
		return "", err
	}
	if zero {
		return "", &ZeroMaskError{Mode: mode, Mask: masks.irqCPUMask, Purpose: "IRQs"}
	}
	zap.L().Sugar().Debugf("Explicit IRQs CPU mask '%s'", maskForIRQs)
	return maskForIRQs, nil
}

func (masks *explicitIRQMask) CPUMaskForComputations(
	mode Mode, cpuMask string,
) (string, error) {
	computationsMask, err := masks.hwloc.Calc(
		cpuMask, fmt.Sprintf("~%s", masks.irqCPUMask))
	if err != nil {
		return "", err
	}
	zero, err := IsZero(computationsMask)
	if err != nil {
		return "", err
	}
	if zero {
		return "", &ZeroMaskError{Mode: mode, Mask: cpuMask, Purpose: "computations"}
	}
	zap.L().Sugar().Debugf("Computations CPU mask '%s'", computationsMask)
	return computationsMask, nil
}

func (masks *cpuMasks) BaseCPUMask(cpuMask string) (string, error) {
	if cpuMask == "all" {
		return masks.hwloc.All()
	}

	return masks.hwloc.CalcSingle(cpuMask)
}

func (masks *cpuMasks) IsSupported() bool {
	return masks.hwloc.IsSupported()
}

func (masks *cpuMasks) CPUMaskForComputations(
	mode Mode, cpuMask string,
) (string, error) {
	zap.L().Sugar().Debugf("Computing CPU mask for '%s' mode and input CPU mask '%s'", mode, cpuMask)
	var computationsMask string
	var err error
	switch mode {
	case Sq:
		// all but CPU0
		computationsMask, err = masks.hwloc.Calc(cpuMask, "~PU:0")
	case SqSplit:
		// all but CPU0 and its HT siblings
		computationsMask, err = masks.hwloc.Calc(cpuMask, "~core:0")
	case Mq, NoIRQRestrictions:
		// all available cores
		computationsMask = cpuMask
	default:
		err = fmt.Errorf("unsupported mode: '%s'", mode)
	}
	if err != nil {
		return "", err
	}

	zero, err := IsZero(computationsMask)
	if err != nil {
		return "", err
	}
	if zero {
		return "", &ZeroMaskError{Mode: mode, Mask: cpuMask, Purpose: "computations"}
	}
	zap.L().Sugar().Debugf("Computations CPU mask '%s'", computationsMask)
	return computationsMask, nil
}

func (masks *cpuMasks) CPUMaskForIRQs(
	mode Mode, cpuMask string,
) (string, error) {
	zap.L().Sugar().Debugf("Computing IRQ CPU mask for '%s' mode and input CPU mask '%s'",
		mode, cpuMask)
	var maskForIRQs string
	if mode == Mq || mode == NoIRQRestrictions {
		maskForIRQs = cpuMask
	} else {
		maskForComputations, err := masks.CPUMaskForComputations(mode, cpuMask)
		if err != nil {
			return "", err
		}
		maskForIRQs, err = masks.hwloc.Calc(cpuMask, fmt.Sprintf("~%s", maskForComputations))
		if err != nil {
			return "", err
		}
	}
	zero, err := IsZero(maskForIRQs)
	if err != nil {
		return "", err
	}
	if zero {
		return "", &ZeroMaskError{Mode: mode, Mask: cpuMask, Purpose: "IRQs"}
	}
	zap.L().Sugar().Debugf("IRQs CPU mask '%s'", maskForIRQs)
	return maskForIRQs, nil
}

func (masks *cpuMasks) SetMask(path string, mask string) error {
	if _, err := masks.fs.Stat(path); err != nil {
		return fmt.Errorf("SMP affinity file '%s' does not exist", path)
	}
	formattedMask := strings.ReplaceAll(mask, "0x", "")
	for strings.Contains(formattedMask, ",,") {
		formattedMask = strings.ReplaceAll(formattedMask, ",,", ",0,")
	}

	zap.L().Sugar().Debugf("Setting mask '%s' in '%s'", formattedMask, path)
	return masks.executor.Execute(
		commands.NewWriteFileModeCmd(masks.fs, path, formattedMask, 0o555))
}

func (masks *cpuMasks) GetDistributionMasks(count uint) ([]string, error) {
	return masks.hwloc.Distribute(count)
}

func (masks *cpuMasks) GetIRQsDistributionMasks(
	IRQs []int, cpuMask string,
) (map[int]string, error) {
	irqsDistribution := make(map[int]string)
	// hwloc-distrib called with 0 elements is an error, a device
	// without IRQs simply gets an empty distribution.
	if len(IRQs) == 0 {
		return irqsDistribution, nil
	}
	distribMasks, err := masks.hwloc.DistributeRestrict(uint(len(IRQs)), cpuMask)
	if err != nil {
		return nil, err
	}
	for i, mask := range distribMasks {
		irqsDistribution[IRQs[i]] = mask
	}
	return irqsDistribution, nil
}

func (masks *cpuMasks) DistributeIRQs(irqsDistribution map[int]string) {
	zap.L().Sugar().Debugf("Distributing IRQs '%v'", irqsDistribution)
	errMsg := "An IRQ's affinity couldn't be set. This might be because the" +
		" IRQ isn't IO-APIC compatible, or because the IRQ is managed" +
		" by the kernel, and can be safely ignored."
	for IRQ, mask := range irqsDistribution {
		err := masks.SetMask(irqAffinityPath(IRQ), mask)
		// IRQ SMP affinity is tuned on a best-effort basis. Most
		// IO-APIC compatible IRQs allow their affinity to be set, but
		// there are exceptions (such as IRQ 0, which is the timer IRQ).
		// Likewise, if an IRQ isn't marked as IO-APIC-compatible, it
		// doesn't mean its affinity can't be set. Therefore the errors
		// are logged but otherwise ignored.
		if err != nil {
			zap.L().Sugar().Debug(err)
			zap.L().Sugar().Debug(errMsg)
		}
	}
}

func irqAffinityPath(IRQ int) string {
	return fmt.Sprintf("/proc/irq/%d/smp_affinity", IRQ)
}

func (masks *cpuMasks) ReadMask(path string) (string, error) {
	content, err := afero.ReadFile(masks.fs, path)
	if err != nil {
		return "", err
	}
	rawMask := strings.TrimSpace(string(content))

	rawMask = strings.ReplaceAll(rawMask, ",0,", ",,")
	parts := strings.Split(rawMask, ",")
	var newMaskParts []string
	for _, part := range parts {
		if part != "" {
			newMaskParts = append(newMaskParts, "0x"+part)
		} else {
			newMaskParts = append(newMaskParts, part)
		}
	}
	return strings.Join(newMaskParts, ","), nil
}

func (masks *cpuMasks) ReadIRQMask(IRQ int) (string, error) {
	return masks.ReadMask(irqAffinityPath(IRQ))
}

func (masks *cpuMasks) GetNumberOfCores(mask string) (uint, error) {
	return masks.hwloc.GetNumberOfCores(mask)
}

func (masks *cpuMasks) GetNumberOfPUs(mask string) (uint, error) {
	return masks.hwloc.GetNumberOfPUs(mask)
}

func (masks *cpuMasks) GetLogicalCoreIDsFromPhysCore(
	core uint,
) ([]uint, error) {
	return masks.hwloc.GetPhysIntersection("PU", fmt.Sprintf("core:%d", core))
}

func (masks *cpuMasks) GetAllCpusMask() (string, error) {
	return masks.hwloc.All()
}

// IsZero reports whether every hex group of the mask is zero. A group
// that fails to parse yields a MalformedMaskError rather than being
// treated as zero.
func IsZero(mask string) (bool, error) {
	for _, part := range strings.Split(mask, ",") {
		numeric, err := parseMaskGroup(part)
		if err != nil {
			return false, &MalformedMaskError{Mask: mask}
		}
		if numeric != 0 {
			return false, nil
		}
	}
	return true, nil
}

// MasksEqual compares two masks group by group, so "0x01" and "1"
// are equal while "1,0" and "1" are not.
func MasksEqual(a, b string) (bool, error) {
	aParts := strings.Split(a, ",")
	bParts := strings.Split(b, ",")

	if len(aParts) != len(bParts) {
		return false, nil
	}
	for i, aPart := range aParts {
		bPart := bParts[i]
		aNumeric, err := parseMaskGroup(aPart)
		if err != nil {
			return false, &MalformedMaskError{Mask: a}
		}
		bNumeric, err := parseMaskGroup(bPart)
		if err != nil {
			return false, &MalformedMaskError{Mask: b}
		}
		if aNumeric != bNumeric {
			return false, nil
		}
	}
	return true, nil
}

func parseMaskGroup(group string) (uint, error) {
	if group == "" {
		return 0, nil
	}
	s := strings.ReplaceAll(group, "0x", "")
	num, err := strconv.ParseUint(s, 16, 32)
	return uint(num), err
}
