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
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/redpanda-data/ptune/pkg/utils"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

type DeviceInfo interface {
	GetIRQs(irqConfigDir string, auxName string) ([]int, error)
}

func NewDeviceInfo(fs afero.Fs, procFile ProcFile) DeviceInfo {
	return &deviceInfo{
		procFile: procFile,
		fs:       fs,
	}
}

type deviceInfo struct {
	procFile ProcFile
	fs       afero.Fs
}

// transportHandler resolves IRQs of devices that expose neither an
// msi_irqs directory nor an irq file. Handlers are matched against the
// device modalias prefix in order, first match wins.
type transportHandler struct {
	modAliasPrefix string
	irqs           func(d *deviceInfo, irqConfigDir string, auxName string,
		irqProcFileLines map[int]string) []int
}

var transportHandlers = []transportHandler{
	{
		modAliasPrefix: "virtio",
		irqs: func(d *deviceInfo, irqConfigDir, _ string, lines map[int]string) []int {
			var irqs []int
			fileNames := utils.ListFilesInPath(d.fs, path.Join(irqConfigDir, "driver"))
			for _, name := range fileNames {
				if strings.Contains(name, "virtio") {
					irqs = append(irqs, getIRQsForLinesMatching(name, lines)...)
				}
			}
			return irqs
		},
	},
	{
		modAliasPrefix: "xen:",
		irqs: func(_ *deviceInfo, _, auxName string, lines map[int]string) []int {
			return getIRQsForLinesMatching(auxName, lines)
		},
	},
}

// GetIRQs discovers the IRQs of the device rooted at irqConfigDir.
// MSI IRQs are preferred, then the INT#x irq file, then a transport
// specific scan of /proc/interrupts driven by the device modalias.
// The auxName (e.g. a network interface name) is what xen devices are
// matched by in /proc/interrupts. The result is sorted ascending.
func (d *deviceInfo) GetIRQs(irqConfigDir string, auxName string) ([]int, error) {
	zap.L().Sugar().Debugf("Reading IRQs of '%s', with device name pattern '%s'", irqConfigDir, auxName)
	irqs, err := d.getIRQs(irqConfigDir, auxName)
	if err != nil {
		return nil, err
	}
	sort.Ints(irqs)
	zap.L().Sugar().Debugf("Device '%s' IRQs '%v'", irqConfigDir, irqs)
	return irqs, nil
}

func (d *deviceInfo) getIRQs(irqConfigDir string, auxName string) ([]int, error) {
	msiIRQsDirName := path.Join(irqConfigDir, "msi_irqs")
	if exists, _ := afero.Exists(d.fs, msiIRQsDirName); exists {
		zap.L().Sugar().Debugf("Device '%s' uses MSI IRQs", irqConfigDir)
		var irqs []int
		for _, file := range utils.ListFilesInPath(d.fs, msiIRQsDirName) {
			irq, err := strconv.Atoi(file)
			if err != nil {
				return nil, err
			}
			irqs = append(irqs, irq)
		}
		return irqs, nil
	}

	irqFileName := path.Join(irqConfigDir, "irq")
	if exists, _ := afero.Exists(d.fs, irqFileName); exists {
		zap.L().Sugar().Debugf("Device '%s' uses INT#x IRQs", irqConfigDir)
		lines, err := utils.ReadFileLines(d.fs, irqFileName)
		if err != nil {
			return nil, err
		}
		var irqs []int
		for _, rawLine := range lines {
			irq, err := strconv.Atoi(strings.TrimSpace(rawLine))
			if err != nil {
				return nil, err
			}
			irqs = append(irqs, irq)
		}
		return irqs, nil
	}

	modAliasFileName, err := findModalias(d.fs, irqConfigDir)
	if err != nil {
		return nil, fmt.Errorf("unable to find device info in %q: %v", irqConfigDir, err)
	}
	lines, err := utils.ReadFileLines(d.fs, modAliasFileName)
	if err != nil {
		return nil, err
	}
	modAlias := lines[0]
	for _, handler := range transportHandlers {
		if !strings.HasPrefix(modAlias, handler.modAliasPrefix) {
			continue
		}
		zap.L().Sugar().Debugf("Reading '%s' device IRQs from /proc/interrupts", irqConfigDir)
		irqProcFileLines, err := d.procFile.GetIRQProcFileLinesMap()
		if err != nil {
			return nil, err
		}
		return handler.irqs(d, irqConfigDir, auxName, irqProcFileLines), nil
	}
	return nil, nil
}

func getIRQsForLinesMatching(
	pattern string, irqToProcLineMap map[int]string,
) []int {
	var irqs []int
	for irq, line := range irqToProcLineMap {
		if strings.Contains(line, pattern) {
			irqs = append(irqs, irq)
		}
	}
	return irqs
}

// findModalias recursively tries to find the modalias file in all the parent
// directories until we reach /sys/devices or root. It returns the filepath
// to the modalias file.
func findModalias(fs afero.Fs, dir string) (string, error) {
	if dir == "/sys/devices" || dir == "/" {
		return "", fmt.Errorf("unable to find modalias")
	}

	modAliasFileName := path.Join(dir, "modalias")
	if exists, _ := afero.Exists(fs, modAliasFileName); exists {
		return modAliasFileName, nil
	}

	return findModalias(fs, filepath.Dir(dir))
}
