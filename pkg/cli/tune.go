// Copyright 2022 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

//go:build linux

package cli

import (
	"errors"
	"fmt"
	stdos "os"
	"sort"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/redpanda-data/ptune/pkg/config"
	"github.com/redpanda-data/ptune/pkg/os"
	"github.com/redpanda-data/ptune/pkg/tuners"
	"github.com/redpanda-data/ptune/pkg/tuners/disk"
	"github.com/redpanda-data/ptune/pkg/tuners/ethtool"
	"github.com/redpanda-data/ptune/pkg/tuners/executors"
	"github.com/redpanda-data/ptune/pkg/tuners/factory"
	"github.com/redpanda-data/ptune/pkg/tuners/hwloc"
	"github.com/redpanda-data/ptune/pkg/tuners/irq"
	"github.com/redpanda-data/ptune/pkg/tuners/network"
	"github.com/redpanda-data/ptune/pkg/utils"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const dryRunScriptPath = "/tmp/ptune.sh"

type runParams struct {
	optionsFile     string
	dumpOptions     bool
	getCPUMask      bool
	getCPUMaskQuiet bool
	dryRun          bool
	outScript       string
	timeout         time.Duration
}

type result struct {
	name      string
	applied   bool
	supported bool
	errMsg    string
}

func run(fs afero.Fs, opts *config.Options, params *runParams) (bool, error) {
	if len(opts.Nics) == 0 {
		opts.Nics = config.StringList{"eth0"}
	}
	if opts.CPUMask == "" {
		opts.CPUMask = "all"
	}
	if tuneRequested(opts, config.TuneDisks) &&
		len(opts.Directories) == 0 && len(opts.Devices) == 0 {
		return false, errors.New("'disks' tuning was requested but neither " +
			"directories nor devices were given")
	}
	mode, err := irq.ModeFromString(opts.Mode)
	if err != nil {
		return false, err
	}

	proc := os.NewProc()
	hwLoc := hwloc.NewHwLocCmd(proc, params.timeout)
	cpuMasks := newCPUMasks(fs, hwLoc, executors.NewDirectExecutor(), opts.IRQCPUMask)

	cpuMask := opts.CPUMask
	if cpuMasks.IsSupported() {
		baseCPUMask, err := cpuMasks.BaseCPUMask(opts.CPUMask)
		if err != nil {
			return false, err
		}
		cpuMask = baseCPUMask
		if opts.IRQCPUMask != "" {
			sum, err := hwLoc.Calc(baseCPUMask, opts.IRQCPUMask)
			if err != nil {
				return false, err
			}
			if sum != baseCPUMask {
				return false, fmt.Errorf(
					"IRQs CPU mask '%s' must be a subset of CPU mask '%s'",
					opts.IRQCPUMask, baseCPUMask)
			}
		}
		if mode == irq.Default && opts.IRQCPUMask == "" {
			mode, err = resolveDefaultMode(fs, opts, baseCPUMask, cpuMasks, proc, params.timeout)
			if err != nil {
				return false, err
			}
		}
	}

	if params.getCPUMask || params.getCPUMaskQuiet {
		if !cpuMasks.IsSupported() {
			return false, errors.New("'hwloc' is not installed")
		}
		return false, printComputeMask(cpuMasks, mode, cpuMask, params.getCPUMaskQuiet)
	}

	execFs := fs
	scriptPath := params.outScript
	if params.dryRun {
		// Writes land in the overlay, the system is left untouched.
		execFs = afero.NewCopyOnWriteFs(fs, afero.NewMemMapFs())
		if scriptPath == "" {
			scriptPath = dryRunScriptPath
		}
	}
	var tunersFactory factory.TunersFactory
	if scriptPath != "" {
		tunersFactory = factory.NewScriptRenderingTunersFactory(
			execFs, opts.IRQCPUMask, scriptPath, params.timeout)
	} else {
		tunersFactory = factory.NewDirectExecutorTunersFactory(
			execFs, opts.IRQCPUMask, params.timeout)
	}

	tunerParams := &factory.TunerParams{
		Mode:             mode,
		CPUMask:          cpuMask,
		IRQCPUMask:       opts.IRQCPUMask,
		Arfs:             arfsSetting(opts.Arfs),
		Disks:            opts.Devices,
		Directories:      opts.Directories,
		Nics:             opts.Nics,
		WriteCachePolicy: writeCachePolicy(opts.WriteBackCache),
	}

	var (
		rebootRequired bool
		includeErr     bool
		exit1          bool
		results        []result
	)
	for _, name := range tunerNames(opts) {
		tuner := tunersFactory.CreateTuner(name, tunerParams)
		supported, reason := tuner.CheckIfSupported()
		if !supported {
			includeErr = true
			results = append(results, result{name, false, supported, reason})
			// Both disk_write_cache and clocksource commonly end up
			// unsupported (virtualized disks, non x86 hosts), so they
			// don't fail the run.
			exit1 = exit1 || !(name == "disk_write_cache" || name == "clocksource")
			continue
		}
		zap.L().Sugar().Debugf("Tuner parameters %+v", tunerParams)
		res := tuner.Tune()
		includeErr = includeErr || res.IsFailed()
		rebootRequired = rebootRequired || res.IsRebootRequired()
		errMsg := ""
		if res.IsFailed() {
			errMsg = res.Error().Error()
			exit1 = true
		}
		results = append(results, result{name, !res.IsFailed(), supported, errMsg})
	}

	printTuneResult(results, includeErr)

	if params.dryRun {
		script, err := afero.ReadFile(execFs, scriptPath)
		if err == nil {
			fmt.Print(string(script))
		}
	}
	if rebootRequired {
		red := color.New(color.FgRed).SprintFunc()
		fmt.Printf("%s: Reboot the system and run ptune again\n", red("IMPORTANT"))
	}
	return exit1, nil
}

func newCPUMasks(
	fs afero.Fs, hwLoc hwloc.HwLoc, executor executors.Executor, irqCPUMask string,
) irq.CPUMasks {
	if irqCPUMask != "" {
		return irq.NewCPUMasksWithIRQMask(fs, hwLoc, executor, irqCPUMask)
	}
	return irq.NewCPUMasks(fs, hwLoc, executor)
}

// resolveDefaultMode computes each requested subsystem's default mode
// and combines them into the most restrictive one, the way a mode
// given explicitly would apply to all of them.
func resolveDefaultMode(
	fs afero.Fs,
	opts *config.Options,
	baseCPUMask string,
	cpuMasks irq.CPUMasks,
	proc os.Proc,
	timeout time.Duration,
) (irq.Mode, error) {
	irqProcFile := irq.NewProcFile(fs)
	irqDeviceInfo := irq.NewDeviceInfo(fs, irqProcFile)
	var modes []irq.Mode
	for _, category := range opts.Tune {
		switch category {
		case config.TuneDisks:
			blockDevices := disk.NewBlockDevices(fs, irqDeviceInfo, irqProcFile, proc, timeout)
			devices := []string(opts.Devices)
			for _, dir := range opts.Directories {
				dirDevices, err := blockDevices.GetDirectoryDevices(dir)
				if err != nil {
					return irq.Default, err
				}
				devices = utils.UniqueStrings(devices, dirDevices)
			}
			diskInfoByType, err := blockDevices.GetDiskInfoByType(devices)
			if err != nil {
				return irq.Default, err
			}
			mode, err := tuners.GetDefaultDiskMode(baseCPUMask, diskInfoByType, cpuMasks)
			if err != nil {
				return irq.Default, err
			}
			modes = append(modes, mode)
		case config.TuneNet:
			eth, err := ethtool.NewEthtoolWrapper()
			if err != nil {
				return irq.Default, err
			}
			for _, ifaceName := range opts.Nics {
				nic := network.NewNic(fs, irqProcFile, irqDeviceInfo, eth, ifaceName)
				mode, err := network.GetDefaultMode(nic, baseCPUMask, cpuMasks)
				if err != nil {
					return irq.Default, err
				}
				modes = append(modes, mode)
			}
		case config.TuneSystem:
			// The system tuners don't restrict the compute CPU set.
			modes = append(modes, irq.NoIRQRestrictions)
		}
	}
	combined := irq.CombineModes(modes...)
	zap.L().Sugar().Debugf("Resolved default mode '%s'", combined)
	return combined, nil
}

// printComputeMask reports the CPU mask left for the compute workload.
// In quiet mode an empty set is reported as the zero mask sentinel
// rather than failing.
func printComputeMask(
	cpuMasks irq.CPUMasks, mode irq.Mode, cpuMask string, quiet bool,
) error {
	computeMask, err := cpuMasks.CPUMaskForComputations(mode, cpuMask)
	if err != nil {
		var zeroErr *irq.ZeroMaskError
		if quiet && errors.As(err, &zeroErr) {
			fmt.Println("0x0")
			return nil
		}
		return err
	}
	fmt.Println(computeMask)
	return nil
}

func tuneRequested(opts *config.Options, category string) bool {
	for _, tune := range opts.Tune {
		if tune == category {
			return true
		}
	}
	return false
}

// tunerNames maps the requested tuning categories to tuner names.
// disk_write_cache and clocksource only run on an explicit opt in.
func tunerNames(opts *config.Options) []string {
	var names []string
	for _, category := range opts.Tune {
		switch category {
		case config.TuneDisks:
			names = append(names, "disk_irq", "disk_scheduler", "disk_nomerges")
			if opts.WriteBackCache != nil {
				names = append(names, "disk_write_cache")
			}
		case config.TuneNet:
			names = append(names, "net")
		case config.TuneSystem:
			if opts.TuneClock {
				names = append(names, "clocksource")
			}
		}
	}
	return names
}

func arfsSetting(arfs *bool) tuners.ArfsSetting {
	switch {
	case arfs == nil:
		return tuners.ArfsAuto
	case *arfs:
		return tuners.ArfsOn
	default:
		return tuners.ArfsOff
	}
}

func writeCachePolicy(writeBackCache *bool) string {
	if writeBackCache != nil && *writeBackCache {
		return disk.CachePolicyWriteBack
	}
	return disk.CachePolicyWriteThrough
}

func printTuneResult(results []result, includeErr bool) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].name < results[j].name
	})
	headers := []string{"Tuner", "Applied", "Supported"}
	if includeErr {
		headers = append(headers, "Error")
	}

	table := tablewriter.NewWriter(stdos.Stdout)
	table.SetHeader(headers)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	for _, res := range results {
		row := []string{
			res.name,
			strconv.FormatBool(res.applied),
			strconv.FormatBool(res.supported),
		}
		if includeErr {
			row = append(row, res.errMsg)
		}
		c := green
		if !res.supported {
			c = yellow
		} else if res.errMsg != "" {
			c = red
		}
		table.Append(colorRow(c, row))
	}
	table.Render()
}

func colorRow(c func(...interface{}) string, row []string) []string {
	for i, s := range row {
		row[i] = c(s)
	}
	return row
}
