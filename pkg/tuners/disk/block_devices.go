// Copyright 2022 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package disk

import (
	"fmt"
	"path"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redpanda-data/ptune/pkg/cloud"
	"github.com/redpanda-data/ptune/pkg/os"
	"github.com/redpanda-data/ptune/pkg/tuners/irq"
	"github.com/redpanda-data/ptune/pkg/utils"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

type DiskType string

const (
	NonNvme DiskType = "non-nvme"
	Nvme    DiskType = "nvme"
)

// NoDevicesFoundError reports that disk tuning was requested but no
// block devices were resolved from the given directories and devices.
type NoDevicesFoundError struct{}

func (*NoDevicesFoundError) Error() string {
	return "disk tuning was requested but no disks were found"
}

type DevicesIRQs struct {
	Devices []string
	Irqs    []int
}

type BlockDevices interface {
	GetDirectoriesDevices(directories []string) (map[string][]string, error)
	GetDirectoryDevices(directory string) ([]string, error)
	GetDeviceFromPath(path string) (BlockDevice, error)
	GetDeviceSystemPath(devicePath string) (string, error)
	GetDiskInfoByType(devices []string) (map[DiskType]DevicesIRQs, error)
}

type blockDevices struct {
	proc          os.Proc
	fs            afero.Fs
	irqDeviceInfo irq.DeviceInfo
	irqProcFile   irq.ProcFile
	timeout       time.Duration
}

func NewBlockDevices(
	fs afero.Fs,
	irqDeviceInfo irq.DeviceInfo,
	irqProcFile irq.ProcFile,
	proc os.Proc,
	timeout time.Duration,
) BlockDevices {
	return &blockDevices{
		fs:            fs,
		proc:          proc,
		irqDeviceInfo: irqDeviceInfo,
		irqProcFile:   irqProcFile,
		timeout:       timeout,
	}
}

var (
	bdfPattern = regexp.MustCompile(
		`^[0-9ABCDEFabcdef]{4}:[0-9ABCDEFabcdef]{2}:[0-9ABCDEFabcdef]{2}\.[0-9ABCDEFabcdef]$`)
	nvmeDevicePattern        = regexp.MustCompile(`^(nvme\d+)\S*`)
	nvmeFastPathQueuePattern = regexp.MustCompile(`(\s|^)nvme\d+q(\d+)(\s|$)`)
)

func (b *blockDevices) GetDirectoriesDevices(
	directories []string,
) (map[string][]string, error) {
	dirDevices := make(map[string][]string)
	for _, directory := range directories {
		if exists, _ := afero.Exists(b.fs, directory); !exists {
			return nil, fmt.Errorf("directory '%s' does not exist", directory)
		}
		devices, err := b.GetDirectoryDevices(directory)
		if err != nil {
			return nil, err
		}
		dirDevices[directory] = devices
	}
	return dirDevices, nil
}

// GetDirectoryDevices resolves a directory to the physical block
// devices its filesystem lives on. For mounts that are not backed by
// a block device (e.g. ecryptfs) the underlying mount is resolved via
// 'df -P' recursively.
func (b *blockDevices) GetDirectoryDevices(path string) ([]string, error) {
	zap.L().Sugar().Debugf("Collecting info about directory '%s'", path)
	if exists, _ := afero.Exists(b.fs, path); !exists {
		zap.L().Sugar().Debugf("'%s' does not exist - skipping", path)
		return []string{}, nil
	}
	device, err := b.getBlockDeviceFromPath(path, getDevNumFromDirectory)
	if err == nil && device != nil {
		return b.getPhysDevices(device)
	}

	var devices []string
	outputLines, err := b.proc.RunWithSystemLdPath(b.timeout, "df", "-P", path)
	if err != nil {
		return nil, err
	}
	for _, line := range outputLines[1:] {
		devicePath := strings.Split(line, " ")[0]
		if !strings.HasPrefix(devicePath, "/dev") {
			directoryDevices, err := b.GetDirectoryDevices(devicePath)
			if err != nil {
				return nil, err
			}
			devices = append(devices, directoryDevices...)
		} else {
			zap.L().Sugar().Errorf("Failed to create device while 'df -P %s' returns a '%s'", path, devicePath)
		}
	}
	if len(devices) == 0 {
		zap.L().Sugar().Errorf("Can't get a block device for '%s' - skipping", path)
	}

	return devices, nil
}

func (b *blockDevices) getPhysDevices(device BlockDevice) ([]string, error) {
	zap.L().Sugar().Debugf("Getting physical device from '%s'", device.Syspath())
	if strings.Contains(device.Syspath(), "virtual") {
		slavesPath := path.Join(device.Syspath(), "slaves")
		slaves := utils.ListFilesInPath(b.fs, slavesPath)
		// A virtual device without slaves (e.g. an nvme-subsystem
		// device) is handled as a regular device.
		if len(slaves) > 0 {
			var physDevices []string
			for _, slave := range slaves {
				slavePath := "/dev/" + slave
				zap.L().Sugar().Debugf("Dealing with virtual device, checking slave %s", slavePath)
				deviceFromPath, err := b.GetDeviceFromPath(slavePath)
				if err != nil {
					return nil, err
				}
				devices, err := b.getPhysDevices(deviceFromPath)
				if err != nil {
					return nil, err
				}
				physDevices = append(physDevices, devices...)
			}
			return physDevices, nil
		}
	}
	return []string{strings.Replace(device.Devnode(),
		"/dev/", "", 1)}, nil
}

func (b *blockDevices) GetDeviceFromPath(path string) (BlockDevice, error) {
	return b.getBlockDeviceFromPath(path,
		getDevNumFromDeviceDirectory)
}

func (b *blockDevices) GetDeviceSystemPath(path string) (string, error) {
	device, err := b.getBlockDeviceFromPath(path,
		getDevNumFromDeviceDirectory)
	if err != nil {
		return "", err
	}
	return device.Syspath(), err
}

func (b *blockDevices) getBlockDeviceFromPath(
	path string, devNumExtractor func(syscall.Stat_t) uint64,
) (BlockDevice, error) {
	var stat syscall.Stat_t
	zap.L().Sugar().Debugf("Getting block device from path '%s'", path)
	err := syscall.Stat(path, &stat)
	if err != nil {
		return nil, err
	}
	devNumber := devNumExtractor(stat)
	return NewDevice(devNumber, b.fs)
}

func (b *blockDevices) getDevicesIRQs(
	devices []string,
) (map[string][]int, error) {
	diskIRQs := make(map[string][]int)
	for _, device := range devices {
		// some of the given directories may live on the same disk,
		// no need to rediscover its IRQs
		if _, exists := diskIRQs[device]; exists {
			continue
		}
		zap.L().Sugar().Debugf("Getting '%s' IRQs", device)
		devicePath := path.Join("/dev", device)
		devSystemPath, err := b.GetDeviceSystemPath(devicePath)
		if err != nil {
			return nil, err
		}
		devSystemPath = resolveNvmeSubsystemPath(devSystemPath, device)
		controllerPath, err := b.getDeviceControllerPath(devSystemPath)
		if err != nil {
			return nil, err
		}

		IRQs, err := b.irqDeviceInfo.GetIRQs(controllerPath, "blkif")
		if err != nil {
			return nil, err
		}
		diskIRQs[device] = IRQs
	}
	return diskIRQs, nil
}

// resolveNvmeSubsystemPath maps the syspath of a virtual NVMe device
// like
//
//	/sys/devices/virtual/nvme-subsystem/nvme-subsys0/nvme0n1
//
// to its controller device directory
//
//	.../nvme0n1/device/nvme0
//
// which is a symlink into the PCI hierarchy holding the IRQ files.
func resolveNvmeSubsystemPath(devSystemPath string, device string) string {
	if !strings.Contains(devSystemPath, "virtual") {
		return devSystemPath
	}
	match := nvmeDevicePattern.FindStringSubmatch(device)
	if match == nil {
		return devSystemPath
	}
	return path.Join(devSystemPath, "device", match[1])
}

// getDeviceControllerPath cuts the device syspath down to the path of
// the controller the IRQs belong to: the leading chain of
// "domain:bus:device.function" parts, e.g.
//
//	/sys/devices/pci0000:00/0000:00:02.0/0000:02:00.0/host6/... ->
//	/sys/devices/pci0000:00/0000:00:02.0/0000:02:00.0
func (*blockDevices) getDeviceControllerPath(
	devSystemPath string,
) (string, error) {
	zap.L().Sugar().Debugf("Getting controller path for '%s'", devSystemPath)
	splitSystemPath := strings.Split(devSystemPath, "/")
	if len(splitSystemPath) < 4 {
		return "", fmt.Errorf("unexpected device system path '%s'", devSystemPath)
	}
	controllerPathParts := append([]string{"/"}, splitSystemPath[0:4]...)
	for _, systemPathPart := range splitSystemPath[4:] {
		if !bdfPattern.MatchString(systemPathPart) {
			break
		}
		controllerPathParts = append(controllerPathParts, systemPathPart)
	}
	return path.Join(controllerPathParts...), nil
}

func (b *blockDevices) GetDiskInfoByType(
	devices []string,
) (map[DiskType]DevicesIRQs, error) {
	diskInfoByType := make(map[DiskType]DevicesIRQs)
	// using maps in order to provide set functionality
	nvmeDisks := map[string]bool{}
	nvmeIRQs := map[int]bool{}
	nonNvmeDisks := map[string]bool{}
	nonNvmeIRQs := map[int]bool{}
	deviceIRQs, err := b.getDevicesIRQs(devices)
	if err != nil {
		return nil, err
	}
	for device, irqs := range deviceIRQs {
		if strings.HasPrefix(device, "nvme") {
			nvmeDisks[device] = true
			for _, IRQ := range irqs {
				nvmeIRQs[IRQ] = true
			}
		} else {
			nonNvmeDisks[device] = true
			for _, IRQ := range irqs {
				nonNvmeIRQs[IRQ] = true
			}
		}
	}

	if len(nvmeDisks) == 0 && len(nonNvmeDisks) == 0 {
		return nil, &NoDevicesFoundError{}
	}

	// The Xen hypervisor on AWS i3 instances over-allocates nvme HW
	// queues and uses only queues 1,2,3,..., <up to number of CPUs>
	// for data transfer. On these instances we distribute only these
	// queues.
	if cloud.IsAWSi3NonMetalInstance() {
		for IRQ := range nvmeIRQs {
			isNvmFastPath, err := b.isIRQNvmeFastPathIRQ(IRQ, runtime.NumCPU())
			if err != nil {
				return nil, err
			}
			if !isNvmFastPath {
				delete(nvmeIRQs, IRQ)
			}
		}
	}
	diskInfoByType[Nvme] = DevicesIRQs{
		utils.GetKeys(nvmeDisks),
		utils.GetIntKeys(nvmeIRQs),
	}
	diskInfoByType[NonNvme] = DevicesIRQs{
		utils.GetKeys(nonNvmeDisks),
		utils.GetIntKeys(nonNvmeIRQs),
	}
	return diskInfoByType, nil
}

func (b *blockDevices) isIRQNvmeFastPathIRQ(
	irq, numberOfCpus int,
) (bool, error) {
	linesMap, err := b.irqProcFile.GetIRQProcFileLinesMap()
	if err != nil {
		return false, err
	}
	splitProcLine := strings.Split(linesMap[irq], ",")
	for _, part := range splitProcLine {
		matches := nvmeFastPathQueuePattern.FindAllStringSubmatch(part, -1)
		if matches != nil {
			queueNumber, err := strconv.Atoi(matches[0][2])
			if err != nil {
				return false, err
			}
			// queue 0 is the admin queue, it never carries I/O
			if queueNumber > 0 && queueNumber <= numberOfCpus {
				return true, nil
			}
		}
	}
	return false, nil
}
