// Copyright 2022 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package config

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/redpanda-data/ptune/pkg/tuners/irq"
	"github.com/redpanda-data/ptune/pkg/utils"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Tuning categories accepted in the 'tune' list.
const (
	TuneDisks  = "disks"
	TuneNet    = "net"
	TuneSystem = "system"
)

// A CPU mask is a comma separated list of 32 bit hex groups, least
// significant group first. Empty groups stand for a zero group.
var maskPattern = regexp.MustCompile(
	`^0x[0-9a-fA-F]{1,8}((,(0x[0-9a-fA-F]{1,8})?)*,0x[0-9a-fA-F]{1,8})*$`)

// Options is the tuning request. It mirrors the YAML options file
// accepted by --options-file and is also filled from the command line
// flags. Command line values win over file values, lists are merged.
type Options struct {
	Mode           string     `yaml:"mode,omitempty"`
	Nics           StringList `yaml:"nic,omitempty"`
	Tune           StringList `yaml:"tune,omitempty"`
	TuneClock      bool       `yaml:"tune_clock,omitempty"`
	CPUMask        string     `yaml:"cpu_mask,omitempty"`
	IRQCPUMask     string     `yaml:"irq_cpu_mask,omitempty"`
	Directories    StringList `yaml:"dir,omitempty"`
	Devices        StringList `yaml:"dev,omitempty"`
	WriteBackCache *bool      `yaml:"write_back_cache,omitempty"`
	Arfs           *bool      `yaml:"arfs,omitempty"`
}

// StringList accepts both a single YAML scalar and a sequence.
// Options files written before multiple NICs were supported carry
// 'nic: eth0' rather than a one element list.
type StringList []string

func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var value string
		if err := node.Decode(&value); err != nil {
			return err
		}
		*l = StringList{value}
		return nil
	case yaml.SequenceNode:
		var values []string
		if err := node.Decode(&values); err != nil {
			return err
		}
		*l = values
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into a string list", node.Tag)
}

// ReadOptions loads and validates an options file.
func ReadOptions(fs afero.Fs, path string) (*Options, error) {
	content, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	var opts Options
	if err := yaml.Unmarshal(content, &opts); err != nil {
		return nil, fmt.Errorf("unable to parse options file '%s': %w", path, err)
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options file '%s': %w", path, err)
	}
	return &opts, nil
}

// Validate verifies the mode name, the tuning categories and the CPU
// mask format.
func (o *Options) Validate() error {
	if _, err := irq.ModeFromString(o.Mode); err != nil {
		return err
	}
	if o.Mode != "" && o.IRQCPUMask != "" {
		return fmt.Errorf("provide either tuning mode or IRQs CPU mask, not both")
	}
	for _, tune := range o.Tune {
		switch tune {
		case TuneDisks, TuneNet, TuneSystem:
		default:
			return fmt.Errorf("bad 'tune' value '%s', accepted values are "+
				"'%s', '%s' and '%s'", tune, TuneDisks, TuneNet, TuneSystem)
		}
	}
	for _, mask := range []string{o.CPUMask, o.IRQCPUMask} {
		if mask != "" && mask != "all" && !maskPattern.MatchString(mask) {
			return fmt.Errorf("bad CPU mask value '%s'", mask)
		}
	}
	return nil
}

// Merge fills the unset fields of o from other. Scalar fields of o
// win, list fields are merged uniquely and sorted.
func (o *Options) Merge(other *Options) {
	if o.Mode == "" {
		o.Mode = other.Mode
	}
	if o.CPUMask == "" {
		o.CPUMask = other.CPUMask
	}
	if o.IRQCPUMask == "" {
		o.IRQCPUMask = other.IRQCPUMask
	}
	if !o.TuneClock {
		o.TuneClock = other.TuneClock
	}
	if o.WriteBackCache == nil {
		o.WriteBackCache = other.WriteBackCache
	}
	if o.Arfs == nil {
		o.Arfs = other.Arfs
	}
	o.Nics = mergeUnique(o.Nics, other.Nics)
	o.Tune = mergeUnique(o.Tune, other.Tune)
	o.Directories = mergeUnique(o.Directories, other.Directories)
	o.Devices = mergeUnique(o.Devices, other.Devices)
}

// Dump renders the options in the options file format, ready to be
// fed back through --options-file.
func (o *Options) Dump() (string, error) {
	out, err := yaml.Marshal(o)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func mergeUnique(first StringList, second StringList) StringList {
	merged := utils.UniqueStrings(first, second)
	sort.Strings(merged)
	return merged
}
