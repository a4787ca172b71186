// Copyright 2022 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

//go:build !windows

package commands

import (
	"bufio"
	"fmt"
	"sort"

	"github.com/redpanda-data/ptune/pkg/tuners/ethtool"
	"go.uber.org/zap"
)

type ethtoolChangeCommand struct {
	Command
	intf    string
	config  map[string]bool
	ethtool ethtool.EthtoolWrapper
}

func NewEthtoolChangeCmd(
	ethtool ethtool.EthtoolWrapper, intf string, config map[string]bool,
) Command {
	return &ethtoolChangeCommand{
		intf:    intf,
		config:  config,
		ethtool: ethtool,
	}
}

func (c *ethtoolChangeCommand) Execute() error {
	zap.L().Sugar().Debugf("Changing interface '%s', features '%v'", c.intf, c.config)
	return c.ethtool.Change(c.intf, c.config)
}

func (c *ethtoolChangeCommand) RenderScript(w *bufio.Writer) error {
	features := make([]string, 0, len(c.config))
	for feature := range c.config {
		features = append(features, feature)
	}
	sort.Strings(features)
	fmt.Fprintf(w, "ethtool -K %s", c.intf)
	for _, feature := range features {
		stateString := "on"
		if !c.config[feature] {
			stateString = "off"
		}
		fmt.Fprintf(w, " %s %s", feature, stateString)
	}
	fmt.Fprintln(w)
	return w.Flush()
}
