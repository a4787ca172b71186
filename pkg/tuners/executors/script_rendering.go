// Copyright 2022 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package executors

import (
	"bufio"
	"fmt"
	"os"

	"github.com/redpanda-data/ptune/pkg/tuners/executors/commands"
	"github.com/spf13/afero"
)

type scriptRenderingExecutor struct {
	Executor
	fs         afero.Fs
	scriptPath string
}

// NewScriptRenderingExecutor returns a lazy executor that appends each
// command's shell equivalent to the script at scriptPath instead of
// executing it.
func NewScriptRenderingExecutor(fs afero.Fs, scriptPath string) Executor {
	return &scriptRenderingExecutor{
		fs:         fs,
		scriptPath: scriptPath,
	}
}

func (e *scriptRenderingExecutor) Execute(cmd commands.Command) error {
	exists, err := afero.Exists(e.fs, e.scriptPath)
	if err != nil {
		return err
	}
	file, err := e.fs.OpenFile(e.scriptPath,
		os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o755)
	if err != nil {
		return err
	}
	defer file.Close()
	w := bufio.NewWriter(file)
	if !exists {
		fmt.Fprintln(w, "#!/usr/bin/env bash")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "set -e")
		fmt.Fprintln(w)
	}
	return cmd.RenderScript(w)
}

func (*scriptRenderingExecutor) IsLazy() bool {
	return true
}
