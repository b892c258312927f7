// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package shell runs external helpers that print sensor values.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Command runs name with whitespace-separated arguments, no shell involved.
func Command(ctx context.Context, cmdString string) (string, error) {
	fields := strings.Fields(cmdString)
	if len(fields) == 0 {
		return "", errors.New("empty command")
	}
	return run(exec.CommandContext(ctx, fields[0], fields[1:]...))
}

// CommandPipe runs cmdString through bash so pipes and globs work.
func CommandPipe(ctx context.Context, cmdString string) (string, error) {
	return run(exec.CommandContext(ctx, "bash", "-c", cmdString))
}

func run(cmd *exec.Cmd) (string, error) {
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%v: %s", err, strings.TrimSpace(stderr.String()))
	}

	return strings.TrimSuffix(stdout.String(), "\n"), nil
}
