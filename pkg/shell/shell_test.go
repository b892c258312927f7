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

package shell

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandPipe(t *testing.T) {
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not available")
	}
	out, err := CommandPipe(context.Background(), "printf '61.5\\n70\\n' | sort -n")
	require.NoError(t, err)
	assert.Equal(t, "61.5\n70", out)
}

func TestCommandFailureIncludesStderr(t *testing.T) {
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not available")
	}
	_, err := CommandPipe(context.Background(), "echo nope >&2; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestCommandEmpty(t *testing.T) {
	_, err := Command(context.Background(), "   ")
	assert.Error(t, err)
}
