// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rotatewriter

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotate(t *testing.T) {
	dir := t.TempDir()
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	w, err := New(
		WithDir(dir),
		WithFileBaseName("poold"),
		WithFileMaxSize(100),
		WithMaxNumberFiles(2),
		withClock(func() time.Time { return fixed }),
	)
	require.NoError(t, err)
	defer w.Close()

	first := w.Name()
	line := bytes.Repeat([]byte("x"), 60)

	_, err = w.Write(line)
	require.NoError(t, err)
	assert.Equal(t, first, w.Name())

	// second line overflows
	_, err = w.Write(line)
	require.NoError(t, err)
	second := w.Name()
	assert.NotEqual(t, first, second)

	_, err = w.Write(line)
	require.NoError(t, err)
	third := w.Name()
	assert.NotEqual(t, second, third)

	files, err := filepath.Glob(filepath.Join(dir, "poold-*.log"))
	require.NoError(t, err)
	assert.Equal(t, []string{second, third}, files)

	data, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, line, data)
}

func TestOversizedWrite(t *testing.T) {
	w, err := New(WithDir(t.TempDir()), WithFileMaxSize(10))
	require.NoError(t, err)

	name := w.Name()
	n, err := w.Write(bytes.Repeat([]byte("y"), 50))
	require.NoError(t, err)
	assert.Equal(t, 50, n)
	assert.Equal(t, name, w.Name())

	require.NoError(t, w.Close())
	_, err = w.Write([]byte("z"))
	assert.Error(t, err)
	assert.Empty(t, w.Name())
}

func TestNewErrors(t *testing.T) {
	_, err := New()
	assert.Error(t, err)

	_, err = New(WithDir(t.TempDir()), WithFileMaxSize(0))
	assert.Error(t, err)
}
