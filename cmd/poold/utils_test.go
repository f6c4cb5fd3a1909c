// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"flag"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/stakingpool/genesis"
)

// newContext builds a cli context from the app flags and the given arguments.
func newContext(t *testing.T, args ...string) *cli.Context {
	app := newApp()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range app.Flags {
		f.Apply(set)
	}
	for _, f := range []cli.Flag{stepTimeFlag, quietFlag, forceFlag} {
		f.Apply(set)
	}
	require.NoError(t, set.Parse(args))
	return cli.NewContext(app, set, nil)
}

func TestReadIntFromUInt64Flag(t *testing.T) {
	got, err := readIntFromUInt64Flag(42)
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	got, err = readIntFromUInt64Flag(uint64(math.MaxInt))
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, got)

	_, err = readIntFromUInt64Flag(uint64(math.MaxInt) + 1)
	assert.Error(t, err)
}

func TestLoadGenesis(t *testing.T) {
	gene, err := loadGenesis(newContext(t))
	require.NoError(t, err)
	assert.Len(t, gene.Pools, 2)

	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte("launchTime: 1\npools: []\n"), 0o600))
	_, err = loadGenesis(newContext(t, "--genesis", path))
	assert.Error(t, err)
}

func TestInstanceDir(t *testing.T) {
	dataDir := t.TempDir()
	gene := genesis.NewDevnet()
	id, err := gene.ID()
	require.NoError(t, err)

	dir, err := instanceDir(newContext(t, "--data-dir", dataDir), gene)
	require.NoError(t, err)
	assert.Equal(t, dataDir, filepath.Dir(dir))
	assert.True(t, strings.HasPrefix(filepath.Base(dir), "instance-"))
	assert.Contains(t, dir, id.String()[2+48:])

	_, err = instanceDir(newContext(t, "--data-dir", ""), gene)
	assert.Error(t, err)
}

func TestOpenNodePersists(t *testing.T) {
	ctx := newContext(t, "--data-dir", t.TempDir(), "--cache", "16")
	gene := genesis.NewDevnet()
	dir, err := instanceDir(ctx, gene)
	require.NoError(t, err)

	n, err := openNode(ctx, gene, dir)
	require.NoError(t, err)
	genID := n.GenesisID()
	require.NoError(t, n.Close())

	size, err := sizeOfDir(dir)
	require.NoError(t, err)
	assert.Positive(t, size)

	n, err = openNode(ctx, gene, dir)
	require.NoError(t, err)
	defer n.Close()
	assert.Equal(t, genID, n.GenesisID())
}

func TestNormalizeCacheSize(t *testing.T) {
	assert.Equal(t, 16, normalizeCacheSize(1))
	assert.LessOrEqual(t, normalizeCacheSize(math.MaxInt32), math.MaxInt32)
}

func TestIsYes(t *testing.T) {
	for _, s := range []string{"y", "Y", " yes\n", "YES"} {
		assert.True(t, isYes(s), s)
	}
	for _, s := range []string{"", "n", "no", "yep"} {
		assert.False(t, isYes(s), s)
	}
}

func TestSizeOfDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), make([]byte, 100), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b"), make([]byte, 28), 0o600))

	size, err := sizeOfDir(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(128), size)

	_, err = sizeOfDir(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestCleanForce(t *testing.T) {
	dataDir := t.TempDir()
	ctx := newContext(t, "--data-dir", dataDir, "--force")
	gene := genesis.NewDevnet()
	dir, err := instanceDir(ctx, gene)
	require.NoError(t, err)

	n, err := openNode(ctx, gene, dir)
	require.NoError(t, err)
	require.NoError(t, n.Close())

	require.NoError(t, cleanAction(ctx))
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	// nothing left is fine
	require.NoError(t, cleanAction(ctx))
}
