// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/vechain/stakingpool/builtin/staking"
	"github.com/vechain/stakingpool/co"
	"github.com/vechain/stakingpool/eventdb"
	"github.com/vechain/stakingpool/genesis"
	"github.com/vechain/stakingpool/kv"
	"github.com/vechain/stakingpool/log"
	"github.com/vechain/stakingpool/lvldb"
	"github.com/vechain/stakingpool/state"
	"github.com/vechain/stakingpool/thor"
)

var logger = log.WithContext("pkg", "node")

var (
	metaBucket  = kv.Bucket("meta.")
	bestKey     = []byte("best")
	genesisKey  = []byte("genesis")
	errNotFound = errors.New("not found")
)

// Block is a committed batch of ledger calls.
type Block struct {
	Number uint32
	Time   uint64
	Root   thor.Bytes32 // hash of the storage changes
}

// Options for Node.
type Options struct {
	DataDir     string // empty keeps everything in memory
	CacheSize   int    // leveldb cache in MB
	StateCache  int    // slots kept by the state read cache
	OpenFiles   int
	Clock       func() uint64 // unix seconds, defaults to the wall clock
	StatsPeriod time.Duration
}

// Node owns the ledger storage and serializes every call into blocks.
type Node struct {
	opts     Options
	db       *lvldb.LevelDB
	meta     kv.Store
	stater   *state.Stater
	eventDB  *eventdb.EventDB
	gen      *genesis.Genesis
	genID    thor.Bytes32
	newBlock co.Signal

	mu   sync.RWMutex
	best Block
}

// Open opens the ledger in opts.DataDir, writing the genesis on first start.
// A ledger created from another genesis is refused.
func Open(gen *genesis.Genesis, opts Options) (_ *Node, err error) {
	if opts.Clock == nil {
		opts.Clock = func() uint64 { return uint64(time.Now().Unix()) }
	}
	if opts.StatsPeriod == 0 {
		opts.StatsPeriod = 10 * time.Second
	}
	genID, err := gen.ID()
	if err != nil {
		return nil, errors.WithMessage(err, "genesis")
	}

	n := &Node{opts: opts, gen: gen, genID: genID}
	defer func() {
		if err != nil {
			n.Close()
		}
	}()

	if opts.DataDir == "" {
		if n.db, err = lvldb.NewMem(); err != nil {
			return nil, err
		}
		if n.eventDB, err = eventdb.NewMem(); err != nil {
			return nil, err
		}
	} else {
		if err = os.MkdirAll(opts.DataDir, 0o700); err != nil {
			return nil, errors.Wrap(err, "create data dir")
		}
		if n.db, err = lvldb.New(filepath.Join(opts.DataDir, "main.db"), lvldb.Options{
			CacheSize:              opts.CacheSize,
			OpenFilesCacheCapacity: opts.OpenFiles,
		}); err != nil {
			return nil, err
		}
		if n.eventDB, err = eventdb.New(filepath.Join(opts.DataDir, "events.db")); err != nil {
			return nil, err
		}
	}
	n.meta = metaBucket.NewStore(n.db)
	if n.stater, err = state.NewStater(n.db, opts.StateCache); err != nil {
		return nil, err
	}

	if err = n.loadOrInit(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Node) loadOrInit() error {
	var stored thor.Bytes32
	err := n.getMeta(genesisKey, &stored)
	switch {
	case err == nil:
		if stored != n.genID {
			return fmt.Errorf("genesis mismatch: ledger %v, config %v", stored, n.genID)
		}
		if err := n.getMeta(bestKey, &n.best); err != nil {
			return errors.WithMessage(err, "load best block")
		}
		logger.Info("ledger opened", "genesis", n.genID, "best", n.best.Number)
		return nil
	case errors.Is(err, errNotFound):
	default:
		return err
	}

	st := n.stater.NewState()
	if err := n.gen.Build(st); err != nil {
		return errors.WithMessage(err, "build genesis")
	}
	root, err := st.Stage().Commit()
	if err != nil {
		return err
	}
	n.best = Block{Number: 0, Time: n.gen.LaunchTime, Root: root}
	if err := n.putMeta(genesisKey, n.genID); err != nil {
		return err
	}
	if err := n.putMeta(bestKey, &n.best); err != nil {
		return err
	}
	logger.Info("genesis written", "id", n.genID, "pools", len(n.gen.Pools))
	return nil
}

func (n *Node) getMeta(key []byte, val any) error {
	data, err := n.meta.Get(key)
	if err != nil {
		if n.meta.IsNotFound(err) {
			return errNotFound
		}
		return err
	}
	return rlp.DecodeBytes(data, val)
}

func (n *Node) putMeta(key []byte, val any) error {
	data, err := rlp.EncodeToBytes(val)
	if err != nil {
		return err
	}
	return n.meta.Put(key, data)
}

// Close releases the storage.
func (n *Node) Close() error {
	var errs []error
	if n.eventDB != nil {
		errs = append(errs, n.eventDB.Close())
	}
	if n.db != nil {
		errs = append(errs, n.db.Close())
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// GenesisID returns the id of the genesis the ledger was built from.
func (n *Node) GenesisID() thor.Bytes32 { return n.genID }

// Genesis returns the genesis configuration.
func (n *Node) Genesis() *genesis.Genesis { return n.gen }

// EventDB returns the event store.
func (n *Node) EventDB() *eventdb.EventDB { return n.eventDB }

// Best returns the last committed block.
func (n *Node) Best() Block {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.best
}

// NewBlockWaiter returns a channel closed once the next block is committed.
func (n *Node) NewBlockWaiter() <-chan struct{} {
	return n.newBlock.Wait()
}

// Run keeps the node gauges up to date until ctx is done.
func (n *Node) Run(ctx context.Context) error {
	var goes co.Goes
	defer goes.Wait()

	goes.Go(func() { n.statsLoop(ctx) })
	<-ctx.Done()
	return nil
}

func (n *Node) statsLoop(ctx context.Context) {
	logger.Debug("enter stats loop")
	defer logger.Debug("leave stats loop")

	ticker := time.NewTicker(n.opts.StatsPeriod)
	defer ticker.Stop()
	for {
		n.updateStats()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-n.NewBlockWaiter():
		}
	}
}

func (n *Node) updateStats() {
	hit, miss := n.stater.CacheStats()
	metricStateCache().SetWithLabel(hit, map[string]string{"type": "hit"})
	metricStateCache().SetWithLabel(miss, map[string]string{"type": "miss"})
	metricBestBlock().Set(int64(n.Best().Number))

	err := n.View(func(pools *Pools) error {
		for _, p := range pools.All() {
			if p.Kind() != staking.KindLiquidity {
				continue
			}
			shortfall, err := p.Shortfall()
			if err != nil {
				return err
			}
			var pending int64
			if shortfall.Sign() > 0 {
				pending = 1
			}
			metricShortfallPending().SetWithLabel(pending, map[string]string{"pool": pools.Name(p.Address())})
		}
		return nil
	})
	if err != nil {
		logger.Warn("failed to update stats", "err", err)
	}
}
