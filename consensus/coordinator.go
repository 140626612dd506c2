package consensus

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"ledgernet/blockchain"

	"github.com/rs/zerolog"
)

// ChainState is the part of the node's store reconciliation needs
type ChainState interface {
	GetChainHeight() int
	ReplaceIfLonger(blocks []*blockchain.Block) (bool, error)
}

// PeerClient talks to one neighbor per call
type PeerClient interface {
	FetchChain(ctx context.Context, addr string) ([]*blockchain.Block, error)
	SyncTransaction(ctx context.Context, addr string, tx blockchain.Transaction) error
	ClearPool(ctx context.Context, addr string) error
	TriggerConsensus(ctx context.Context, addr string) error
}

// NeighborSource lists the neighbors to reconcile with, in a stable order
type NeighborSource interface {
	Neighbors() []string
}

type Config struct {
	PeerTimeout  time.Duration
	MaxJitter    time.Duration
	ResolveDelay time.Duration
	Difficulty   int
	Logger       zerolog.Logger
}

func DefaultConfig() Config {
	return Config{
		PeerTimeout:  5 * time.Second,
		MaxJitter:    5 * time.Second,
		ResolveDelay: 2 * time.Second,
		Difficulty:   blockchain.Difficulty,
		Logger:       zerolog.Nop(),
	}
}

// Stats counts reconciliation and propagation outcomes since start
type Stats struct {
	Resolutions         uint64 `json:"resolutions"`
	Replacements        uint64 `json:"replacements"`
	RejectedChains      uint64 `json:"rejected_chains"`
	PeerFailures        uint64 `json:"peer_failures"`
	PropagationFailures uint64 `json:"propagation_failures"`
}

// Coordinator reconciles the local chain with neighbors by the longest valid
// chain rule and fans local events out to them.
type Coordinator struct {
	config    Config
	state     ChainState
	client    PeerClient
	neighbors NeighborSource
	logger    zerolog.Logger

	phase     atomic.Int32
	resolveMu sync.Mutex

	resolutions         atomic.Uint64
	replacements        atomic.Uint64
	rejectedChains      atomic.Uint64
	peerFailures        atomic.Uint64
	propagationFailures atomic.Uint64
}

func NewCoordinator(config Config, state ChainState, client PeerClient, neighbors NeighborSource) *Coordinator {
	return &Coordinator{
		config:    config,
		state:     state,
		client:    client,
		neighbors: neighbors,
		logger:    config.Logger,
	}
}

func (c *Coordinator) Phase() Phase {
	return Phase(c.phase.Load())
}

func (c *Coordinator) setPhase(p Phase) {
	c.phase.Store(int32(p))
}

func (c *Coordinator) Stats() Stats {
	return Stats{
		Resolutions:         c.resolutions.Load(),
		Replacements:        c.replacements.Load(),
		RejectedChains:      c.rejectedChains.Load(),
		PeerFailures:        c.peerFailures.Load(),
		PropagationFailures: c.propagationFailures.Load(),
	}
}

// ResolveConflict visits every neighbor in turn and adopts a fetched chain
// that is longer than the best seen so far and valid. A neighbor that cannot
// be fetched is skipped; the returned error is a *PeerErrors listing those
// neighbors and is nil when all of them answered. Passes on one node are
// serialized.
func (c *Coordinator) ResolveConflict(ctx context.Context) (bool, error) {
	c.resolveMu.Lock()
	defer c.resolveMu.Unlock()
	defer c.setPhase(PhaseIdle)

	c.resolutions.Add(1)

	bestLen := c.state.GetChainHeight()
	replaced := false
	var failures PeerErrors

	for _, addr := range c.neighbors.Neighbors() {
		if err := c.jitter(ctx); err != nil {
			failures.add(addr, "fetch chain", err)
			break
		}

		c.setPhase(PhaseFetching)
		fetchCtx, cancel := c.callContext(ctx)
		blocks, err := c.client.FetchChain(fetchCtx, addr)
		cancel()
		if err != nil {
			c.peerFailures.Add(1)
			failures.add(addr, "fetch chain", err)
			c.logger.Warn().Err(err).Str("peer", addr).Msg("skipping neighbor")
			continue
		}

		c.setPhase(PhaseValidating)
		if len(blocks) <= bestLen {
			c.logger.Debug().Str("peer", addr).Int("length", len(blocks)).Int("best", bestLen).Msg("neighbor chain not longer")
			continue
		}
		if err := blockchain.ValidateChain(blocks, c.config.Difficulty); err != nil {
			c.rejectedChains.Add(1)
			c.logger.Warn().Err(err).Str("peer", addr).Int("length", len(blocks)).Msg("rejecting invalid neighbor chain")
			continue
		}

		c.setPhase(PhaseAdopting)
		ok, err := c.state.ReplaceIfLonger(blocks)
		if err != nil {
			c.rejectedChains.Add(1)
			c.logger.Warn().Err(err).Str("peer", addr).Msg("neighbor chain rejected by store")
			continue
		}
		if ok {
			replaced = true
			bestLen = len(blocks)
			c.replacements.Add(1)
			c.logger.Info().Str("peer", addr).Int("length", bestLen).Msg("adopted neighbor chain")
		}
	}

	return replaced, failures.errOrNil()
}

// ScheduleResolve runs ResolveConflict after ResolveDelay in the background.
// The returned channel is closed when that pass finishes.
func (c *Coordinator) ScheduleResolve() <-chan struct{} {
	complete := make(chan struct{})

	time.AfterFunc(c.config.ResolveDelay, func() {
		defer close(complete)

		replaced, err := c.ResolveConflict(context.Background())
		if err != nil {
			c.logger.Warn().Err(err).Bool("replaced", replaced).Msg("reconciliation finished with failures")
			return
		}
		c.logger.Debug().Bool("replaced", replaced).Msg("reconciliation finished")
	})

	return complete
}

// BuildConsensus asks every neighbor to run its own reconciliation
func (c *Coordinator) BuildConsensus(ctx context.Context) <-chan struct{} {
	return c.fanOut(ctx, "trigger consensus", c.client.TriggerConsensus)
}

// PropagateTransaction forwards tx once to every neighbor. Failures are
// logged and counted but never retried.
func (c *Coordinator) PropagateTransaction(ctx context.Context, tx blockchain.Transaction) <-chan struct{} {
	return c.fanOut(ctx, "sync transaction", func(ctx context.Context, addr string) error {
		return c.client.SyncTransaction(ctx, addr, tx)
	})
}

// PropagateMinedNotification asks every neighbor to clear its pending pool
func (c *Coordinator) PropagateMinedNotification(ctx context.Context) <-chan struct{} {
	return c.fanOut(ctx, "clear pool", c.client.ClearPool)
}

// fanOut calls every neighbor concurrently, each under PeerTimeout. The
// returned channel is closed once every call has returned.
func (c *Coordinator) fanOut(ctx context.Context, op string, call func(ctx context.Context, addr string) error) <-chan struct{} {
	complete := make(chan struct{})
	neighbors := c.neighbors.Neighbors()

	go func() {
		defer close(complete)

		var wg sync.WaitGroup
		for _, addr := range neighbors {
			wg.Add(1)
			go func(addr string) {
				defer wg.Done()

				callCtx, cancel := c.callContext(ctx)
				defer cancel()

				if err := call(callCtx, addr); err != nil {
					c.propagationFailures.Add(1)
					c.logger.Warn().Err(err).Str("peer", addr).Str("op", op).Msg("neighbor call failed")
					return
				}
				c.logger.Debug().Str("peer", addr).Str("op", op).Msg("neighbor call done")
			}(addr)
		}
		wg.Wait()
	}()

	return complete
}

// callContext bounds one neighbor call by PeerTimeout when it is set
func (c *Coordinator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.config.PeerTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.config.PeerTimeout)
}

// jitter waits a uniformly random duration in [0, MaxJitter]
func (c *Coordinator) jitter(ctx context.Context) error {
	if c.config.MaxJitter <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(rand.N(c.config.MaxJitter + 1))
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
