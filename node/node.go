package node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"ledgernet/api"
	"ledgernet/api/handlers"
	"ledgernet/blockchain"
	"ledgernet/blockchain/store"
	"ledgernet/consensus"
	"ledgernet/logging"
	"ledgernet/p2p"
)

// Config holds all configuration for a full node
type Config struct {
	NodeID string
	Host   string
	Port   int // 0 picks a free port

	// Neighbors are always probed, in addition to the subnet candidates
	Neighbors []string

	// Subnet discovery convention; a zero PortRange disables it
	PortRange p2p.Range
	IPRange   p2p.Range

	DiscoveryInterval time.Duration
	PeerTimeout       time.Duration
	MaxJitter         time.Duration
	ResolveDelay      time.Duration
	ReadyTimeout      time.Duration

	Difficulty int
	MaxPeers   int
	MDNS       bool

	// RewardAddress receives mining rewards; empty generates a node wallet
	RewardAddress string

	Logger zerolog.Logger
}

func DefaultConfig() Config {
	return Config{
		Host:              "127.0.0.1",
		Port:              8000,
		PortRange:         p2p.Range{Min: 8000, Max: 8003},
		IPRange:           p2p.Range{Min: 0, Max: 1},
		DiscoveryInterval: 20 * time.Second,
		PeerTimeout:       5 * time.Second,
		MaxJitter:         5 * time.Second,
		ResolveDelay:      2 * time.Second,
		ReadyTimeout:      5 * time.Second,
		Difficulty:        blockchain.Difficulty,
		Logger:            zerolog.Nop(),
	}
}

// Validate rejects configurations the node cannot start with
func (c Config) Validate() error {
	if c.Host == "" {
		return errors.New("host is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.PortRange.Min > c.PortRange.Max {
		return fmt.Errorf("port range %s is empty", c.PortRange)
	}
	if c.IPRange.Min > c.IPRange.Max {
		return fmt.Errorf("ip range %s is empty", c.IPRange)
	}
	if c.Difficulty < 0 || c.Difficulty > 64 {
		return fmt.Errorf("difficulty %d out of range 0-64", c.Difficulty)
	}
	for name, d := range map[string]time.Duration{
		"discovery interval": c.DiscoveryInterval,
		"peer timeout":       c.PeerTimeout,
		"max jitter":         c.MaxJitter,
		"resolve delay":      c.ResolveDelay,
		"ready timeout":      c.ReadyTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if c.RewardAddress == blockchain.RewardSender {
		return errors.New("reward address must not be the reward sender")
	}
	return nil
}

// FullNode wires the chain store, consensus coordinator, HTTP API and
// neighbor discovery of one ledger node.
type FullNode struct {
	config Config
	logger zerolog.Logger

	wallet      *blockchain.Wallet
	store       *store.MemoryChainStore
	peers       *p2p.PeerManager
	client      *p2p.Client
	coordinator *consensus.Coordinator
	discovery   *p2p.Discovery
	mdns        *p2p.MDNS
	server      *api.Server

	mu       sync.Mutex
	listener net.Listener
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewFullNode builds every component; nothing listens until Start
func NewFullNode(config Config) (*FullNode, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid node config: %w", err)
	}

	var wallet *blockchain.Wallet
	rewardAddress := config.RewardAddress
	if rewardAddress == "" {
		w, err := blockchain.GenerateWallet()
		if err != nil {
			return nil, fmt.Errorf("generate node wallet: %w", err)
		}
		wallet = w
		rewardAddress = w.Address()
	}
	if config.NodeID == "" {
		config.NodeID = rewardAddress
		if len(config.NodeID) > 8 {
			config.NodeID = config.NodeID[:8]
		}
	}

	logger := config.Logger.With().Str("node", config.NodeID).Logger()

	chain := blockchain.NewChain(rewardAddress,
		blockchain.WithDifficulty(config.Difficulty),
		blockchain.WithLogger(logging.Component(logger, "chain")),
	)
	chainStore := store.NewMemoryChainStore(chain, logging.Component(logger, "store"))

	peers := p2p.NewPeerManager("", config.MaxPeers)
	client := p2p.NewClient(config.PeerTimeout)

	coordinator := consensus.NewCoordinator(consensus.Config{
		PeerTimeout:  config.PeerTimeout,
		MaxJitter:    config.MaxJitter,
		ResolveDelay: config.ResolveDelay,
		Difficulty:   config.Difficulty,
		Logger:       logging.Component(logger, "consensus"),
	}, chainStore, client, peers)

	discovery := p2p.NewDiscovery(p2p.DiscoveryConfig{
		Host:      config.Host,
		Ports:     config.PortRange,
		IPOffsets: config.IPRange,
		Static:    config.Neighbors,
		Interval:  config.DiscoveryInterval,
		Timeout:   config.PeerTimeout,
		Logger:    logging.Component(logger, "discovery"),
	}, peers, client)

	server := api.NewServer(&handlers.Env{
		Store:     chainStore,
		Consensus: coordinator,
		Peers:     peers,
		Logger:    logger,
	})

	return &FullNode{
		config:      config,
		logger:      logger,
		wallet:      wallet,
		store:       chainStore,
		peers:       peers,
		client:      client,
		coordinator: coordinator,
		discovery:   discovery,
		server:      server,
	}, nil
}

// Start binds the HTTP listener, waits until the API answers and launches
// discovery in the background. It returns once the node is serving.
func (n *FullNode) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.listener != nil {
		return errors.New("node already started")
	}

	addr := net.JoinHostPort(n.config.Host, strconv.Itoa(n.config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	n.listener = ln
	self := ln.Addr().String()

	runCtx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.server.Serve(ln); err != nil {
			n.logger.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	if err := n.waitReady(ctx, self); err != nil {
		n.stopLocked()
		return err
	}

	n.discovery.Seed(self)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.discovery.Run(runCtx)
	}()

	if n.config.MDNS {
		_, port, _ := net.SplitHostPort(self)
		p, _ := strconv.Atoi(port)
		n.mdns = p2p.NewMDNS(n.config.NodeID, p, n.peers, logging.Component(n.logger, "mdns"))
		if err := n.mdns.Start(runCtx); err != nil {
			n.logger.Warn().Err(err).Msg("mdns unavailable, continuing without it")
			n.mdns = nil
		}
	}

	n.logger.Info().
		Str("addr", self).
		Str("reward_address", n.store.RewardAddress()).
		Int("difficulty", n.config.Difficulty).
		Msg("node started")
	return nil
}

// waitReady pings our own API with exponential backoff
func (n *FullNode) waitReady(ctx context.Context, self string) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 10 * time.Millisecond
	policy.MaxInterval = 500 * time.Millisecond
	policy.MaxElapsedTime = n.config.ReadyTimeout
	if policy.MaxElapsedTime == 0 {
		policy.MaxElapsedTime = 5 * time.Second
	}

	op := func() error {
		return n.client.Ping(ctx, self)
	}
	notify := func(err error, wait time.Duration) {
		n.logger.Debug().Err(err).Dur("retry_in", wait).Msg("API not ready")
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(policy, ctx), notify); err != nil {
		return fmt.Errorf("API on %s never became ready: %w", self, err)
	}
	return nil
}

// Stop shuts down discovery and the HTTP server
func (n *FullNode) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stopLocked()
}

func (n *FullNode) stopLocked() error {
	if n.listener == nil {
		return nil
	}

	n.cancel()
	if n.mdns != nil {
		n.mdns.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := n.server.Shutdown(ctx)

	n.wg.Wait()
	n.listener = nil
	n.logger.Info().Msg("node stopped")
	return err
}

// Addr is the host:port the API listens on, empty before Start
func (n *FullNode) Addr() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.listener == nil {
		return ""
	}
	return n.listener.Addr().String()
}

// AddNeighbor registers addr and probes it right away
func (n *FullNode) AddNeighbor(ctx context.Context, addr string) error {
	n.peers.AddPeer(addr)
	if err := n.client.Ping(ctx, addr); err != nil {
		n.peers.MarkFailed(addr)
		return err
	}
	n.peers.MarkAlive(addr)
	return nil
}

func (n *FullNode) Store() store.ChainStore {
	return n.store
}

func (n *FullNode) Coordinator() *consensus.Coordinator {
	return n.coordinator
}

func (n *FullNode) Peers() *p2p.PeerManager {
	return n.peers
}

func (n *FullNode) Discovery() *p2p.Discovery {
	return n.discovery
}

// Wallet is the generated reward wallet, nil when RewardAddress was configured
func (n *FullNode) Wallet() *blockchain.Wallet {
	return n.wallet
}

func (n *FullNode) ID() string {
	return n.config.NodeID
}
