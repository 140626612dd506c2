package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"ledgernet/logging"
	"ledgernet/node"
	"ledgernet/p2p"
)

func main() {
	defaults := node.DefaultConfig()

	// Command line flags
	port := flag.Int("port", defaults.Port, "HTTP API port")
	host := flag.String("host", defaults.Host, "Address to listen on and to derive subnet neighbors from")
	nodeID := flag.String("id", "", "Node ID (derived from the reward address if not provided)")
	neighbors := flag.String("neighbors", "", "Comma-separated static neighbors (host:port)")
	portRange := flag.String("port-range", defaults.PortRange.String(), "Ports probed for neighbors")
	ipRange := flag.String("ip-range", defaults.IPRange.String(), "Last-octet offsets probed for neighbors")
	discoveryInterval := flag.Duration("discovery-interval", defaults.DiscoveryInterval, "Neighbor probe interval")
	peerTimeout := flag.Duration("peer-timeout", defaults.PeerTimeout, "Timeout for one neighbor call")
	maxJitter := flag.Duration("max-jitter", defaults.MaxJitter, "Maximum random delay before each neighbor fetch")
	resolveDelay := flag.Duration("resolve-delay", defaults.ResolveDelay, "Delay before a triggered reconciliation runs")
	difficulty := flag.Int("difficulty", defaults.Difficulty, "Leading zero hex digits required of a block hash")
	rewardAddress := flag.String("reward-address", "", "Address credited for mined blocks (a wallet is generated if empty)")
	mdns := flag.Bool("mdns", false, "Announce and browse for nodes with mDNS")
	logLevel := flag.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	logJSON := flag.Bool("log-json", false, "Log JSON instead of console output")
	flag.Parse()

	logger, err := logging.Init(logging.Options{Level: *logLevel, JSON: *logJSON})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ports, err := p2p.ParseRange(*portRange)
	if err != nil {
		log.Fatal().Err(err).Msg("bad --port-range")
	}
	ips, err := p2p.ParseRange(*ipRange)
	if err != nil {
		log.Fatal().Err(err).Msg("bad --ip-range")
	}

	// Parse static neighbors
	var static []string
	for _, n := range strings.Split(*neighbors, ",") {
		if n = strings.TrimSpace(n); n != "" {
			static = append(static, n)
		}
	}

	// Create node configuration
	config := node.Config{
		NodeID:            *nodeID,
		Host:              *host,
		Port:              *port,
		Neighbors:         static,
		PortRange:         ports,
		IPRange:           ips,
		DiscoveryInterval: *discoveryInterval,
		PeerTimeout:       *peerTimeout,
		MaxJitter:         *maxJitter,
		ResolveDelay:      *resolveDelay,
		ReadyTimeout:      defaults.ReadyTimeout,
		Difficulty:        *difficulty,
		MDNS:              *mdns,
		RewardAddress:     *rewardAddress,
		Logger:            logger,
	}

	fullNode, err := node.NewFullNode(config)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create node")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fullNode.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start node")
	}
	if w := fullNode.Wallet(); w != nil {
		log.Info().
			Str("address", w.Address()).
			Str("public_key", w.PublicKeyHex()).
			Msg("generated reward wallet")
	}
	if len(static) > 0 {
		log.Info().Strs("neighbors", static).Msg("static neighbors")
	}

	<-ctx.Done()
	if err := fullNode.Stop(); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
