package p2p

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/grandcat/zeroconf"
	"github.com/rs/zerolog"
)

const (
	MDNSService = "_ledgernet._tcp"
	MDNSDomain  = "local."
)

// MDNS announces this node on the local link and adds every other announcing
// node to the peer manager as a candidate. Liveness is still decided by Discovery.
type MDNS struct {
	instance string
	port     int
	peers    *PeerManager
	logger   zerolog.Logger
	server   *zeroconf.Server
}

func NewMDNS(instance string, port int, peers *PeerManager, logger zerolog.Logger) *MDNS {
	return &MDNS{
		instance: instance,
		port:     port,
		peers:    peers,
		logger:   logger,
	}
}

// Start registers the service and browses until ctx is done
func (m *MDNS) Start(ctx context.Context) error {
	server, err := zeroconf.Register(m.instance, MDNSService, MDNSDomain, m.port, []string{"id=" + m.instance}, nil)
	if err != nil {
		return fmt.Errorf("mdns register: %w", err)
	}
	m.server = server

	resolver, err := zeroconf.NewResolver()
	if err != nil {
		server.Shutdown()
		return fmt.Errorf("mdns resolver: %w", err)
	}

	// the resolver owns entries and closes it when ctx is done
	entries := make(chan *zeroconf.ServiceEntry, 8)
	if err := resolver.Browse(ctx, MDNSService, MDNSDomain, entries); err != nil {
		server.Shutdown()
		return fmt.Errorf("mdns browse: %w", err)
	}
	go m.consume(entries)

	m.logger.Info().Str("service", MDNSService).Int("port", m.port).Msg("mdns announcing")
	return nil
}

// consume feeds browse results to the peer manager until entries is closed
func (m *MDNS) consume(entries <-chan *zeroconf.ServiceEntry) {
	for entry := range entries {
		m.handleEntry(entry)
	}
}

func (m *MDNS) handleEntry(entry *zeroconf.ServiceEntry) {
	if entry == nil || entry.Instance == m.instance {
		return
	}
	for _, ip := range entry.AddrIPv4 {
		addr := net.JoinHostPort(ip.String(), strconv.Itoa(entry.Port))
		if m.peers.AddPeer(addr) {
			m.logger.Info().Str("peer", addr).Str("instance", entry.Instance).Msg("mdns candidate")
		}
	}
}

func (m *MDNS) Stop() {
	if m.server != nil {
		m.server.Shutdown()
	}
}
