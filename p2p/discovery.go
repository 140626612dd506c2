package p2p

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Range is an inclusive integer range such as 8000-8003
type Range struct {
	Min int
	Max int
}

// ParseRange accepts "a-b" or a single number
func ParseRange(s string) (Range, error) {
	lo, hi, found := strings.Cut(strings.TrimSpace(s), "-")
	if !found {
		hi = lo
	}
	start, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return Range{}, fmt.Errorf("invalid range %q: %w", s, err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return Range{}, fmt.Errorf("invalid range %q: %w", s, err)
	}
	if start > end {
		return Range{}, fmt.Errorf("invalid range %q: start after end", s)
	}
	return Range{Min: start, Max: end}, nil
}

func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.Min, r.Max)
}

// CandidateAddresses enumerates host:port for every port in ports and every
// IPv4 address offset in ipOffsets from host's last octet. self is skipped.
// A host that is not an IPv4 literal only gets offset 0.
func CandidateAddresses(host string, ports, ipOffsets Range, self string) []string {
	var hosts []string
	ip := net.ParseIP(host).To4()
	if ip == nil {
		hosts = []string{host}
	} else {
		for off := ipOffsets.Min; off <= ipOffsets.Max; off++ {
			last := int(ip[3]) + off
			if last < 0 || last > 255 {
				continue
			}
			candidate := net.IPv4(ip[0], ip[1], ip[2], byte(last))
			hosts = append(hosts, candidate.String())
		}
	}

	var out []string
	for _, h := range hosts {
		for port := ports.Min; port <= ports.Max; port++ {
			addr := net.JoinHostPort(h, strconv.Itoa(port))
			if addr == self {
				continue
			}
			out = append(out, addr)
		}
	}
	return out
}

// Pinger probes one address
type Pinger interface {
	Ping(ctx context.Context, addr string) error
}

type DiscoveryConfig struct {
	Host      string
	Ports     Range
	IPOffsets Range
	Static    []string
	Interval  time.Duration
	Timeout   time.Duration
	Logger    zerolog.Logger
}

// Discovery keeps the live neighbor set current by probing every candidate
// address on a fixed interval.
type Discovery struct {
	config DiscoveryConfig
	peers  *PeerManager
	pinger Pinger
	logger zerolog.Logger
}

func NewDiscovery(config DiscoveryConfig, peers *PeerManager, pinger Pinger) *Discovery {
	return &Discovery{
		config: config,
		peers:  peers,
		pinger: pinger,
		logger: config.Logger,
	}
}

// Seed registers the subnet candidates and static neighbors with the peer manager
func (d *Discovery) Seed(self string) {
	d.peers.SetSelf(self)
	if d.config.Ports.Max > 0 {
		for _, addr := range CandidateAddresses(d.config.Host, d.config.Ports, d.config.IPOffsets, self) {
			d.peers.AddPeer(addr)
		}
	}
	for _, addr := range d.config.Static {
		d.peers.AddPeer(addr)
	}
}

// Refresh probes every candidate concurrently and updates liveness
func (d *Discovery) Refresh(ctx context.Context) {
	var wg sync.WaitGroup
	for _, addr := range d.peers.Candidates() {
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()

			pingCtx := ctx
			if d.config.Timeout > 0 {
				var cancel context.CancelFunc
				pingCtx, cancel = context.WithTimeout(ctx, d.config.Timeout)
				defer cancel()
			}

			if err := d.pinger.Ping(pingCtx, addr); err != nil {
				if d.peers.MarkFailed(addr) {
					d.logger.Info().Str("peer", addr).Err(err).Msg("neighbor lost")
				}
				return
			}
			if d.peers.MarkAlive(addr) {
				d.logger.Info().Str("peer", addr).Msg("neighbor found")
			}
		}(addr)
	}
	wg.Wait()

	d.logger.Debug().Strs("neighbors", d.peers.Neighbors()).Msg("neighbor refresh done")
}

// Run refreshes immediately and then every Interval until ctx is done
func (d *Discovery) Run(ctx context.Context) {
	d.Refresh(ctx)

	interval := d.config.Interval
	if interval <= 0 {
		interval = 20 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Refresh(ctx)
		}
	}
}
