package p2p

import (
	"sort"
	"sync"
	"time"
)

type PeerStatus int

const (
	PeerUnknown PeerStatus = iota
	PeerAlive
	PeerFailed
)

func (s PeerStatus) String() string {
	switch s {
	case PeerAlive:
		return "alive"
	case PeerFailed:
		return "failed"
	}
	return "unknown"
}

type Peer struct {
	Address  string
	LastSeen time.Time
	Status   PeerStatus
	Failures int
}

// PeerManager holds the candidate neighbor set and which of them answered
// the last health probe. Safe for concurrent use.
type PeerManager struct {
	mu       sync.RWMutex
	peers    map[string]*Peer
	self     string
	maxPeers int
}

func NewPeerManager(self string, maxPeers int) *PeerManager {
	return &PeerManager{
		peers:    make(map[string]*Peer),
		self:     self,
		maxPeers: maxPeers,
	}
}

// SetSelf records this node's own address so it is never listed as a neighbor
func (pm *PeerManager) SetSelf(self string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.self = self
	delete(pm.peers, self)
}

// AddPeer registers a candidate. It returns false for this node's own
// address, a known address, or when the manager is full.
func (pm *PeerManager) AddPeer(address string) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.addLocked(address)
}

func (pm *PeerManager) addLocked(address string) bool {
	if address == "" || address == pm.self {
		return false
	}
	if _, ok := pm.peers[address]; ok {
		return false
	}
	if pm.maxPeers > 0 && len(pm.peers) >= pm.maxPeers {
		return false
	}
	pm.peers[address] = &Peer{Address: address, Status: PeerUnknown}
	return true
}

// MarkAlive records a successful probe and reports whether the peer was not alive before
func (pm *PeerManager) MarkAlive(address string) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	peer, ok := pm.peers[address]
	if !ok {
		if !pm.addLocked(address) {
			return false
		}
		peer = pm.peers[address]
	}
	changed := peer.Status != PeerAlive
	peer.Status = PeerAlive
	peer.LastSeen = time.Now()
	peer.Failures = 0
	return changed
}

// MarkFailed records a failed probe and reports whether the peer was alive before
func (pm *PeerManager) MarkFailed(address string) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	peer, ok := pm.peers[address]
	if !ok {
		return false
	}
	changed := peer.Status == PeerAlive
	peer.Status = PeerFailed
	peer.Failures++
	return changed
}

// Neighbors returns the live peers sorted by address
func (pm *PeerManager) Neighbors() []string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	out := make([]string, 0, len(pm.peers))
	for addr, p := range pm.peers {
		if p.Status == PeerAlive {
			out = append(out, addr)
		}
	}
	sort.Strings(out)
	return out
}

// Candidates returns every known address sorted
func (pm *PeerManager) Candidates() []string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	out := make([]string, 0, len(pm.peers))
	for addr := range pm.peers {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

// Peers returns a snapshot of every known peer
func (pm *PeerManager) Peers() []Peer {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	out := make([]Peer, 0, len(pm.peers))
	for _, p := range pm.peers {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}
