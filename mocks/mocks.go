package mocks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"ledgernet/blockchain"
)

var ErrUnreachable = errors.New("peer unreachable")

// PeerClient is a scripted consensus.PeerClient. Chains maps an address to
// the chain it serves; Failing addresses return ErrUnreachable for every call.
type PeerClient struct {
	mu      sync.Mutex
	Chains  map[string][]*blockchain.Block
	Failing map[string]bool

	Fetched      []string
	Synced       map[string][]blockchain.Transaction
	Cleared      []string
	Triggered    []string
	OnTrigger    func(addr string)
	OnSyncedTx   func(addr string, tx blockchain.Transaction)
	OnClearedFor func(addr string)
}

func NewPeerClient() *PeerClient {
	return &PeerClient{
		Chains:  make(map[string][]*blockchain.Block),
		Failing: make(map[string]bool),
		Synced:  make(map[string][]blockchain.Transaction),
	}
}

// Serve sets the chain returned for addr
func (p *PeerClient) Serve(addr string, blocks []*blockchain.Block) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Chains[addr] = blocks
}

func (p *PeerClient) Fail(addr string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Failing[addr] = true
}

func (p *PeerClient) FetchChain(ctx context.Context, addr string) ([]*blockchain.Block, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Fetched = append(p.Fetched, addr)
	if p.Failing[addr] {
		return nil, fmt.Errorf("fetch %s: %w", addr, ErrUnreachable)
	}
	blocks, ok := p.Chains[addr]
	if !ok {
		return nil, fmt.Errorf("fetch %s: no chain scripted", addr)
	}
	out := make([]*blockchain.Block, len(blocks))
	for i, b := range blocks {
		out[i] = b.Clone()
	}
	return out, ctx.Err()
}

func (p *PeerClient) SyncTransaction(_ context.Context, addr string, tx blockchain.Transaction) error {
	p.mu.Lock()
	if p.Failing[addr] {
		p.mu.Unlock()
		return ErrUnreachable
	}
	p.Synced[addr] = append(p.Synced[addr], tx)
	hook := p.OnSyncedTx
	p.mu.Unlock()

	if hook != nil {
		hook(addr, tx)
	}
	return nil
}

func (p *PeerClient) ClearPool(_ context.Context, addr string) error {
	p.mu.Lock()
	if p.Failing[addr] {
		p.mu.Unlock()
		return ErrUnreachable
	}
	p.Cleared = append(p.Cleared, addr)
	hook := p.OnClearedFor
	p.mu.Unlock()

	if hook != nil {
		hook(addr)
	}
	return nil
}

func (p *PeerClient) TriggerConsensus(_ context.Context, addr string) error {
	p.mu.Lock()
	if p.Failing[addr] {
		p.mu.Unlock()
		return ErrUnreachable
	}
	p.Triggered = append(p.Triggered, addr)
	hook := p.OnTrigger
	p.mu.Unlock()

	if hook != nil {
		hook(addr)
	}
	return nil
}

// Calls returns sorted copies of the recorded call lists
func (p *PeerClient) Calls() (fetched, cleared, triggered []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fetched = append([]string(nil), p.Fetched...)
	cleared = append([]string(nil), p.Cleared...)
	triggered = append([]string(nil), p.Triggered...)
	sort.Strings(cleared)
	sort.Strings(triggered)
	return fetched, cleared, triggered
}

func (p *PeerClient) SyncedTo(addr string) []blockchain.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]blockchain.Transaction(nil), p.Synced[addr]...)
}

// StaticNeighbors is a fixed consensus.NeighborSource
type StaticNeighbors []string

func (s StaticNeighbors) Neighbors() []string {
	return append([]string(nil), s...)
}

// SignedTransfer creates a fresh sender wallet and a signed transfer to receiver
func SignedTransfer(receiver string, amount blockchain.Amount) (*blockchain.Wallet, blockchain.Transaction, error) {
	sender, err := blockchain.GenerateWallet()
	if err != nil {
		return nil, blockchain.Transaction{}, err
	}
	tx, err := sender.Sign(receiver, amount)
	if err != nil {
		return nil, blockchain.Transaction{}, err
	}
	return sender, tx, nil
}

// BuildChain mines n blocks on top of genesis at difficulty d and returns them
func BuildChain(rewardAddress string, n, d int) ([]*blockchain.Block, error) {
	chain := blockchain.NewChain(rewardAddress, blockchain.WithDifficulty(d))
	for i := 0; i < n; i++ {
		if _, err := chain.Mine(); err != nil {
			return nil, fmt.Errorf("mine block %d: %w", i+1, err)
		}
	}
	return chain.Blocks(), nil
}
