package store

import (
	"errors"
	"sync"
	"time"

	"ledgernet/blockchain"

	"github.com/rs/zerolog"
)

// maxRelinks bounds how often a mined candidate is moved onto a new tip
// before its transactions are returned to the pool.
const maxRelinks = 3

type MemoryChainStore struct {
	chain  *blockchain.Chain
	mu     sync.RWMutex
	mineMu sync.Mutex
	logger zerolog.Logger

	// afterSearch runs between the proof of work search and the append
	afterSearch func()
}

func NewMemoryChainStore(chain *blockchain.Chain, logger zerolog.Logger) *MemoryChainStore {
	return &MemoryChainStore{
		chain:  chain,
		logger: logger,
	}
}

func (m *MemoryChainStore) AddTransaction(tx blockchain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.chain.AddTransaction(tx); err != nil {
		m.logger.Debug().Err(err).Str("sender", tx.Sender).Msg("transaction rejected")
		return err
	}
	return nil
}

// Mine drains the pool under the lock, searches for a nonce without it and
// appends under the lock again. If the chain was replaced meanwhile the
// candidate is relinked to the new tip and searched again.
func (m *MemoryChainStore) Mine() (blockchain.BlockSummary, error) {
	m.mineMu.Lock()
	defer m.mineMu.Unlock()

	start := time.Now()

	m.mu.Lock()
	candidate, err := m.chain.PrepareBlock()
	difficulty := m.chain.Difficulty()
	known := m.chain.Hashes()
	m.mu.Unlock()
	if err != nil {
		return blockchain.BlockSummary{}, err
	}

	for relinks := 0; ; relinks++ {
		hash := blockchain.ProofOfWork(candidate, difficulty)
		if m.afterSearch != nil {
			m.afterSearch()
		}

		m.mu.Lock()
		err := m.chain.AppendMined(candidate)
		if err == nil {
			summary := blockchain.BlockSummary{
				Index:        m.chain.Len() - 1,
				Hash:         hash,
				Nonce:        candidate.Nonce,
				Transactions: len(candidate.Transactions),
				Elapsed:      time.Since(start),
			}
			m.mu.Unlock()

			m.logger.Info().
				Int("index", summary.Index).
				Stringer("hash", summary.Hash).
				Uint32("nonce", summary.Nonce).
				Int("transactions", summary.Transactions).
				Dur("elapsed", summary.Elapsed).
				Msg("block mined")
			return summary, nil
		}

		if errors.Is(err, blockchain.ErrStaleTip) {
			// the adopted chain may already carry some of our transfers
			if n := m.chain.DropSettled(candidate, m.chain.CommonPrefix(known)); n > 0 {
				m.logger.Info().Int("dropped", n).Msg("transfers already settled by adopted chain")
			}
			known = m.chain.Hashes()
		}

		if !errors.Is(err, blockchain.ErrStaleTip) || relinks >= maxRelinks {
			m.chain.RequeueTransactions(candidate)
			m.mu.Unlock()
			m.logger.Warn().Err(err).Int("relinks", relinks).Msg("mining abandoned, transactions requeued")
			return blockchain.BlockSummary{}, &blockchain.ErrMine{Err: err}
		}

		tip := m.chain.Tip().Hash()
		m.mu.Unlock()

		m.logger.Info().Stringer("tip", tip).Msg("chain moved during mining, relinking candidate")
		candidate.PreviousHash = tip
		candidate.Nonce = 0
	}
}

func (m *MemoryChainStore) ClearPool() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.chain.ClearPool()
	if n > 0 {
		m.logger.Debug().Int("dropped", n).Msg("pool cleared")
	}
	return n
}

// ReplaceIfLonger adopts blocks when they are strictly longer than the local
// chain and valid at the local difficulty. Both checks run under the lock.
func (m *MemoryChainStore) ReplaceIfLonger(blocks []*blockchain.Block) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(blocks) <= m.chain.Len() {
		return false, nil
	}
	if err := blockchain.ValidateChain(blocks, m.chain.Difficulty()); err != nil {
		return false, err
	}

	previous := m.chain.Len()
	pruned := m.chain.Replace(blocks)
	m.logger.Info().Int("from", previous).Int("to", len(blocks)).Int("pruned", pruned).Msg("chain replaced")
	return true, nil
}

func (m *MemoryChainStore) GetBlocks() []*blockchain.Block {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.chain.Blocks()
}

func (m *MemoryChainStore) GetHeadBlock() *blockchain.Block {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.chain.Tip()
}

func (m *MemoryChainStore) GetChainHeight() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.chain.Len()
}

func (m *MemoryChainStore) GetBlockByHash(hash blockchain.Hash32) (*blockchain.Block, error) {
	return m.Search(blockchain.ByBlockHash(hash))
}

func (m *MemoryChainStore) Search(criterion blockchain.SearchCriterion) (*blockchain.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.chain.Search(criterion)
}

func (m *MemoryChainStore) Balance(address string) blockchain.Amount {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.chain.Balance(address)
}

func (m *MemoryChainStore) PendingTransactions() []blockchain.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.chain.PendingTransactions()
}

func (m *MemoryChainStore) RewardAddress() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.chain.RewardAddress()
}

func (m *MemoryChainStore) Difficulty() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.chain.Difficulty()
}
