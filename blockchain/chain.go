package blockchain

import (
	"bytes"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Chain is the block sequence, the pending pool and the reward address of
// one node. It is not safe for concurrent use; store.MemoryChainStore guards it.
type Chain struct {
	blocks        []*Block
	pool          [][]byte
	rewardAddress string
	difficulty    int
	logger        zerolog.Logger
}

type ChainOption func(*Chain)

// WithDifficulty overrides the number of leading hex zeros required per block
func WithDifficulty(d int) ChainOption {
	return func(c *Chain) { c.difficulty = d }
}

func WithLogger(logger zerolog.Logger) ChainOption {
	return func(c *Chain) { c.logger = logger }
}

// NewChain returns a chain holding only the genesis block
func NewChain(rewardAddress string, opts ...ChainOption) *Chain {
	c := &Chain{
		blocks:        []*Block{NewGenesisBlock()},
		pool:          make([][]byte, 0),
		rewardAddress: rewardAddress,
		difficulty:    Difficulty,
		logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Chain) RewardAddress() string { return c.rewardAddress }

func (c *Chain) Difficulty() int { return c.difficulty }

func (c *Chain) Len() int { return len(c.blocks) }

// Tip returns a copy of the last block
func (c *Chain) Tip() *Block {
	return c.blocks[len(c.blocks)-1].Clone()
}

// Blocks returns a deep copy of the block sequence
func (c *Chain) Blocks() []*Block {
	return cloneBlocks(c.blocks)
}

// Replace swaps the whole block sequence and drops pooled transfers that
// the new blocks past the common prefix already settle. It returns how many
// were dropped. Callers check length and validity first.
func (c *Chain) Replace(blocks []*Block) int {
	from := commonPrefix(c.blocks, blocks)
	c.blocks = cloneBlocks(blocks)

	settled := settledCounts(c.blocks[from:])
	kept := c.pool[:0]
	for _, encoded := range c.pool {
		if settled[string(encoded)] > 0 {
			settled[string(encoded)]--
			continue
		}
		kept = append(kept, encoded)
	}
	dropped := len(c.pool) - len(kept)
	c.pool = kept
	return dropped
}

// Hashes lists the block hashes from genesis to tip
func (c *Chain) Hashes() []Hash32 {
	hashes := make([]Hash32, len(c.blocks))
	for i, b := range c.blocks {
		hashes[i] = b.Hash()
	}
	return hashes
}

// CommonPrefix counts the leading blocks whose hashes match hashes
func (c *Chain) CommonPrefix(hashes []Hash32) int {
	n := 0
	for n < len(c.blocks) && n < len(hashes) && c.blocks[n].Hash() == hashes[n] {
		n++
	}
	return n
}

// DropSettled removes from b every non-reward transaction that blocks from
// index from onward already carry, once per occurrence. It returns how many
// were removed.
func (c *Chain) DropSettled(b *Block, from int) int {
	if from >= len(c.blocks) {
		return 0
	}
	settled := settledCounts(c.blocks[from:])
	kept := make([][]byte, 0, len(b.Transactions))
	for _, encoded := range b.Transactions {
		if !isReward(encoded) && settled[string(encoded)] > 0 {
			settled[string(encoded)]--
			continue
		}
		kept = append(kept, encoded)
	}
	dropped := len(b.Transactions) - len(kept)
	b.Transactions = kept
	return dropped
}

func commonPrefix(a, b []*Block) int {
	n := 0
	for n < len(a) && n < len(b) && a[n].Hash() == b[n].Hash() {
		n++
	}
	return n
}

// settledCounts counts each non-reward encoded transaction in blocks
func settledCounts(blocks []*Block) map[string]int {
	counts := make(map[string]int)
	for _, b := range blocks {
		for _, encoded := range b.Transactions {
			if !isReward(encoded) {
				counts[string(encoded)]++
			}
		}
	}
	return counts
}

func isReward(encoded []byte) bool {
	raw, err := DecodeTransaction(encoded)
	return err == nil && string(raw.SenderAddress) == RewardSender
}

// AddTransaction admits tx to the pool. Checks run in order: self transfer,
// signature (skipped for RewardSender), duplicate. A rejection leaves the
// chain untouched.
func (c *Chain) AddTransaction(tx Transaction) error {
	if tx.Sender == tx.Receiver {
		return ErrSelfTransfer
	}

	if tx.Sender != RewardSender && !VerifyTransaction(tx) {
		return ErrBadSignature
	}

	encoded := EncodeTransaction(RawFromTransaction(tx))
	if c.inPool(encoded) {
		return ErrDuplicate
	}

	c.pool = append(c.pool, encoded)
	c.logger.Debug().
		Str("sender", tx.Sender).
		Str("receiver", tx.Receiver).
		Stringer("amount", tx.Amount).
		Int("pool", len(c.pool)).
		Msg("transaction pooled")
	return nil
}

func (c *Chain) inPool(encoded []byte) bool {
	for _, pooled := range c.pool {
		if bytes.Equal(pooled, encoded) {
			return true
		}
	}
	return false
}

// PrepareBlock admits the reward transaction and drains the pool into a new
// block linked to the current tip. The block still needs proof of work.
func (c *Chain) PrepareBlock() (*Block, error) {
	reward := Transaction{
		Sender:   RewardSender,
		Receiver: c.rewardAddress,
		Amount:   MiningReward,
	}
	if err := c.AddTransaction(reward); err != nil {
		return nil, &ErrMine{Err: fmt.Errorf("reward transaction: %w", err)}
	}

	block := NewBlock(0, c.blocks[len(c.blocks)-1].Hash())
	block.Transactions = c.pool
	c.pool = make([][]byte, 0)
	return block, nil
}

// AppendMined appends b if it extends the current tip and meets the target
func (c *Chain) AppendMined(b *Block) error {
	tipHash := c.blocks[len(c.blocks)-1].Hash()
	if b.PreviousHash != tipHash {
		return ErrStaleTip
	}
	if hash := b.Hash(); !MeetsDifficulty(hash, c.difficulty) {
		return fmt.Errorf("hash %s does not meet difficulty %d", hash, c.difficulty)
	}
	c.blocks = append(c.blocks, b.Clone())
	return nil
}

// RequeueTransactions returns the non-reward transactions of an abandoned
// candidate block to the pool.
func (c *Chain) RequeueTransactions(b *Block) {
	for _, encoded := range b.Transactions {
		raw, err := DecodeTransaction(encoded)
		if err != nil || string(raw.SenderAddress) == RewardSender {
			continue
		}
		if !c.inPool(encoded) {
			c.pool = append(c.pool, bytes.Clone(encoded))
		}
	}
}

// Mine runs PrepareBlock, the proof of work search and AppendMined in one go.
// The search blocks the caller until a nonce is found.
func (c *Chain) Mine() (BlockSummary, error) {
	start := time.Now()

	block, err := c.PrepareBlock()
	if err != nil {
		return BlockSummary{}, err
	}

	hash := ProofOfWork(block, c.difficulty)
	if err := c.AppendMined(block); err != nil {
		c.RequeueTransactions(block)
		return BlockSummary{}, &ErrMine{Err: err}
	}

	summary := BlockSummary{
		Index:        len(c.blocks) - 1,
		Hash:         hash,
		Nonce:        block.Nonce,
		Transactions: len(block.Transactions),
		Elapsed:      time.Since(start),
	}
	c.logger.Info().
		Int("index", summary.Index).
		Stringer("hash", summary.Hash).
		Uint32("nonce", summary.Nonce).
		Dur("elapsed", summary.Elapsed).
		Msg("block mined")
	return summary, nil
}

// IsValid validates the chain's own blocks at its difficulty
func (c *Chain) IsValid() bool {
	return ChainIsValid(c.blocks, c.difficulty)
}

// Search returns a copy of the first block matching criterion
func (c *Chain) Search(criterion SearchCriterion) (*Block, error) {
	_, b, err := SearchBlocks(c.blocks, criterion)
	if err != nil {
		return nil, err
	}
	return b.Clone(), nil
}

// Balance nets every settled transfer touching address. Records that fail to
// decode are skipped.
func (c *Chain) Balance(address string) Amount {
	var total Amount
	for i, b := range c.blocks {
		for _, encoded := range b.Transactions {
			raw, err := DecodeTransaction(encoded)
			if err != nil {
				c.logger.Warn().Err(err).Int("block", i).Msg("skipping corrupt transaction")
				continue
			}
			amount, err := raw.Amount()
			if err != nil {
				c.logger.Warn().Err(err).Int("block", i).Msg("skipping transaction with invalid value")
				continue
			}
			if string(raw.RecipientAddress) == address {
				total += amount
			}
			if string(raw.SenderAddress) == address {
				total -= amount
			}
		}
	}
	return total
}

// PendingTransactions decodes the pool. Public keys and signatures are not
// kept in the pool, so they come back empty.
func (c *Chain) PendingTransactions() []Transaction {
	txs := make([]Transaction, 0, len(c.pool))
	for _, encoded := range c.pool {
		raw, err := DecodeTransaction(encoded)
		if err != nil {
			continue
		}
		tx, err := raw.Transaction()
		if err != nil {
			continue
		}
		txs = append(txs, tx)
	}
	return txs
}

func (c *Chain) PoolSize() int { return len(c.pool) }

// ClearPool empties the pool and returns how many entries were dropped
func (c *Chain) ClearPool() int {
	n := len(c.pool)
	c.pool = make([][]byte, 0)
	return n
}
