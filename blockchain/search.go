package blockchain

import (
	"encoding/hex"
	"fmt"
)

// SearchCriterion selects blocks during a linear scan of the chain.
// Implemented by ByIndex, ByPreviousHash, ByBlockHash, ByNonce, ByTimestamp
// and ByTransaction.
type SearchCriterion interface {
	fmt.Stringer
	matches(index int, b *Block) bool
}

type (
	ByIndex        int
	ByPreviousHash Hash32
	ByBlockHash    Hash32
	ByNonce        uint32
	ByTimestamp    uint64
	ByTransaction  []byte
)

func (c ByIndex) matches(index int, _ *Block) bool { return index == int(c) }
func (c ByIndex) String() string                   { return fmt.Sprintf("index %d", int(c)) }

func (c ByPreviousHash) matches(_ int, b *Block) bool { return b.PreviousHash == Hash32(c) }
func (c ByPreviousHash) String() string               { return "previous hash " + Hash32(c).String() }

func (c ByBlockHash) matches(_ int, b *Block) bool { return b.Hash() == Hash32(c) }
func (c ByBlockHash) String() string               { return "block hash " + Hash32(c).String() }

func (c ByNonce) matches(_ int, b *Block) bool { return b.Nonce == uint32(c) }
func (c ByNonce) String() string               { return fmt.Sprintf("nonce %d", uint32(c)) }

func (c ByTimestamp) matches(_ int, b *Block) bool { return b.Timestamp == uint64(c) }
func (c ByTimestamp) String() string               { return fmt.Sprintf("timestamp %d", uint64(c)) }

func (c ByTransaction) matches(_ int, b *Block) bool { return b.ContainsTransaction(c) }
func (c ByTransaction) String() string {
	return "transaction " + hex.EncodeToString(c)
}

// SearchBlocks returns the index and block of the first match. The whole
// sequence is scanned before reporting ErrBlockNotFound.
func SearchBlocks(blocks []*Block, criterion SearchCriterion) (int, *Block, error) {
	for i, b := range blocks {
		if criterion.matches(i, b) {
			return i, b, nil
		}
	}
	return -1, nil, &ErrBlockNotFound{Criterion: criterion}
}
