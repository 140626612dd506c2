package blockchain

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// NewBlock returns an empty block stamped with the current time
func NewBlock(nonce uint32, previousHash Hash32) *Block {
	return &Block{
		Nonce:        nonce,
		PreviousHash: previousHash,
		Timestamp:    uint64(time.Now().UnixNano()),
		Transactions: make([][]byte, 0),
	}
}

// Hash is recomputed on every call; the mining loop mutates the nonce between calls.
func (b *Block) Hash() Hash32 {
	h := sha256.New()

	var nonce [4]byte
	binary.BigEndian.PutUint32(nonce[:], b.Nonce)
	h.Write(nonce[:])

	h.Write(b.PreviousHash[:])

	// the timestamp occupies 16 big-endian bytes; the high half is always zero
	var ts [16]byte
	binary.BigEndian.PutUint64(ts[8:], b.Timestamp)
	h.Write(ts[:])

	for _, tx := range b.Transactions {
		h.Write(tx)
	}

	var hash Hash32
	copy(hash[:], h.Sum(nil))
	return hash
}

// IncrementNonce wraps at the 32 bit boundary
func (b *Block) IncrementNonce() {
	b.Nonce++
}

// Equal compares blocks by hash
func (b *Block) Equal(other *Block) bool {
	if b == nil || other == nil {
		return b == other
	}
	return b.Hash() == other.Hash()
}

// Clone returns a deep copy so callers outside the store cannot mutate chain state
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	txs := make([][]byte, len(b.Transactions))
	for i, tx := range b.Transactions {
		txs[i] = bytes.Clone(tx)
		if txs[i] == nil {
			txs[i] = []byte{}
		}
	}
	return &Block{
		Nonce:        b.Nonce,
		PreviousHash: b.PreviousHash,
		Timestamp:    b.Timestamp,
		Transactions: txs,
	}
}

// ContainsTransaction reports whether encoded is one of the block's transactions
func (b *Block) ContainsTransaction(encoded []byte) bool {
	for _, tx := range b.Transactions {
		if bytes.Equal(tx, encoded) {
			return true
		}
	}
	return false
}

func cloneBlocks(blocks []*Block) []*Block {
	out := make([]*Block, len(blocks))
	for i, b := range blocks {
		out[i] = b.Clone()
	}
	return out
}
