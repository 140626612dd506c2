package blockchain

// NewGenesisBlock returns the fixed first block: zero previous hash, nonce 0,
// timestamp 0 and no transactions. Every node derives the same genesis hash.
func NewGenesisBlock() *Block {
	return &Block{
		Nonce:        0,
		PreviousHash: Hash32{},
		Timestamp:    0,
		Transactions: make([][]byte, 0),
	}
}

// GenesisHash is the hash of NewGenesisBlock
var GenesisHash = NewGenesisBlock().Hash()
