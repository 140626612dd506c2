package store

import (
	"ledgernet/blockchain"
)

// ChainStore is the node's single synchronization boundary around its chain
type ChainStore interface {

	// Mutations
	AddTransaction(tx blockchain.Transaction) error
	Mine() (blockchain.BlockSummary, error)
	ClearPool() int
	ReplaceIfLonger(blocks []*blockchain.Block) (bool, error)

	// Getters
	GetBlocks() []*blockchain.Block
	GetBlockByHash(hash blockchain.Hash32) (*blockchain.Block, error)
	GetHeadBlock() *blockchain.Block
	GetChainHeight() int
	Search(criterion blockchain.SearchCriterion) (*blockchain.Block, error)
	Balance(address string) blockchain.Amount
	PendingTransactions() []blockchain.Transaction
	RewardAddress() string
	Difficulty() int
}
