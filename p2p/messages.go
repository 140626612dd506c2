package p2p

import (
	"ledgernet/blockchain"
)

// PongToken is the fixed body of a health probe answer
const PongToken = "pong"

// PingResponse answers GET /api/ping
type PingResponse struct {
	Pong string `json:"pong"`
}

// ChainResponse carries a node's full block sequence
type ChainResponse struct {
	Length int                 `json:"length"`
	Chain  []*blockchain.Block `json:"chain"`
}

type HeightResponse struct {
	Height int `json:"height"`
}

// TransactionsResponse lists the pending pool
type TransactionsResponse struct {
	TransactionCount int                      `json:"transaction_count"`
	Transactions     []blockchain.Transaction `json:"transactions"`
}

type AmountResponse struct {
	Amount blockchain.Amount `json:"amount"`
}

// TransactRequest submits a transfer signed by the node on behalf of the
// holder of the given key material.
type TransactRequest struct {
	PrivateKey        string            `json:"private_key"`
	PublicKey         string            `json:"public_key"`
	BlockchainAddress string            `json:"blockchain_address"`
	RecipientAddress  string            `json:"recipient_address"`
	Amount            blockchain.Amount `json:"amount"`
}

// StatusResponse is the generic acknowledgement; Reason is set on rejection
type StatusResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error,omitempty"`
}

type MineResponse struct {
	Status string                  `json:"status"`
	Block  blockchain.BlockSummary `json:"block"`
}

type ClearPoolResponse struct {
	Status  string `json:"status"`
	Cleared int    `json:"cleared"`
}

// ConsensusStatusResponse reports the reconciliation state machine
type ConsensusStatusResponse struct {
	Phase               string `json:"phase"`
	Resolutions         uint64 `json:"resolutions"`
	Replacements        uint64 `json:"replacements"`
	RejectedChains      uint64 `json:"rejected_chains"`
	PeerFailures        uint64 `json:"peer_failures"`
	PropagationFailures uint64 `json:"propagation_failures"`
}

type PeersResponse struct {
	Peers []string `json:"peers"`
}

const (
	StatusSuccess  = "success"
	StatusRejected = "rejected"
	StatusInvalid  = "invalid"
	StatusAccepted = "accepted"
	StatusFail     = "fail"
)
