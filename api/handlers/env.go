package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"ledgernet/blockchain"
	"ledgernet/blockchain/store"
	"ledgernet/consensus"
	"ledgernet/p2p"

	"github.com/rs/zerolog"
)

// Consensus is what the handlers need from consensus.Coordinator
type Consensus interface {
	PropagateTransaction(ctx context.Context, tx blockchain.Transaction) <-chan struct{}
	PropagateMinedNotification(ctx context.Context) <-chan struct{}
	BuildConsensus(ctx context.Context) <-chan struct{}
	ScheduleResolve() <-chan struct{}
	Phase() consensus.Phase
	Stats() consensus.Stats
}

type Neighbors interface {
	Neighbors() []string
}

// Env carries the node state every handler works on
type Env struct {
	Store     store.ChainStore
	Consensus Consensus
	Peers     Neighbors
	Logger    zerolog.Logger
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps domain errors to status codes
func writeError(w http.ResponseWriter, err error) {
	var (
		rejected  *blockchain.ErrRejected
		malformed *blockchain.ErrMalformedCredential
		notFound  *blockchain.ErrBlockNotFound
		mineErr   *blockchain.ErrMine
	)

	switch {
	case errors.As(err, &rejected):
		writeJSON(w, http.StatusBadRequest, p2p.StatusResponse{
			Status: p2p.StatusRejected,
			Reason: string(rejected.Reason),
			Error:  err.Error(),
		})
	case errors.As(err, &malformed), errors.Is(err, blockchain.ErrInvalidAmount):
		writeJSON(w, http.StatusBadRequest, p2p.StatusResponse{Status: p2p.StatusInvalid, Error: err.Error()})
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, p2p.StatusResponse{Status: p2p.StatusFail, Error: err.Error()})
	case errors.As(err, &mineErr):
		writeJSON(w, http.StatusInternalServerError, p2p.StatusResponse{Status: p2p.StatusFail, Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, p2p.StatusResponse{Status: p2p.StatusFail, Error: err.Error()})
	}
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, p2p.StatusResponse{Status: p2p.StatusInvalid, Error: msg})
}
