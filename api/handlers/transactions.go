package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"ledgernet/blockchain"
	"ledgernet/p2p"

	"github.com/gorilla/mux"
)

// HandleSubmitTransaction admits a client-signed transfer and forwards it to
// every neighbor.
func HandleSubmitTransaction(w http.ResponseWriter, r *http.Request, env *Env) {
	var tx blockchain.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		env.Logger.Debug().Err(err).Msg("failed to decode transaction")
		writeBadRequest(w, "Invalid JSON format: "+err.Error())
		return
	}

	acceptAndPropagate(w, tx, env)
}

// HandleTransact signs a transfer with key material supplied by the caller
func HandleTransact(w http.ResponseWriter, r *http.Request, env *Env) {
	var req p2p.TransactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid JSON format: "+err.Error())
		return
	}

	wallet, err := blockchain.WalletFromMaterial(req.PublicKey, req.PrivateKey, req.BlockchainAddress)
	if err != nil {
		env.Logger.Info().Err(err).Msg("transact with malformed credential")
		writeError(w, err)
		return
	}

	tx, err := wallet.Sign(req.RecipientAddress, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	acceptAndPropagate(w, tx, env)
}

func acceptAndPropagate(w http.ResponseWriter, tx blockchain.Transaction, env *Env) {
	if err := env.Store.AddTransaction(tx); err != nil {
		env.Logger.Info().Err(err).Str("sender", tx.Sender).Str("receiver", tx.Receiver).Msg("transaction rejected")
		writeError(w, err)
		return
	}

	env.Logger.Info().
		Str("sender", tx.Sender).
		Str("receiver", tx.Receiver).
		Stringer("amount", tx.Amount).
		Msg("transaction accepted")

	env.Consensus.PropagateTransaction(context.Background(), tx)
	writeJSON(w, http.StatusCreated, p2p.StatusResponse{Status: p2p.StatusSuccess})
}

// HandleSyncTransaction ingests a transfer forwarded by a neighbor. It is
// not forwarded again.
func HandleSyncTransaction(w http.ResponseWriter, r *http.Request, env *Env) {
	var tx blockchain.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		writeBadRequest(w, "Invalid JSON format: "+err.Error())
		return
	}

	if err := env.Store.AddTransaction(tx); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p2p.StatusResponse{Status: p2p.StatusSuccess})
}

func HandleListTransactions(w http.ResponseWriter, r *http.Request, env *Env) {
	txs := env.Store.PendingTransactions()
	writeJSON(w, http.StatusOK, p2p.TransactionsResponse{
		TransactionCount: len(txs),
		Transactions:     txs,
	})
}

// HandleClearPool is called by a neighbor that has just mined
func HandleClearPool(w http.ResponseWriter, r *http.Request, env *Env) {
	n := env.Store.ClearPool()
	writeJSON(w, http.StatusOK, p2p.ClearPoolResponse{Status: p2p.StatusSuccess, Cleared: n})
}

func HandleAmount(w http.ResponseWriter, r *http.Request, env *Env) {
	address := mux.Vars(r)["address"]
	writeJSON(w, http.StatusOK, p2p.AmountResponse{Amount: env.Store.Balance(address)})
}
