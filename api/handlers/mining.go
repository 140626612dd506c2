package handlers

import (
	"context"
	"net/http"

	"ledgernet/blockchain"
	"ledgernet/p2p"
)

// HandleMine mines one block, then in the background asks neighbors to clear
// their pools and to reconcile.
func HandleMine(w http.ResponseWriter, r *http.Request, env *Env) {
	summary, err := env.Store.Mine()
	if err != nil {
		env.Logger.Error().Err(err).Msg("mining failed")
		writeError(w, err)
		return
	}

	go func() {
		<-env.Consensus.PropagateMinedNotification(context.Background())
		<-env.Consensus.BuildConsensus(context.Background())
	}()

	writeJSON(w, http.StatusOK, p2p.MineResponse{Status: p2p.StatusSuccess, Block: summary})
}

// HandleConsensus schedules a reconciliation pass and answers at once
func HandleConsensus(w http.ResponseWriter, r *http.Request, env *Env) {
	env.Consensus.ScheduleResolve()
	writeJSON(w, http.StatusAccepted, p2p.StatusResponse{Status: p2p.StatusAccepted})
}

func HandleConsensusStatus(w http.ResponseWriter, r *http.Request, env *Env) {
	stats := env.Consensus.Stats()
	writeJSON(w, http.StatusOK, p2p.ConsensusStatusResponse{
		Phase:               env.Consensus.Phase().String(),
		Resolutions:         stats.Resolutions,
		Replacements:        stats.Replacements,
		RejectedChains:      stats.RejectedChains,
		PeerFailures:        stats.PeerFailures,
		PropagationFailures: stats.PropagationFailures,
	})
}

// HandleWallet returns a freshly generated identity; nothing is stored
func HandleWallet(w http.ResponseWriter, r *http.Request, env *Env) {
	wallet, err := blockchain.GenerateWallet()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet.Details())
}
