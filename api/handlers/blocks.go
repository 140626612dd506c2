package handlers

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"ledgernet/blockchain"

	"github.com/gorilla/mux"
)

// HandleBlockByHash serves /api/blocks/{hash}
func HandleBlockByHash(w http.ResponseWriter, r *http.Request, env *Env) {
	hash, err := blockchain.ParseHash32(mux.Vars(r)["hash"])
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	block, err := env.Store.GetBlockByHash(hash)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, block)
}

// HandleBlockSearch serves /api/blocks/search with exactly one criterion in
// the query string.
func HandleBlockSearch(w http.ResponseWriter, r *http.Request, env *Env) {
	criterion, err := parseCriterion(r.URL.Query())
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	block, err := env.Store.Search(criterion)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, block)
}

var criterionParams = []string{"index", "hash", "previous_hash", "nonce", "timestamp", "transaction"}

func parseCriterion(query url.Values) (blockchain.SearchCriterion, error) {
	var name, value string
	for _, param := range criterionParams {
		if !query.Has(param) {
			continue
		}
		if name != "" {
			return nil, fmt.Errorf("only one of %v may be given", criterionParams)
		}
		name, value = param, query.Get(param)
	}

	switch name {
	case "index":
		i, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid index: %w", err)
		}
		return blockchain.ByIndex(i), nil
	case "hash":
		h, err := blockchain.ParseHash32(value)
		if err != nil {
			return nil, err
		}
		return blockchain.ByBlockHash(h), nil
	case "previous_hash":
		h, err := blockchain.ParseHash32(value)
		if err != nil {
			return nil, err
		}
		return blockchain.ByPreviousHash(h), nil
	case "nonce":
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid nonce: %w", err)
		}
		return blockchain.ByNonce(n), nil
	case "timestamp":
		ts, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp: %w", err)
		}
		return blockchain.ByTimestamp(ts), nil
	case "transaction":
		raw, err := hex.DecodeString(value)
		if err != nil {
			return nil, fmt.Errorf("invalid transaction hex: %w", err)
		}
		return blockchain.ByTransaction(raw), nil
	}
	return nil, fmt.Errorf("one of %v is required", criterionParams)
}
