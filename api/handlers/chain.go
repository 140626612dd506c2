package handlers

import (
	"net/http"

	"ledgernet/p2p"
)

func HandleChain(w http.ResponseWriter, r *http.Request, env *Env) {
	blocks := env.Store.GetBlocks()
	writeJSON(w, http.StatusOK, p2p.ChainResponse{
		Length: len(blocks),
		Chain:  blocks,
	})
}

func HandleChainHeight(w http.ResponseWriter, r *http.Request, env *Env) {
	writeJSON(w, http.StatusOK, p2p.HeightResponse{Height: env.Store.GetChainHeight()})
}

func HandleChainHead(w http.ResponseWriter, r *http.Request, env *Env) {
	writeJSON(w, http.StatusOK, env.Store.GetHeadBlock())
}

// HandlePing is the health probe used by neighbor discovery
func HandlePing(w http.ResponseWriter, r *http.Request, env *Env) {
	writeJSON(w, http.StatusOK, p2p.PingResponse{Pong: p2p.PongToken})
}

func HandlePeers(w http.ResponseWriter, r *http.Request, env *Env) {
	peers := env.Peers.Neighbors()
	if peers == nil {
		peers = []string{}
	}
	writeJSON(w, http.StatusOK, p2p.PeersResponse{Peers: peers})
}
