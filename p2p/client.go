package p2p

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ledgernet/blockchain"
)

// DefaultTimeout bounds every neighbor call
const DefaultTimeout = 5 * time.Second

// maxResponseBytes caps how much of a neighbor's answer is read
const maxResponseBytes = 64 << 20

// StatusError is returned when a neighbor answers with a non-2xx status
type StatusError struct {
	Addr   string
	Path   string
	Code   int
	Status StatusResponse
}

func (e *StatusError) Error() string {
	if e.Status.Error != "" {
		return fmt.Sprintf("%s%s: HTTP %d: %s", e.Addr, e.Path, e.Code, e.Status.Error)
	}
	return fmt.Sprintf("%s%s: HTTP %d", e.Addr, e.Path, e.Code)
}

// Client calls the HTTP API of other nodes. Addresses are host:port.
type Client struct {
	http *http.Client
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

func (c *Client) do(ctx context.Context, method, addr, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, "http://"+addr+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response from %s: %w", addr, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{Addr: addr, Path: path, Code: resp.StatusCode}
		_ = json.Unmarshal(data, &statusErr.Status)
		return statusErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response from %s%s: %w", addr, path, err)
	}
	return nil
}

// Ping succeeds when addr answers the health probe with the pong token
func (c *Client) Ping(ctx context.Context, addr string) error {
	var resp PingResponse
	if err := c.do(ctx, http.MethodGet, addr, "/api/ping", nil, &resp); err != nil {
		return err
	}
	if resp.Pong != PongToken {
		return fmt.Errorf("%s answered ping with %q", addr, resp.Pong)
	}
	return nil
}

func (c *Client) FetchChain(ctx context.Context, addr string) ([]*blockchain.Block, error) {
	var resp ChainResponse
	if err := c.do(ctx, http.MethodGet, addr, "/api/chain", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Chain, nil
}

func (c *Client) FetchHeight(ctx context.Context, addr string) (int, error) {
	var resp HeightResponse
	if err := c.do(ctx, http.MethodGet, addr, "/api/chain/height", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Height, nil
}

// SyncTransaction hands tx to a neighbor's ingestion point. The neighbor
// does not forward it further.
func (c *Client) SyncTransaction(ctx context.Context, addr string, tx blockchain.Transaction) error {
	return c.do(ctx, http.MethodPost, addr, "/api/transactions/sync", tx, nil)
}

// SubmitTransaction submits a signed transfer as a client would
func (c *Client) SubmitTransaction(ctx context.Context, addr string, tx blockchain.Transaction) error {
	return c.do(ctx, http.MethodPost, addr, "/api/transactions", tx, nil)
}

func (c *Client) PendingTransactions(ctx context.Context, addr string) ([]blockchain.Transaction, error) {
	var resp TransactionsResponse
	if err := c.do(ctx, http.MethodGet, addr, "/api/transactions", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Transactions, nil
}

func (c *Client) ClearPool(ctx context.Context, addr string) error {
	return c.do(ctx, http.MethodDelete, addr, "/api/transactions/pool", nil, nil)
}

// TriggerConsensus asks addr to reconcile; the neighbor answers before it starts
func (c *Client) TriggerConsensus(ctx context.Context, addr string) error {
	return c.do(ctx, http.MethodPost, addr, "/api/consensus", nil, nil)
}

func (c *Client) Mine(ctx context.Context, addr string) (blockchain.BlockSummary, error) {
	var resp MineResponse
	if err := c.do(ctx, http.MethodPost, addr, "/api/mine", nil, &resp); err != nil {
		return blockchain.BlockSummary{}, err
	}
	return resp.Block, nil
}

func (c *Client) Balance(ctx context.Context, addr, address string) (blockchain.Amount, error) {
	var resp AmountResponse
	if err := c.do(ctx, http.MethodGet, addr, "/api/amount/"+address, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Amount, nil
}

func (c *Client) ConsensusStatus(ctx context.Context, addr string) (ConsensusStatusResponse, error) {
	var resp ConsensusStatusResponse
	err := c.do(ctx, http.MethodGet, addr, "/api/consensus/status", nil, &resp)
	return resp, err
}

// Peers lists the neighbors addr currently considers alive
func (c *Client) Peers(ctx context.Context, addr string) ([]string, error) {
	var resp PeersResponse
	if err := c.do(ctx, http.MethodGet, addr, "/api/peers", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Peers, nil
}
