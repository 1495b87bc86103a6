package lib

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mintix/src/types"
	"net/http"
	"os"
	"time"
)

type MintArgs struct {
	ChainEventID uint64 `json:"chain_event_id"`
	ChainTierID  uint64 `json:"chain_tier_id"`
	Contract     string `json:"contract"`
	Recipient    string `json:"recipient"`
	Ordinal      uint   `json:"ordinal"`
}

type MintReceipt struct {
	TokenID  uint64 `json:"token_id"`
	TxHash   string `json:"tx_hash"`
	Contract string `json:"contract"`
}

// ChainClient is the minting capability. Submit/WaitForConfirmation take
// seconds; callers must not hold a database transaction open across them.
type ChainClient interface {
	Simulate(ctx context.Context, args *MintArgs) error
	Submit(ctx context.Context, args *MintArgs) (string, error)
	WaitForConfirmation(ctx context.Context, txHash string) (*MintReceipt, error)
	ReadTicketState(ctx context.Context, tokenId uint64) (types.ChainTicketState, error)
}

var chainClient ChainClient

const (
	confirmPollInterval = 2 * time.Second
	confirmWaitLimit    = 5 * time.Minute
)

func GetChainClient() ChainClient {
	if chainClient != nil {
		return chainClient
	}
	chainClient = &httpChainClient{
		baseURL:      os.Getenv("CHAIN_RPC_URL"),
		hc:           &http.Client{Timeout: 30 * time.Second},
		pollInterval: confirmPollInterval,
		waitLimit:    confirmWaitLimit,
	}
	return chainClient
}

// NewChainClient Replace chain client with custom implementation
func NewChainClient(c ChainClient) {
	chainClient = c
}

// httpChainClient talks to the minter sidecar, which owns keys, gas and
// nonce management. Chain-native concerns stay on that side of the wire.
type httpChainClient struct {
	baseURL      string
	hc           *http.Client
	pollInterval time.Duration
	waitLimit    time.Duration
}

func (c *httpChainClient) post(ctx context.Context, path string, in any, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(raw, &e); err == nil && e.Error != "" {
			return errors.New(e.Error)
		}
		return fmt.Errorf("minter returned status %d", res.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func (c *httpChainClient) Simulate(ctx context.Context, args *MintArgs) error {
	var out struct {
		OK           bool   `json:"ok"`
		RevertReason string `json:"revert_reason"`
	}
	if err := c.post(ctx, "/simulate", args, &out); err != nil {
		return err
	}
	if !out.OK {
		return fmt.Errorf("simulation reverted: %s", out.RevertReason)
	}
	return nil
}

func (c *httpChainClient) Submit(ctx context.Context, args *MintArgs) (string, error) {
	var out struct {
		TxHash string `json:"tx_hash"`
	}
	if err := c.post(ctx, "/mint", args, &out); err != nil {
		return "", err
	}
	return out.TxHash, nil
}

func (c *httpChainClient) WaitForConfirmation(ctx context.Context, txHash string) (*MintReceipt, error) {
	// Confirmation can take multiple blocks; poll until the minter reports
	// a receipt or the context expires. Callers without their own deadline
	// (the retry sweep) get one here, so a minter stuck answering an
	// unknown status cannot pin them forever.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.waitLimit)
		defer cancel()
	}
	for {
		var out struct {
			Status  string       `json:"status"`
			Receipt *MintReceipt `json:"receipt"`
		}
		if err := c.post(ctx, "/tx/"+txHash, nil, &out); err != nil {
			return nil, err
		}
		switch out.Status {
		case "confirmed":
			return out.Receipt, nil
		case "reverted":
			return nil, fmt.Errorf("transaction %s reverted", txHash)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

func (c *httpChainClient) ReadTicketState(ctx context.Context, tokenId uint64) (types.ChainTicketState, error) {
	var out struct {
		State string `json:"state"`
	}
	if err := c.post(ctx, fmt.Sprintf("/tickets/%d/state", tokenId), nil, &out); err != nil {
		return types.CHAIN_TICKET_ACTIVE, err
	}
	switch out.State {
	case "used":
		return types.CHAIN_TICKET_USED, nil
	case "souvenir":
		return types.CHAIN_TICKET_SOUVENIR, nil
	case "active":
		return types.CHAIN_TICKET_ACTIVE, nil
	default:
		log.Printf("[chain] unknown ticket state %q for token %d\n", out.State, tokenId)
		return types.CHAIN_TICKET_ACTIVE, fmt.Errorf("unknown ticket state %q", out.State)
	}
}
