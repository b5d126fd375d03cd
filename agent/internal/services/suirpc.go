package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"moonbags-buybot/shared/logger"

	"github.com/go-resty/resty/v2"
)

const mistPerSui = 1e9

// SuiRPCClient talks JSON-RPC to a Sui fullnode. Its only job here is
// verifying boost payments by transaction digest.
type SuiRPCClient struct {
	rpcURL string
	client *resty.Client
	log    *logger.Logger
}

func NewSuiRPCClient(rpcURL string, log *logger.Logger) *SuiRPCClient {
	client := resty.New().
		SetTimeout(15 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(2 * time.Second).
		SetRetryMaxWaitTime(10 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500 || r.StatusCode() == 429
		})
	return &SuiRPCClient{rpcURL: rpcURL, client: client, log: log}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type txBlockResponse struct {
	Result *struct {
		Effects *struct {
			Status struct {
				Status string `json:"status"`
				Error  string `json:"error"`
			} `json:"status"`
		} `json:"effects"`
		BalanceChanges []struct {
			Owner struct {
				AddressOwner string `json:"AddressOwner"`
			} `json:"owner"`
			CoinType string `json:"coinType"`
			Amount   string `json:"amount"`
		} `json:"balanceChanges"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// VerifyPayment checks that the transaction identified by txDigest succeeded
// on chain and credited at least expectedSUI to the receiver wallet. Amounts
// on the wire are MIST (1 SUI = 1e9 MIST).
func (c *SuiRPCClient) VerifyPayment(ctx context.Context, txDigest string, expectedSUI float64, receiver string) (bool, error) {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "sui_getTransactionBlock",
		Params: []interface{}{
			txDigest,
			map[string]bool{"showEffects": true, "showBalanceChanges": true},
		},
	}

	var parsed txBlockResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&parsed).
		Post(c.rpcURL)
	if err != nil {
		return false, fmt.Errorf("sui rpc request failed: %w", err)
	}
	if resp.IsError() {
		return false, fmt.Errorf("sui rpc returned status %d", resp.StatusCode())
	}
	if parsed.Error != nil {
		return false, fmt.Errorf("sui rpc error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if parsed.Result == nil {
		return false, fmt.Errorf("transaction %s not found", txDigest)
	}
	if parsed.Result.Effects == nil || parsed.Result.Effects.Status.Status != "success" {
		c.log.Warn("Payment transaction did not succeed on chain", "digest", txDigest)
		return false, nil
	}

	var receivedSUI float64
	for _, change := range parsed.Result.BalanceChanges {
		if change.Owner.AddressOwner != receiver || change.CoinType != suiCoinType {
			continue
		}
		mist, err := strconv.ParseFloat(change.Amount, 64)
		if err != nil {
			c.log.Warn("Unparseable balance change amount", "digest", txDigest, "amount", change.Amount)
			continue
		}
		if mist > 0 {
			receivedSUI += mist / mistPerSui
		}
	}

	if receivedSUI+1e-9 < expectedSUI {
		c.log.Warn("Payment amount below tariff price",
			"digest", txDigest, "received", receivedSUI, "expected", expectedSUI)
		return false, nil
	}
	return true, nil
}
