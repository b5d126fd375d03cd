package services

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"moonbags-buybot/agent/internal/models"
	"moonbags-buybot/shared/logger"

	"github.com/gorilla/websocket"
)

const (
	streamReconnectDelay = 5 * time.Second
	streamPingInterval   = 30 * time.Second
	trackedRefreshEvery  = 30 * time.Second
)

// Streamer is the streaming BuySource: it subscribes to swap events over the
// fullnode websocket and feeds buys of tracked coin types to the dispatcher.
// The connection is re-established after a fixed delay on any failure; missed
// events during an outage are picked up by the digest dedupe if the operator
// also runs the poller later.
type Streamer struct {
	wsURL      string
	eventTypes []string
	groups     GroupReader
	market     TokenInfoProvider
	ingestor   Ingestor
	log        *logger.Logger

	tracked   map[string]struct{}
	trackedAt time.Time
}

func NewStreamer(wsURL string, eventTypes []string, groups GroupReader, market TokenInfoProvider,
	ingestor Ingestor, log *logger.Logger) *Streamer {
	return &Streamer{
		wsURL:      wsURL,
		eventTypes: eventTypes,
		groups:     groups,
		market:     market,
		ingestor:   ingestor,
		log:        log,
		tracked:    make(map[string]struct{}),
	}
}

func (s *Streamer) Run(ctx context.Context) {
	s.log.Info("Buy feed streamer starting", "url", s.wsURL)
	for {
		if ctx.Err() != nil {
			s.log.Info("Buy feed streamer stopping")
			return
		}
		if err := s.runConnection(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn("Stream connection lost, reconnecting", "error", err, "delay", streamReconnectDelay.String())
		}
		select {
		case <-ctx.Done():
			s.log.Info("Buy feed streamer stopping")
			return
		case <-time.After(streamReconnectDelay):
		}
	}
}

type subscribeRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type eventNotification struct {
	Method string `json:"method"`
	Params *struct {
		Result *struct {
			ID struct {
				TxDigest string `json:"txDigest"`
			} `json:"id"`
			Sender      string          `json:"sender"`
			TimestampMs string          `json:"timestampMs"`
			ParsedJSON  json.RawMessage `json:"parsedJson"`
		} `json:"result"`
	} `json:"params"`
}

type swapEvent struct {
	CoinOutAddress string `json:"coin_out_address"`
	Owner          string `json:"owner"`
	AmountOut      string `json:"amount_out"`
}

func (s *Streamer) runConnection(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, s.wsURL, nil)
	cancel()
	if err != nil {
		return err
	}
	defer conn.Close()

	for i, eventType := range s.eventTypes {
		req := subscribeRequest{
			JSONRPC: "2.0",
			ID:      i + 1,
			Method:  "suix_subscribeEvent",
			Params:  []interface{}{map[string]interface{}{"MoveEventType": eventType}},
		}
		if err := conn.WriteJSON(req); err != nil {
			return err
		}
	}
	s.log.Info("Subscribed to swap event stream", "eventTypes", len(s.eventTypes))

	// Keepalive pings on a side goroutine; the read loop owns the connection
	// lifetime.
	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	go func() {
		ticker := time.NewTicker(streamPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-pingCtx.Done():
				return
			case <-ticker.C:
				deadline := time.Now().Add(10 * time.Second)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	go func() {
		<-pingCtx.Done()
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		s.handleMessage(ctx, raw)
	}
}

func (s *Streamer) handleMessage(ctx context.Context, raw []byte) {
	var note eventNotification
	if err := json.Unmarshal(raw, &note); err != nil {
		s.log.Debug("Unparseable stream message", "error", err)
		return
	}
	// Subscription confirmations and other non-event frames.
	if note.Method != "suix_subscribeEvent" || note.Params == nil || note.Params.Result == nil {
		return
	}

	var ev swapEvent
	if err := json.Unmarshal(note.Params.Result.ParsedJSON, &ev); err != nil || ev.CoinOutAddress == "" {
		return
	}
	if !s.isTracked(ev.CoinOutAddress) {
		return
	}

	amount, err := strconv.ParseFloat(ev.AmountOut, 64)
	if err != nil || amount <= 0 {
		return
	}

	buyer := ev.Owner
	if buyer == "" {
		buyer = note.Params.Result.Sender
	}

	blockTime := time.Now()
	if ms, err := strconv.ParseInt(note.Params.Result.TimestampMs, 10, 64); err == nil && ms > 0 {
		blockTime = time.UnixMilli(ms)
	}

	// Stream events carry no USD value, so price it with current market data.
	var usd float64
	if info, err := s.market.TokenInfo(ctx, ev.CoinOutAddress); err == nil {
		usd = amount * info.PriceUSD
	} else {
		s.log.Warn("Cannot price streamed buy", "token", ev.CoinOutAddress, "error", err)
	}

	rec := models.BuyRecord{
		TxDigest:     note.Params.Result.ID.TxDigest,
		TokenAddress: ev.CoinOutAddress,
		BuyerAddress: buyer,
		TokenAmount:  amount,
		UsdValue:     usd,
		BlockTime:    blockTime,
	}
	if err := s.ingestor.Ingest(ctx, rec); err != nil {
		s.log.Error("Failed to ingest streamed buy", "digest", rec.TxDigest, "error", err)
	}
}

// isTracked checks the coin type against a cached copy of the configured
// token set, refreshed every trackedRefreshEvery.
func (s *Streamer) isTracked(tokenAddress string) bool {
	if time.Since(s.trackedAt) > trackedRefreshEvery {
		tokens, err := s.groups.TrackedTokens()
		if err != nil {
			s.log.Warn("Failed to refresh tracked token set", "error", err)
		} else {
			fresh := make(map[string]struct{}, len(tokens))
			for _, t := range tokens {
				fresh[t] = struct{}{}
			}
			s.tracked = fresh
			s.trackedAt = time.Now()
		}
	}
	_, ok := s.tracked[tokenAddress]
	return ok
}
