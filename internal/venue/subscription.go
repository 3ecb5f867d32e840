package venue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// SubscribeMsgFunc builds the venue-specific subscription payload requesting
// every active market, or iterating a supplied instrument list when the
// venue has no all-markets channel (spec.md §4.1).
type SubscribeMsgFunc func(instruments []Instrument) []interface{}

// ParseMessageFunc turns one raw WebSocket frame into zero or more ticks.
// Frames that are not data updates (acks, heartbeats) return no ticks and no
// error.
type ParseMessageFunc func(raw []byte) ([]RawUpdate, error)

// RawUpdate is the adapter-local, pre-validation shape a venue parser
// produces; SubscriptionEngine converts it into a model.RawTick and applies
// the common filtering policy (drop on missing mark price or symbol).
type RawUpdate struct {
	OriginalSymbol  string
	MarketID        string
	MarkPrice       string
	IndexPrice      string
	LastPrice       string
	OpenInterest    string
	OpenInterestUSD string
	FundingRate     string
	NextFundingAtMS *int64
	Volume24h       float64
	QuoteVolume24h  float64
	Low24h          float64
	High24h         float64
	Change24h       float64
}

// SubscriptionEngine runs the generic push-venue connection lifecycle:
// dial, send the subscribe-all message, reply to pings, send an
// application-level keepalive ping every 30s where configured, and surface
// read loop termination to the caller so the tracker can schedule a
// reconnect (spec.md §4.1, §4.2). Concrete venues configure it with their
// own SubscribeMsgFunc/ParseMessageFunc; see internal/venue/venues for
// per-venue wiring grounded in the teacher's kraken adapter.
type SubscriptionEngine struct {
	VenueID       string
	WSURL         string
	Subscribe     SubscribeMsgFunc
	Parse         ParseMessageFunc
	AppPing       bool // send an application-level ping every 30s
	Instruments   []Instrument

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

func (e *SubscriptionEngine) Venue() string { return e.VenueID }
func (e *SubscriptionEngine) Kind() Kind    { return KindSubscription }

// Start is idempotent: calling it while already connected is a no-op.
func (e *SubscriptionEngine) Start(ctx context.Context, emit EmitFunc) error {
	e.mu.Lock()
	if e.conn != nil {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(e.WSURL, nil)
	if err != nil {
		return fmt.Errorf("%s: dial websocket: %w", e.VenueID, err)
	}

	subCtx, cancel := context.WithCancel(ctx)

	e.mu.Lock()
	e.conn = conn
	e.cancel = cancel
	e.done = make(chan struct{})
	e.mu.Unlock()

	for _, msg := range e.Subscribe(e.Instruments) {
		if err := conn.WriteJSON(msg); err != nil {
			conn.Close()
			cancel()
			return fmt.Errorf("%s: send subscribe message: %w", e.VenueID, err)
		}
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

	if e.AppPing {
		go e.pingLoop(subCtx, conn)
	}

	go e.readLoop(subCtx, conn, emit)

	log.Info().Str("venue", e.VenueID).Str("url", e.WSURL).Msg("subscription adapter connected")
	return nil
}

func (e *SubscriptionEngine) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Str("venue", e.VenueID).Err(err).Msg("application ping failed")
				return
			}
		}
	}
}

// readLoop treats >=60s without a message as a disconnect (spec.md §5).
func (e *SubscriptionEngine) readLoop(ctx context.Context, conn *websocket.Conn, emit EmitFunc) {
	defer close(e.done)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			log.Warn().Str("venue", e.VenueID).Err(err).Msg("websocket disconnected")
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		updates, err := e.Parse(raw)
		if err != nil {
			log.Debug().Str("venue", e.VenueID).Err(err).Msg("malformed venue payload, dropping message")
			continue
		}

		for _, u := range updates {
			if u.OriginalSymbol == "" || u.MarkPrice == "" {
				continue // filtering policy: drop ticks missing mark price or symbol
			}
			emit(u.toRawTick(e.VenueID))
		}
	}
}

// Stop closes the connection cleanly; one final in-flight message may still
// reach emit before the read loop observes the cancellation.
func (e *SubscriptionEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn == nil {
		return nil
	}
	if e.cancel != nil {
		e.cancel()
	}
	err := e.conn.Close()
	e.conn = nil
	return err
}
