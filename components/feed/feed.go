// components/feed/feed.go
//
// Change-feed websocket.
//
/*
Context
--------
	GET /api/feed[?collection=subscriptions&collection=tool_types]

Upgrades to a websocket and streams one JSON object per committed change:

	{"seq":12,"collection":"subscriptions","record_id":"…","change_kind":"update","at":"…"}

Unknown collection names are refused with 400 before the upgrade.

Events never carry record data.  Clients treat each one as a "re-read"
signal and fetch through the regular endpoints, which enforce ownership,
so an event about another user's record reveals only its id.

Notes
-----
  • The server's WriteTimeout would cut the stream after 15 s, so the
    handler clears the write deadline before upgrading.  Each frame gets
    its own writeTimeout instead.
  • A ping every pingInterval detects half-open connections.
  • Oxford commas, two spaces after periods.
*/
package feed

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/portal/internal/component"
	"github.com/yanizio/portal/internal/feed"
	"github.com/yanizio/portal/internal/httpx"
)

const (
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
)

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Component streams hub events to websocket clients.
type Component struct {
	hub     *feed.Hub
	origins []string
}

// Name returns the canonical component key.
func (c *Component) Name() string { return "feed" }

// Init captures the hub and allowed origins.
func (c *Component) Init(d component.Deps) error {
	c.hub = d.Feed
	c.origins = d.Origins
	return nil
}

// Routes registers /feed.
func (c *Component) Routes(r chi.Router) {
	r.Get("/feed", c.stream)
}

// Register component at program start.
func init() { component.Register(&Component{}) }

func (c *Component) stream(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	var only []feed.Collection
	for _, v := range r.URL.Query()["collection"] {
		coll, err := feed.ParseCollection(v)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		only = append(only, coll)
	}

	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: c.origins})
	if err != nil {
		zap.L().Debug("feed upgrade failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	// CloseRead discards client frames and cancels ctx when the peer goes
	// away.
	ctx := conn.CloseRead(r.Context())

	events := make(chan feed.Event)
	unsubscribe := c.hub.Subscribe(func(ev feed.Event) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}, only...)
	defer unsubscribe()

	zap.L().Info("feed client connected", zap.String("actor", actor.ID))
	defer zap.L().Info("feed client disconnected", zap.String("actor", actor.ID))

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case ev := <-events:
			if err := write(ctx, conn, ev); err != nil {
				zap.L().Debug("feed write failed", zap.String("actor", actor.ID), zap.Error(err))
				return
			}
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, ev feed.Event) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, ev)
}
