package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/udisondev/pvpguard/internal/game/combat"
	"github.com/udisondev/pvpguard/internal/model"
)

const maxMessageSize = 64 * 1024

// Game is the part of the game loop the bridge drives.
type Game interface {
	Connect(ctx context.Context, id model.PlayerID, pos model.Position) error
	Disconnect(ctx context.Context, id model.PlayerID) error
	Move(ctx context.Context, id model.PlayerID, pos model.Position) error
	AddAnchor(ctx context.Context, a model.BaseAnchor) error
	RemoveAnchor(ctx context.Context, id uint64) error
	Chat(ctx context.Context, id model.PlayerID, text string) (bool, error)
	Damage(ctx context.Context, ev *model.DamageEvent) (combat.Decision, error)
}

type outFrame struct {
	frameType int
	data      []byte
}

// Conn is one authenticated engine connection.
type Conn struct {
	hub    *Hub
	game   Game
	ws     *websocket.Conn
	server string
	cfg    Config

	send    chan outFrame
	limiter *rate.Limiter
	// lastCodec is the encoding of the most recent inbound frame, used for
	// unsolicited notices.
	lastCodec atomic.Uint32

	closeOnce sync.Once
	done      chan struct{}
}

func newConn(hub *Hub, game Game, ws *websocket.Conn, server string, cfg Config) *Conn {
	return &Conn{
		hub:     hub,
		game:    game,
		ws:      ws,
		server:  server,
		cfg:     cfg,
		send:    make(chan outFrame, cfg.SendQueueSize),
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		done:    make(chan struct{}),
	}
}

// enqueue encodes msg with the connection's current codec. Drops the
// message when the send queue is full.
func (c *Conn) enqueue(msg Message) {
	c.enqueueWith(codec(c.lastCodec.Load()), msg)
}

func (c *Conn) enqueueWith(cd codec, msg Message) {
	data, err := cd.encode(msg)
	if err != nil {
		slog.Error("encoding bridge message", "type", msg.Type, "error", err)
		return
	}

	select {
	case <-c.done:
	case c.send <- outFrame{frameType: cd.frameType(), data: data}:
	default:
		slog.Warn("bridge send queue full, dropping message",
			"server", c.server,
			"type", msg.Type)
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// readPump reads frames until the connection fails, then disconnects every
// player routed through it.
func (c *Conn) readPump(ctx context.Context) {
	defer func() {
		c.close()
		orphaned := c.hub.unregister(c)

		dctx, cancel := context.WithTimeout(context.Background(), c.cfg.WriteTimeout)
		defer cancel()
		for _, id := range orphaned {
			if err := c.game.Disconnect(dctx, id); err != nil {
				slog.Warn("disconnecting orphaned player", "player", id, "error", err)
			}
		}
		slog.Info("engine disconnected", "server", c.server, "players", len(orphaned))
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	})

	for {
		frameType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("bridge read failed", "server", c.server, "error", err)
			}
			return
		}

		cd, err := codecFor(frameType)
		if err != nil {
			continue
		}
		c.lastCodec.Store(uint32(cd))

		msg, err := cd.decode(data)
		if err != nil {
			c.enqueueWith(cd, Message{Type: MsgError, Error: fmt.Sprintf("decoding message: %v", err)})
			continue
		}

		if !c.limiter.Allow() {
			c.enqueueWith(cd, Message{Type: MsgError, Seq: msg.Seq, Error: "rate limit exceeded"})
			continue
		}

		if reply := c.handle(ctx, msg); reply != nil {
			c.enqueueWith(cd, *reply)
		}
	}
}

// writePump writes queued frames and keeps the connection alive with pings.
func (c *Conn) writePump() {
	ticker := time.NewTicker(c.cfg.PongTimeout * 9 / 10)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case f := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(f.frameType, f.data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handle executes one inbound message and returns the reply, if any.
func (c *Conn) handle(ctx context.Context, msg Message) *Message {
	fail := func(err error) *Message {
		return &Message{Type: MsgError, Seq: msg.Seq, Error: err.Error()}
	}

	switch msg.Type {
	case MsgConnect:
		if msg.Player == 0 {
			return fail(fmt.Errorf("connect: missing player"))
		}
		var pos model.Position
		if msg.Pos != nil {
			pos = msg.Pos.position()
		}
		c.hub.bind(msg.Player, c)
		if err := c.game.Connect(ctx, msg.Player, pos); err != nil {
			return fail(err)
		}

	case MsgDisconnect:
		if msg.Player == 0 {
			return fail(fmt.Errorf("disconnect: missing player"))
		}
		c.hub.unbind(msg.Player, c)
		if err := c.game.Disconnect(ctx, msg.Player); err != nil {
			return fail(err)
		}

	case MsgPosition:
		if msg.Pos == nil {
			return fail(fmt.Errorf("position: missing pos"))
		}
		if err := c.game.Move(ctx, msg.Player, msg.Pos.position()); err != nil {
			return fail(err)
		}

	case MsgAnchorAdd:
		if msg.Anchor == nil {
			return fail(fmt.Errorf("anchor_add: missing anchor"))
		}
		a := model.BaseAnchor{ID: msg.Anchor.ID, Position: msg.Anchor.Pos.position()}
		if err := c.game.AddAnchor(ctx, a); err != nil {
			return fail(err)
		}

	case MsgAnchorRemove:
		if msg.Anchor == nil {
			return fail(fmt.Errorf("anchor_remove: missing anchor"))
		}
		if err := c.game.RemoveAnchor(ctx, msg.Anchor.ID); err != nil {
			return fail(err)
		}

	case MsgChat:
		handled, err := c.game.Chat(ctx, msg.Player, msg.Text)
		if err != nil {
			return fail(err)
		}
		if msg.Seq != 0 {
			return &Message{Type: MsgChatResult, Seq: msg.Seq, Player: msg.Player, Handled: handled}
		}

	case MsgDamage:
		if msg.Damage == nil {
			return fail(fmt.Errorf("damage: missing event"))
		}
		ev := msg.Damage.Event()
		d, err := c.game.Damage(ctx, ev)
		if err != nil {
			return fail(err)
		}
		return &Message{Type: MsgDecision, Seq: msg.Seq, Decision: decisionOf(d, ev)}

	default:
		return fail(fmt.Errorf("unknown message type %q", msg.Type))
	}

	return nil
}
