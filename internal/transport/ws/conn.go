package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/bpawel10/skyless/internal/core/game"
	"github.com/bpawel10/skyless/internal/protocol"
	"github.com/bpawel10/skyless/internal/systems/defs"
)

var (
	ErrClosed     = errors.New("ws: connection closed")
	ErrQueueFull  = errors.New("ws: outbound queue full")
	errNoProtocol = errors.New("ws: no validator")
)

// Conn is one client connection. Writes go through a bounded queue drained
// by a writer goroutine; reads happen in the reader task owned by the game.
type Conn struct {
	id        string
	ws        *websocket.Conn
	cfg       Config
	validator *protocol.Validator
	log       *logrus.Entry

	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newConn(id string, wsConn *websocket.Conn, cfg Config, v *protocol.Validator, logger *logrus.Entry) *Conn {
	return &Conn{
		id:        id,
		ws:        wsConn,
		cfg:       cfg,
		validator: v,
		log:       logger.WithField("conn_id", id),
		out:       make(chan []byte, cfg.MaxQueue),
		done:      make(chan struct{}),
	}
}

func (c *Conn) ConnID() string { return c.id }

// Send queues msg as JSON. A full queue drops the message.
func (c *Conn) Send(msg any) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.out <- b:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		c.log.Warn("outbound queue full; dropping message")
		return ErrQueueFull
	}
}

func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case b := <-c.out:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
				c.log.WithError(err).Debug("write failed")
				_ = c.Close()
				return
			}
		}
	}
}

// Reader returns the task reading client messages. It yields one payload
// event per valid message and ConnectionClosed once the connection ends.
func (c *Conn) Reader() game.Task {
	return game.TaskFunc(func(ctx context.Context, yield game.Yield) {
		stop := context.AfterFunc(ctx, func() { _ = c.Close() })
		defer stop()

		for {
			_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
			_, raw, err := c.ws.ReadMessage()
			if err != nil {
				break
			}
			ev, err := c.decode(raw)
			if err != nil {
				code := protocol.ErrProtoBadRequest
				var perr *protocol.Error
				if errors.As(err, &perr) {
					code = perr.Code
				}
				c.log.WithError(err).Debug("rejected message")
				_ = c.Send(protocol.NewError(code, err.Error()))
				continue
			}
			if !yield(ev) {
				break
			}
		}

		_ = c.Close()
		yield(defs.ConnectionClosed{ConnID: c.id})
	})
}

func (c *Conn) decode(raw []byte) (game.Event, error) {
	if c.validator == nil {
		return nil, errNoProtocol
	}
	msg, err := c.validator.Decode(raw)
	if err != nil {
		return nil, err
	}
	switch m := msg.(type) {
	case protocol.LoginMsg:
		return defs.LoginPayload{ConnID: c.id, Name: m.Name}, nil
	case protocol.PingMsg:
		return defs.PingPayload{ConnID: c.id}, nil
	case protocol.MoveMsg:
		return defs.MovePayload{ConnID: c.id, Direction: defs.Direction(m.Direction)}, nil
	case protocol.UseItemMsg:
		return defs.UseItemPayload{ConnID: c.id, Position: m.Position.Model(), Item: m.Item}, nil
	}
	return nil, &protocol.Error{Code: protocol.ErrProtoUnknownType, Err: errors.New("unhandled message")}
}
