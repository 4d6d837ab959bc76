package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/bpawel10/skyless/internal/core/game"
	"github.com/bpawel10/skyless/internal/protocol"
	"github.com/bpawel10/skyless/internal/systems/defs"
)

type Config struct {
	ReadBufferSize  int
	WriteBufferSize int
	// MaxQueue bounds the outbound messages buffered per connection.
	MaxQueue int
	// AcceptBuffer bounds connections waiting for the listener task.
	AcceptBuffer int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = 64 * 1024
	}
	if c.WriteBufferSize <= 0 {
		c.WriteBufferSize = 64 * 1024
	}
	if c.MaxQueue <= 0 {
		c.MaxQueue = 64
	}
	if c.AcceptBuffer <= 0 {
		c.AcceptBuffer = 16
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
}

// Server upgrades HTTP requests to websocket connections and queues them for
// the listener task, which hands them to the game.
type Server struct {
	cfg       Config
	log       *logrus.Entry
	validator *protocol.Validator

	upgrader websocket.Upgrader
	accepted chan *Conn
}

func NewServer(cfg Config, v *protocol.Validator, logger *logrus.Entry) *Server {
	cfg.applyDefaults()
	return &Server{
		cfg:       cfg,
		log:       logger.WithField("component", "ws"),
		validator: v,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		accepted: make(chan *Conn, cfg.AcceptBuffer),
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		wsConn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			s.log.WithError(err).Debug("upgrade failed")
			return
		}
		c := newConn(uuid.NewString(), wsConn, s.cfg, s.validator, s.log)
		go c.writeLoop()

		select {
		case s.accepted <- c:
		default:
			s.log.WithField("conn_id", c.id).Warn("accept queue full")
			_ = wsConn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server busy"),
				time.Now().Add(time.Second))
			_ = c.Close()
		}
	}
}

// Listener returns the task that yields ConnectionAccepted for every
// upgraded connection until the game stops.
func (s *Server) Listener() game.Task {
	return game.TaskFunc(func(ctx context.Context, yield game.Yield) {
		for {
			select {
			case <-ctx.Done():
				return
			case c := <-s.accepted:
				if !yield(defs.ConnectionAccepted{Conn: c}) {
					_ = c.Close()
					return
				}
			}
		}
	})
}
