// Command bot logs in over websocket and wanders around the map.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/bpawel10/skyless/internal/protocol"
)

func main() {
	var (
		url   = flag.String("url", "ws://localhost:8080/ws", "ws url")
		name  = flag.String("name", "bot", "player name")
		every = flag.Duration("move_every", 500*time.Millisecond, "delay between steps")
	)
	flag.Parse()

	log := logrus.New().WithField("component", "bot")
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		log.WithError(err).Fatal("dial")
	}
	defer conn.Close()

	if err := conn.WriteJSON(protocol.LoginMsg{
		Type:            protocol.TypeLogin,
		ProtocolVersion: protocol.Version,
		Name:            *name,
	}); err != nil {
		log.WithError(err).Fatal("send LOGIN")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	welcomed := make(chan struct{})
	go func() {
		defer stop()
		readLoop(conn, log, welcomed)
	}()

	select {
	case <-welcomed:
	case <-ctx.Done():
		return
	}
	walk(ctx, conn, log, *every)
}

func readLoop(conn *websocket.Conn, log *logrus.Entry, welcomed chan<- struct{}) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			log.WithError(err).Info("connection closed")
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			log.WithFields(logrus.Fields{"player": w.PlayerID, "session": w.SessionID}).Info("WELCOME")
			close(welcomed)
		case protocol.TypeMap:
			var m protocol.MapMsg
			if err := json.Unmarshal(msg, &m); err == nil {
				log.WithField("tiles", len(m.Tiles)).Info("MAP")
			}
		case protocol.TypeChangedEntity:
			var c protocol.ChangedEntityMsg
			if err := json.Unmarshal(msg, &c); err == nil {
				log.WithField("item", c.Item).Info("item changed")
			}
		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err == nil {
				log.WithField("code", e.Code).Warn(e.Message)
			}
		}
	}
}

// walk sends a MOVE in a random direction every tick and a PING every ten
// steps. Steps inside the server's cooldown are dropped there.
func walk(ctx context.Context, conn *websocket.Conn, log *logrus.Entry, every time.Duration) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	t := time.NewTicker(every)
	defer t.Stop()
	for step := 1; ; step++ {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
			return
		case <-t.C:
		}
		if err := conn.WriteJSON(protocol.MoveMsg{
			Type:            protocol.TypeMove,
			ProtocolVersion: protocol.Version,
			Direction:       uint8(r.Intn(4)),
		}); err != nil {
			log.WithError(err).Warn("send MOVE")
			return
		}
		if step%10 == 0 {
			_ = conn.WriteJSON(protocol.PingMsg{Type: protocol.TypePing, ProtocolVersion: protocol.Version})
		}
	}
}
