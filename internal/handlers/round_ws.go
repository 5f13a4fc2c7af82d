package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/jason-s-yu/blackjack/internal/middleware"
	"github.com/sirupsen/logrus"
)

const (
	roundSubprotocol = "blackjack"
	wsWriteTimeout   = 5 * time.Second
)

// RoundMessage is a client request on the round socket.
type RoundMessage struct {
	Type string `json:"type"`
}

type roundReply struct {
	Type  string     `json:"type"`
	Round *roundView `json:"round,omitempty"`
}

type errorReply struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// RoundWSHandler plays the turn protocol over a WebSocket. Each text message
// {"type":"new"|"hit"|"stand"|"state"} gets one reply: the round view or an
// error object. {"type":"forget"} drops the round and is answered with
// {"type":"forgotten"}. Turns go through the same Table as the HTTP endpoints.
func (s *Server) RoundWSHandler(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{roundSubprotocol},
		OriginPatterns: s.originPatterns,
	})
	if err != nil {
		s.logger.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	if c.Subprotocol() != roundSubprotocol {
		c.Close(BadSubprotocolError, "client must use the 'blackjack' subprotocol")
		return
	}

	userID, err := s.authenticate(r)
	if err != nil {
		c.Close(InvalidAuthTokenError, "authentication failed")
		return
	}

	logger := s.logger.WithField("user_id", userID)
	middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

	err = s.readRoundMessages(r.Context(), c, userID, logger)
	middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, err)
	if err == nil {
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// readRoundMessages serves requests until the client goes away. It returns nil
// on a normal close.
func (s *Server) readRoundMessages(ctx context.Context, c *websocket.Conn, userID uuid.UUID, logger logrus.FieldLogger) error {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			continue
		}

		var msg RoundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Debugf("invalid round message: %v", err)
			if err := s.writeWS(ctx, c, errorReply{Type: "error", Message: "invalid JSON format"}); err != nil {
				return err
			}
			continue
		}

		if msg.Type == "forget" {
			reply := interface{}(roundReply{Type: "forgotten"})
			if err := s.rounds.Forget(ctx, userID); err != nil {
				logger.Errorf("failed to forget round: %v", err)
				_, text := roundErrorStatus(err)
				reply = errorReply{Type: "error", Message: text}
			}
			if err := s.writeWS(ctx, c, reply); err != nil {
				return err
			}
			continue
		}

		var action roundAction
		switch msg.Type {
		case "new":
			action = s.rounds.NewRound
		case "hit":
			action = s.rounds.Hit
		case "stand":
			action = s.rounds.Stand
		case "state":
			action = s.rounds.Current
		default:
			if err := s.writeWS(ctx, c, errorReply{Type: "error", Message: fmt.Sprintf("unknown message type: %s", msg.Type)}); err != nil {
				return err
			}
			continue
		}

		state, err := action(ctx, userID)
		if err != nil {
			status, text := roundErrorStatus(err)
			if status >= http.StatusInternalServerError {
				logger.Errorf("round action %q failed: %v", msg.Type, err)
			}
			if err := s.writeWS(ctx, c, errorReply{Type: "error", Message: text}); err != nil {
				return err
			}
			continue
		}

		view := s.view(ctx, userID, state)
		if err := s.writeWS(ctx, c, roundReply{Type: "round", Round: &view}); err != nil {
			return err
		}
	}
}

func (s *Server) writeWS(ctx context.Context, c *websocket.Conn, v interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, c, v)
}
