package realtime

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"bioneuro/backend/internal/flow"
	"bioneuro/backend/internal/llm"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	maxMessage = 8192
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Streamer produces a reply for one chat turn.
type Streamer interface {
	StreamReply(ctx context.Context, sess *llm.Session, text string) (iter.Seq[string], error)
}

type clientFrame struct {
	Message string `json:"message"`
}

type serverFrame struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

type chatConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *chatConn) send(frame serverFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(frame)
}

func (c *chatConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// Options configures a chat socket.
type Options struct {
	// Session resolves the chat session for each turn, so a session reset
	// while the socket is open takes effect on the next message.
	Session func() *llm.Session
	// Admit is consulted before each turn. Nil admits every turn.
	Admit  func() bool
	Header http.Header
	Log    *zap.Logger
}

// ServeChat upgrades the request and runs chat turns until the client goes
// away. Turns are handled one at a time in arrival order.
func ServeChat(w http.ResponseWriter, r *http.Request, streamer Streamer, opts Options) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := upgrader.Upgrade(w, r, opts.Header)
	if err != nil {
		log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &chatConn{conn: conn}
	ctx, cancel := context.WithCancel(r.Context())
	defer func() {
		cancel()
		_ = conn.Close()
	}()

	go pingPump(ctx, client)

	conn.SetReadLimit(maxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var frame clientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("websocket closed", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if opts.Admit != nil && !opts.Admit() {
			if err := client.send(serverFrame{Type: "error", Error: "rate limit exceeded"}); err != nil {
				return
			}
			continue
		}
		if err := runTurn(ctx, client, streamer, opts.Session(), frame.Message); err != nil {
			return
		}
	}
}

// runTurn returns an error only when the connection is no longer writable.
func runTurn(ctx context.Context, client *chatConn, streamer Streamer, sess *llm.Session, text string) error {
	seq, err := streamer.StreamReply(ctx, sess, strings.TrimSpace(text))
	switch {
	case errors.Is(err, llm.ErrEmptyMessage):
		return client.send(serverFrame{Type: "error", Error: "message is required"})
	case errors.Is(err, flow.ErrBusy):
		return client.send(serverFrame{Type: "error", Error: "a reply is already in progress"})
	case err != nil:
		return client.send(serverFrame{Type: "error", Error: "chat unavailable"})
	}

	var full strings.Builder
	var writeErr error
	for fragment := range seq {
		full.WriteString(fragment)
		if writeErr = client.send(serverFrame{Type: "chunk", Text: fragment}); writeErr != nil {
			break
		}
	}
	if writeErr != nil {
		return writeErr
	}
	return client.send(serverFrame{Type: "done", Text: full.String()})
}

func pingPump(ctx context.Context, client *chatConn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.ping(); err != nil {
				return
			}
		}
	}
}
