// Package server exposes sessions over WebSocket, one session per
// connection, and periodically purges expired enrichment and relationship
// entries.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/xhad/tradeqa/internal/types"
	"github.com/xhad/tradeqa/pkg/llm"
	"github.com/xhad/tradeqa/pkg/logger"
	"github.com/xhad/tradeqa/pkg/session"
)

// Frame types.
const (
	TypeQuestion = "question"
	TypeReset    = "reset"
	TypeStatus   = "status"
	TypeAnswer   = "answer"
	TypeError    = "error"
)

const (
	statusThinking = "답변을 준비하고 있습니다..."
	statusReset    = "새 채팅을 시작합니다."
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

// AnswerData accompanies an answer frame.
type AnswerData struct {
	SessionID string `json:"session_id"`
	Path      string `json:"path"`
	Outcome   string `json:"outcome"`
	Category  string `json:"category,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// Purger is a cache with an expiry sweep.
type Purger interface {
	Purge() int
}

type ServerConfig struct {
	Addr string
	// SweepSchedule is a cron spec; empty disables sweeping.
	SweepSchedule string
	Purgers       []Purger
	Logger        *logrus.Entry
}

type WSServer struct {
	config     ServerConfig
	newSession func() *session.Session
	cron       *cron.Cron
	log        *logrus.Entry
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// notifier delivers advisories raised while serving c's turns to c alone.
func (c *client) notifier(log *logrus.Entry) types.Notifier {
	return types.NotifierFunc(func(message string) {
		if err := c.send(Message{Type: TypeError, Content: message}); err != nil {
			log.WithError(err).Debug("failed to deliver advisory")
		}
	})
}

func (c *client) send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(msg)
}

// NewWSServer builds the server. newSession is called once per connection.
func NewWSServer(newSession func() *session.Session, config ServerConfig) (*WSServer, error) {
	if config.Addr == "" {
		config.Addr = ":8080"
	}

	s := &WSServer{
		config:     config,
		newSession: newSession,
		cron:       cron.New(),
		log:        logger.Or(config.Logger, "server"),
	}

	if config.SweepSchedule != "" {
		if _, err := s.cron.AddFunc(config.SweepSchedule, func() { s.Sweep() }); err != nil {
			return nil, fmt.Errorf("invalid sweep schedule %q: %w", config.SweepSchedule, err)
		}
	}

	return s, nil
}

// Handler serves /ws and /health.
func (s *WSServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// ListenAndServe runs until ctx is cancelled.
func (s *WSServer) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.cron.Start()
	defer s.cron.Stop()

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.config.Addr).Info("starting WebSocket server")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

// Sweep purges expired entries from every registered cache.
func (s *WSServer) Sweep() int {
	total := 0
	for _, p := range s.config.Purgers {
		total += p.Purge()
	}
	s.log.WithField("purged", total).Debug("cache sweep finished")
	return total
}

func (s *WSServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	c := &client{conn: conn}
	sess := s.newSession()
	log := s.log.WithField("session_id", sess.ID())
	ctx := llm.WithNotifier(r.Context(), c.notifier(log))
	log.Info("session opened")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("connection closed unexpectedly")
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.reply(c, log, Message{Type: TypeError, Content: "잘못된 메시지 형식입니다."})
			continue
		}

		s.handleMessage(ctx, c, log, sess, msg)
	}
	log.Info("session closed")
}

// handleMessage runs turns in arrival order for the connection.
func (s *WSServer) handleMessage(ctx context.Context, c *client, log *logrus.Entry, sess *session.Session, msg Message) {
	switch msg.Type {
	case TypeReset:
		sess.Reset(ctx)
		s.reply(c, log, Message{Type: TypeStatus, Content: statusReset})

	case TypeQuestion:
		question := strings.TrimSpace(msg.Content)
		if question == "" {
			s.reply(c, log, Message{Type: TypeError, Content: "질문을 입력해 주세요."})
			return
		}

		s.reply(c, log, Message{Type: TypeStatus, Content: statusThinking})
		ans := sess.Ask(ctx, question)
		s.reply(c, log, Message{
			Type:    TypeAnswer,
			Content: ans.Text,
			Data: AnswerData{
				SessionID: sess.ID(),
				Path:      string(ans.Path),
				Outcome:   string(ans.Outcome),
				Category:  ans.Category,
				ElapsedMS: ans.Elapsed.Milliseconds(),
			},
		})

	default:
		s.reply(c, log, Message{Type: TypeError, Content: fmt.Sprintf("알 수 없는 메시지 유형입니다: %s", msg.Type)})
	}
}

func (s *WSServer) reply(c *client, log *logrus.Entry, msg Message) {
	if err := c.send(msg); err != nil {
		log.WithError(err).Warn("error sending message")
	}
}
