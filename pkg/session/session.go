// Package session is the conversation boundary: it keeps the history of
// one user, passes it to the orchestrator each turn and can reset it.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/memory"

	"github.com/xhad/tradeqa/internal/models"
	"github.com/xhad/tradeqa/pkg/logger"
	"github.com/xhad/tradeqa/pkg/orchestrator"
)

// Answerer produces an answer from a question and the prior history.
type Answerer interface {
	Answer(ctx context.Context, question string, history []models.ConversationTurn) orchestrator.Answer
}

// Recorder archives answered turns. Failures are logged, never surfaced.
type Recorder interface {
	Record(ctx context.Context, t models.Transcript) error
}

type SessionConfig struct {
	// ID defaults to a random UUID.
	ID       string
	Recorder Recorder
	Logger   *logrus.Entry
}

type Session struct {
	id       string
	answerer Answerer
	recorder Recorder
	log      *logrus.Entry

	// mu serializes turns so history stays in question/answer order.
	mu      sync.Mutex
	history *memory.ChatMessageHistory
}

func NewWithConfig(answerer Answerer, config SessionConfig) *Session {
	if config.ID == "" {
		config.ID = uuid.New().String()
	}
	return &Session{
		id:       config.ID,
		answerer: answerer,
		recorder: config.Recorder,
		log:      logger.Or(config.Logger, "session").WithField("session_id", config.ID),
		history:  memory.NewChatMessageHistory(),
	}
}

func (s *Session) ID() string { return s.id }

// Ask answers question against the earlier turns, which never include
// question itself, then appends both the question and the answer.
func (s *Session) Ask(ctx context.Context, question string) orchestrator.Answer {
	s.mu.Lock()
	defer s.mu.Unlock()

	ans := s.answerer.Answer(ctx, question, s.turns(ctx))

	if err := s.history.AddUserMessage(ctx, question); err != nil {
		s.log.WithError(err).Warn("failed to append question to history")
	}
	if err := s.history.AddAIMessage(ctx, ans.Text); err != nil {
		s.log.WithError(err).Warn("failed to append answer to history")
	}

	s.log.WithFields(logrus.Fields{
		"path":    ans.Path,
		"outcome": ans.Outcome,
		"elapsed": ans.Elapsed,
	}).Info("question answered")

	if s.recorder != nil {
		err := s.recorder.Record(ctx, models.Transcript{
			SessionID: s.id,
			Question:  question,
			Answer:    ans.Text,
			Path:      string(ans.Path),
			Outcome:   string(ans.Outcome),
			Elapsed:   ans.Elapsed,
		})
		if err != nil {
			s.log.WithError(err).Warn("failed to archive transcript")
		}
	}

	return ans
}

// History returns a copy of the conversation so far.
func (s *Session) History(ctx context.Context) []models.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turns(ctx)
}

// Reset clears the history. Document, enrichment and relationship caches
// live outside the session and are kept.
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.history.Clear(ctx); err != nil {
		s.log.WithError(err).Warn("failed to clear history")
		return
	}
	s.log.Info("session reset")
}

// turns assumes mu is held.
func (s *Session) turns(ctx context.Context) []models.ConversationTurn {
	msgs, err := s.history.Messages(ctx)
	if err != nil {
		s.log.WithError(err).Warn("failed to read history")
		return nil
	}

	turns := make([]models.ConversationTurn, 0, len(msgs))
	for _, m := range msgs {
		role := models.RoleUser
		if m.GetType() == llms.ChatMessageTypeAI {
			role = models.RoleAssistant
		}
		turns = append(turns, models.ConversationTurn{Role: role, Text: m.GetContent()})
	}
	return turns
}
