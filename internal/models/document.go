package models

import (
	"fmt"
	"strings"
	"time"
)

// Document is one source text of the corpus. It is immutable once loaded.
type Document struct {
	Name     string
	Category string
	Locator  string
	Content  string
	Metadata map[string]interface{}
}

// Category groups documents and carries the keywords used for local ranking.
// Lower Priority means more relevant by default.
type Category struct {
	Name        string
	Description string
	Priority    int
	Keywords    []string
	Documents   []Document
}

// Role of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ConversationTurn struct {
	Role Role
	Text string
}

// FormatHistory renders turns as "role: content" lines.
func FormatHistory(turns []ConversationTurn) string {
	lines := make([]string, len(turns))
	for i, t := range turns {
		lines[i] = fmt.Sprintf("%s: %s", t.Role, t.Text)
	}
	return strings.Join(lines, "\n")
}

// PartialResponse is one per-document answer collected during fan-out.
// Failed is set when the agent had no content or generation was absent;
// Text then holds a marker rather than an answer.
type PartialResponse struct {
	DocumentName string
	Text         string
	Failed       bool
}

// Transcript is one answered turn as archived outside the core.
type Transcript struct {
	SessionID string
	Question  string
	Answer    string
	Path      string
	Outcome   string
	Elapsed   time.Duration
	CreatedAt time.Time
}
