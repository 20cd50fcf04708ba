package core

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type PartType string

const (
	PartTypeText PartType = "text"
)

// ContentPart is one piece of a turn's content. Only text parts exist today;
// consumers must filter on Type so future part kinds (attached media) are
// skipped rather than breaking them.
type ContentPart struct {
	Type PartType `json:"type"`
	Text string   `json:"text,omitempty"`
}

// Turn is one message in the conversation. Immutable once appended to a
// ConversationStore; identity is the ID.
type Turn struct {
	ID    string        `json:"id"`
	Role  Role          `json:"role"`
	Parts []ContentPart `json:"parts"`
}

// NewTextTurn builds a turn with a single text part and a fresh ID.
func NewTextTurn(role Role, text string) Turn {
	return Turn{
		ID:    uuid.New().String(),
		Role:  role,
		Parts: []ContentPart{{Type: PartTypeText, Text: text}},
	}
}

// Text concatenates the turn's text parts in order, joined by newline.
// Non-text parts are ignored.
func (t Turn) Text() string {
	var parts []string
	for _, p := range t.Parts {
		if p.Type == PartTypeText {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// ConversationStore holds the ordered turns of one live conversation.
// Append-only: turns are never edited or removed during a session. The chat
// relay appends on user submission and reply completion; the generation
// orchestrator only reads.
type ConversationStore struct {
	mu    sync.RWMutex
	turns []Turn
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{}
}

func (s *ConversationStore) Append(turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turn)
}

func (s *ConversationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// Turns returns a copy of the turn sequence so callers cannot mutate the
// store through the returned slice.
func (s *ConversationStore) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// LastAssistantText returns the concatenated text of the most recent
// assistant turn, or "" when no assistant turn exists yet.
func (s *ConversationStore) LastAssistantText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.turns) - 1; i >= 0; i-- {
		if s.turns[i].Role == RoleAssistant {
			return s.turns[i].Text()
		}
	}
	return ""
}
