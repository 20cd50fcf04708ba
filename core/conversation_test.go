package core

import (
	"sync"
	"testing"
)

func TestTurnText(t *testing.T) {
	tests := []struct {
		name  string
		parts []ContentPart
		want  string
	}{
		{"single text part", []ContentPart{{Type: PartTypeText, Text: "hello"}}, "hello"},
		{"multiple parts joined", []ContentPart{
			{Type: PartTypeText, Text: "first"},
			{Type: PartTypeText, Text: "second"},
		}, "first\nsecond"},
		{"non-text parts skipped", []ContentPart{
			{Type: PartTypeText, Text: "kept"},
			{Type: PartType("media"), Text: "dropped"},
		}, "kept"},
		{"no parts", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turn := Turn{Role: RoleUser, Parts: tt.parts}
			if got := turn.Text(); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewTextTurnAssignsUniqueIDs(t *testing.T) {
	a := NewTextTurn(RoleUser, "one")
	b := NewTextTurn(RoleUser, "two")
	if a.ID == "" || b.ID == "" {
		t.Fatal("turn created without an ID")
	}
	if a.ID == b.ID {
		t.Fatalf("two turns share ID %q", a.ID)
	}
}

func TestConversationStoreAppendOrder(t *testing.T) {
	store := NewConversationStore()
	store.Append(NewTextTurn(RoleUser, "how do I braise pork?"))
	store.Append(NewTextTurn(RoleAssistant, "low and slow."))

	if store.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", store.Len())
	}
	turns := store.Turns()
	if turns[0].Role != RoleUser || turns[1].Role != RoleAssistant {
		t.Fatalf("turn order = %v, %v", turns[0].Role, turns[1].Role)
	}
}

func TestConversationStoreTurnsReturnsCopy(t *testing.T) {
	store := NewConversationStore()
	store.Append(NewTextTurn(RoleUser, "original"))

	turns := store.Turns()
	turns[0] = NewTextTurn(RoleUser, "replaced")

	if got := store.Turns()[0].Text(); got != "original" {
		t.Fatalf("store mutated through returned slice: %q", got)
	}
}

func TestLastAssistantText(t *testing.T) {
	store := NewConversationStore()
	if got := store.LastAssistantText(); got != "" {
		t.Fatalf("empty store LastAssistantText() = %q, want empty", got)
	}

	store.Append(NewTextTurn(RoleUser, "question"))
	if got := store.LastAssistantText(); got != "" {
		t.Fatalf("user-only store LastAssistantText() = %q, want empty", got)
	}

	store.Append(NewTextTurn(RoleAssistant, "first answer"))
	store.Append(NewTextTurn(RoleUser, "followup"))
	store.Append(NewTextTurn(RoleAssistant, "second answer"))

	if got := store.LastAssistantText(); got != "second answer" {
		t.Fatalf("LastAssistantText() = %q, want %q", got, "second answer")
	}
}

func TestConversationStoreConcurrentAccess(t *testing.T) {
	store := NewConversationStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			store.Append(NewTextTurn(RoleUser, "turn"))
		}()
		go func() {
			defer wg.Done()
			_ = store.Turns()
			_ = store.LastAssistantText()
		}()
	}
	wg.Wait()
	if store.Len() != 8 {
		t.Fatalf("Len() = %d after concurrent appends, want 8", store.Len())
	}
}
