package chat

import (
	"fmt"
	"testing"

	"chefkit/core"
)

func makeTurns(n int) []core.Turn {
	turns := make([]core.Turn, n)
	for i := range turns {
		role := core.RoleUser
		if i%2 == 1 {
			role = core.RoleAssistant
		}
		turns[i] = core.NewTextTurn(role, fmt.Sprintf("turn %d", i))
	}
	return turns
}

func TestTrimWindow(t *testing.T) {
	tests := []struct {
		name   string
		turns  int
		window int
		want   int
	}{
		{"empty", 0, 6, 0},
		{"under window", 3, 6, 3},
		{"exactly window", 6, 6, 6},
		{"over window", 8, 6, 6},
		{"window of one", 8, 1, 1},
		{"zero window keeps all", 4, 0, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turns := makeTurns(tt.turns)
			got := TrimWindow(turns, tt.window)
			if len(got) != tt.want {
				t.Fatalf("TrimWindow(%d turns, window %d) returned %d turns, want %d",
					tt.turns, tt.window, len(got), tt.want)
			}
			// The kept turns are the most recent ones, in original order.
			offset := tt.turns - len(got)
			for i, turn := range got {
				want := fmt.Sprintf("turn %d", offset+i)
				if turn.Text() != want {
					t.Errorf("kept[%d] = %q, want %q", i, turn.Text(), want)
				}
			}
		})
	}
}

func TestTrimWindowDoesNotMutateInput(t *testing.T) {
	turns := makeTurns(8)
	snapshot := make([]string, len(turns))
	for i, turn := range turns {
		snapshot[i] = turn.Text()
	}

	got := TrimWindow(turns, 6)
	got[0] = core.NewTextTurn(core.RoleUser, "overwritten")

	for i, turn := range turns {
		if turn.Text() != snapshot[i] {
			t.Fatalf("input turn %d changed from %q to %q", i, snapshot[i], turn.Text())
		}
	}
}
