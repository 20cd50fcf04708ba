package chat

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"chefkit/core"
)

// Fixed pools the diversity hint draws from. Read-only, process-wide.
var (
	cuisines = []string{
		"Japanese", "Mexican", "Thai", "Italian", "Ethiopian", "Turkish",
		"Peruvian", "Greek", "Korean", "Indian", "Moroccan", "Vietnamese",
	}
	mains = []string{
		"tofu", "salmon", "pork", "lentils", "eggplant", "mushrooms",
		"shrimp", "beef", "tempeh", "chickpeas", "cauliflower", "duck",
	}
	methods = []string{
		"stir-fry", "braise", "grill", "roast", "steam", "poach",
		"sous-vide", "no-cook", "pressure-cook", "smoke",
	}
)

// RandSource provides the random draws for the injector. Injected so tests
// can pin the hint deterministically.
type RandSource interface {
	Intn(n int) int
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// Injector produces the randomized theme hint appended to each outgoing
// backend request. Hints are recomputed per request, never cached: repeated
// identical requests yielding different hints is the point.
type Injector struct {
	src RandSource
}

// NewInjector creates an Injector drawing from src. Pass nil to use a
// time-seeded source.
func NewInjector(src RandSource) *Injector {
	if src == nil {
		src = &lockedRand{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
	}
	return &Injector{src: src}
}

// Hint returns a theme string of the form
// "Theme: <cuisine> <main> (<method>)." with each slot drawn independently
// and uniformly from its pool.
func (i *Injector) Hint() string {
	return fmt.Sprintf("Theme: %s %s (%s).",
		cuisines[i.src.Intn(len(cuisines))],
		mains[i.src.Intn(len(mains))],
		methods[i.src.Intn(len(methods))],
	)
}

// HintTurn wraps a fresh hint into a synthetic user turn. The turn exists
// only in the outgoing request payload, never in the conversation store.
func (i *Injector) HintTurn() core.Turn {
	return core.Turn{
		ID:    "theme-" + uuid.New().String(),
		Role:  core.RoleUser,
		Parts: []core.ContentPart{{Type: core.PartTypeText, Text: i.Hint()}},
	}
}
