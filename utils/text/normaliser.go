package text

import (
	"regexp"
	"strings"
)

type INormalizer interface {
	Normalize(text string) string
}

// NarrationNormalizer strips markup the chat model tends to emit so the
// speech backend reads recipe text, not punctuation. Headers and emphasis
// markers are removed, list bullets become plain sentences.
type NarrationNormalizer struct{}

func NewNarrationNormalizer() *NarrationNormalizer {
	return &NarrationNormalizer{}
}

var (
	headerRe   = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	emphasisRe = regexp.MustCompile(`(\*\*|__|\*|_)`)
	bulletRe   = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	numListRe  = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	codeRe     = regexp.MustCompile("`+")
	blankRe    = regexp.MustCompile(`\n{3,}`)
)

func (n *NarrationNormalizer) Normalize(text string) string {
	out := headerRe.ReplaceAllString(text, "")
	out = bulletRe.ReplaceAllString(out, "")
	out = numListRe.ReplaceAllString(out, "")
	out = emphasisRe.ReplaceAllString(out, "")
	out = codeRe.ReplaceAllString(out, "")
	out = blankRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
