package services

import "strings"

// Verdict is the outcome of classifying a generated answer.
type Verdict int

const (
	VerdictAnswered Verdict = iota
	VerdictDenied
)

// DenialClassifier decides whether a generated answer actually constitutes
// a refusal. Kept behind an interface so the keyword heuristic can later be
// swapped for a structured refusal signal from the model without touching
// the pipeline.
type DenialClassifier interface {
	Classify(answerText string) Verdict
}

// refusalMarkers are the case-insensitive substrings treated as refusal or
// deflection signals: inability, proprietary/restricted references, the
// redaction marker, "no information", self-reference to the prompt context,
// and apology patterns.
//
// This is a heuristic, NOT a security boundary. False positives (a real
// answer containing "context") and false negatives (a refusal phrased
// without any marker) are accepted residual risk; the actual boundary is
// the clearance filter applied at retrieval time. The classifier only
// decides cacheability and escalation eligibility.
var refusalMarkers = []string{
	"cannot",
	"proprietary",
	"<redacted>",
	"not have",
	"no information",
	"context",
	"apologize",
}

// KeywordDenialClassifier classifies answers by substring matching against
// a fixed marker list.
type KeywordDenialClassifier struct {
	markers []string
}

// NewKeywordDenialClassifier creates a classifier with the default markers.
func NewKeywordDenialClassifier() *KeywordDenialClassifier {
	return &KeywordDenialClassifier{markers: refusalMarkers}
}

// Classify returns VerdictDenied if the text contains any refusal marker.
// Pure function of its input; calling it twice yields the same verdict.
func (c *KeywordDenialClassifier) Classify(answerText string) Verdict {
	lowered := strings.ToLower(answerText)
	for _, marker := range c.markers {
		if strings.Contains(lowered, marker) {
			return VerdictDenied
		}
	}
	return VerdictAnswered
}
