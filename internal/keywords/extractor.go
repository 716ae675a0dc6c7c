package keywords

import (
	"context"
	"log/slog"
	"time"

	"github.com/mkravets/voicelog/internal/classifier"
)

const classifyTimeout = 10 * time.Second

// Classifier is the interface to the external keyword classification model.
type Classifier interface {
	Classify(ctx context.Context, model, text string) ([]classifier.Prediction, error)
}

// Extractor turns conversation text into scored keywords. The primary path
// goes through the classification model; whenever the model is not configured
// or its call fails in any way, the deterministic Fallback heuristic runs
// instead. The fallback is a first-class behavior, not an error path: it is
// what serves every deployment without a model artifact.
type Extractor struct {
	client Classifier
	model  string
}

// NewExtractor creates an Extractor using the given classifier client and
// model name. A nil client means fallback-only extraction.
func NewExtractor(client Classifier, model string) *Extractor {
	return &Extractor{client: client, model: model}
}

// Extract returns keywords for text. It never fails: classifier errors are
// logged and answered with the fallback heuristic.
func (e *Extractor) Extract(ctx context.Context, text string) []Keyword {
	if text == "" {
		return nil
	}

	if e.client == nil {
		return Fallback(text)
	}

	ctx, cancel := context.WithTimeout(ctx, classifyTimeout)
	defer cancel()

	predictions, err := e.client.Classify(ctx, e.model, text)
	if err != nil {
		slog.Warn("keyword classification failed, using fallback extraction", "error", err)
		return Fallback(text)
	}

	out := make([]Keyword, len(predictions))
	for i, p := range predictions {
		out[i] = Scored(p.Word, p.Score)
	}
	return out
}
