package pipeline

import (
	"context"
	"log/slog"

	"github.com/mkravets/voicelog/internal/keywords"
	"github.com/mkravets/voicelog/internal/transcribe"
)

// Transcriber converts a submission into transcript text, absorbing engine
// failures into the returned text.
type Transcriber interface {
	Transcribe(ctx context.Context, sub transcribe.Submission) string
}

// KeywordExtractor turns transcript text into keywords.
type KeywordExtractor interface {
	Extract(ctx context.Context, text string) []keywords.Keyword
}

// ConversationStore persists conversations and their keywords.
type ConversationStore interface {
	CreateConversation(text string) (int64, error)
	AttachKeywords(conversationID int64, kws []keywords.Keyword) error
}

// Request is one ingestion call: a submission plus optional client-extracted
// keywords. When Keywords is non-empty, server-side extraction is bypassed
// entirely and the supplied keywords are stored verbatim.
type Request struct {
	Submission transcribe.Submission
	Keywords   []keywords.Keyword
}

// Result is what one ingestion produced. Success reflects persistence only:
// transcription and extraction degrade internally and never fail the call.
type Result struct {
	Success        bool
	ConversationID int64
	Text           string
	Keywords       []keywords.Keyword
}

// Ingestor orchestrates one submission end to end: transcribe (or pass text
// through), extract keywords, persist. It holds no per-request state.
type Ingestor struct {
	adapter   Transcriber
	extractor KeywordExtractor
	store     ConversationStore
}

// NewIngestor creates an Ingestor wired to its three collaborators.
func NewIngestor(adapter Transcriber, extractor KeywordExtractor, store ConversationStore) *Ingestor {
	return &Ingestor{adapter: adapter, extractor: extractor, store: store}
}

// Ingest runs the pipeline for one request:
//  1. Transcribe audio, or take supplied text as-is.
//  2. Extract keywords, unless the request carries client-extracted ones.
//  3. Create the conversation, then attach keywords.
//
// The conversation row and its keywords are separate transactions; a failed
// attach reports failure but leaves the conversation in place, and the
// transcription/extraction work is not retried.
func (ig *Ingestor) Ingest(ctx context.Context, req Request) Result {
	text := ig.adapter.Transcribe(ctx, req.Submission)

	kws := req.Keywords
	if len(kws) == 0 {
		kws = ig.extractor.Extract(ctx, text)
	}

	id, err := ig.store.CreateConversation(text)
	if err != nil {
		slog.Warn("storing conversation failed", "error", err)
		return Result{Success: false, Text: text, Keywords: kws}
	}

	if err := ig.store.AttachKeywords(id, kws); err != nil {
		slog.Warn("attaching keywords failed", "conversation_id", id, "error", err)
		return Result{Success: false, ConversationID: id, Text: text, Keywords: kws}
	}

	slog.Debug("ingestion complete", "conversation_id", id, "keywords", len(kws))
	return Result{Success: true, ConversationID: id, Text: text, Keywords: kws}
}
