package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mkravets/voicelog/internal/keywords"
	"github.com/mkravets/voicelog/internal/pipeline"
	"github.com/mkravets/voicelog/internal/query"
	"github.com/mkravets/voicelog/internal/storage"
	"github.com/mkravets/voicelog/internal/transcribe"
)

const maxTranscribeBodySize = 25 << 20 // 25MB, base64 audio payloads
const maxRequestBodySize = 1 << 20     // 1MB

// Ingestor runs the transcription-and-keyword pipeline for one submission.
type Ingestor interface {
	Ingest(ctx context.Context, req pipeline.Request) pipeline.Result
}

// ConversationStore writes keyword rows and reads single conversations.
type ConversationStore interface {
	AttachKeywords(conversationID int64, kws []keywords.Keyword) error
	GetConversation(id int64) (storage.Conversation, error)
}

// Deps holds everything the HTTP surface needs.
type Deps struct {
	Ingestor Ingestor
	Query    *query.Service
	Store    ConversationStore
	Token    string // optional; empty disables bearer auth
}

// NewHandler returns the voicelog HTTP API. Every handler converts failures
// into structured JSON responses; nothing propagates far enough to kill the
// serving process.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Route("/api", func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}
		r.Post("/transcribe", handleTranscribe(deps))
		r.Post("/store-keywords", handleStoreKeywords(deps))
		r.Get("/conversations/{id}", handleGetConversation(deps))
		r.Get("/keywords", handleKeywords(deps))
		r.Get("/search", handleSearch(deps))
		r.Get("/logs", handleLogs(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type transcribeRequest struct {
	Audio      string             `json:"audio"` // base64-encoded audio bytes
	Format     string             `json:"format"`
	SampleRate int                `json:"sampleRate"`
	Text       string             `json:"text"`
	Keywords   []keywords.Keyword `json:"keywords"`
}

type transcribeResponse struct {
	Success        bool               `json:"success"`
	ConversationID int64              `json:"id,omitempty"`
	Text           string             `json:"text"`
	Keywords       []keywords.Keyword `json:"keywords"`
}

func handleTranscribe(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxTranscribeBodySize)
		defer r.Body.Close()

		var req transcribeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		if req.Audio == "" && req.Text == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "no audio or text provided")
			return
		}

		var audio []byte
		if req.Audio != "" {
			decoded, err := base64.StdEncoding.DecodeString(req.Audio)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid base64 audio")
				return
			}
			audio = decoded
		}

		result := deps.Ingestor.Ingest(r.Context(), pipeline.Request{
			Submission: transcribe.Submission{
				Audio:      audio,
				Format:     req.Format,
				SampleRate: req.SampleRate,
				Text:       req.Text,
			},
			Keywords: req.Keywords,
		})

		kws := result.Keywords
		if kws == nil {
			kws = []keywords.Keyword{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(transcribeResponse{
			Success:        result.Success,
			ConversationID: result.ConversationID,
			Text:           result.Text,
			Keywords:       kws,
		})
	}
}

type storeKeywordsRequest struct {
	ConversationID int64              `json:"conversation_id"`
	Keywords       []keywords.Keyword `json:"keywords"`
}

func handleStoreKeywords(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req storeKeywordsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if len(req.Keywords) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "no keywords provided")
			return
		}
		// Standalone keyword rows exist only at the store layer; a request
		// without a conversation reference is a client error.
		if req.ConversationID <= 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "conversation_id is required")
			return
		}

		err := deps.Store.AttachKeywords(req.ConversationID, req.Keywords)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "conversation %d not found", req.ConversationID)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"success": err == nil})
	}
}

func handleGetConversation(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid conversation id")
			return
		}

		conv, err := deps.Store.GetConversation(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "conversation %d not found", id)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "internal_error", "reading conversation: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(conv)
	}
}

func handleKeywords(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string][]string{"keywords": deps.Query.Keywords()})
	}
}

func handleSearch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logs, err := deps.Query.Search(r.URL.Query().Get("keyword"))
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string][]storage.ConversationLog{"conversations": logs})
	}
}

func handleLogs(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		logs, err := deps.Query.Logs(q.Get("start_date"), q.Get("end_date"), q.Get("keyword"))
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string][]storage.ConversationLog{"logs": logs})
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
