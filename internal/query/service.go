package query

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mkravets/voicelog/internal/storage"
)

// ErrEmptyKeyword is returned when a search is attempted without a keyword.
var ErrEmptyKeyword = errors.New("keyword must not be empty")

// Store is the read side of the conversation store.
type Store interface {
	ListDistinctKeywords() ([]string, error)
	SearchByKeyword(substr string) ([]storage.ConversationLog, error)
	FilterLogs(f storage.LogFilter) ([]storage.ConversationLog, error)
}

// Service validates query parameters and delegates to the store. Errors it
// returns are always client errors (bad parameters); store failures are
// logged and degraded to empty results so callers always get a well-formed
// response.
type Service struct {
	store Store
}

// NewService creates a Service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Keywords lists every distinct recognized keyword, most recent first.
func (s *Service) Keywords() []string {
	kws, err := s.store.ListDistinctKeywords()
	if err != nil {
		slog.Warn("listing keywords failed", "error", err)
		return []string{}
	}
	if kws == nil {
		kws = []string{}
	}
	return kws
}

// Search returns conversations with at least one keyword containing keyword.
func (s *Service) Search(keyword string) ([]storage.ConversationLog, error) {
	if keyword == "" {
		return nil, ErrEmptyKeyword
	}
	logs, err := s.store.SearchByKeyword(keyword)
	if err != nil {
		slog.Warn("keyword search failed", "keyword", keyword, "error", err)
		return []storage.ConversationLog{}, nil
	}
	if logs == nil {
		logs = []storage.ConversationLog{}
	}
	return logs, nil
}

// Logs filters conversations by optional inclusive date bounds (YYYY-MM-DD)
// and keyword substring, all ANDed.
func (s *Service) Logs(startDate, endDate, keyword string) ([]storage.ConversationLog, error) {
	for name, val := range map[string]string{"start_date": startDate, "end_date": endDate} {
		if val == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", val); err != nil {
			return nil, fmt.Errorf("invalid %s %q: expected YYYY-MM-DD", name, val)
		}
	}

	logs, err := s.store.FilterLogs(storage.LogFilter{
		StartDate: startDate,
		EndDate:   endDate,
		Keyword:   keyword,
	})
	if err != nil {
		slog.Warn("filtering logs failed", "error", err)
		return []storage.ConversationLog{}, nil
	}
	if logs == nil {
		logs = []storage.ConversationLog{}
	}
	return logs, nil
}
