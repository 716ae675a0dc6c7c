package storage

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/mkravets/voicelog/internal/keywords"
)

func mustCreate(t *testing.T, s *Store, text string) int64 {
	t.Helper()
	id, err := s.CreateConversation(text)
	if err != nil {
		t.Fatalf("CreateConversation(%q): %v", text, err)
	}
	return id
}

func mustAttach(t *testing.T, s *Store, id int64, kws []keywords.Keyword) {
	t.Helper()
	if err := s.AttachKeywords(id, kws); err != nil {
		t.Fatalf("AttachKeywords(%d): %v", id, err)
	}
}

// backdate rewrites a conversation's created_at; tests use it to simulate
// records written on earlier days.
func backdate(t *testing.T, s *Store, id int64, ts time.Time) {
	t.Helper()
	if _, err := s.db.Exec(`UPDATE conversations SET created_at = ? WHERE id = ?`,
		ts.UTC().Format(time.RFC3339), id); err != nil {
		t.Fatalf("backdating conversation %d: %v", id, err)
	}
}

func TestCreateConversation_AssignsTimestamp(t *testing.T) {
	s := openTestStore(t)

	id := mustCreate(t, s, "hello world")
	if id == 0 {
		t.Fatal("expected non-zero conversation id")
	}

	var createdAt string
	if err := s.db.QueryRow(`SELECT created_at FROM conversations WHERE id = ?`, id).Scan(&createdAt); err != nil {
		t.Fatalf("reading created_at: %v", err)
	}
	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		t.Fatalf("created_at %q is not RFC3339: %v", createdAt, err)
	}
	if d := time.Since(ts); d < 0 || d > time.Minute {
		t.Errorf("created_at %v not close to now", ts)
	}
}

func TestGetConversation(t *testing.T) {
	s := openTestStore(t)

	id := mustCreate(t, s, "quarterly budget review")

	c, err := s.GetConversation(id)
	if err != nil {
		t.Fatalf("GetConversation(%d): %v", id, err)
	}
	if c.ID != id || c.Text != "quarterly budget review" {
		t.Errorf("conversation = %+v, want id %d with original text", c, id)
	}
	if d := time.Since(c.CreatedAt); d < 0 || d > time.Minute {
		t.Errorf("CreatedAt %v not close to now", c.CreatedAt)
	}
}

func TestGetConversation_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetConversation(42)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestAttachKeywords_NormalizesRows(t *testing.T) {
	s := openTestStore(t)
	id := mustCreate(t, s, "urgent deadline discussion")

	mustAttach(t, s, id, []keywords.Keyword{
		keywords.Plain("urgent"),
		keywords.Scored("deadline", 0.8),
	})

	rows, err := s.db.Query(`SELECT keyword, confidence, conversation_id FROM recognized_keywords ORDER BY id`)
	if err != nil {
		t.Fatalf("querying rows: %v", err)
	}
	defer rows.Close()

	type row struct {
		word string
		conf float64
		conv int64
	}
	var got []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.word, &r.conf, &r.conv); err != nil {
			t.Fatalf("scan: %v", err)
		}
		got = append(got, r)
	}

	want := []row{{"urgent", 1.0, id}, {"deadline", 0.8, id}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rows = %v, want %v", got, want)
	}
}

func TestAttachKeywords_MissingConversation(t *testing.T) {
	s := openTestStore(t)

	err := s.AttachKeywords(42, []keywords.Keyword{keywords.Plain("urgent")})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM recognized_keywords`).Scan(&count); err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	if count != 0 {
		t.Errorf("keyword rows = %d, want 0 after failed attach", count)
	}
}

func TestAttachKeywords_EmptyIsNoop(t *testing.T) {
	s := openTestStore(t)
	id := mustCreate(t, s, "no keywords here")

	if err := s.AttachKeywords(id, nil); err != nil {
		t.Fatalf("AttachKeywords(nil): %v", err)
	}
}

func TestAttachKeywords_StandaloneLegacyRows(t *testing.T) {
	s := openTestStore(t)

	mustAttach(t, s, 0, []keywords.Keyword{keywords.Plain("wakeword")})

	var conv *int64
	if err := s.db.QueryRow(`SELECT conversation_id FROM recognized_keywords`).Scan(&conv); err != nil {
		t.Fatalf("reading row: %v", err)
	}
	if conv != nil {
		t.Errorf("conversation_id = %v, want NULL", *conv)
	}

	kws, err := s.ListDistinctKeywords()
	if err != nil {
		t.Fatalf("ListDistinctKeywords: %v", err)
	}
	if !reflect.DeepEqual(kws, []string{"wakeword"}) {
		t.Errorf("keywords = %v, want [wakeword]", kws)
	}

	// Standalone rows must never surface as conversations.
	logs, err := s.FilterLogs(LogFilter{Keyword: "wake"})
	if err != nil {
		t.Fatalf("FilterLogs: %v", err)
	}
	if len(logs) != 0 {
		t.Errorf("logs = %v, want empty", logs)
	}
}

func TestListDistinctKeywords_DeduplicatesAcrossConversations(t *testing.T) {
	s := openTestStore(t)

	id1 := mustCreate(t, s, "first budget talk")
	id2 := mustCreate(t, s, "second budget talk")
	mustAttach(t, s, id1, []keywords.Keyword{keywords.Plain("budget"), keywords.Plain("quarterly")})
	mustAttach(t, s, id2, []keywords.Keyword{keywords.Plain("budget")})

	kws, err := s.ListDistinctKeywords()
	if err != nil {
		t.Fatalf("ListDistinctKeywords: %v", err)
	}

	seen := make(map[string]int)
	for _, k := range kws {
		seen[k]++
	}
	if seen["budget"] != 1 || seen["quarterly"] != 1 || len(kws) != 2 {
		t.Errorf("keywords = %v, want exactly [budget quarterly] in some order", kws)
	}
}

func TestListDistinctKeywords_MostRecentFirst(t *testing.T) {
	s := openTestStore(t)

	id := mustCreate(t, s, "ordering test")
	mustAttach(t, s, id, []keywords.Keyword{keywords.Plain("older"), keywords.Plain("newer")})

	// Spread recognition times a day apart.
	now := time.Now().UTC()
	for kw, ts := range map[string]time.Time{
		"older": now.Add(-24 * time.Hour),
		"newer": now,
	} {
		if _, err := s.db.Exec(`UPDATE recognized_keywords SET recognized_at = ? WHERE keyword = ?`,
			ts.Format(time.RFC3339), kw); err != nil {
			t.Fatalf("updating recognized_at: %v", err)
		}
	}

	kws, err := s.ListDistinctKeywords()
	if err != nil {
		t.Fatalf("ListDistinctKeywords: %v", err)
	}
	if !reflect.DeepEqual(kws, []string{"newer", "older"}) {
		t.Errorf("keywords = %v, want [newer older]", kws)
	}
}

func TestSearchByKeyword_InfixAndCaseInsensitive(t *testing.T) {
	s := openTestStore(t)

	id := mustCreate(t, s, "we discussed the deadline")
	mustAttach(t, s, id, []keywords.Keyword{
		keywords.Scored("deadline", 0.8),
		keywords.Plain("urgent"),
	})

	for _, substr := range []string{"dead", "LINE", "deadline"} {
		logs, err := s.SearchByKeyword(substr)
		if err != nil {
			t.Fatalf("SearchByKeyword(%q): %v", substr, err)
		}
		if len(logs) != 1 {
			t.Fatalf("SearchByKeyword(%q) = %v, want one conversation", substr, logs)
		}
		if logs[0].ID != id || logs[0].Text != "we discussed the deadline" {
			t.Errorf("unexpected summary %+v", logs[0])
		}
		// Only the matching keyword is aggregated, not every attached one.
		if !reflect.DeepEqual(logs[0].Keywords, []string{"deadline"}) {
			t.Errorf("keywords = %v, want only the matching [deadline]", logs[0].Keywords)
		}
	}

	logs, err := s.SearchByKeyword("nonexistent")
	if err != nil {
		t.Fatalf("SearchByKeyword: %v", err)
	}
	if len(logs) != 0 {
		t.Errorf("logs = %v, want empty for non-matching substring", logs)
	}
}

func TestSearchByKeyword_ExcludesKeywordlessConversations(t *testing.T) {
	s := openTestStore(t)

	mustCreate(t, s, "conversation without keywords")
	id := mustCreate(t, s, "conversation with keywords")
	mustAttach(t, s, id, []keywords.Keyword{keywords.Plain("budget")})

	logs, err := s.SearchByKeyword("bud")
	if err != nil {
		t.Fatalf("SearchByKeyword: %v", err)
	}
	if len(logs) != 1 || logs[0].ID != id {
		t.Errorf("logs = %v, want only conversation %d", logs, id)
	}
}

func TestFilterLogs_NoFiltersReturnsAllNewestFirst(t *testing.T) {
	s := openTestStore(t)

	first := mustCreate(t, s, "first")
	second := mustCreate(t, s, "second")
	mustAttach(t, s, second, []keywords.Keyword{keywords.Plain("budget")})

	logs, err := s.FilterLogs(LogFilter{})
	if err != nil {
		t.Fatalf("FilterLogs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("len(logs) = %d, want 2", len(logs))
	}
	if logs[0].ID != second || logs[1].ID != first {
		t.Errorf("order = [%d %d], want newest first [%d %d]", logs[0].ID, logs[1].ID, second, first)
	}
	// Keywordless conversation still included, with an empty list.
	if len(logs[1].Keywords) != 0 {
		t.Errorf("keywords = %v, want empty", logs[1].Keywords)
	}
}

func TestFilterLogs_DateBoundsAtDayGranularity(t *testing.T) {
	s := openTestStore(t)

	yesterdayID := mustCreate(t, s, "from yesterday")
	backdate(t, s, yesterdayID, time.Now().UTC().Add(-24*time.Hour))
	todayID := mustCreate(t, s, "from today")

	today := time.Now().UTC().Format("2006-01-02")

	logs, err := s.FilterLogs(LogFilter{StartDate: today})
	if err != nil {
		t.Fatalf("FilterLogs(start): %v", err)
	}
	if len(logs) != 1 || logs[0].ID != todayID {
		t.Errorf("start_date=today: logs = %v, want only conversation %d", logs, todayID)
	}

	yesterday := time.Now().UTC().Add(-24 * time.Hour).Format("2006-01-02")
	logs, err = s.FilterLogs(LogFilter{EndDate: yesterday})
	if err != nil {
		t.Fatalf("FilterLogs(end): %v", err)
	}
	if len(logs) != 1 || logs[0].ID != yesterdayID {
		t.Errorf("end_date=yesterday: logs = %v, want only conversation %d", logs, yesterdayID)
	}

	// Inclusive bounds: a range covering both days returns both.
	logs, err = s.FilterLogs(LogFilter{StartDate: yesterday, EndDate: today})
	if err != nil {
		t.Fatalf("FilterLogs(range): %v", err)
	}
	if len(logs) != 2 {
		t.Errorf("range: len(logs) = %d, want 2", len(logs))
	}
}

func TestFilterLogs_KeywordFilterExcludesKeywordless(t *testing.T) {
	s := openTestStore(t)

	mustCreate(t, s, "keywordless")
	id := mustCreate(t, s, "budget meeting")
	mustAttach(t, s, id, []keywords.Keyword{keywords.Plain("budget"), keywords.Plain("meeting")})

	logs, err := s.FilterLogs(LogFilter{Keyword: "budg"})
	if err != nil {
		t.Fatalf("FilterLogs: %v", err)
	}
	if len(logs) != 1 || logs[0].ID != id {
		t.Fatalf("logs = %v, want only conversation %d", logs, id)
	}
	if len(logs[0].Keywords) != 2 {
		t.Errorf("keywords = %v, want full aggregated list", logs[0].Keywords)
	}
}

func TestFilterLogs_CombinedFiltersAreANDed(t *testing.T) {
	s := openTestStore(t)

	oldID := mustCreate(t, s, "old budget talk")
	mustAttach(t, s, oldID, []keywords.Keyword{keywords.Plain("budget")})
	backdate(t, s, oldID, time.Now().UTC().Add(-48*time.Hour))

	newID := mustCreate(t, s, "new budget talk")
	mustAttach(t, s, newID, []keywords.Keyword{keywords.Plain("budget")})

	today := time.Now().UTC().Format("2006-01-02")
	logs, err := s.FilterLogs(LogFilter{StartDate: today, Keyword: "budget"})
	if err != nil {
		t.Fatalf("FilterLogs: %v", err)
	}
	if len(logs) != 1 || logs[0].ID != newID {
		t.Errorf("logs = %v, want only conversation %d", logs, newID)
	}
}
