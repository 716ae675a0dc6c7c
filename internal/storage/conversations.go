package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mkravets/voicelog/internal/keywords"
)

// CreateConversation inserts a new conversation and returns its id.
// The timestamp is assigned here, at write time.
func (s *Store) CreateConversation(text string) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(`INSERT INTO conversations (text, created_at) VALUES (?, ?)`, text, now)
	if err != nil {
		return 0, fmt.Errorf("inserting conversation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading conversation id: %w", err)
	}
	return id, nil
}

// GetConversation returns one conversation by id, or ErrNotFound.
func (s *Store) GetConversation(id int64) (Conversation, error) {
	var c Conversation
	var created string
	err := s.db.QueryRow(`SELECT id, text, created_at FROM conversations WHERE id = ?`, id).
		Scan(&c.ID, &c.Text, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Conversation{}, ErrNotFound
	}
	if err != nil {
		return Conversation{}, fmt.Errorf("reading conversation %d: %w", id, err)
	}
	c.CreatedAt, err = time.Parse(time.RFC3339, created)
	if err != nil {
		return Conversation{}, fmt.Errorf("parsing conversation %d timestamp: %w", id, err)
	}
	return c, nil
}

// AttachKeywords writes one recognized_keywords row per keyword, all in a
// single transaction. A conversationID of 0 stores standalone keyword rows
// with no conversation reference (the legacy recognition mode); any other id
// must reference an existing conversation or ErrNotFound is returned.
//
// Conversation creation and keyword attachment are deliberately separate
// transactions: a failed attach leaves the conversation row in place.
func (s *Store) AttachKeywords(conversationID int64, kws []keywords.Keyword) error {
	if len(kws) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var convRef any
	if conversationID != 0 {
		var exists int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM conversations WHERE id = ?`, conversationID).Scan(&exists); err != nil {
			return fmt.Errorf("checking conversation %d: %w", conversationID, err)
		}
		if exists == 0 {
			return ErrNotFound
		}
		convRef = conversationID
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, kw := range kws {
		if _, err := tx.Exec(
			`INSERT INTO recognized_keywords (keyword, confidence, conversation_id, recognized_at) VALUES (?, ?, ?, ?)`,
			kw.Word, kw.Confidence, convRef, now,
		); err != nil {
			return fmt.Errorf("inserting keyword %q: %w", kw.Word, err)
		}
	}

	return tx.Commit()
}

// ListDistinctKeywords returns every distinct keyword text, most recently
// recognized first. Standalone (legacy) keyword rows count too.
func (s *Store) ListDistinctKeywords() ([]string, error) {
	rows, err := s.db.Query(`
		SELECT keyword FROM recognized_keywords
		GROUP BY keyword
		ORDER BY MAX(recognized_at) DESC, keyword ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying keywords: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var kw string
		if err := rows.Scan(&kw); err != nil {
			return nil, err
		}
		out = append(out, kw)
	}
	return out, rows.Err()
}

// SearchByKeyword returns conversations that have at least one attached
// keyword containing substr (case-insensitive infix match), newest first.
// The keyword list on each result carries only the matching keywords, not
// every attached one. Conversations without any keywords never match
// (inner-join semantics).
func (s *Store) SearchByKeyword(substr string) ([]ConversationLog, error) {
	rows, err := s.db.Query(`
		SELECT c.id, c.text, c.created_at, GROUP_CONCAT(rk.keyword)
		FROM conversations c
		JOIN recognized_keywords rk ON rk.conversation_id = c.id
		WHERE rk.keyword LIKE ?
		GROUP BY c.id, c.text, c.created_at
		ORDER BY c.created_at DESC, c.id DESC`,
		"%"+substr+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("searching conversations: %w", err)
	}
	defer rows.Close()

	return scanConversationLogs(rows)
}

// predicate is one composable WHERE condition with its bound arguments.
type predicate struct {
	expr string
	args []any
}

// FilterLogs returns conversations matching every provided filter, newest
// first, each with its aggregated keyword list. Without a keyword filter,
// conversations with zero keywords are included (outer-join semantics);
// with one, only conversations owning a matching keyword survive.
func (s *Store) FilterLogs(f LogFilter) ([]ConversationLog, error) {
	var preds []predicate
	if f.StartDate != "" {
		preds = append(preds, predicate{expr: "DATE(c.created_at) >= DATE(?)", args: []any{f.StartDate}})
	}
	if f.EndDate != "" {
		preds = append(preds, predicate{expr: "DATE(c.created_at) <= DATE(?)", args: []any{f.EndDate}})
	}
	if f.Keyword != "" {
		preds = append(preds, predicate{
			expr: `EXISTS (
				SELECT 1 FROM recognized_keywords k
				WHERE k.conversation_id = c.id AND k.keyword LIKE ?
			)`,
			args: []any{"%" + f.Keyword + "%"},
		})
	}

	query := `
		SELECT c.id, c.text, c.created_at, GROUP_CONCAT(rk.keyword)
		FROM conversations c
		LEFT JOIN recognized_keywords rk ON rk.conversation_id = c.id`

	var args []any
	if len(preds) > 0 {
		exprs := make([]string, len(preds))
		for i, p := range preds {
			exprs[i] = p.expr
			args = append(args, p.args...)
		}
		query += " WHERE " + strings.Join(exprs, " AND ")
	}
	query += `
		GROUP BY c.id, c.text, c.created_at
		ORDER BY c.created_at DESC, c.id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("filtering logs: %w", err)
	}
	defer rows.Close()

	return scanConversationLogs(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanConversationLogs(rows rowScanner) ([]ConversationLog, error) {
	var out []ConversationLog
	for rows.Next() {
		var (
			log       ConversationLog
			createdAt string
			concat    *string
		)
		if err := rows.Scan(&log.ID, &log.Text, &createdAt, &concat); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		log.CreatedAt = t
		if concat != nil && *concat != "" {
			log.Keywords = strings.Split(*concat, ",")
		} else {
			log.Keywords = []string{}
		}
		out = append(out, log)
	}
	return out, rows.Err()
}
