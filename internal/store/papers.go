package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ramavio/paperchat/internal/domain"
)

var (
	// ErrPaperAlreadySaved is returned when bookmarking a paper twice.
	ErrPaperAlreadySaved = errors.New("paper already bookmarked")

	// ErrPaperNotSaved is returned when removing a paper that is not saved.
	ErrPaperNotSaved = errors.New("paper not found in saved list")
)

// PaperStore persists per-user paper bookmarks.
type PaperStore struct {
	db *DB
}

// NewPaperStore creates a paper store using the given database.
func NewPaperStore(db *DB) *PaperStore {
	return &PaperStore{db: db}
}

// Save bookmarks a paper for a user.
func (s *PaperStore) Save(userID int64, code, title string) error {
	_, err := s.db.sql.Exec(
		`INSERT INTO saved_papers (user_id, eprint_code, title) VALUES (?, ?, ?)`,
		userID, code, title,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return ErrPaperAlreadySaved
		}
		return fmt.Errorf("saving paper: %w", err)
	}
	return nil
}

// Remove deletes a user's bookmark.
func (s *PaperStore) Remove(userID int64, code string) error {
	res, err := s.db.sql.Exec(
		`DELETE FROM saved_papers WHERE user_id = ? AND eprint_code = ?`,
		userID, code,
	)
	if err != nil {
		return fmt.Errorf("removing paper: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPaperNotSaved
	}
	return nil
}

// IsSaved reports whether the user has bookmarked the paper.
func (s *PaperStore) IsSaved(userID int64, code string) bool {
	var n int
	err := s.db.sql.QueryRow(
		`SELECT COUNT(*) FROM saved_papers WHERE user_id = ? AND eprint_code = ?`,
		userID, code,
	).Scan(&n)
	return err == nil && n > 0
}

// List returns a user's bookmarks.
func (s *PaperStore) List(userID int64) ([]domain.SavedPaper, error) {
	rows, err := s.db.sql.Query(
		`SELECT id, user_id, eprint_code, title FROM saved_papers WHERE user_id = ? ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing saved papers: %w", err)
	}
	defer rows.Close()

	var out []domain.SavedPaper
	for rows.Next() {
		var p domain.SavedPaper
		if err := rows.Scan(&p.ID, &p.UserID, &p.EprintCode, &p.Title); err != nil {
			continue
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
