package chatstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"golang.org/x/text/language"
	_ "modernc.org/sqlite"

	"cadence/internal/config"
	"cadence/internal/quality"
)

// ErrNotConfigured reports a lookup for a chat that has no configuration row.
var ErrNotConfigured = errors.New("chat not configured")

const schema = `
CREATE TABLE IF NOT EXISTS chats (
    chat_id    INTEGER PRIMARY KEY,
    owner_id   INTEGER NOT NULL,
    lang       TEXT    NOT NULL DEFAULT 'en',
    quality    TEXT    NOT NULL DEFAULT 'medium',
    admin_only INTEGER NOT NULL DEFAULT 0
);
`

// Chat is one chat's stored configuration.
type Chat struct {
	ChatID    int64
	OwnerID   int64
	Language  string
	Quality   quality.Tier
	AdminOnly bool
}

// Stats aggregates configured chats by kind.
type Stats struct {
	Groups int
	Direct int
}

// Store manages chat configuration persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the chat database in the data directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.DataDir, "chats.db"))
}

// OpenPath opens the chat database at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get fetches a chat's configuration, or ErrNotConfigured when absent.
func (s *Store) Get(ctx context.Context, chatID int64) (*Chat, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT chat_id, owner_id, lang, quality, admin_only FROM chats WHERE chat_id = ?`,
		chatID,
	)
	chat, err := scanChat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chat %d: %w", chatID, ErrNotConfigured)
	}
	if err != nil {
		return nil, fmt.Errorf("get chat: %w", err)
	}
	return chat, nil
}

// Add inserts a configuration row for a new chat with the given owner and
// default language and quality. It reports false when the chat already has
// a row, leaving the existing configuration untouched.
func (s *Store) Add(ctx context.Context, chatID, ownerID int64) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO chats (chat_id, owner_id, lang, quality, admin_only)
         VALUES (?, ?, 'en', 'medium', 0)
         ON CONFLICT(chat_id) DO NOTHING`,
		chatID,
		ownerID,
	)
	if err != nil {
		return false, fmt.Errorf("add chat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Delete removes a chat's configuration row. Deleting an absent chat is a
// no-op.
func (s *Store) Delete(ctx context.Context, chatID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	return nil
}

// SetLanguage stores a normalized BCP 47 language tag for the chat. It
// reports false when the chat already uses that language.
func (s *Store) SetLanguage(ctx context.Context, chatID int64, lang string) (bool, error) {
	tag, err := language.Parse(lang)
	if err != nil {
		return false, fmt.Errorf("parse language %q: %w", lang, err)
	}
	normalized := tag.String()

	chat, err := s.Get(ctx, chatID)
	if err != nil {
		return false, err
	}
	if chat.Language == normalized {
		return false, nil
	}

	if _, err := s.db.ExecContext(
		ctx,
		`UPDATE chats SET lang = ? WHERE chat_id = ?`,
		normalized,
		chatID,
	); err != nil {
		return false, fmt.Errorf("set language: %w", err)
	}
	return true, nil
}

// SetQuality stores a chat's quality preference. It reports false when the
// chat already uses that tier.
func (s *Store) SetQuality(ctx context.Context, chatID int64, tier quality.Tier) (bool, error) {
	if _, _, err := quality.Profiles(tier); err != nil {
		return false, err
	}

	chat, err := s.Get(ctx, chatID)
	if err != nil {
		return false, err
	}
	if chat.Quality == tier {
		return false, nil
	}

	if _, err := s.db.ExecContext(
		ctx,
		`UPDATE chats SET quality = ? WHERE chat_id = ?`,
		string(tier),
		chatID,
	); err != nil {
		return false, fmt.Errorf("set quality: %w", err)
	}
	return true, nil
}

// SetAdminOnly stores the admin-only flag. It reports false when the flag
// already has the requested value.
func (s *Store) SetAdminOnly(ctx context.Context, chatID int64, adminOnly bool) (bool, error) {
	chat, err := s.Get(ctx, chatID)
	if err != nil {
		return false, err
	}
	if chat.AdminOnly == adminOnly {
		return false, nil
	}

	value := 0
	if adminOnly {
		value = 1
	}
	if _, err := s.db.ExecContext(
		ctx,
		`UPDATE chats SET admin_only = ? WHERE chat_id = ?`,
		value,
		chatID,
	); err != nil {
		return false, fmt.Errorf("set admin only: %w", err)
	}
	return true, nil
}

// List returns every configured chat ordered by chat id.
func (s *Store) List(ctx context.Context) ([]Chat, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT chat_id, owner_id, lang, quality, admin_only FROM chats ORDER BY chat_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	var chats []Chat
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, *chat)
	}
	return chats, rows.Err()
}

// Stats counts configured chats split into groups and direct chats.
// Group chats carry negative ids.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT chat_id FROM chats`)
	if err != nil {
		return Stats{}, fmt.Errorf("chat stats: %w", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var chatID int64
		if err := rows.Scan(&chatID); err != nil {
			return Stats{}, err
		}
		if chatID < 0 {
			stats.Groups++
		} else {
			stats.Direct++
		}
	}
	return stats, rows.Err()
}

// Quality returns a chat's validated quality tier. A stored value outside
// the three known tiers surfaces quality.ErrInvalidQuality rather than
// being corrected.
func (s *Store) Quality(ctx context.Context, chatID int64) (quality.Tier, error) {
	chat, err := s.Get(ctx, chatID)
	if err != nil {
		return "", err
	}
	tier, err := quality.ParseTier(string(chat.Quality))
	if err != nil {
		return "", fmt.Errorf("chat %d: %w", chatID, err)
	}
	return tier, nil
}

func scanChat(scanner interface{ Scan(dest ...any) error }) (*Chat, error) {
	var (
		chatID    int64
		ownerID   int64
		lang      string
		tier      string
		adminOnly int64
	)
	if err := scanner.Scan(&chatID, &ownerID, &lang, &tier, &adminOnly); err != nil {
		return nil, err
	}
	return &Chat{
		ChatID:    chatID,
		OwnerID:   ownerID,
		Language:  lang,
		Quality:   quality.Tier(tier),
		AdminOnly: adminOnly != 0,
	}, nil
}
