package history

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Damdev80/chat-for-company-sub002/internal/chat"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// State keys persisted between runs. The credential token and the
// selected channel are the only durable local state; the message cache
// is an advisory copy for instant paint before the first fetch.
const (
	keyToken   = "credential"
	keyChannel = "selected_channel"
)

// maxCachedPerGroup bounds the advisory message cache.
const maxCachedPerGroup = 200

const timeFmt = time.RFC3339Nano

type Store struct {
	db *sql.DB
}

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, f := range files {
		var applied int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", f).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", f, err)
		}
		if applied > 0 {
			continue
		}
		content, err := migrationsFS.ReadFile("migrations/" + f)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for %s: %w", f, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", f, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", f); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", f, err)
		}
	}
	return nil
}

func (s *Store) setState(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO app_state (key, value, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	return err
}

func (s *Store) state(key string) (string, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM app_state WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return v, err
}

func (s *Store) SaveToken(token string) error {
	return s.setState(keyToken, token)
}

func (s *Store) Token() (string, error) {
	return s.state(keyToken)
}

func (s *Store) SaveSelectedChannel(channelID string) error {
	return s.setState(keyChannel, channelID)
}

func (s *Store) SelectedChannel() (string, error) {
	return s.state(keyChannel)
}

// CacheMessages upserts confirmed messages and prunes each group to the
// most recent maxCachedPerGroup entries. Provisional entries are never
// cached; an unconfirmed send must not resurrect as a phantom message.
func (s *Store) CacheMessages(msgs []chat.Message) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	groups := make(map[string]bool)
	for _, m := range msgs {
		if m.Lifecycle != chat.Confirmed {
			continue
		}
		attachments := ""
		if len(m.Attachments) > 0 {
			if data, err := json.Marshal(m.Attachments); err == nil {
				attachments = string(data)
			}
		}
		if _, err := tx.Exec(`INSERT INTO message_cache (id, group_id, sender_name, content, created_at, attachments)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`,
			m.ID, m.ChannelID, m.SenderName, m.Content, m.CreatedAt.UTC().Format(timeFmt), attachments); err != nil {
			tx.Rollback()
			return fmt.Errorf("cache message: %w", err)
		}
		groups[m.ChannelID] = true
	}
	for g := range groups {
		if _, err := tx.Exec(`DELETE FROM message_cache WHERE group_id = ? AND id NOT IN (
			SELECT id FROM message_cache WHERE group_id = ? ORDER BY created_at DESC LIMIT ?
		)`, g, g, maxCachedPerGroup); err != nil {
			tx.Rollback()
			return fmt.Errorf("prune cache: %w", err)
		}
	}
	return tx.Commit()
}

// CachedMessages returns the cached confirmed messages for a group,
// oldest first.
func (s *Store) CachedMessages(groupID string) ([]chat.Message, error) {
	rows, err := s.db.Query(`SELECT id, group_id, sender_name, content, created_at, attachments
		FROM message_cache WHERE group_id = ? ORDER BY created_at ASC`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []chat.Message
	for rows.Next() {
		var m chat.Message
		var created, attachments string
		if err := rows.Scan(&m.ID, &m.ChannelID, &m.SenderName, &m.Content, &created, &attachments); err != nil {
			continue
		}
		m.CreatedAt, _ = time.Parse(timeFmt, created)
		if attachments != "" {
			json.Unmarshal([]byte(attachments), &m.Attachments)
		}
		m.Lifecycle = chat.Confirmed
		out = append(out, m)
	}
	return out, rows.Err()
}
