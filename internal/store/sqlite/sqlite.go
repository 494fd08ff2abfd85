package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/wirecall/internal/domain"
	"github.com/vovakirdan/wirecall/internal/store"
)

// Schema creates the call tables when they do not exist.
const Schema = `
CREATE TABLE IF NOT EXISTS calls (
	room_id         INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id TEXT NOT NULL UNIQUE,
	call_type       INTEGER NOT NULL,
	caller_account  TEXT NOT NULL,
	status          TEXT NOT NULL,
	extend          TEXT,
	created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	ended_at        DATETIME
);

CREATE TABLE IF NOT EXISTS call_members (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id     INTEGER NOT NULL REFERENCES calls(room_id),
	account     TEXT NOT NULL,
	account_no  TEXT NOT NULL DEFAULT '',
	nickname    TEXT NOT NULL DEFAULT '',
	card        INTEGER NOT NULL DEFAULT 0,
	status      INTEGER NOT NULL,
	key_member  BOOLEAN NOT NULL DEFAULT 0,
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (room_id, account)
);

CREATE INDEX IF NOT EXISTS idx_call_members_room ON call_members(room_id);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// Migrate applies Schema.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, Migrate)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; an in-memory database
	// also lives only as long as its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== CallStore implementation ====

// CreateCall inserts a call and sets its RoomID.
func (s *SQLiteStore) CreateCall(ctx context.Context, call *store.Call) error {
	extend, err := encodeExtend(call.Extend)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO calls (conversation_id, call_type, caller_account, status, extend)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		call.ConversationID,
		int(call.CallType),
		call.CallerAccount,
		string(call.Status),
		extend,
	)
	if err != nil {
		return fmt.Errorf("insert call: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	call.RoomID = id
	return nil
}

// GetCall retrieves a call by room ID.
func (s *SQLiteStore) GetCall(ctx context.Context, roomID int64) (*store.Call, error) {
	query := `
		SELECT room_id, conversation_id, call_type, caller_account, status, extend, created_at, updated_at, ended_at
		FROM calls
		WHERE room_id = ?
	`
	var call store.Call
	var callType int
	var status string
	var extend sql.NullString
	var endedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, query, roomID).Scan(
		&call.RoomID,
		&call.ConversationID,
		&callType,
		&call.CallerAccount,
		&status,
		&extend,
		&call.CreatedAt,
		&call.UpdatedAt,
		&endedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("call %d: %w", roomID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query call: %w", err)
	}

	call.CallType = domain.CallType(callType)
	call.Status = store.CallStatus(status)
	if extend.Valid && extend.String != "" {
		if err := json.Unmarshal([]byte(extend.String), &call.Extend); err != nil {
			return nil, fmt.Errorf("decode extend: %w", err)
		}
	}
	if endedAt.Valid {
		call.EndedAt = &endedAt.Time
	}

	return &call, nil
}

// UpdateCall updates status, call type and end time of a call.
func (s *SQLiteStore) UpdateCall(ctx context.Context, call *store.Call) error {
	query := `
		UPDATE calls
		SET status = ?, call_type = ?, updated_at = CURRENT_TIMESTAMP, ended_at = ?
		WHERE room_id = ?
	`
	result, err := s.db.ExecContext(ctx, query,
		string(call.Status),
		int(call.CallType),
		call.EndedAt,
		call.RoomID,
	)
	if err != nil {
		return fmt.Errorf("update call: %w", err)
	}
	return expectRow(result, "call")
}

// ==== MemberStore implementation ====

// AddMember inserts a member, or refreshes it when the account is already
// in the room. A refreshed member keeps its position in the roster.
func (s *SQLiteStore) AddMember(ctx context.Context, m *store.CallMember) error {
	query := `
		INSERT INTO call_members (room_id, account, account_no, nickname, card, status, key_member)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (room_id, account) DO UPDATE SET
			account_no = excluded.account_no,
			nickname   = excluded.nickname,
			card       = excluded.card,
			status     = excluded.status,
			key_member = excluded.key_member,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := s.db.ExecContext(ctx, query,
		m.RoomID,
		m.Account,
		m.AccountNo,
		m.Nickname,
		int(m.Card),
		int(m.Status),
		m.KeyMember,
	)
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

// GetMember retrieves one member of a room.
func (s *SQLiteStore) GetMember(ctx context.Context, roomID int64, account string) (*store.CallMember, error) {
	query := `
		SELECT room_id, account, account_no, nickname, card, status, key_member, updated_at
		FROM call_members
		WHERE room_id = ? AND account = ?
	`
	m, err := scanMember(s.db.QueryRowContext(ctx, query, roomID, account))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("member %q of call %d: %w", account, roomID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query member: %w", err)
	}
	return m, nil
}

// ListMembers lists members of a room in join order, optionally filtered by status.
func (s *SQLiteStore) ListMembers(ctx context.Context, roomID int64, status *domain.MemberStatus) ([]*store.CallMember, error) {
	query := `
		SELECT room_id, account, account_no, nickname, card, status, key_member, updated_at
		FROM call_members
		WHERE room_id = ?
	`
	args := []any{roomID}
	if status != nil {
		query += " AND status = ?"
		args = append(args, int(*status))
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []*store.CallMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

// UpdateMemberStatus sets the status of a member.
func (s *SQLiteStore) UpdateMemberStatus(ctx context.Context, roomID int64, account string, status domain.MemberStatus) error {
	query := `
		UPDATE call_members
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE room_id = ? AND account = ?
	`
	result, err := s.db.ExecContext(ctx, query, int(status), roomID, account)
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	return expectRow(result, "member")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(row scanner) (*store.CallMember, error) {
	var m store.CallMember
	var card, status int
	if err := row.Scan(
		&m.RoomID,
		&m.Account,
		&m.AccountNo,
		&m.Nickname,
		&card,
		&status,
		&m.KeyMember,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	m.Card = domain.UserCard(card)
	m.Status = domain.MemberStatus(status)
	return &m, nil
}

func encodeExtend(e domain.Extend) (any, error) {
	if len(e) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode extend: %w", err)
	}
	return string(b), nil
}

func expectRow(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return nil
}

// Ensure SQLiteStore implements store.Store
var _ store.Store = (*SQLiteStore)(nil)
