package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// PostgresStore persists sessions in the fsm_sessions table.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an open sqlx pool.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type sessionRow struct {
	UserID    int64     `db:"user_id"`
	ChatID    int64     `db:"chat_id"`
	State     string    `db:"state"`
	Flow      []byte    `db:"flow"`
	Prefs     []byte    `db:"prefs"`
	UpdatedAt time.Time `db:"updated_at"`
}

const (
	selectSessionSQL = `SELECT user_id, chat_id, state, flow, prefs, updated_at
		FROM fsm_sessions WHERE user_id = $1 AND chat_id = $2`
	upsertSessionSQL = `INSERT INTO fsm_sessions (user_id, chat_id, state, flow, prefs, updated_at)
		VALUES (:user_id, :chat_id, :state, :flow, :prefs, :updated_at)
		ON CONFLICT (user_id, chat_id) DO UPDATE
		SET state = EXCLUDED.state, flow = EXCLUDED.flow, prefs = EXCLUDED.prefs, updated_at = EXCLUDED.updated_at`
	deleteSessionSQL = `DELETE FROM fsm_sessions WHERE user_id = $1 AND chat_id = $2`
)

func (p *PostgresStore) Load(ctx context.Context, key Key) (*Session, error) {
	var row sessionRow
	if err := p.db.GetContext(ctx, &row, selectSessionSQL, key.UserID, key.ChatID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	s := NewSession()
	s.State = State(row.State)
	s.UpdatedAt = row.UpdatedAt
	if err := unmarshalMap(row.Flow, &s.Flow); err != nil {
		return nil, fmt.Errorf("decode session flow: %w", err)
	}
	if err := unmarshalMap(row.Prefs, &s.Prefs); err != nil {
		return nil, fmt.Errorf("decode session prefs: %w", err)
	}
	return s, nil
}

func (p *PostgresStore) Save(ctx context.Context, key Key, s *Session) error {
	flow, err := json.Marshal(nonNil(s.Flow))
	if err != nil {
		return err
	}
	prefs, err := json.Marshal(nonNil(s.Prefs))
	if err != nil {
		return err
	}
	row := sessionRow{
		UserID:    key.UserID,
		ChatID:    key.ChatID,
		State:     string(s.State),
		Flow:      flow,
		Prefs:     prefs,
		UpdatedAt: s.UpdatedAt,
	}
	if _, err := p.db.NamedExecContext(ctx, upsertSessionSQL, row); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, key Key) error {
	if _, err := p.db.ExecContext(ctx, deleteSessionSQL, key.UserID, key.ChatID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func unmarshalMap(raw []byte, dst *map[string]string) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return err
	}
	if *dst == nil {
		*dst = map[string]string{}
	}
	return nil
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
