package session

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/nacl/secretbox"

	"cumeal/internal/adapters/storage"
	domain "cumeal/internal/domain/session"
)

// KeySize is the length of the token-encryption key.
const KeySize = 32

const nonceSize = 24

// timeLayout is fixed-width so created_at compares lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrDecrypt is returned when a stored credential cannot be opened with the key.
// Get reports it together with domain.ErrNotFound.
var ErrDecrypt = errors.New("session: stored credential failed to decrypt")

// SQLiteStore keeps sessions in sqlite. Backend tokens are sealed with
// nacl/secretbox and never stored in plaintext.
type SQLiteStore struct {
	db  storage.SQLDB
	key [KeySize]byte
	now func() time.Time
}

// NewSQLiteStore creates a session store.
// PRE: len(key) == KeySize
func NewSQLiteStore(db storage.SQLDB, key []byte) (*SQLiteStore, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("session key must be %d bytes, got %d", KeySize, len(key))
	}
	s := &SQLiteStore{db: db, now: time.Now}
	copy(s.key[:], key)
	return s, nil
}

// WithClock replaces the clock Get checks expiry against.
func (st *SQLiteStore) WithClock(now func() time.Time) *SQLiteStore {
	st.now = now
	return st
}

// Create inserts a new session.
// PRE: s.Token and s.AccessToken are non-empty
func (st *SQLiteStore) Create(ctx context.Context, s domain.Session) error {
	access, refresh, err := st.sealPair(s)
	if err != nil {
		return err
	}
	_, err = st.db.ExecContext(ctx,
		`INSERT INTO session (token, username, account_id, access_token_enc, refresh_token_enc, created_at, refreshed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.Token, s.Username, s.AccountID, access, refresh,
		s.CreatedAt.UTC().Format(timeLayout), s.RefreshedAt.UTC().Format(timeLayout))
	return err
}

// Get returns the live session for token.
// POST: expired sessions and sessions sealed under another key are deleted
// and reported as domain.ErrNotFound
func (st *SQLiteStore) Get(ctx context.Context, token string) (domain.Session, error) {
	var s domain.Session
	var access, refresh []byte
	var created, refreshed string
	err := st.db.QueryRowContext(ctx,
		`SELECT token, username, account_id, access_token_enc, refresh_token_enc, created_at, refreshed_at FROM session WHERE token = ?`,
		token).Scan(&s.Token, &s.Username, &s.AccountID, &access, &refresh, &created, &refreshed)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Session{}, err
	}
	s.CreatedAt, _ = time.Parse(timeLayout, created)
	s.RefreshedAt, _ = time.Parse(timeLayout, refreshed)

	if s.Expired(st.now()) {
		_ = st.Delete(ctx, token)
		return domain.Session{}, domain.ErrNotFound
	}

	if s.AccessToken, err = st.open(access); err == nil && len(refresh) > 0 {
		s.RefreshToken, err = st.open(refresh)
	}
	if err != nil {
		_ = st.Delete(ctx, token)
		return domain.Session{}, fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	}
	return s, nil
}

// Update stores rotated credentials for an existing session.
func (st *SQLiteStore) Update(ctx context.Context, s domain.Session) error {
	access, refresh, err := st.sealPair(s)
	if err != nil {
		return err
	}
	res, err := st.db.ExecContext(ctx,
		`UPDATE session SET access_token_enc = ?, refresh_token_enc = ?, refreshed_at = ? WHERE token = ?`,
		access, refresh, s.RefreshedAt.UTC().Format(timeLayout), s.Token)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a session. Deleting an unknown token is not an error.
func (st *SQLiteStore) Delete(ctx context.Context, token string) error {
	_, err := st.db.ExecContext(ctx, `DELETE FROM session WHERE token = ?`, token)
	return err
}

// DeleteExpired removes every session created more than domain.Lifetime before now.
func (st *SQLiteStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-domain.Lifetime).UTC().Format(timeLayout)
	res, err := st.db.ExecContext(ctx, `DELETE FROM session WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (st *SQLiteStore) sealPair(s domain.Session) ([]byte, []byte, error) {
	access, err := st.seal(s.AccessToken)
	if err != nil {
		return nil, nil, err
	}
	var refresh []byte
	if s.RefreshToken != "" {
		if refresh, err = st.seal(s.RefreshToken); err != nil {
			return nil, nil, err
		}
	}
	return access, refresh, nil
}

// seal returns nonce || secretbox(plaintext).
func (st *SQLiteStore) seal(plaintext string) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &st.key), nil
}

func (st *SQLiteStore) open(box []byte) (string, error) {
	if len(box) < nonceSize+secretbox.Overhead {
		return "", ErrDecrypt
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &st.key)
	if !ok {
		return "", ErrDecrypt
	}
	return string(plain), nil
}
