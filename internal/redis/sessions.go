package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/homestash/homestash-server/internal/errors"
	"github.com/homestash/homestash-server/internal/model"
)

const sessionKeyPrefix = "pairing:"

func sessionKey(accountID string) string {
	return sessionKeyPrefix + accountID
}

// SessionStore keeps pairing sessions in redis, one key per account,
// expiring after the configured TTL so an abandoned half-scan does not
// linger. Saves are guarded by optimistic concurrency: the stored
// session carries a version and a save against a different version
// fails with STALE_SESSION instead of silently overwriting.
type SessionStore struct {
	client *Client
	ttl    time.Duration
}

func NewSessionStore(client *Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// Get returns the current session, or nil when none is in progress.
func (s *SessionStore) Get(ctx context.Context, accountID string) (*model.PairingSession, error) {
	raw, err := s.client.Get(ctx, sessionKey(accountID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pairing session: %w", err)
	}

	var session model.PairingSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode pairing session: %w", err)
	}
	return &session, nil
}

// Save persists the session if its version still matches what is
// stored (version 0 means the caller saw no session). The stored
// version is bumped and the TTL restarted on every successful save.
func (s *SessionStore) Save(ctx context.Context, accountID string, session *model.PairingSession) error {
	key := sessionKey(accountID)

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			if session.Version != 0 {
				return apperrors.StaleSession()
			}
		case err != nil:
			return fmt.Errorf("get pairing session: %w", err)
		default:
			var current model.PairingSession
			if err := json.Unmarshal(raw, &current); err != nil {
				return fmt.Errorf("decode pairing session: %w", err)
			}
			if current.Version != session.Version {
				return apperrors.StaleSession()
			}
		}

		next := *session
		next.Version++
		data, err := json.Marshal(&next)
		if err != nil {
			return fmt.Errorf("encode pairing session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}

	err := s.client.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) {
		// Key changed between WATCH and EXEC: a concurrent scan won.
		return apperrors.StaleSession()
	}
	return err
}

// ClearIfVersion removes the session only while its stored version
// still matches. A missing key counts as already cleared; a version
// mismatch or a lost WATCH race fails with STALE_SESSION. Commits use
// this instead of Delete so a concurrent scan's update is never
// silently discarded.
func (s *SessionStore) ClearIfVersion(ctx context.Context, accountID string, version int64) error {
	key := sessionKey(accountID)

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get pairing session: %w", err)
		}

		var current model.PairingSession
		if err := json.Unmarshal(raw, &current); err != nil {
			return fmt.Errorf("decode pairing session: %w", err)
		}
		if current.Version != version {
			return apperrors.StaleSession()
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}

	err := s.client.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) {
		return apperrors.StaleSession()
	}
	return err
}

// Delete removes the session unconditionally; deleting a missing
// session is fine. This backs the explicit cancel.
func (s *SessionStore) Delete(ctx context.Context, accountID string) error {
	return s.client.Del(ctx, sessionKey(accountID)).Err()
}
