// Package repository holds the durable backends behind session.PersistentStore.
//
// Every backend stores session.Record values keyed by token and never judges
// expiry; any TTL a backend applies only reclaims space after the session
// has already expired upstream.
package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/omarluq/authgate/internal/session"
)

// Repository is a closable session.Repository.
type Repository interface {
	session.Repository
	io.Closer
}

// ErrCorruptRecord is returned when a stored record cannot be decoded.
var ErrCorruptRecord = errors.New("repository: corrupt session record")

// retentionGrace is added to the session lifetime when a backend supports TTLs.
const retentionGrace = time.Hour

// retention returns the backend TTL for sessions lasting lifetime.
// Zero means keep until deleted.
func retention(lifetime time.Duration) time.Duration {
	if lifetime <= 0 {
		return 0
	}
	return lifetime + retentionGrace
}

func encodeRecord(rec session.Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode session record: %w", err)
	}
	return data, nil
}

func decodeRecord(data []byte) (session.Record, error) {
	var rec session.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return session.Record{}, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	if rec.Token == "" || rec.UserID == "" {
		return session.Record{}, ErrCorruptRecord
	}
	return rec, nil
}
