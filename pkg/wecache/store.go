// Copyright 2024-2026 Aiku AI

package wecache

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/rs/zerolog"
)

// Entity kinds stored in the persistent tier. Keys are <kind>:<id>.
const (
	kindContact        = "contact"
	kindRoom           = "room"
	kindRoomMembers    = "room-members"
	kindFriendship     = "friendship"
	kindRoomInvitation = "room-invitation"
)

// store is the pebble-backed persistent tier. One database per account,
// JSON values under <kind>:<id> keys.
type store struct {
	db  *pebble.DB
	log zerolog.Logger
}

func openStore(path string, log zerolog.Logger) (*store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache db at %s: %w", path, err)
	}
	log.Debug().Str("path", path).Msg("Opened cache database")
	return &store{db: db, log: log}, nil
}

func (s *store) close() error {
	return s.db.Close()
}

func storeKey(kind, id string) []byte {
	return []byte(kind + ":" + id)
}

func (s *store) put(kind, id string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", kind, id, err)
	}
	return s.putRaw(kind, id, data)
}

func (s *store) putRaw(kind, id string, data []byte) error {
	if err := s.db.Set(storeKey(kind, id), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to store %s %s: %w", kind, id, err)
	}
	return nil
}

func (s *store) get(kind, id string, out any) error {
	data, err := s.getRaw(kind, id)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", kind, id, err)
	}
	return nil
}

func (s *store) getRaw(kind, id string) ([]byte, error) {
	data, closer, err := s.db.Get(storeKey(kind, id))
	if err == pebble.ErrNotFound {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s %s: %w", kind, id, err)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	if err = closer.Close(); err != nil {
		return nil, err
	}
	return cp, nil
}

func (s *store) delete(kind, id string) error {
	return s.db.Delete(storeKey(kind, id), pebble.Sync)
}

func (s *store) has(kind, id string) bool {
	_, closer, err := s.db.Get(storeKey(kind, id))
	if err != nil {
		return false
	}
	_ = closer.Close()
	return true
}

// list calls fn with the raw value of every entry of the given kind.
func (s *store) list(kind string, fn func(id string, data []byte) error) error {
	prefix := []byte(kind + ":")
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return err
	}
	defer iter.Close()
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		id := string(iter.Key()[len(prefix):])
		if err := fn(id, iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (s *store) count(kind string) (int, error) {
	n := 0
	err := s.list(kind, func(string, []byte) error {
		n++
		return nil
	})
	return n, err
}
