// Copyright 2024-2026 Aiku AI

package wecache

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aiku/simplepad-adapter/pkg/simplepad"
)

// Ephemeral tier bounds. Message records and lookups older than an hour are
// re-fetched from the backend rather than served stale.
const (
	EphemeralCapacity = 1000
	EphemeralMaxAge   = time.Hour
)

// Manager is the account-scoped cache. Durable identity data (contacts,
// rooms, rosters, friendship and invitation payloads) lives in a pebble
// database under the account's data directory; message-scoped data lives in
// bounded in-memory tiers and the label list is plain process memory.
type Manager struct {
	log     zerolog.Logger
	dataDir string

	mu        sync.RWMutex
	accountID string
	store     *store

	messages    *Ephemeral[*simplepad.Message]
	revokeInfos *Ephemeral[*simplepad.MessageRevokeInfo]
	searches    *Ephemeral[*simplepad.SearchContact]

	labels       []simplepad.Label
	labelsLoaded bool
}

// NewManager creates an unopened cache manager rooted at dataDir.
func NewManager(dataDir string, log zerolog.Logger) *Manager {
	return &Manager{
		log:     log.With().Str("component", "cache").Logger(),
		dataDir: dataDir,
	}
}

// Open binds the manager to an account and opens its persistent store.
// Calling Open on an already-open manager returns ErrAlreadyOpen; callers
// must Close first when switching accounts.
func (m *Manager) Open(accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store != nil {
		return ErrAlreadyOpen
	}
	st, err := openStore(filepath.Join(m.dataDir, accountID), m.log)
	if err != nil {
		return err
	}
	m.accountID = accountID
	m.store = st
	m.messages = NewEphemeral[*simplepad.Message](EphemeralCapacity, EphemeralMaxAge)
	m.revokeInfos = NewEphemeral[*simplepad.MessageRevokeInfo](EphemeralCapacity, EphemeralMaxAge)
	m.searches = NewEphemeral[*simplepad.SearchContact](EphemeralCapacity, EphemeralMaxAge)
	m.labels = nil
	m.labelsLoaded = false
	m.log.Info().Str("account_id", accountID).Msg("Cache opened")
	return nil
}

// Close releases the persistent store and drops the in-memory tiers. The
// on-disk data survives for the next session of the same account.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store == nil {
		return nil
	}
	err := m.store.close()
	m.store = nil
	m.accountID = ""
	m.messages = nil
	m.revokeInfos = nil
	m.searches = nil
	m.labels = nil
	m.labelsLoaded = false
	m.log.Info().Msg("Cache closed")
	return err
}

// IsOpen reports whether the manager is bound to an account.
func (m *Manager) IsOpen() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store != nil
}

func (m *Manager) open() (*store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.store == nil {
		return nil, ErrClosed
	}
	return m.store, nil
}

// ---- contacts ----

func (m *Manager) Contact(id string) (*simplepad.Contact, error) {
	st, err := m.open()
	if err != nil {
		return nil, err
	}
	var contact simplepad.Contact
	if err := st.get(kindContact, id, &contact); err != nil {
		return nil, err
	}
	return &contact, nil
}

func (m *Manager) SetContact(contact *simplepad.Contact) error {
	st, err := m.open()
	if err != nil {
		return err
	}
	return st.put(kindContact, contact.UserName, contact)
}

func (m *Manager) DeleteContact(id string) error {
	st, err := m.open()
	if err != nil {
		return err
	}
	return st.delete(kindContact, id)
}

func (m *Manager) HasContact(id string) bool {
	st, err := m.open()
	if err != nil {
		return false
	}
	return st.has(kindContact, id)
}

func (m *Manager) AllContacts() ([]*simplepad.Contact, error) {
	st, err := m.open()
	if err != nil {
		return nil, err
	}
	var out []*simplepad.Contact
	err = st.list(kindContact, func(id string, data []byte) error {
		var contact simplepad.Contact
		if err := json.Unmarshal(data, &contact); err != nil {
			return fmt.Errorf("failed to decode contact %s: %w", id, err)
		}
		out = append(out, &contact)
		return nil
	})
	return out, err
}

func (m *Manager) ContactCount() (int, error) {
	st, err := m.open()
	if err != nil {
		return 0, err
	}
	return st.count(kindContact)
}

// ---- rooms ----

// Rooms reuse the contact record shape, keyed separately so room and contact
// listings never mix.

func (m *Manager) Room(id string) (*simplepad.Contact, error) {
	st, err := m.open()
	if err != nil {
		return nil, err
	}
	var room simplepad.Contact
	if err := st.get(kindRoom, id, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (m *Manager) SetRoom(room *simplepad.Contact) error {
	st, err := m.open()
	if err != nil {
		return err
	}
	return st.put(kindRoom, room.UserName, room)
}

func (m *Manager) DeleteRoom(id string) error {
	st, err := m.open()
	if err != nil {
		return err
	}
	if err := st.delete(kindRoom, id); err != nil {
		return err
	}
	return st.delete(kindRoomMembers, id)
}

func (m *Manager) HasRoom(id string) bool {
	st, err := m.open()
	if err != nil {
		return false
	}
	return st.has(kindRoom, id)
}

func (m *Manager) AllRooms() ([]*simplepad.Contact, error) {
	st, err := m.open()
	if err != nil {
		return nil, err
	}
	var out []*simplepad.Contact
	err = st.list(kindRoom, func(id string, data []byte) error {
		var room simplepad.Contact
		if err := json.Unmarshal(data, &room); err != nil {
			return fmt.Errorf("failed to decode room %s: %w", id, err)
		}
		out = append(out, &room)
		return nil
	})
	return out, err
}

// ---- room rosters ----

// RoomMembers returns the cached roster of a room keyed by member id.
func (m *Manager) RoomMembers(roomID string) (map[string]simplepad.ChatroomMember, error) {
	st, err := m.open()
	if err != nil {
		return nil, err
	}
	members := make(map[string]simplepad.ChatroomMember)
	if err := st.get(kindRoomMembers, roomID, &members); err != nil {
		return nil, err
	}
	return members, nil
}

func (m *Manager) SetRoomMembers(roomID string, members map[string]simplepad.ChatroomMember) error {
	st, err := m.open()
	if err != nil {
		return err
	}
	return st.put(kindRoomMembers, roomID, members)
}

func (m *Manager) DeleteRoomMembers(roomID string) error {
	st, err := m.open()
	if err != nil {
		return err
	}
	return st.delete(kindRoomMembers, roomID)
}

// MergeRoomMembers folds freshly fetched member records into the cached
// roster, overwriting by member id, and returns the merged roster. Used when
// the roster grew or changed in place.
func (m *Manager) MergeRoomMembers(roomID string, incoming []simplepad.ChatroomMember) (map[string]simplepad.ChatroomMember, error) {
	members, err := m.RoomMembers(roomID)
	if errors.Is(err, ErrNotFound) {
		members = make(map[string]simplepad.ChatroomMember)
	} else if err != nil {
		return nil, err
	}
	for _, member := range incoming {
		members[member.UserName] = member
	}
	if err := m.SetRoomMembers(roomID, members); err != nil {
		return nil, err
	}
	return members, nil
}

// RetainRoomMembers shrinks the cached roster to the given member ids and
// returns the result. Cached detail for surviving members is kept; ids that
// were never cached simply stay absent until the next full fetch.
func (m *Manager) RetainRoomMembers(roomID string, keep []string) (map[string]simplepad.ChatroomMember, error) {
	members, err := m.RoomMembers(roomID)
	if errors.Is(err, ErrNotFound) {
		members = make(map[string]simplepad.ChatroomMember)
	} else if err != nil {
		return nil, err
	}
	kept := make(map[string]simplepad.ChatroomMember, len(keep))
	for _, id := range keep {
		if member, ok := members[id]; ok {
			kept[id] = member
		}
	}
	if err := m.SetRoomMembers(roomID, kept); err != nil {
		return nil, err
	}
	return kept, nil
}

// ---- messages (ephemeral) ----

func (m *Manager) Message(id string) (*simplepad.Message, error) {
	m.mu.RLock()
	tier := m.messages
	m.mu.RUnlock()
	if tier == nil {
		return nil, ErrClosed
	}
	msg, ok := tier.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: message %s", ErrNotFound, id)
	}
	return msg, nil
}

func (m *Manager) SetMessage(id string, msg *simplepad.Message) error {
	m.mu.RLock()
	tier := m.messages
	m.mu.RUnlock()
	if tier == nil {
		return ErrClosed
	}
	tier.Set(id, msg)
	return nil
}

func (m *Manager) HasMessage(id string) bool {
	m.mu.RLock()
	tier := m.messages
	m.mu.RUnlock()
	return tier != nil && tier.Has(id)
}

func (m *Manager) MessageRevokeInfo(id string) (*simplepad.MessageRevokeInfo, error) {
	m.mu.RLock()
	tier := m.revokeInfos
	m.mu.RUnlock()
	if tier == nil {
		return nil, ErrClosed
	}
	info, ok := tier.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: revoke info %s", ErrNotFound, id)
	}
	return info, nil
}

func (m *Manager) SetMessageRevokeInfo(id string, info *simplepad.MessageRevokeInfo) error {
	m.mu.RLock()
	tier := m.revokeInfos
	m.mu.RUnlock()
	if tier == nil {
		return ErrClosed
	}
	tier.Set(id, info)
	return nil
}

func (m *Manager) ContactSearch(query string) (*simplepad.SearchContact, error) {
	m.mu.RLock()
	tier := m.searches
	m.mu.RUnlock()
	if tier == nil {
		return nil, ErrClosed
	}
	result, ok := tier.Get(query)
	if !ok {
		return nil, fmt.Errorf("%w: contact search %s", ErrNotFound, query)
	}
	return result, nil
}

func (m *Manager) SetContactSearch(query string, result *simplepad.SearchContact) error {
	m.mu.RLock()
	tier := m.searches
	m.mu.RUnlock()
	if tier == nil {
		return ErrClosed
	}
	tier.Set(query, result)
	return nil
}

// ---- raw event payloads ----

// FriendshipPayload loads the stored friendship payload for a message id
// into out. Misses return ErrNotFound so callers can distinguish "never
// seen" from decode failures.
func (m *Manager) FriendshipPayload(messageID string, out any) error {
	st, err := m.open()
	if err != nil {
		return err
	}
	return st.get(kindFriendship, messageID, out)
}

func (m *Manager) SetFriendshipPayload(messageID string, payload any) error {
	st, err := m.open()
	if err != nil {
		return err
	}
	return st.put(kindFriendship, messageID, payload)
}

func (m *Manager) RoomInvitationPayload(messageID string, out any) error {
	st, err := m.open()
	if err != nil {
		return err
	}
	return st.get(kindRoomInvitation, messageID, out)
}

func (m *Manager) SetRoomInvitationPayload(messageID string, payload any) error {
	st, err := m.open()
	if err != nil {
		return err
	}
	return st.put(kindRoomInvitation, messageID, payload)
}

func (m *Manager) DeleteRoomInvitationPayload(messageID string) error {
	st, err := m.open()
	if err != nil {
		return err
	}
	return st.delete(kindRoomInvitation, messageID)
}

// ---- labels ----

// Labels returns the cached global label list. The second return is false
// when the list has not been loaded (or was invalidated) and must be
// re-fetched from the backend.
func (m *Manager) Labels() ([]simplepad.Label, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.labelsLoaded {
		return nil, false
	}
	cp := make([]simplepad.Label, len(m.labels))
	copy(cp, m.labels)
	return cp, true
}

func (m *Manager) SetLabels(labels []simplepad.Label) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.labels = append([]simplepad.Label(nil), labels...)
	m.labelsLoaded = true
}

// InvalidateLabels drops the label list. Label mutations invalidate
// wholesale instead of patching, the next read reloads from the backend.
func (m *Manager) InvalidateLabels() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.labels = nil
	m.labelsLoaded = false
}
