// Copyright 2024-2026 Aiku AI

package parser

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aiku/simplepad-adapter/pkg/simplepad"
)

// Category is the outcome of message classification.
type Category int

const (
	CategoryNormalMessage Category = iota
	CategoryFriendship
	CategoryRoomInvite
	CategoryRoomJoin
	CategoryRoomLeave
	CategoryRoomTopic
)

func (c Category) String() string {
	switch c {
	case CategoryNormalMessage:
		return "normal_message"
	case CategoryFriendship:
		return "friendship"
	case CategoryRoomInvite:
		return "room_invite"
	case CategoryRoomJoin:
		return "room_join"
	case CategoryRoomLeave:
		return "room_leave"
	case CategoryRoomTopic:
		return "room_topic"
	default:
		return "unknown"
	}
}

// FriendshipType distinguishes the three friendship message shapes.
type FriendshipType int

const (
	FriendshipConfirm FriendshipType = iota
	FriendshipVerify
	FriendshipReceive
)

// FriendshipPayload is a classified friendship message.
type FriendshipPayload struct {
	Type      FriendshipType
	ID        string
	ContactID string
	Timestamp time.Time

	// Receive-only fields.
	Hello              string
	Scene              int
	Stranger           string
	VerifyXML          string
	SourceNickName     string
	SourceContactID    string
	ShareCardNickName  string
	ShareCardContactID string
}

// RoomInvitePayload is an invitation into a room the account has not joined.
type RoomInvitePayload struct {
	ID        string
	InviterID string
	ReceiverID string
	Topic     string
	Avatar    string
	InviteURL string
	Timestamp time.Time
}

// RoomJoinPayload reports members entering a room.
type RoomJoinPayload struct {
	RoomID     string
	InviteeIDs []string
	InviterID  string
	Timestamp  time.Time
}

// RoomLeavePayload reports members removed from a room.
type RoomLeavePayload struct {
	RoomID     string
	RemoveeIDs []string
	RemoverID  string
	Timestamp  time.Time
}

// RoomTopicPayload reports a room rename.
type RoomTopicPayload struct {
	RoomID    string
	ChangerID string
	OldTopic  string
	NewTopic  string
	Timestamp time.Time
}

// NormalMessagePayload carries only the message id; consumers load the
// cached record by id.
type NormalMessagePayload struct {
	MessageID string
}

// ParsedMessage is the classification result.
type ParsedMessage struct {
	Category Category
	Payload  any
}

// MemberResolver supplies the roster context classifiers need to turn
// display names and self references into contact ids.
type MemberResolver interface {
	// SelfID returns the account's own contact id within the room.
	SelfID(ctx context.Context, roomID string) (string, error)
	// FindMemberIDs returns the ids of room members whose display name
	// matches name.
	FindMemberIDs(ctx context.Context, roomID, name string) ([]string, error)
	// RoomTopic returns the currently known topic of the room.
	RoomTopic(ctx context.Context, roomID string) (string, error)
}

type classifierFunc func(ctx context.Context, msg *simplepad.Message) (any, error)

type classifier struct {
	category Category
	parse    classifierFunc
}

// Pipeline classifies raw messages into event categories. Classifiers run in
// fixed registration order and the first match wins; a classifier error is
// logged and treated as a non-match so classification is total.
type Pipeline struct {
	log          zerolog.Logger
	resolver     MemberResolver
	classifiers  []classifier
	leaveDebounce *leaveDebouncer
}

// NewPipeline creates a pipeline bound to a member resolver.
func NewPipeline(resolver MemberResolver, log zerolog.Logger) *Pipeline {
	p := &Pipeline{
		log:           log.With().Str("component", "message_parser").Logger(),
		resolver:      resolver,
		leaveDebounce: newLeaveDebouncer(roomLeaveDebounceWindow),
	}
	p.register(CategoryFriendship, p.parseFriendship)
	p.register(CategoryRoomInvite, p.parseRoomInvite)
	p.register(CategoryRoomJoin, p.parseRoomJoin)
	p.register(CategoryRoomLeave, p.parseRoomLeave)
	p.register(CategoryRoomTopic, p.parseRoomTopic)
	return p
}

func (p *Pipeline) register(category Category, parse classifierFunc) {
	p.classifiers = append(p.classifiers, classifier{category: category, parse: parse})
}

// Classify runs the classifier chain over a message. It never fails: when no
// classifier matches, the message is a normal message identified by id.
func (p *Pipeline) Classify(ctx context.Context, msg *simplepad.Message) ParsedMessage {
	for _, c := range p.classifiers {
		payload, err := c.parse(ctx, msg)
		if err != nil {
			p.log.Debug().Err(err).
				Str("category", c.category.String()).
				Str("message_id", msg.NewMsgID.String()).
				Msg("Classifier error, treating as non-match")
			continue
		}
		if payload != nil {
			return ParsedMessage{Category: c.category, Payload: payload}
		}
	}
	return ParsedMessage{
		Category: CategoryNormalMessage,
		Payload:  &NormalMessagePayload{MessageID: msg.NewMsgID.String()},
	}
}

// IsRoomLeaveDebouncing reports whether a leave event for this room member
// was classified within the debounce window. Roster reconciliation uses it
// to avoid emitting the same departure twice.
func (p *Pipeline) IsRoomLeaveDebouncing(roomID, memberID string) bool {
	return p.leaveDebounce.debouncing(roomID, memberID)
}

// roomLeaveDebounceWindow is how long a classified leave suppresses the
// equivalent roster-derived event.
const roomLeaveDebounceWindow = 2 * time.Second

// leaveDebouncer is a self-expiring registry of recent leave events keyed by
// room and member.
type leaveDebouncer struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string]time.Time
	now     func() time.Time
}

func newLeaveDebouncer(window time.Duration) *leaveDebouncer {
	return &leaveDebouncer{
		window:  window,
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func leaveDebounceKey(roomID, memberID string) string {
	return roomID + ":" + memberID
}

func (d *leaveDebouncer) mark(roomID, memberID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[leaveDebounceKey(roomID, memberID)] = d.now()
}

func (d *leaveDebouncer) debouncing(roomID, memberID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	for key, at := range d.entries {
		if now.Sub(at) > d.window {
			delete(d.entries, key)
		}
	}
	_, ok := d.entries[leaveDebounceKey(roomID, memberID)]
	return ok
}
