// Copyright 2024-2026 Aiku AI

package adapter

import (
	"github.com/rs/zerolog"

	"github.com/aiku/simplepad-adapter/pkg/parser"
)

// Event is a normalized event delivered to the host.
type Event interface {
	EventType() string
}

// ScanEvent reports a fresh login QR code or a scan status change.
type ScanEvent struct {
	QRCode string
	Status int
}

// LoginEvent reports a session becoming active.
type LoginEvent struct {
	UserName string
	NickName string
}

// LogoutEvent reports the session ending. Reconnectable transport drops do
// not produce it; remote logout and explicit logout do.
type LogoutEvent struct {
	UserName string
	Reason   string
}

// ReadyEvent reports that the initial sync finished and the push channel is
// live.
type ReadyEvent struct{}

// MessageEvent reports a normal message by id. The full record is available
// from the adapter's message cache.
type MessageEvent struct {
	MessageID string
}

// FriendshipEvent wraps a classified friendship payload.
type FriendshipEvent struct {
	*parser.FriendshipPayload
}

// RoomInviteEvent wraps a classified room invitation.
type RoomInviteEvent struct {
	*parser.RoomInvitePayload
}

// RoomJoinEvent wraps a classified room join.
type RoomJoinEvent struct {
	*parser.RoomJoinPayload
}

// RoomLeaveEvent wraps a classified room leave. Roster-derived departures
// carry an empty RemoverID.
type RoomLeaveEvent struct {
	*parser.RoomLeavePayload
}

// RoomTopicEvent wraps a classified room rename.
type RoomTopicEvent struct {
	*parser.RoomTopicPayload
}

func (*ScanEvent) EventType() string       { return "scan" }
func (*LoginEvent) EventType() string      { return "login" }
func (*LogoutEvent) EventType() string     { return "logout" }
func (*ReadyEvent) EventType() string      { return "ready" }
func (*MessageEvent) EventType() string    { return "message" }
func (*FriendshipEvent) EventType() string { return "friendship" }
func (*RoomInviteEvent) EventType() string { return "room_invite" }
func (*RoomJoinEvent) EventType() string   { return "room_join" }
func (*RoomLeaveEvent) EventType() string  { return "room_leave" }
func (*RoomTopicEvent) EventType() string  { return "room_topic" }

// EventSink receives every event the adapter produces.
type EventSink interface {
	QueueEvent(evt Event)
}

// ChannelSink is the default EventSink: a buffered channel the host drains.
// Events are dropped with a warning when the host falls behind, slow hosts
// must size the buffer accordingly.
type ChannelSink struct {
	log zerolog.Logger
	ch  chan Event
}

// NewChannelSink creates a sink with the given buffer capacity.
func NewChannelSink(buffer int, log zerolog.Logger) *ChannelSink {
	return &ChannelSink{
		log: log.With().Str("component", "event_sink").Logger(),
		ch:  make(chan Event, buffer),
	}
}

// Events is the channel the host reads from.
func (s *ChannelSink) Events() <-chan Event {
	return s.ch
}

func (s *ChannelSink) QueueEvent(evt Event) {
	select {
	case s.ch <- evt:
	default:
		s.log.Warn().Str("event_type", evt.EventType()).Msg("Event buffer full, dropping event")
		eventsDropped.Inc()
	}
}

var _ EventSink = (*ChannelSink)(nil)
