// Copyright 2024-2026 Aiku AI

package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/aiku/simplepad-adapter/pkg/parser"
	"github.com/aiku/simplepad-adapter/pkg/simplepad"
	"github.com/aiku/simplepad-adapter/pkg/wecache"
)

// handleFrame dispatches one push frame. Called from the read loop, so
// frames are processed strictly in arrival order.
func (a *Adapter) handleFrame(data []byte) {
	var envelope simplepad.PushEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		a.log.Warn().Err(err).Msg("Undecodable push frame")
		return
	}
	reportType, err := envelope.ReportType()
	if err != nil {
		a.log.Warn().Err(err).Msg("Push frame without report type")
		return
	}
	framesHandled.WithLabelValues(strconv.Itoa(reportType)).Inc()

	ctx := context.Background()
	switch reportType {
	case simplepad.ReportMessage:
		var msg simplepad.Message
		if err := json.Unmarshal(envelope.Data, &msg); err != nil {
			a.log.Warn().Err(err).Msg("Undecodable message report")
			return
		}
		a.handleMessage(ctx, &msg)
	case simplepad.ReportChatroomNotify:
		var notify simplepad.ChatroomNotify
		if err := json.Unmarshal(envelope.Data, &notify); err != nil {
			a.log.Warn().Err(err).Msg("Undecodable chatroom notify")
			return
		}
		a.handleChatroomNotify(ctx, &notify)
	default:
		a.log.Debug().Int("report_type", reportType).Msg("Ignoring unknown report type")
	}
}

// handleMessage classifies one inbound message and emits it exactly once.
// The backend re-delivers messages across reconnects, so a message id that
// is already cached is dropped.
func (a *Adapter) handleMessage(ctx context.Context, msg *simplepad.Message) {
	id := msg.NewMsgID.String()
	if id == "" {
		a.log.Warn().Msg("Message without id, dropping")
		return
	}
	if a.cache.HasMessage(id) {
		duplicatesSuppressed.Inc()
		a.log.Debug().Str("message_id", id).Msg("Duplicate message suppressed")
		return
	}
	if err := a.cache.SetMessage(id, msg); err != nil {
		a.log.Warn().Err(err).Str("message_id", id).Msg("Failed to cache message")
	}

	parsed := a.pipeline.Classify(ctx, msg)
	a.log.Debug().
		Str("message_id", id).
		Str("category", parsed.Category.String()).
		Msg("Message classified")

	switch parsed.Category {
	case parser.CategoryFriendship:
		payload := parsed.Payload.(*parser.FriendshipPayload)
		if err := a.cache.SetFriendshipPayload(payload.ID, payload); err != nil {
			a.log.Warn().Err(err).Msg("Failed to store friendship payload")
		}
		a.emit(parsed.Category, &FriendshipEvent{payload})
	case parser.CategoryRoomInvite:
		payload := parsed.Payload.(*parser.RoomInvitePayload)
		if err := a.cache.SetRoomInvitationPayload(payload.ID, payload); err != nil {
			a.log.Warn().Err(err).Msg("Failed to store room invitation")
		}
		a.emit(parsed.Category, &RoomInviteEvent{payload})
	case parser.CategoryRoomJoin:
		a.emit(parsed.Category, &RoomJoinEvent{parsed.Payload.(*parser.RoomJoinPayload)})
	case parser.CategoryRoomLeave:
		payload := parsed.Payload.(*parser.RoomLeavePayload)
		a.dropRoomMembers(payload.RoomID, payload.RemoveeIDs)
		a.emit(parsed.Category, &RoomLeaveEvent{payload})
	case parser.CategoryRoomTopic:
		payload := parsed.Payload.(*parser.RoomTopicPayload)
		a.applyRoomTopic(payload.RoomID, payload.NewTopic)
		a.emit(parsed.Category, &RoomTopicEvent{payload})
	default:
		a.emit(parsed.Category, &MessageEvent{MessageID: id})
	}
}

// dropRoomMembers removes departed members from the cached roster ahead of
// the roster notify.
func (a *Adapter) dropRoomMembers(roomID string, memberIDs []string) {
	members, err := a.cache.RoomMembers(roomID)
	if err != nil {
		return
	}
	for _, id := range memberIDs {
		delete(members, id)
	}
	if err := a.cache.SetRoomMembers(roomID, members); err != nil {
		a.log.Warn().Err(err).Str("room_id", roomID).Msg("Failed to shrink roster")
	}
}

// applyRoomTopic updates the cached room record with the new topic.
func (a *Adapter) applyRoomTopic(roomID, topic string) {
	room, err := a.cache.Room(roomID)
	if err != nil {
		return
	}
	room.NickName = topic
	if err := a.cache.SetRoom(room); err != nil {
		a.log.Warn().Err(err).Str("room_id", roomID).Msg("Failed to update room topic")
	}
}

// handleChatroomNotify refreshes the room record and reconciles the cached
// roster against the member summary carried by the notify. A summary that
// is not smaller than the cached roster means growth or in-place change, so
// the full detail is fetched and merged; a smaller one means departures, so
// the cached roster is shrunk to the incoming ids without a fetch.
func (a *Adapter) handleChatroomNotify(ctx context.Context, notify *simplepad.ChatroomNotify) {
	roomID := notify.UserName
	if !simplepad.IsRoomID(roomID) && !simplepad.IsIMRoomID(roomID) {
		return
	}

	room := notifyToRoom(notify)
	if err := a.cache.SetRoom(room); err != nil {
		a.log.Warn().Err(err).Str("room_id", roomID).Msg("Failed to update room record")
	}

	cached, err := a.cache.RoomMembers(roomID)
	if err != nil && !errors.Is(err, wecache.ErrNotFound) {
		a.log.Warn().Err(err).Str("room_id", roomID).Msg("Failed to load cached roster")
		return
	}

	if len(notify.ChatroomMembers) >= len(cached) {
		a.growRoster(ctx, notify, len(cached))
		return
	}
	a.shrinkRoster(notify, cached)
}

func (a *Adapter) growRoster(ctx context.Context, notify *simplepad.ChatroomNotify, cachedCount int) {
	roomID := notify.UserName
	detail, err := a.client.GetChatroomMemberDetail(ctx, roomID, 0)
	if err != nil {
		a.log.Warn().Err(err).Str("room_id", roomID).Msg("Roster detail fetch failed")
		return
	}
	merged, err := a.cache.MergeRoomMembers(roomID, detail.MemberList)
	if err != nil {
		a.log.Warn().Err(err).Str("room_id", roomID).Msg("Roster merge failed")
		return
	}
	a.log.Debug().
		Str("room_id", roomID).
		Int("cached", cachedCount).
		Int("merged", len(merged)).
		Msg("Roster reconciled")

	// Members the account has no direct relationship with still need
	// contact records for sender resolution.
	for i := range detail.MemberList {
		member := &detail.MemberList[i]
		if a.cache.HasContact(member.UserName) {
			continue
		}
		if err := a.cache.SetContact(memberToShadowContact(member)); err != nil {
			a.log.Warn().Err(err).Str("contact_id", member.UserName).Msg("Failed to store shadow contact")
		}
	}
}

func (a *Adapter) shrinkRoster(notify *simplepad.ChatroomNotify, cached map[string]simplepad.ChatroomMember) {
	roomID := notify.UserName
	incoming := make([]string, len(notify.ChatroomMembers))
	incomingSet := make(map[string]struct{}, len(notify.ChatroomMembers))
	for i, member := range notify.ChatroomMembers {
		incoming[i] = member.UserName
		incomingSet[member.UserName] = struct{}{}
	}

	kept, err := a.cache.RetainRoomMembers(roomID, incoming)
	if err != nil {
		a.log.Warn().Err(err).Str("room_id", roomID).Msg("Roster shrink failed")
		return
	}
	a.log.Debug().
		Str("room_id", roomID).
		Int("cached", len(cached)).
		Int("kept", len(kept)).
		Msg("Roster shrunk")

	// Departures already announced by a removal notice are debounced, the
	// rest are emitted as roster-derived leaves with no known remover.
	var departed []string
	for id := range cached {
		if _, ok := incomingSet[id]; ok {
			continue
		}
		if a.pipeline.IsRoomLeaveDebouncing(roomID, id) {
			continue
		}
		departed = append(departed, id)
	}
	if len(departed) > 0 {
		a.emit(parser.CategoryRoomLeave, &RoomLeaveEvent{&parser.RoomLeavePayload{
			RoomID:     roomID,
			RemoveeIDs: departed,
			Timestamp:  time.Now(),
		}})
	}
}

// notifyToRoom converts a chatroom notify into a room record.
func notifyToRoom(notify *simplepad.ChatroomNotify) *simplepad.Contact {
	return &simplepad.Contact{
		UserName:            notify.UserName,
		NickName:            notify.NickName,
		Alias:               notify.Alias,
		Remark:              notify.RemarkName,
		BigHeadImgURL:       notify.BigHeadImgURL,
		SmallHeadImgURL:     notify.SmallHeadImgURL,
		Sex:                 notify.Sex,
		Country:             notify.Country,
		Province:            notify.Province,
		City:                notify.City,
		ChatroomOwner:       notify.ChatroomOwner,
		ChatroomVersion:     notify.ChatroomVersion,
		ChatroomInfoVersion: notify.ChatroomInfoVersion,
		ChatroomMemberCount: notify.ChatroomMemberCount,
	}
}

// memberToShadowContact materializes a minimal contact record from a roster
// member.
func memberToShadowContact(member *simplepad.ChatroomMember) *simplepad.Contact {
	return &simplepad.Contact{
		UserName:         member.UserName,
		NickName:         member.NickName,
		BigHeadImgURL:    member.BigHeadImgURL,
		SmallHeadImgURL:  member.SmallHeadImgURL,
		IsChatroomMember: true,
	}
}
