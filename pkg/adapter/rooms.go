// Copyright 2024-2026 Aiku AI

package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/aiku/simplepad-adapter/pkg/parser"
	"github.com/aiku/simplepad-adapter/pkg/simplepad"
	"github.com/aiku/simplepad-adapter/pkg/wecache"
)

// RoomList returns the ids of all known rooms.
func (a *Adapter) RoomList() ([]string, error) {
	rooms, err := a.cache.AllRooms()
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(rooms))
	for i, room := range rooms {
		ids[i] = room.UserName
	}
	return ids, nil
}

// RoomPayload returns a room record, fetching and caching it on a miss.
func (a *Adapter) RoomPayload(ctx context.Context, roomID string) (*simplepad.Contact, error) {
	room, err := a.cache.Room(roomID)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, wecache.ErrNotFound) {
		return nil, err
	}
	room, err = a.client.GetContact(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := a.cache.SetRoom(room); err != nil {
		return nil, err
	}
	return room, nil
}

// RoomMembers returns the roster of a room, fetching the full detail when
// the roster has never been cached.
func (a *Adapter) RoomMembers(ctx context.Context, roomID string) (map[string]simplepad.ChatroomMember, error) {
	members, err := a.cache.RoomMembers(roomID)
	if err == nil {
		return members, nil
	}
	if !errors.Is(err, wecache.ErrNotFound) {
		return nil, err
	}
	detail, err := a.client.GetChatroomMemberDetail(ctx, roomID, 0)
	if err != nil {
		return nil, err
	}
	return a.cache.MergeRoomMembers(roomID, detail.MemberList)
}

// RoomTopic returns the current topic of a room.
func (a *Adapter) RoomTopic(ctx context.Context, roomID string) (string, error) {
	room, err := a.RoomPayload(ctx, roomID)
	if err != nil {
		return "", err
	}
	return room.NickName, nil
}

// SetRoomTopic renames a room.
func (a *Adapter) SetRoomTopic(ctx context.Context, roomID, topic string) error {
	if err := a.client.ModifyChatroomName(ctx, roomID, topic); err != nil {
		return err
	}
	a.applyRoomTopic(roomID, topic)
	return nil
}

// RoomAnnouncement returns the room announcement.
func (a *Adapter) RoomAnnouncement(ctx context.Context, roomID string) (string, error) {
	info, err := a.client.GetChatroomExtraInfo(ctx, roomID)
	if err != nil {
		return "", err
	}
	return info.Announcement, nil
}

// SetRoomAnnouncement replaces the room announcement.
func (a *Adapter) SetRoomAnnouncement(ctx context.Context, roomID, text string) error {
	return a.client.ModifyChatroomAnnouncement(ctx, roomID, text)
}

// RoomCreate creates a room with the given members and optional topic. Ids
// the backend refused are returned alongside the new room id.
func (a *Adapter) RoomCreate(ctx context.Context, memberIDs []string, topic string) (string, []string, error) {
	resp, err := a.client.CreateChatroom(ctx, memberIDs)
	if err != nil {
		return "", nil, err
	}
	if topic != "" {
		if err := a.client.ModifyChatroomName(ctx, resp.ChatroomName, topic); err != nil {
			return resp.ChatroomName, resp.FailMemberList, err
		}
	}
	return resp.ChatroomName, resp.FailMemberList, nil
}

// RoomAdd invites a contact into a room.
func (a *Adapter) RoomAdd(ctx context.Context, roomID, contactID string) error {
	return a.client.AddChatroomMember(ctx, roomID, []string{contactID}, "")
}

// RoomDel removes a member from a room.
func (a *Adapter) RoomDel(ctx context.Context, roomID, contactID string) error {
	if err := a.client.DelChatroomMember(ctx, roomID, []string{contactID}); err != nil {
		return err
	}
	a.dropRoomMembers(roomID, []string{contactID})
	return nil
}

// RoomQuit leaves a room and drops its cached state.
func (a *Adapter) RoomQuit(ctx context.Context, roomID string) error {
	if err := a.client.QuitChatroom(ctx, roomID); err != nil {
		return err
	}
	return a.cache.DeleteRoom(roomID)
}

// RoomQRCode returns the join QR code of a room.
func (a *Adapter) RoomQRCode(ctx context.Context, roomID string) (string, error) {
	qr, err := a.client.GetChatroomQRCode(ctx, roomID)
	if err != nil {
		return "", err
	}
	return qr.QRCode, nil
}

// RoomInvitationAccept joins a room through a stored invitation.
func (a *Adapter) RoomInvitationAccept(ctx context.Context, invitationID string) error {
	var payload parser.RoomInvitePayload
	if err := a.cache.RoomInvitationPayload(invitationID, &payload); err != nil {
		return fmt.Errorf("unknown room invitation %s: %w", invitationID, err)
	}
	if err := a.client.AgreeInviteJoinChatroom(ctx, payload.InviteURL); err != nil {
		return err
	}
	return a.cache.DeleteRoomInvitationPayload(invitationID)
}

// ---- member resolution for the classifier pipeline ----

var _ parser.MemberResolver = (*Adapter)(nil)

// SelfID returns the account's own id; rooms share one identity.
func (a *Adapter) SelfID(context.Context, string) (string, error) {
	id := a.selfID()
	if id == "" {
		return "", ErrNotLoggedIn
	}
	return id, nil
}

// FindMemberIDs searches the room roster for members whose display or nick
// name matches.
func (a *Adapter) FindMemberIDs(ctx context.Context, roomID, name string) ([]string, error) {
	members, err := a.RoomMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	var ids []string
	for id, member := range members {
		if member.DisplayName == name || member.NickName == name {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
