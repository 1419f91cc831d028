// Copyright 2024-2026 Aiku AI

package parser

import (
	"context"
	"regexp"
	"strings"

	"github.com/aiku/simplepad-adapter/pkg/simplepad"
)

var roomJoinYouInviteRegexps = []*regexp.Regexp{
	regexp.MustCompile(`^You invited "(.+)" to the group chat`),
	regexp.MustCompile(`^你邀请"(.+)"加入了群聊`),
}

var roomJoinInviteYouRegexps = []*regexp.Regexp{
	regexp.MustCompile(`^"(.+)" invited you to a group chat`),
	regexp.MustCompile(`^"(.+)"邀请你加入了群聊`),
}

var roomJoinOtherInviteRegexps = []*regexp.Regexp{
	regexp.MustCompile(`^"(.+)" invited "(.+)" to the group chat`),
	regexp.MustCompile(`^"(.+)"邀请"(.+)"加入了群聊`),
}

var roomJoinScanYourQRRegexps = []*regexp.Regexp{
	regexp.MustCompile(`^"(.+)" joined group chat via the QR code you shared`),
	regexp.MustCompile(`^"(.+)"通过扫描你分享的二维码加入群聊`),
}

var roomJoinScanOtherQRRegexps = []*regexp.Regexp{
	regexp.MustCompile(`^"(.+)" joined the group chat via the QR [Cc]ode shared by "(.+)"`),
	regexp.MustCompile(`^"(.+)"通过扫描"(.+)"分享的二维码加入群聊`),
}

// splitNames breaks a joined invitee list into individual display names.
func splitNames(names string) []string {
	parts := strings.FieldsFunc(names, func(r rune) bool {
		return r == '、'
	})
	if len(parts) == 1 {
		parts = strings.Split(names, ", ")
	}
	out := parts[:0]
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// resolveMembers turns a matched name token into contact ids, preferring the
// notice's own placeholder bindings and falling back to a roster search.
// Names that cannot be resolved are passed through as-is.
func (p *Pipeline) resolveMembers(ctx context.Context, tmpl *SysMsgTemplate, roomID, token string) []string {
	if tmpl != nil {
		if link := tmpl.linkByPlaceholder(token); link != nil && len(link.Members) > 0 {
			out := make([]string, len(link.Members))
			for i, member := range link.Members {
				out[i] = member.UserName
			}
			return out
		}
	}
	var ids []string
	for _, name := range splitNames(token) {
		if found, err := p.resolver.FindMemberIDs(ctx, roomID, name); err == nil && len(found) > 0 {
			ids = append(ids, found[0])
		} else {
			ids = append(ids, name)
		}
	}
	return ids
}

// parseRoomJoin classifies join notices: invitations by the account, by
// others, and joins via shared QR codes.
func (p *Pipeline) parseRoomJoin(ctx context.Context, msg *simplepad.Message) (any, error) {
	roomID := msg.FromUser
	if !simplepad.IsRoomID(roomID) {
		return nil, nil
	}

	content := msg.Content
	var tmpl *SysMsgTemplate
	if t, err := ParseSysMsg(msg); err == nil {
		tmpl = t
		content = t.Template
	}

	if m := findAny(roomJoinYouInviteRegexps, content); m != nil {
		selfID, err := p.resolver.SelfID(ctx, roomID)
		if err != nil {
			return nil, err
		}
		return &RoomJoinPayload{
			RoomID:     roomID,
			InviterID:  selfID,
			InviteeIDs: p.resolveMembers(ctx, tmpl, roomID, m[1]),
			Timestamp:  msg.CreateTime.Time,
		}, nil
	}

	if m := findAny(roomJoinScanYourQRRegexps, content); m != nil {
		selfID, err := p.resolver.SelfID(ctx, roomID)
		if err != nil {
			return nil, err
		}
		return &RoomJoinPayload{
			RoomID:     roomID,
			InviterID:  selfID,
			InviteeIDs: p.resolveMembers(ctx, tmpl, roomID, m[1]),
			Timestamp:  msg.CreateTime.Time,
		}, nil
	}

	if m := findAny(roomJoinInviteYouRegexps, content); m != nil {
		selfID, err := p.resolver.SelfID(ctx, roomID)
		if err != nil {
			return nil, err
		}
		inviter := p.resolveMembers(ctx, tmpl, roomID, m[1])
		return &RoomJoinPayload{
			RoomID:     roomID,
			InviterID:  inviter[0],
			InviteeIDs: []string{selfID},
			Timestamp:  msg.CreateTime.Time,
		}, nil
	}

	if m := findAny(roomJoinScanOtherQRRegexps, content); m != nil {
		inviter := p.resolveMembers(ctx, tmpl, roomID, m[2])
		return &RoomJoinPayload{
			RoomID:     roomID,
			InviterID:  inviter[0],
			InviteeIDs: p.resolveMembers(ctx, tmpl, roomID, m[1]),
			Timestamp:  msg.CreateTime.Time,
		}, nil
	}

	if m := findAny(roomJoinOtherInviteRegexps, content); m != nil {
		inviter := p.resolveMembers(ctx, tmpl, roomID, m[1])
		return &RoomJoinPayload{
			RoomID:     roomID,
			InviterID:  inviter[0],
			InviteeIDs: p.resolveMembers(ctx, tmpl, roomID, m[2]),
			Timestamp:  msg.CreateTime.Time,
		}, nil
	}

	return nil, nil
}
