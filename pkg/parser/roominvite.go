// Copyright 2024-2026 Aiku AI

package parser

import (
	"context"
	"regexp"

	"github.com/aiku/simplepad-adapter/pkg/simplepad"
)

var roomInviteTitleRegexps = []*regexp.Regexp{
	regexp.MustCompile(`Group Chat Invitation`),
	regexp.MustCompile(`邀请你加入群聊`),
}

var roomInviteDesRegexps = []*regexp.Regexp{
	regexp.MustCompile(`"(.+)" invited you to join the group chat "(.+)"\. Enter to view details\.`),
	regexp.MustCompile(`^"(.+)"邀请你加入群聊(.*)，进入可查看详情。`),
}

// parseRoomInvite classifies invitation cards for rooms the account is not a
// member of. The invitation is an app message whose title and description
// carry the invite phrasing; the room topic is captured from the
// description.
func (p *Pipeline) parseRoomInvite(_ context.Context, msg *simplepad.Message) (any, error) {
	appPayload, err := ParseAppMessage(msg)
	if err != nil {
		return nil, nil
	}
	if appPayload.Type != AppMessageUrl || appPayload.Title == "" || appPayload.Des == "" {
		return nil, nil
	}

	if !matchAny(roomInviteTitleRegexps, appPayload.Title) {
		return nil, nil
	}
	var topic string
	matched := false
	for _, re := range roomInviteDesRegexps {
		if m := re.FindStringSubmatch(appPayload.Des); m != nil {
			topic = m[2]
			matched = true
			break
		}
	}
	if !matched {
		return nil, nil
	}

	return &RoomInvitePayload{
		ID:         msg.NewMsgID.String(),
		InviterID:  msg.FromUser,
		ReceiverID: msg.ToUser,
		Topic:      topic,
		Avatar:     appPayload.ThumbURL,
		InviteURL:  appPayload.URL,
		Timestamp:  msg.CreateTime.Time,
	}, nil
}
