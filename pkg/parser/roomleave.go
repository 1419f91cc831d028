// Copyright 2024-2026 Aiku AI

package parser

import (
	"context"
	"regexp"
	"strings"

	"github.com/aiku/simplepad-adapter/pkg/simplepad"
)

var roomLeaveOtherRegexps = []*regexp.Regexp{
	regexp.MustCompile(`^(You) removed "(.+)" from the group chat`),
	regexp.MustCompile(`^(你)将"(.+)"移出了群聊`),
}

var roomLeaveBotRegexps = []*regexp.Regexp{
	regexp.MustCompile(`^(You) were removed from the group chat by "([^"]+)"`),
	regexp.MustCompile(`^(你)被"([^"]+?)"移出群聊`),
}

func findAny(regexps []*regexp.Regexp, content string) []string {
	for _, re := range regexps {
		if m := re.FindStringSubmatch(content); m != nil {
			return m
		}
	}
	return nil
}

// parseRoomLeave classifies removal notices. Removing someone else arrives
// as a wrapped system notice; being removed yourself arrives as plain text.
// Every classified leave is marked in the debounce registry so the roster
// update that follows does not produce a second event.
func (p *Pipeline) parseRoomLeave(ctx context.Context, msg *simplepad.Message) (any, error) {
	roomID := msg.FromUser
	if !simplepad.IsRoomID(roomID) {
		return nil, nil
	}

	content := msg.Content
	var tmpl *SysMsgTemplate
	plainText := strings.Contains(content, "移出群聊") ||
		strings.Contains(content, "You were removed from the group chat by")
	if !plainText {
		var err error
		tmpl, err = ParseSysMsg(msg)
		if err != nil {
			return nil, nil
		}
		content = tmpl.Template
	}

	matchOther := findAny(roomLeaveOtherRegexps, content)
	matchBot := findAny(roomLeaveBotRegexps, content)
	if matchOther == nil && matchBot == nil {
		return nil, nil
	}

	var leaverID, removerID string
	if matchOther != nil {
		selfID, err := p.resolver.SelfID(ctx, roomID)
		if err != nil {
			return nil, err
		}
		removerID = selfID
		leaverID = matchOther[2]
		if tmpl != nil {
			leaverID = tmpl.UserName(leaverID)
		}
	} else {
		// The remover is only known by display name here; the wire notice
		// for the account's own removal carries no id binding.
		removerID = matchBot[2]
		selfID, err := p.resolver.SelfID(ctx, roomID)
		if err != nil {
			return nil, err
		}
		leaverID = selfID
	}

	p.leaveDebounce.mark(roomID, leaverID)

	return &RoomLeavePayload{
		RoomID:     roomID,
		RemoveeIDs: []string{leaverID},
		RemoverID:  removerID,
		Timestamp:  msg.CreateTime.Time,
	}, nil
}
