// Copyright 2024-2026 Aiku AI

package parser

import (
	"context"
	"regexp"
	"strings"

	"github.com/aiku/simplepad-adapter/pkg/simplepad"
)

var roomTopicOtherRegexps = []*regexp.Regexp{
	regexp.MustCompile(`^"(.+)" changed the group name to "(.+)"$`),
	regexp.MustCompile(`^"(.+)"修改群名为“(.+)”$`),
}

var roomTopicYouRegexps = []*regexp.Regexp{
	regexp.MustCompile(`^(You) changed the group name to "(.+)"$`),
	regexp.MustCompile(`^(你)修改群名为“(.+)”$`),
}

// parseRoomTopic classifies room rename notices. The previous topic is read
// from the cached room record before the roster update overwrites it.
func (p *Pipeline) parseRoomTopic(ctx context.Context, msg *simplepad.Message) (any, error) {
	roomID := msg.FromUser
	if !simplepad.IsRoomID(roomID) {
		return nil, nil
	}

	content := msg.Content
	var tmpl *SysMsgTemplate
	plainText := strings.Contains(content, "你修改群名为") ||
		strings.Contains(content, "You changed the group name to")
	if !plainText {
		var err error
		tmpl, err = ParseSysMsg(msg)
		if err != nil {
			return nil, nil
		}
		content = tmpl.Template
	}

	matchOther := findAny(roomTopicOtherRegexps, content)
	matchYou := findAny(roomTopicYouRegexps, content)
	matches := matchOther
	if matches == nil {
		matches = matchYou
	}
	if matches == nil {
		return nil, nil
	}

	changerID := matches[1]
	topic := matches[2]
	if changerID == "你" || changerID == "You" {
		selfID, err := p.resolver.SelfID(ctx, roomID)
		if err != nil {
			return nil, err
		}
		changerID = selfID
	} else if tmpl != nil {
		changerID = tmpl.UserName(changerID)
		topic = tmpl.NickName(topic)
	}

	oldTopic, err := p.resolver.RoomTopic(ctx, roomID)
	if err != nil {
		return nil, err
	}

	return &RoomTopicPayload{
		RoomID:    roomID,
		ChangerID: changerID,
		OldTopic:  oldTopic,
		NewTopic:  topic,
		Timestamp: msg.CreateTime.Time,
	}, nil
}
