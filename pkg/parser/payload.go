// Copyright 2024-2026 Aiku AI

package parser

import (
	"strings"
	"time"

	"github.com/aiku/simplepad-adapter/pkg/simplepad"
)

// MessageType is the normalized content type of a message.
type MessageType int

const (
	MessageTypeUnknown MessageType = iota
	MessageTypeText
	MessageTypeImage
	MessageTypeVideo
	MessageTypeAudio
	MessageTypeEmoticon
	MessageTypeContact
	MessageTypeURL
	MessageTypeAttachment
	MessageTypeMiniProgram
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeText:
		return "text"
	case MessageTypeImage:
		return "image"
	case MessageTypeVideo:
		return "video"
	case MessageTypeAudio:
		return "audio"
	case MessageTypeEmoticon:
		return "emoticon"
	case MessageTypeContact:
		return "contact"
	case MessageTypeURL:
		return "url"
	case MessageTypeAttachment:
		return "attachment"
	case MessageTypeMiniProgram:
		return "miniprogram"
	default:
		return "unknown"
	}
}

// MessagePayload is a raw wire message normalized for the host: room and
// sender split apart, mention list surfaced, content type mapped.
type MessagePayload struct {
	ID         string
	Type       MessageType
	Timestamp  time.Time
	FromID     string
	RoomID     string
	ToID       string
	MentionIDs []string
	Text       string
}

// ParseMessagePayload normalizes a raw message. For chatroom messages the
// sender id is split off the "wxid:\n" content prefix. App messages are
// subtyped by their markup; undecodable markup surfaces the decode error.
func ParseMessagePayload(msg *simplepad.Message) (*MessagePayload, error) {
	payload := &MessagePayload{
		ID:         msg.NewMsgID.String(),
		Type:       MessageTypeUnknown,
		Timestamp:  msg.CreateTime.Time,
		FromID:     msg.FromUser,
		ToID:       msg.ToUser,
		MentionIDs: msg.AtList,
		Text:       msg.Content,
	}
	if simplepad.IsRoomID(msg.FromUser) {
		payload.RoomID = msg.FromUser
		if parts := strings.SplitN(msg.Content, ":\n", 2); len(parts) > 1 {
			payload.FromID = parts[0]
		}
		if !strings.HasPrefix(payload.Text, "<msg") {
			payload.Text = leadingSenderLine.ReplaceAllString(payload.Text, "")
		}
	}

	switch msg.MsgType {
	case simplepad.MsgTypeText:
		payload.Type = MessageTypeText
	case simplepad.MsgTypeImage:
		payload.Type = MessageTypeImage
	case simplepad.MsgTypeVideo, simplepad.MsgTypeMicroVideo:
		payload.Type = MessageTypeVideo
	case simplepad.MsgTypeVoice:
		payload.Type = MessageTypeAudio
	case simplepad.MsgTypeEmoticon:
		payload.Type = MessageTypeEmoticon
	case simplepad.MsgTypeShareCard:
		payload.Type = MessageTypeContact
	case simplepad.MsgTypeApp:
		appPayload, err := ParseAppMessage(msg)
		if err != nil {
			return nil, err
		}
		switch appPayload.Type {
		case AppMessageUrl:
			payload.Type = MessageTypeURL
		case AppMessageAttach:
			payload.Type = MessageTypeAttachment
		case AppMessageMiniProgram:
			payload.Type = MessageTypeMiniProgram
		}
	}
	return payload, nil
}
