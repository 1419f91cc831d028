// Copyright 2024-2026 Aiku AI

package simplepad

import (
	"encoding/json"
	"fmt"

	"go.mau.fi/util/jsontime"
)

// Report types distinguish the two kinds of push frames delivered over the
// websocket channel.
const (
	// ReportMessage covers every inbound message, including system notices.
	ReportMessage = 1
	// ReportChatroomNotify is sent after chatroom metadata changes.
	ReportChatroomNotify = 2
)

// Message type codes used by the SimplePad backend.
const (
	MsgTypeText             = 1
	MsgTypeImage            = 3
	MsgTypeVoice            = 34
	MsgTypeVerify           = 37
	MsgTypeShareCard        = 42
	MsgTypeVideo            = 43
	MsgTypeEmoticon         = 47
	MsgTypeApp              = 49 // url link, mini program or quoted reply
	MsgTypeVoip             = 50
	MsgTypeStatusNotify     = 51
	MsgTypeVoipNotify       = 52
	MsgTypeVoipInvite       = 53
	MsgTypeMicroVideo       = 62
	MsgTypeVerifyEnterprise = 65
	MsgTypeGroupInvite      = 2003
	MsgTypeSysNotice        = 9999
	MsgTypeSys              = 10002
)

// Out-of-band text frames on the websocket channel.
const (
	// FrameHeartbeatAck is the reply to a "ping" heartbeat frame.
	FrameHeartbeatAck = "pong"
	// FrameRemoteLogout signals that the account owner terminated this
	// session from another device. The session must not be reconnected.
	FrameRemoteLogout = "CLIENT_QUIT_ACCOUNT"
)

// MsgID is a server-issued message identifier. The backend emits it as a
// bare 64-bit JSON number that overflows float64, so it is kept as the raw
// token instead of being parsed into a numeric type.
type MsgID string

func (m *MsgID) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty message id token")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*m = MsgID(s)
		return nil
	}
	if data[0] == '{' || data[0] == '[' {
		return fmt.Errorf("invalid message id token: %s", data)
	}
	*m = MsgID(data)
	return nil
}

func (m MsgID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(m))
}

func (m MsgID) String() string {
	return string(m)
}

// PushEnvelope is the outer JSON envelope of a data frame. The payload shape
// depends on the report type carried inside Data, so Data is decoded lazily.
type PushEnvelope struct {
	Type int             `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ReportType extracts the report type discriminator from the envelope
// payload without decoding the full record.
func (e *PushEnvelope) ReportType() (int, error) {
	var head struct {
		ReportMsgType int `json:"reportMsgType"`
	}
	if err := json.Unmarshal(e.Data, &head); err != nil {
		return 0, fmt.Errorf("failed to read report type: %w", err)
	}
	return head.ReportMsgType, nil
}

// Message is a raw wire message record. It is immutable once cached.
type Message struct {
	ReportMsgType  int           `json:"reportMsgType"`
	FromUser       string        `json:"fromUser"`
	ToUser         string        `json:"toUser"`
	Content        string        `json:"content"`
	CreateTime     jsontime.Unix `json:"createTime"`
	PushContent    string        `json:"pushContent,omitempty"`
	AtList         []string      `json:"atList,omitempty"`
	ClientID       string        `json:"clientId,omitempty"`
	ClientUserName string        `json:"clientUserName"`
	MsgType        int           `json:"msgType"`
	NewMsgID       MsgID         `json:"newMsgId"`
	MsgSeq         int64         `json:"msgSeq,omitempty"`
	MsgID          int64         `json:"msgId,omitempty"`
	MsgSource      string        `json:"msgSource,omitempty"`
}

// SendMessageResponse is returned by every send operation.
type SendMessageResponse struct {
	CreateTime jsontime.Unix `json:"createTime"`
	ClientMsgID int64        `json:"clientMsgId"`
	ServerTime  int64        `json:"serverTime"`
	MsgID       int64        `json:"msgId"`
	NewMsgID    MsgID        `json:"newMsgId"`
}

// MessageRevokeInfo holds everything needed to recall a previously sent
// message. One record is written alongside every locally sent message.
type MessageRevokeInfo struct {
	ToUser      string        `json:"toUser"`
	ClientMsgID string        `json:"clientMsgId"`
	SvrMsgID    MsgID         `json:"svrMsgId"`
	CreateTime  jsontime.Unix `json:"createTime"`
}

// RevokeMessageResponse is the backend's reply to a revoke request.
type RevokeMessageResponse struct {
	SysWording   string `json:"sysWording"`
	Introduction string `json:"introduction"`
}

// ChatroomNotify is the payload of a ReportChatroomNotify frame. It carries a
// room summary plus the current member id list (without per-member detail).
type ChatroomNotify struct {
	UserName            string                 `json:"userName"`
	NickName            string                 `json:"nickName"`
	Alias               string                 `json:"alias"`
	RemarkName          string                 `json:"remarkName"`
	BigHeadImgURL       string                 `json:"bigHeadImgUrl"`
	SmallHeadImgURL     string                 `json:"smallHeadImgUrl"`
	Sex                 int                    `json:"sex"`
	Country             string                 `json:"country"`
	Province            string                 `json:"province"`
	City                string                 `json:"city"`
	ContactType         string                 `json:"contactType"`
	ChatroomOwner       string                 `json:"chatroomOwner"`
	ChatroomVersion     int64                  `json:"chatroomVersion"`
	ChatroomInfoVersion int64                  `json:"chatroomInfoVersion"`
	ChatroomMemberCount int                    `json:"chatroomMemberCount"`
	ChatroomMembers     []ChatroomNotifyMember `json:"chatroomMembers"`
	ChatroomNotifyFlag  int                    `json:"chatroomNotify"`
	ClientID            string                 `json:"clientId"`
	ClientUserName      string                 `json:"clientUserName"`
	ReportMsgType       int                    `json:"reportMsgType"`
	RealName            string                 `json:"realName"`
	BitMask             int64                  `json:"bitMask"`
	BitVal              int64                  `json:"bitVal"`
}

// ChatroomNotifyMember is a member summary inside a ChatroomNotify frame.
type ChatroomNotifyMember struct {
	UserName           string `json:"userName"`
	ChatroomMemberFlag int    `json:"chatroomMemberFlag"`
}

// ChatroomMember is the full member record from the member-detail endpoint.
type ChatroomMember struct {
	UserName           string `json:"userName"`
	NickName           string `json:"nickName"`
	BigHeadImgURL      string `json:"bigHeadImgUrl"`
	SmallHeadImgURL    string `json:"smallHeadImgUrl"`
	DisplayName        string `json:"displayName"`
	InviterUserName    string `json:"inviterUserName"`
	ChatroomMemberFlag int    `json:"chatroomMemberFlag"`
}

// ChatroomMemberFlagAdmin marks a member as a chatroom administrator.
const ChatroomMemberFlagAdmin = 2048

// ChatroomDetail is the member-detail endpoint response.
type ChatroomDetail struct {
	ServerVersion    int64            `json:"serverVersion"`
	ChatroomUserName string           `json:"chatroomUserName"`
	MemberList       []ChatroomMember `json:"memberList"`
}

// ChatroomExtraInfo carries announcement and status fields that are not part
// of the contact record.
type ChatroomExtraInfo struct {
	Announcement            string `json:"announcement"`
	AnnouncementEditor      string `json:"announcementEditor"`
	AnnouncementPublishTime int64  `json:"announcementPublishTime"`
	ChatroomStatus          int    `json:"chatroomStatus"`
	ChatroomInfoVersion     int64  `json:"chatroomInfoVersion"`
}

// CreateChatroomResponse is returned when creating a new chatroom.
// FailMemberList holds ids that could not be added (not a friend, banned).
type CreateChatroomResponse struct {
	ChatroomName   string   `json:"chatroomName"`
	FailMemberList []string `json:"failMemberList"`
}
