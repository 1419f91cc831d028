// Copyright 2024-2026 Aiku AI

package parser

import (
	"context"
	"encoding/xml"
	"html"
	"regexp"

	"github.com/aiku/simplepad-adapter/pkg/simplepad"
)

var friendshipConfirmRegexps = []*regexp.Regexp{
	regexp.MustCompile(`^You have added (.+) as your WeChat contact. Start chatting!$`),
	regexp.MustCompile(`^你已添加了(.+)，现在可以开始聊天了。$`),
	regexp.MustCompile(`I've accepted your friend request. Now let's chat!$`),
	regexp.MustCompile(`^(.+) just added you to his/her contacts list. Send a message to him/her now!$`),
	regexp.MustCompile(`^(.+)刚刚把你添加到通讯录，现在可以开始聊天了。$`),
	regexp.MustCompile(`^我通过了你的朋友验证请求，现在我们可以开始聊天了$`),
}

var friendshipVerifyRegexps = []*regexp.Regexp{
	regexp.MustCompile(`^(.+) has enabled Friend Confirmation`),
	regexp.MustCompile(`^(.+)开启了朋友验证，你还不是他（她）朋友。请先发送朋友验证请求，对方验证通过后，才能聊天。`),
}

type friendshipReceiveXML struct {
	FromUserName      string `xml:"fromusername,attr"`
	EncryptUserName   string `xml:"encryptusername,attr"`
	Content           string `xml:"content,attr"`
	Scene             int    `xml:"scene,attr"`
	Ticket            string `xml:"ticket,attr"`
	SourceNickName    string `xml:"sourcenickname,attr"`
	SourceUserName    string `xml:"sourceusername,attr"`
	ShareCardNickName string `xml:"sharecardnickname,attr"`
	ShareCardUserName string `xml:"sharecardusername,attr"`
}

func matchAny(regexps []*regexp.Regexp, content string) bool {
	for _, re := range regexps {
		if re.MatchString(content) {
			return true
		}
	}
	return false
}

// parseFriendship classifies confirmation notices, verification prompts and
// inbound friend requests.
func (p *Pipeline) parseFriendship(_ context.Context, msg *simplepad.Message) (any, error) {
	if matchAny(friendshipConfirmRegexps, msg.Content) {
		return &FriendshipPayload{
			Type:      FriendshipConfirm,
			ID:        msg.NewMsgID.String(),
			ContactID: msg.FromUser,
			Timestamp: msg.CreateTime.Time,
		}, nil
	}
	if matchAny(friendshipVerifyRegexps, msg.Content) {
		return &FriendshipPayload{
			Type:      FriendshipVerify,
			ID:        msg.NewMsgID.String(),
			ContactID: msg.FromUser,
			Timestamp: msg.CreateTime.Time,
		}, nil
	}
	return p.parseFriendshipReceive(msg)
}

func (p *Pipeline) parseFriendshipReceive(msg *simplepad.Message) (any, error) {
	if msg.MsgType != simplepad.MsgTypeVerify && msg.MsgType != simplepad.MsgTypeVerifyEnterprise {
		return nil, nil
	}

	var verify friendshipReceiveXML
	if err := xml.Unmarshal([]byte(msg.Content), &verify); err != nil {
		// Not a verify body, leave it for later classifiers.
		return nil, nil
	}
	contactID := verify.FromUserName
	isReceive := (simplepad.IsContactID(contactID) && verify.EncryptUserName != "") ||
		simplepad.IsIMContactID(contactID)
	if !isReceive {
		return nil, nil
	}

	return &FriendshipPayload{
		Type:      FriendshipReceive,
		ID:        msg.NewMsgID.String(),
		ContactID: contactID,
		Timestamp: msg.CreateTime.Time,
		Hello:     verify.Content,
		Scene:     verify.Scene,
		Stranger:  verify.EncryptUserName,
		// Accepting the request needs the original markup, not just the
		// ticket attribute.
		VerifyXML:          html.UnescapeString(msg.Content),
		SourceNickName:     verify.SourceNickName,
		SourceContactID:    verify.SourceUserName,
		ShareCardNickName:  verify.ShareCardNickName,
		ShareCardContactID: verify.ShareCardUserName,
	}, nil
}
