// Copyright 2024-2026 Aiku AI

package parser

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"

	"github.com/aiku/simplepad-adapter/pkg/simplepad"
)

// App message subtypes carried in the <appmsg><type> element.
const (
	AppMessageText                  = 1
	AppMessageImg                   = 2
	AppMessageAudio                 = 3
	AppMessageVideo                 = 4
	AppMessageUrl                   = 5
	AppMessageAttach                = 6
	AppMessageOpen                  = 7
	AppMessageEmoji                 = 8
	AppMessageVoiceRemind           = 9
	AppMessageScanGood              = 10
	AppMessageGood                  = 13
	AppMessageEmotion               = 15
	AppMessageCardTicket            = 16
	AppMessageRealtimeShareLocation = 17
	AppMessageChatHistory           = 19
	AppMessageMiniProgram           = 33
	AppMessageMiniProgramApp        = 36
	AppMessageGroupNote             = 53
	AppMessageTransfers             = 2000
	AppMessageRedEnvelopes          = 2001
	AppMessageReaderType            = 100001
)

// DecodeError marks markup that could not be decoded into the expected
// schema. Classifiers treat it as a non-match rather than a failure.
type DecodeError struct {
	What string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.What, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// AppAttachPayload is the attachment block of an app message.
type AppAttachPayload struct {
	TotalLen       int    `xml:"totallen"`
	AttachID       string `xml:"attachid"`
	EmoticonMD5    string `xml:"emoticonmd5"`
	FileExt        string `xml:"fileext"`
	CDNAttachURL   string `xml:"cdnattachurl"`
	CDNThumbAESKey string `xml:"cdnthumbaeskey"`
	AESKey         string `xml:"aeskey"`
	EncryVer       int    `xml:"encryver"`
	IsLargeFileMsg int    `xml:"islargefilemsg"`
}

// AppMessagePayload is the decoded <msg><appmsg> body of a type 49 message.
type AppMessagePayload struct {
	Title      string
	Des        string
	URL        string
	ThumbURL   string
	Type       int
	MD5        string
	RecordItem string
	AppAttach  *AppAttachPayload
}

type appMsgXML struct {
	AppMsg struct {
		Title      string            `xml:"title"`
		Des        string            `xml:"des"`
		Type       int               `xml:"type"`
		URL        string            `xml:"url"`
		ThumbURL   string            `xml:"thumburl"`
		MD5        string            `xml:"md5"`
		RecordItem string            `xml:"recorditem"`
		AppAttach  *AppAttachPayload `xml:"appattach"`
	} `xml:"appmsg"`
	FromUserName string `xml:"fromusername"`
}

var leadingSenderLine = regexp.MustCompile(`^[^\n]+\n`)

// stripSenderLine drops the "wxid_xxx:" line prepended to message bodies
// delivered inside chatrooms, leaving bare markup.
func stripSenderLine(content string) string {
	if strings.HasPrefix(content, "<msg") {
		return content
	}
	return leadingSenderLine.ReplaceAllString(content, "")
}

// ParseAppMessage decodes the app message markup of a message. Locally sent
// messages carry an empty body and decode to a zero payload, matching what
// the backend stores for them.
func ParseAppMessage(msg *simplepad.Message) (*AppMessagePayload, error) {
	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return &AppMessagePayload{}, nil
	}

	var decoded appMsgXML
	if err := xml.Unmarshal([]byte(stripSenderLine(content)), &decoded); err != nil {
		return nil, &DecodeError{What: "app message", Err: err}
	}
	if decoded.AppMsg.Type == 0 && decoded.AppMsg.Title == "" && decoded.AppMsg.URL == "" {
		return nil, &DecodeError{What: "app message", Err: fmt.Errorf("no appmsg element")}
	}
	return &AppMessagePayload{
		Title:      decoded.AppMsg.Title,
		Des:        decoded.AppMsg.Des,
		URL:        decoded.AppMsg.URL,
		ThumbURL:   decoded.AppMsg.ThumbURL,
		Type:       decoded.AppMsg.Type,
		MD5:        decoded.AppMsg.MD5,
		RecordItem: decoded.AppMsg.RecordItem,
		AppAttach:  decoded.AppMsg.AppAttach,
	}, nil
}
