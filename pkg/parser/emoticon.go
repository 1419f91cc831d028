// Copyright 2024-2026 Aiku AI

package parser

import (
	"encoding/xml"

	"github.com/aiku/simplepad-adapter/pkg/simplepad"
)

// EmoticonPayload is the decoded <msg><emoji> body of a sticker message.
type EmoticonPayload struct {
	Type    int
	Len     int
	MD5     string
	CDNURL  string
	Width   int
	Height  int
	GameExt string
}

type emoticonXML struct {
	Emoji struct {
		Type   int    `xml:"type,attr"`
		Len    int    `xml:"len,attr"`
		CDNURL string `xml:"cdnurl,attr"`
		Width  int    `xml:"width,attr"`
		Height int    `xml:"height,attr"`
		MD5    string `xml:"md5,attr"`
	} `xml:"emoji"`
	GameExt *struct {
		Content string `xml:"content,attr"`
		Type    string `xml:"type,attr"`
	} `xml:"gameext"`
}

// ParseEmoticon decodes the sticker markup of a message.
func ParseEmoticon(msg *simplepad.Message) (*EmoticonPayload, error) {
	var decoded emoticonXML
	if err := xml.Unmarshal([]byte(stripSenderLine(msg.Content)), &decoded); err != nil {
		return nil, &DecodeError{What: "emoticon message", Err: err}
	}
	payload := &EmoticonPayload{
		Type:   decoded.Emoji.Type,
		Len:    decoded.Emoji.Len,
		MD5:    decoded.Emoji.MD5,
		CDNURL: decoded.Emoji.CDNURL,
		Width:  decoded.Emoji.Width,
		Height: decoded.Emoji.Height,
	}
	if decoded.GameExt != nil {
		payload.GameExt = `<gameext type="` + decoded.GameExt.Type + `" content="` + decoded.GameExt.Content + `" ></gameext>`
	}
	return payload, nil
}
