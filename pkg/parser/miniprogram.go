// Copyright 2024-2026 Aiku AI

package parser

import (
	"encoding/xml"

	"github.com/aiku/simplepad-adapter/pkg/simplepad"
)

// MiniProgramPayload is the decoded mini-program card inside an app message.
type MiniProgramPayload struct {
	Title             string
	SourceDisplayName string
	UserName          string
	AppID             string
	PagePath          string
	IconURL           string
	ShareID           string
	ThumbURL          string
	ThumbKey          string
	MD5               string
}

type miniProgramXML struct {
	AppMsg struct {
		Title             string `xml:"title"`
		SourceDisplayName string `xml:"sourcedisplayname"`
		ThumbURL          string `xml:"thumburl"`
		MD5               string `xml:"md5"`
		AppAttach         struct {
			CDNThumbAESKey string `xml:"cdnthumbaeskey"`
			CDNThumbURL    string `xml:"cdnthumburl"`
		} `xml:"appattach"`
		WeAppInfo struct {
			UserName    string `xml:"username"`
			AppID       string `xml:"appid"`
			PagePath    string `xml:"pagepath"`
			WeAppIconURL string `xml:"weappiconurl"`
			ShareID     string `xml:"shareId"`
		} `xml:"weappinfo"`
	} `xml:"appmsg"`
	FromUserName string `xml:"fromusername"`
}

// ParseMiniProgram decodes the mini-program markup of an app message.
func ParseMiniProgram(msg *simplepad.Message) (*MiniProgramPayload, error) {
	var decoded miniProgramXML
	if err := xml.Unmarshal([]byte(stripSenderLine(msg.Content)), &decoded); err != nil {
		return nil, &DecodeError{What: "mini program message", Err: err}
	}
	app := decoded.AppMsg
	return &MiniProgramPayload{
		Title:             app.Title,
		SourceDisplayName: app.SourceDisplayName,
		UserName:          app.WeAppInfo.UserName,
		AppID:             app.WeAppInfo.AppID,
		PagePath:          app.WeAppInfo.PagePath,
		IconURL:           app.WeAppInfo.WeAppIconURL,
		ShareID:           app.WeAppInfo.ShareID,
		ThumbURL:          app.AppAttach.CDNThumbURL,
		ThumbKey:          app.AppAttach.CDNThumbAESKey,
		MD5:               app.MD5,
	}, nil
}
