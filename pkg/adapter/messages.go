// Copyright 2024-2026 Aiku AI

package adapter

import (
	"context"
	"fmt"
	"io"
	"path"
	"strconv"

	"github.com/aiku/simplepad-adapter/pkg/parser"
	"github.com/aiku/simplepad-adapter/pkg/simplepad"
)

// MessagePayload returns the normalized form of a cached message.
func (a *Adapter) MessagePayload(messageID string) (*parser.MessagePayload, error) {
	msg, err := a.cache.Message(messageID)
	if err != nil {
		return nil, err
	}
	return parser.ParseMessagePayload(msg)
}

// RawMessage returns the cached wire record of a message.
func (a *Adapter) RawMessage(messageID string) (*simplepad.Message, error) {
	return a.cache.Message(messageID)
}

// recordSentMessage caches the wire record and revoke info of a message the
// account just sent, so it can be looked up and recalled like any inbound
// message.
func (a *Adapter) recordSentMessage(toUser, content string, msgType int, resp *simplepad.SendMessageResponse) string {
	id := resp.NewMsgID.String()
	msg := &simplepad.Message{
		ReportMsgType: simplepad.ReportMessage,
		FromUser:      a.selfID(),
		ToUser:        toUser,
		Content:       content,
		CreateTime:    resp.CreateTime,
		MsgType:       msgType,
		NewMsgID:      resp.NewMsgID,
		MsgID:         resp.MsgID,
	}
	if err := a.cache.SetMessage(id, msg); err != nil {
		a.log.Warn().Err(err).Str("message_id", id).Msg("Failed to cache sent message")
	}
	info := &simplepad.MessageRevokeInfo{
		ToUser:      toUser,
		ClientMsgID: strconv.FormatInt(resp.ClientMsgID, 10),
		SvrMsgID:    resp.NewMsgID,
		CreateTime:  resp.CreateTime,
	}
	if err := a.cache.SetMessageRevokeInfo(id, info); err != nil {
		a.log.Warn().Err(err).Str("message_id", id).Msg("Failed to cache revoke info")
	}
	return id
}

// SendText sends a text message, optionally mentioning room members.
func (a *Adapter) SendText(ctx context.Context, toUser, content string, mentions []string) (string, error) {
	resp, err := a.client.SendTextMessage(ctx, toUser, content, mentions)
	if err != nil {
		return "", err
	}
	return a.recordSentMessage(toUser, content, simplepad.MsgTypeText, resp), nil
}

// SendImage sends an image from a hosted URL.
func (a *Adapter) SendImage(ctx context.Context, toUser, imageURL string) (string, error) {
	resp, err := a.client.SendImage(ctx, toUser, imageURL)
	if err != nil {
		return "", err
	}
	return a.recordSentMessage(toUser, "", simplepad.MsgTypeImage, resp), nil
}

// SendFileData uploads a file and sends it as an attachment.
func (a *Adapter) SendFileData(ctx context.Context, toUser, fileName string, data io.Reader) (string, error) {
	uploaded, err := a.client.UploadFile(ctx, fileName, data)
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	return a.SendFile(ctx, toUser, uploaded.URL, fileName)
}

// SendFile sends an already-hosted file as an attachment.
func (a *Adapter) SendFile(ctx context.Context, toUser, fileURL, fileName string) (string, error) {
	if fileName == "" {
		fileName = path.Base(fileURL)
	}
	resp, err := a.client.SendFile(ctx, toUser, fileURL, fileName)
	if err != nil {
		return "", err
	}
	return a.recordSentMessage(toUser, "", simplepad.MsgTypeApp, resp), nil
}

// SendURL sends a link card.
func (a *Adapter) SendURL(ctx context.Context, toUser, title, description, linkURL, thumbURL string) (string, error) {
	resp, err := a.client.SendURL(ctx, toUser, title, description, linkURL, thumbURL)
	if err != nil {
		return "", err
	}
	return a.recordSentMessage(toUser, "", simplepad.MsgTypeApp, resp), nil
}

// SendMiniProgram sends a mini-program card.
func (a *Adapter) SendMiniProgram(ctx context.Context, req *simplepad.MiniProgramRequest) (string, error) {
	resp, err := a.client.SendMiniProgram(ctx, req)
	if err != nil {
		return "", err
	}
	return a.recordSentMessage(req.ToUser, "", simplepad.MsgTypeApp, resp), nil
}

// SendContactCard shares a contact's card.
func (a *Adapter) SendContactCard(ctx context.Context, toUser, contactID string) (string, error) {
	resp, err := a.client.SendPersonalCard(ctx, toUser, contactID)
	if err != nil {
		return "", err
	}
	return a.recordSentMessage(toUser, "", simplepad.MsgTypeShareCard, resp), nil
}

// SendVoice sends a silk-encoded voice clip.
func (a *Adapter) SendVoice(ctx context.Context, toUser, silkURL string) (string, error) {
	resp, err := a.client.SendVoice(ctx, toUser, silkURL)
	if err != nil {
		return "", err
	}
	return a.recordSentMessage(toUser, "", simplepad.MsgTypeVoice, resp), nil
}

// SendVideo sends a video from hosted URLs.
func (a *Adapter) SendVideo(ctx context.Context, toUser, videoURL, thumbURL string) (string, error) {
	resp, err := a.client.SendVideo(ctx, toUser, videoURL, thumbURL)
	if err != nil {
		return "", err
	}
	return a.recordSentMessage(toUser, "", simplepad.MsgTypeVideo, resp), nil
}

// MessageRecall revokes a previously sent message. Only messages still in
// the revoke-info tier can be recalled.
func (a *Adapter) MessageRecall(ctx context.Context, messageID string) (bool, error) {
	info, err := a.cache.MessageRevokeInfo(messageID)
	if err != nil {
		return false, fmt.Errorf("message %s cannot be recalled: %w", messageID, err)
	}
	return a.client.RevokeMessage(ctx, info)
}

// MessageForward is not supported by the backend; re-send the original
// content instead.
func (a *Adapter) MessageForward(context.Context, string, string) error {
	return ErrNotSupported
}

// MarkMessageRead is not supported by the backend.
func (a *Adapter) MarkMessageRead(context.Context, string) error {
	return ErrNotSupported
}

// ---- media materialization ----

// MessageImageURL resolves a hosted URL for an image message at the given
// size.
func (a *Adapter) MessageImageURL(ctx context.Context, messageID, fileType string) (string, error) {
	msg, err := a.cache.Message(messageID)
	if err != nil {
		return "", err
	}
	if msg.MsgType != simplepad.MsgTypeImage {
		return "", fmt.Errorf("message %s is not an image", messageID)
	}
	img, err := parser.ParseImage(msg)
	if err != nil {
		return "", err
	}
	if fileType == simplepad.DownloadImageThumb {
		return a.client.DownloadImageByKey(ctx, img.CDNThumbAESKey, img.CDNThumbURL, fileType)
	}
	return a.client.DownloadImageByKey(ctx, img.AESKey, img.CDNMidImgURL, fileType)
}

// MessageFileURL resolves a hosted URL for an attachment message.
func (a *Adapter) MessageFileURL(ctx context.Context, messageID string) (string, error) {
	msg, err := a.cache.Message(messageID)
	if err != nil {
		return "", err
	}
	app, err := parser.ParseAppMessage(msg)
	if err != nil {
		return "", err
	}
	if app.Type != parser.AppMessageAttach || app.AppAttach == nil {
		return "", fmt.Errorf("message %s is not an attachment", messageID)
	}
	fileName := app.Title
	if app.AppAttach.FileExt != "" && path.Ext(fileName) == "" {
		fileName += "." + app.AppAttach.FileExt
	}
	return a.client.DownloadFileByKey(ctx, app.AppAttach.AESKey, app.AppAttach.CDNAttachURL, fileName)
}

// MessageVoiceURL resolves a hosted URL for a voice message.
func (a *Adapter) MessageVoiceURL(ctx context.Context, messageID string) (string, error) {
	msg, err := a.cache.Message(messageID)
	if err != nil {
		return "", err
	}
	if msg.MsgType != simplepad.MsgTypeVoice {
		return "", fmt.Errorf("message %s is not a voice clip", messageID)
	}
	return a.client.DownloadVoice(ctx, msg.Content, msg.NewMsgID)
}

// MessageVideoURL resolves a hosted URL for a video message.
func (a *Adapter) MessageVideoURL(ctx context.Context, messageID string) (string, error) {
	msg, err := a.cache.Message(messageID)
	if err != nil {
		return "", err
	}
	if msg.MsgType != simplepad.MsgTypeVideo && msg.MsgType != simplepad.MsgTypeMicroVideo {
		return "", fmt.Errorf("message %s is not a video", messageID)
	}
	return a.client.DownloadVideo(ctx, msg.Content)
}

// MessageURLCard returns the link card payload of a url message.
func (a *Adapter) MessageURLCard(messageID string) (*parser.AppMessagePayload, error) {
	msg, err := a.cache.Message(messageID)
	if err != nil {
		return nil, err
	}
	app, err := parser.ParseAppMessage(msg)
	if err != nil {
		return nil, err
	}
	if app.Type != parser.AppMessageUrl {
		return nil, fmt.Errorf("message %s is not a link card", messageID)
	}
	return app, nil
}

// MessageMiniProgram returns the mini-program payload of an app message.
func (a *Adapter) MessageMiniProgram(messageID string) (*parser.MiniProgramPayload, error) {
	msg, err := a.cache.Message(messageID)
	if err != nil {
		return nil, err
	}
	return parser.ParseMiniProgram(msg)
}

// MessageEmoticon returns the sticker payload of an emoticon message.
func (a *Adapter) MessageEmoticon(messageID string) (*parser.EmoticonPayload, error) {
	msg, err := a.cache.Message(messageID)
	if err != nil {
		return nil, err
	}
	return parser.ParseEmoticon(msg)
}
