// Copyright 2024-2026 Aiku AI

package simplepad

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// API paths, relative to the endpoint base.
const apiVersion = "/api/v1"

const (
	uriGetQRCode       = apiVersion + "/login/getCode"
	uriCheckScanStatus = apiVersion + "/login/checkCode"
	uriManualLogin     = apiVersion + "/login/manual"
	uriGetOnlineInfo   = apiVersion + "/login/getOnlineInfo"
	uriLogout          = apiVersion + "/login/logout"

	uriGetProfile      = apiVersion + "/profile/getProfile"
	uriUploadHeadImage = apiVersion + "/profile/uploadHeadImage"
	uriModifyNickName  = apiVersion + "/profile/modifyNickName"
	uriModifySignature = apiVersion + "/profile/modifySignature"
	uriGetSelfQRCode   = apiVersion + "/profile/getQRCode"

	uriInitContact       = apiVersion + "/contact/initContact"
	uriSetUserRemark     = apiVersion + "/contact/setUserRemark"
	uriGetContactDetail  = apiVersion + "/contact/getContact"
	uriBatchGetContact   = apiVersion + "/contact/batchGetContactBriefInfo"
	uriDelContact        = apiVersion + "/contact/delChatContact"
	uriApplyNewContact   = apiVersion + "/contact/applyNewFriend"
	uriVerifyFriendApply = apiVersion + "/contact/verifyUser"
	uriSearchContact     = apiVersion + "/contact/searchContact"

	uriCreateChatroom         = apiVersion + "/chatroom/createChatRoom"
	uriChatroomMemberDetail   = apiVersion + "/chatroom/getChatRoomMemberDetail"
	uriChatroomExtraInfo      = apiVersion + "/chatroom/getChatRoomInfoDetail"
	uriModifyChatroomName     = apiVersion + "/chatroom/modifyGroupName"
	uriModifyChatroomAnnounce = apiVersion + "/chatroom/setChatRoomAnnouncement"
	uriQuitChatroom           = apiVersion + "/chatroom/quitChatRoom"
	uriChatroomQRCode         = apiVersion + "/group/getQRCode"
	uriDelChatroomMember      = apiVersion + "/chatroom/delChatRoomMember"
	uriAddChatroomMember      = apiVersion + "/chatroom/addChatRoomMember"
	uriAgreeInviteJoin        = apiVersion + "/chatroom/agreeInviteJoinChatRoom"

	uriGetContactLabelList = apiVersion + "/contact/getContactLabelList"
	uriAddContactLabel     = apiVersion + "/contact/addContactLabel"
	uriEditContactLabel    = apiVersion + "/contact/editContactLabel"
	uriDelContactLabel     = apiVersion + "/contact/delContactLabel"

	uriSendText         = apiVersion + "/chat/sendText"
	uriSendMiniProgram  = apiVersion + "/chat/sendSmallApp"
	uriSendPersonalCard = apiVersion + "/chat/sendPersonalCard"
	uriSendURL          = apiVersion + "/chat/sendLink"
	uriSendPic          = apiVersion + "/chat/sendPic"
	uriSendVoice        = apiVersion + "/chat/sendVoice"
	uriSendVideo        = apiVersion + "/chat/sendVideo"
	uriSendEmoji        = apiVersion + "/chat/sendEmoji"
	uriSendFile         = apiVersion + "/chat/sendFile"
	uriRevokeMessage    = apiVersion + "/chat/revokeMsg"

	uriDownloadImage      = apiVersion + "/chat/downloadImage"
	uriDownloadImageByKey = apiVersion + "/chat/downloadImageByKey"
	uriDownloadFileByKey  = apiVersion + "/chat/downloadFileByKey"
	uriDownloadVoice      = apiVersion + "/chat/downloadVoice"
	uriDownloadVideo      = apiVersion + "/chat/downloadVideo"

	uriUploadFile = "/upload"
)

// ErrSessionExpired is returned when the backend asks for a fresh login
// ("please login again" / "instance offline" responses). The caller must go
// through the manual login flow instead of retrying the request.
var ErrSessionExpired = errors.New("simplepad: session expired")

// Vendor phrases that signal an expired or offline session.
var sessionExpiredPhrases = []string{"请先登录", "实例离线"}

// APIError is a non-zero business code in a BaseResponse envelope.
type APIError struct {
	Code    int
	Msg     string
	TraceID int64
}

func (e *APIError) Error() string {
	return fmt.Sprintf("simplepad: api error %d: %s", e.Code, e.Msg)
}

func (e *APIError) Unwrap() error {
	for _, phrase := range sessionExpiredPhrases {
		if strings.Contains(e.Msg, phrase) {
			return ErrSessionExpired
		}
	}
	return nil
}

// BaseResponse is the envelope wrapping every API response.
type BaseResponse struct {
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Msg     string          `json:"msg"`
	TraceID int64           `json:"traceId"`
}

// Client is an authenticated SimplePad API client. All control and CRUD
// operations go through authenticated HTTP; push notifications arrive on a
// separate websocket channel (see WebSocketURL).
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates a client for the given endpoint and bearer token.
func NewClient(endpoint, token string, log zerolog.Logger) *Client {
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	return &Client{
		baseURL: strings.TrimSuffix(endpoint, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log.With().Str("component", "simplepad_api").Logger(),
	}
}

// WebSocketURL returns the push channel endpoint for this client's token.
func (c *Client) WebSocketURL() string {
	wsBase := c.baseURL
	switch {
	case strings.HasPrefix(wsBase, "https://"):
		wsBase = "wss://" + strings.TrimPrefix(wsBase, "https://")
	case strings.HasPrefix(wsBase, "http://"):
		wsBase = "ws://" + strings.TrimPrefix(wsBase, "http://")
	}
	return wsBase + "/ws?token=" + url.QueryEscape(c.token)
}

// post sends a JSON request and decodes the data field of the response
// envelope into out. out may be nil when the caller only cares about the
// business code.
func (c *Client) post(ctx context.Context, uri string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.requestURL(uri), reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("TOKEN-TYPE", "simplepad")

	c.log.Trace().Str("uri", uri).Msg("API request")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", uri, err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp.Body, uri, out)
}

func (c *Client) requestURL(uri string) string {
	return c.baseURL + uri + "?token=" + url.QueryEscape(c.token)
}

func decodeResponse(r io.Reader, uri string, out any) error {
	var envelope BaseResponse
	if err := json.NewDecoder(r).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode response of %s: %w", uri, err)
	}
	if envelope.Code != 0 && envelope.Code != 200 {
		return &APIError{Code: envelope.Code, Msg: envelope.Msg, TraceID: envelope.TraceID}
	}
	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode data of %s: %w", uri, err)
	}
	return nil
}

// ---- session ----

// IsOnline reports whether the backend instance still holds a live session.
// The endpoint returns a non-zero code when offline.
func (c *Client) IsOnline(ctx context.Context) bool {
	return c.post(ctx, uriGetOnlineInfo, nil, nil) == nil
}

func (c *Client) GetQRCode(ctx context.Context) (*QRCode, error) {
	var qr QRCode
	if err := c.post(ctx, uriGetQRCode, map[string]string{"platform": "ipad"}, &qr); err != nil {
		return nil, err
	}
	return &qr, nil
}

func (c *Client) CheckScanStatus(ctx context.Context) (*ScanStatus, error) {
	var status ScanStatus
	if err := c.post(ctx, uriCheckScanStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) ManualLogin(ctx context.Context) (*ManualLoginResponse, error) {
	var resp ManualLoginResponse
	if err := c.post(ctx, uriManualLogin, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.post(ctx, uriLogout, nil, nil)
}

// ---- profile ----

func (c *Client) GetSelfInfo(ctx context.Context) (*User, error) {
	var user User
	if err := c.post(ctx, uriGetProfile, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UploadHeadImage(ctx context.Context, headImgURL string) (*UploadHeadImageResponse, error) {
	var resp UploadHeadImageResponse
	err := c.post(ctx, uriUploadHeadImage, map[string]string{"headImgUrl": headImgURL}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetSelfQRCode(ctx context.Context, userName string) (*SelfQRCode, error) {
	var qr SelfQRCode
	if err := c.post(ctx, uriGetSelfQRCode, map[string]string{"userName": userName}, &qr); err != nil {
		return nil, err
	}
	return &qr, nil
}

func (c *Client) ModifyNickName(ctx context.Context, nickName string) error {
	return c.post(ctx, uriModifyNickName, map[string]string{"nickName": nickName}, nil)
}

func (c *Client) ModifySignature(ctx context.Context, signature string) error {
	return c.post(ctx, uriModifySignature, map[string]string{"signature": signature}, nil)
}

// ---- contacts ----

func (c *Client) UpdateContactRemark(ctx context.Context, contactID, remark string) error {
	return c.post(ctx, uriSetUserRemark, map[string]string{
		"userName": contactID,
		"remark":   remark,
	}, nil)
}

func (c *Client) GetContact(ctx context.Context, contactID string) (*Contact, error) {
	var contact Contact
	if err := c.post(ctx, uriGetContactDetail, map[string]string{"userName": contactID}, &contact); err != nil {
		return nil, err
	}
	return &contact, nil
}

func (c *Client) DeleteContact(ctx context.Context, userName string) error {
	return c.post(ctx, uriDelContact, map[string]string{"userName": userName}, nil)
}

// InitContact fetches one page of the initial contact id sync. Pass zero
// sequence values to start from the beginning.
func (c *Client) InitContact(ctx context.Context, chatroomSeq, contactSeq int64) (*InitContactResponse, error) {
	var resp InitContactResponse
	err := c.post(ctx, uriInitContact, map[string]int64{
		"currentChatRoomContactSeq": chatroomSeq,
		"currentWxContactSeq":       contactSeq,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetContactListDetail(ctx context.Context, userNames []string) ([]Contact, error) {
	var resp struct {
		ContactList []Contact `json:"contactList"`
	}
	if err := c.post(ctx, uriBatchGetContact, map[string][]string{"userNameList": userNames}, &resp); err != nil {
		return nil, err
	}
	return resp.ContactList, nil
}

func (c *Client) ApplyNewContact(ctx context.Context, userName, verifyContent string) error {
	return c.post(ctx, uriApplyNewContact, map[string]string{
		"userName":      userName,
		"verifyContent": verifyContent,
	}, nil)
}

func (c *Client) SearchContact(ctx context.Context, userName string) (*SearchContact, error) {
	var contact SearchContact
	if err := c.post(ctx, uriSearchContact, map[string]string{"userName": userName}, &contact); err != nil {
		return nil, err
	}
	return &contact, nil
}

// VerifyFriendApply accepts an inbound friend request. The xml argument is
// the raw verification body captured from the request message.
func (c *Client) VerifyFriendApply(ctx context.Context, xml string) error {
	return c.post(ctx, uriVerifyFriendApply, map[string]string{"xml": xml}, nil)
}

// ---- labels ----

func (c *Client) GetAllContactLabels(ctx context.Context) ([]Label, error) {
	var pairs LabelPairs
	if err := c.post(ctx, uriGetContactLabelList, nil, &pairs); err != nil {
		return nil, err
	}
	return pairs.LabelPairs, nil
}

// AddContactLabel creates a label and returns its assigned id.
func (c *Client) AddContactLabel(ctx context.Context, labelName string) (int, error) {
	var pairs LabelPairs
	err := c.post(ctx, uriAddContactLabel, map[string][]string{"labels": {labelName}}, &pairs)
	if err != nil {
		return 0, err
	}
	for _, label := range pairs.LabelPairs {
		if label.LabelName == labelName {
			return label.LabelID, nil
		}
	}
	return 0, nil
}

// EditContactLabel replaces the comma-joined label id list of a contact.
func (c *Client) EditContactLabel(ctx context.Context, userName, labelIDs string) error {
	return c.post(ctx, uriEditContactLabel, map[string]string{
		"userName": userName,
		"labelIds": labelIDs,
	}, nil)
}

func (c *Client) DelContactLabel(ctx context.Context, labelID string) error {
	return c.post(ctx, uriDelContactLabel, map[string]string{"labelId": labelID}, nil)
}

// ---- chatrooms ----

func (c *Client) CreateChatroom(ctx context.Context, userNames []string) (*CreateChatroomResponse, error) {
	var resp CreateChatroomResponse
	if err := c.post(ctx, uriCreateChatroom, map[string][]string{"userNameList": userNames}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetChatroomMemberDetail fetches the full roster of a chatroom. version may
// be zero to request the latest state unconditionally.
func (c *Client) GetChatroomMemberDetail(ctx context.Context, chatroom string, version int64) (*ChatroomDetail, error) {
	var detail ChatroomDetail
	err := c.post(ctx, uriChatroomMemberDetail, map[string]any{
		"chatroom": chatroom,
		"version":  version,
	}, &detail)
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *Client) GetChatroomExtraInfo(ctx context.Context, chatroom string) (*ChatroomExtraInfo, error) {
	var info ChatroomExtraInfo
	if err := c.post(ctx, uriChatroomExtraInfo, map[string]string{"chatroom": chatroom}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) ModifyChatroomName(ctx context.Context, chatroom, topic string) error {
	return c.post(ctx, uriModifyChatroomName, map[string]string{
		"chatroom": chatroom,
		"topic":    topic,
	}, nil)
}

func (c *Client) ModifyChatroomAnnouncement(ctx context.Context, chatroom, announcement string) error {
	return c.post(ctx, uriModifyChatroomAnnounce, map[string]string{
		"chatroom":     chatroom,
		"announcement": announcement,
	}, nil)
}

func (c *Client) QuitChatroom(ctx context.Context, chatroom string) error {
	return c.post(ctx, uriQuitChatroom, map[string]string{"chatroom": chatroom}, nil)
}

func (c *Client) GetChatroomQRCode(ctx context.Context, chatroom string) (*SelfQRCode, error) {
	var qr SelfQRCode
	if err := c.post(ctx, uriChatroomQRCode, map[string]string{"userName": chatroom}, &qr); err != nil {
		return nil, err
	}
	return &qr, nil
}

func (c *Client) DelChatroomMember(ctx context.Context, chatroom string, members []string) error {
	return c.post(ctx, uriDelChatroomMember, map[string]any{
		"chatroom":   chatroom,
		"memberList": members,
	}, nil)
}

func (c *Client) AddChatroomMember(ctx context.Context, chatroom string, members []string, reason string) error {
	return c.post(ctx, uriAddChatroomMember, map[string]any{
		"chatroom":   chatroom,
		"memberList": members,
		"reason":     reason,
	}, nil)
}

// AgreeInviteJoinChatroom accepts a room invitation via its invite URL.
func (c *Client) AgreeInviteJoinChatroom(ctx context.Context, inviteURL string) error {
	return c.post(ctx, uriAgreeInviteJoin, map[string]string{"inviteUrl": inviteURL}, nil)
}

// ---- message sending ----

func (c *Client) SendTextMessage(ctx context.Context, toUser, content string, atList []string) (*SendMessageResponse, error) {
	var resp SendMessageResponse
	err := c.post(ctx, uriSendText, map[string]any{
		"toUser":  toUser,
		"content": content,
		"atList":  atList,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// MiniProgramRequest describes an outbound mini-program card.
type MiniProgramRequest struct {
	ToUser      string `json:"toUser"`
	ThumbURL    string `json:"thumbUrl"`
	Title       string `json:"title"`
	Description string `json:"des"`
	URL         string `json:"url"`
	UserName    string `json:"username"`
	AppID       string `json:"appid"`
	IconURL     string `json:"iconUrl"`
	PagePath    string `json:"pagePath"`
	Type        int    `json:"type"`
	Version     int    `json:"version"`
}

func (c *Client) SendMiniProgram(ctx context.Context, req *MiniProgramRequest) (*SendMessageResponse, error) {
	if req.Type == 0 {
		req.Type = 2
	}
	if req.Version == 0 {
		req.Version = 100
	}
	var resp SendMessageResponse
	if err := c.post(ctx, uriSendMiniProgram, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SendPersonalCard(ctx context.Context, toUser, cardUser string) (*SendMessageResponse, error) {
	var resp SendMessageResponse
	err := c.post(ctx, uriSendPersonalCard, map[string]string{
		"toUser":   toUser,
		"cardUser": cardUser,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SendURL(ctx context.Context, toUser, title, description, linkURL, thumbURL string) (*SendMessageResponse, error) {
	var resp SendMessageResponse
	err := c.post(ctx, uriSendURL, map[string]string{
		"toUser":   toUser,
		"title":    title,
		"des":      description,
		"url":      linkURL,
		"thumbUrl": thumbURL,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SendVoice(ctx context.Context, toUser, silkURL string) (*SendMessageResponse, error) {
	var resp SendMessageResponse
	err := c.post(ctx, uriSendVoice, map[string]string{
		"toUser":  toUser,
		"silkUrl": silkURL,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SendVideo(ctx context.Context, toUser, videoURL, videoThumbURL string) (*SendMessageResponse, error) {
	var resp SendMessageResponse
	err := c.post(ctx, uriSendVideo, map[string]any{
		"toUser":        toUser,
		"videoUrl":      videoURL,
		"videoThumbUrl": videoThumbURL,
		"hitSend":       false,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SendImage(ctx context.Context, toUser, imgURL string) (*SendMessageResponse, error) {
	var resp SendMessageResponse
	err := c.post(ctx, uriSendPic, map[string]string{
		"toUser": toUser,
		"imgUrl": imgURL,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SendEmoji(ctx context.Context, toUser, emojiMD5, gifURL, emojiTotalLen string) (*SendMessageResponse, error) {
	var resp SendMessageResponse
	err := c.post(ctx, uriSendEmoji, map[string]string{
		"toUser":        toUser,
		"emojiMd5":      emojiMD5,
		"gifUrl":        gifURL,
		"emojiTotalLen": emojiTotalLen,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SendFile(ctx context.Context, toUser, fileURL, fileName string) (*SendMessageResponse, error) {
	var resp SendMessageResponse
	err := c.post(ctx, uriSendFile, map[string]string{
		"toUser":   toUser,
		"fileUrl":  fileURL,
		"fileName": fileName,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// RevokeMessage recalls a previously sent message. The backend reports
// success through a human-readable wording field rather than the code.
func (c *Client) RevokeMessage(ctx context.Context, info *MessageRevokeInfo) (bool, error) {
	var resp RevokeMessageResponse
	if err := c.post(ctx, uriRevokeMessage, info, &resp); err != nil {
		return false, err
	}
	return resp.SysWording == "已撤回", nil
}

// ---- resource upload/download ----

// UploadFile streams a file to the upload endpoint as multipart form data
// and returns the hosted URL.
func (c *Client) UploadFile(ctx context.Context, fileName string, content io.Reader) (*UploadFileResponse, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", fileName)
	if err != nil {
		return nil, err
	}
	if _, err = io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to buffer upload: %w", err)
	}
	if err = form.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.requestURL(uriUploadFile), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("TOKEN-TYPE", "simplepad")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	var out UploadFileResponse
	if err := decodeResponse(resp.Body, uriUploadFile, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DownloadImage resolves the hosted URL for an image message's raw XML body.
func (c *Client) DownloadImage(ctx context.Context, xml string) (string, error) {
	var resp DownloadImageResponse
	if err := c.post(ctx, uriDownloadImage, map[string]string{"xml": xml}, &resp); err != nil {
		return "", err
	}
	return resp.ImgURL, nil
}

func (c *Client) DownloadImageByKey(ctx context.Context, aesKey, fileID, fileType string) (string, error) {
	if fileType == "" {
		fileType = DownloadImageThumb
	}
	var resp DownloadImageResponse
	err := c.post(ctx, uriDownloadImageByKey, map[string]string{
		"aesKey":   aesKey,
		"fileId":   fileID,
		"fileType": fileType,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.ImgURL, nil
}

func (c *Client) DownloadFileByKey(ctx context.Context, aesKey, fileID, fileName string) (string, error) {
	var resp DownloadFileResponse
	err := c.post(ctx, uriDownloadFileByKey, map[string]string{
		"aesKey":   aesKey,
		"fileId":   fileID,
		"fileName": fileName,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.FileURL, nil
}

func (c *Client) DownloadVoice(ctx context.Context, xml string, newMsgID MsgID) (string, error) {
	var resp DownloadVoiceResponse
	err := c.post(ctx, uriDownloadVoice, map[string]string{
		"xml":      xml,
		"newMsgId": string(newMsgID),
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.VoiceURL, nil
}

func (c *Client) DownloadVideo(ctx context.Context, xml string) (string, error) {
	var resp DownloadVideoResponse
	if err := c.post(ctx, uriDownloadVideo, map[string]string{"xml": xml}, &resp); err != nil {
		return "", err
	}
	return resp.VideoURL, nil
}
