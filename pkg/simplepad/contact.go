// Copyright 2024-2026 Aiku AI

package simplepad

// Contact gender codes.
const (
	GenderUnknown = 0
	GenderMale    = 1
	GenderFemale  = 2
)

// Contact is the identity record for both contacts and rooms. Whether a
// record represents a room is derived from its user name suffix (see
// IsRoomID), never stored separately. The Chatroom* fields are only
// meaningful for room records.
type Contact struct {
	UserName        string `json:"userName"`
	NickName        string `json:"nickName"`
	Alias           string `json:"alias"`
	BigHeadImgURL   string `json:"bigHeadImgUrl"`
	SmallHeadImgURL string `json:"smallHeadImgUrl"`
	Sex             int    `json:"sex"`
	LabelIDList     string `json:"labelIdList"`
	Country         string `json:"country"`
	Province        string `json:"province"`
	City            string `json:"city"`
	Remark          string `json:"remark"`

	// IsChatroomMember marks shadow records materialized from a room
	// roster rather than a direct relationship.
	IsChatroomMember bool `json:"isChatroomMember,omitempty"`

	ChatroomInfoVersion int64  `json:"chatroomInfoVersion"`
	ChatroomVersion     int64  `json:"chatroomVersion"`
	ChatroomOwner       string `json:"chatRoomOwner"`
	ChatroomMemberCount int    `json:"chatroomMemberCount"`
}

// InitContactResponse is one page of the initial contact id sync.
type InitContactResponse struct {
	UserNameList              []string `json:"userNameList"`
	IsContinue                bool     `json:"isContinue"`
	CurrentChatRoomContactSeq int64    `json:"currentChatRoomContactSeq"`
	CurrentWxContactSeq       int64    `json:"currentWxContactSeq"`
}

// Label is a global contact tag definition.
type Label struct {
	LabelID   int    `json:"labelId"`
	LabelName string `json:"labelName"`
}

// LabelPairs wraps the label list endpoint response.
type LabelPairs struct {
	LabelPairs []Label `json:"labelPairs"`
}

// SearchContact is the result of a phone/alias contact lookup.
type SearchContact struct {
	UserName        string `json:"userName"`
	NickName        string `json:"nickName"`
	Alias           string `json:"alias"`
	BigHeadImgURL   string `json:"bigHeadImgUrl"`
	SmallHeadImgURL string `json:"smallHeadImgUrl"`
	Sex             int    `json:"sex"`
	Country         string `json:"country"`
	Province        string `json:"province"`
	City            string `json:"city"`
	AntispamTicket  string `json:"antispamTicket"`
	MatchType       int    `json:"matchType"`
}

// User is the authenticated account's own profile.
type User struct {
	UserName        string `json:"userName"`
	NickName        string `json:"nickName"`
	Alias           string `json:"alias"`
	BigHeadImgURL   string `json:"bigHeadImgUrl"`
	SmallHeadImgURL string `json:"smallHeadImgUrl"`
	Sex             int    `json:"sex"`
	Country         string `json:"country"`
	Province        string `json:"province"`
	City            string `json:"city"`
	Status          int    `json:"status"`
	PluginFlag      int    `json:"pluginFlag"`
	SnsFlagEx       int64  `json:"snsFlagEx"`
}

// QR login scan status codes reported by CheckScanStatus.
const (
	ScanStatusWaiting   = 0
	ScanStatusScanned   = 1
	ScanStatusConfirmed = 2
	ScanStatusCancel    = 4
	ScanStatusTimeout   = 5
)

// QRCode is a fresh login QR code.
type QRCode struct {
	QRCode   string `json:"qrcode"`
	ClientID string `json:"clientId"`
}

// ScanStatus is the current state of a pending QR login.
type ScanStatus struct {
	Status     int    `json:"status"`
	StatusMsg  string `json:"statusMsg"`
	NickName   string `json:"nickName"`
	HeadImage  string `json:"headImage"`
	WxUserName string `json:"wxUserName"`
}

// ManualLoginResponse is returned after a confirmed QR scan is promoted to a
// full session.
type ManualLoginResponse struct {
	UserName   string `json:"userName"`
	NickName   string `json:"nickName"`
	Alias      string `json:"alias"`
	PluginFlag int    `json:"pluginFlag"`
	Status     int    `json:"status"`
	HeadImage  string `json:"headImage"`
}

// SelfQRCode is a contact or chatroom QR code.
type SelfQRCode struct {
	QRCode              string `json:"qrCode"`
	FooterWording       string `json:"footerWording"`
	RevokeQrcodeWording string `json:"revokeQrcodeWording"`
}

// UploadHeadImageResponse is returned after replacing the account avatar.
type UploadHeadImageResponse struct {
	BigHeadImageURL   string `json:"bigHeadImageUrl"`
	SmallHeadImageURL string `json:"smallHeadImageUrl"`
}

// UploadFileResponse is returned by the generic file upload endpoint.
type UploadFileResponse struct {
	URL string `json:"url"`
}

// Download image size variants.
const (
	DownloadImageOrigin = "1"
	DownloadImageHD     = "2"
	DownloadImageThumb  = "3"
)

// Resource download responses.
type (
	DownloadImageResponse struct {
		Content string `json:"content"`
		ImgURL  string `json:"imgUrl"`
	}

	DownloadFileResponse struct {
		Content string `json:"content"`
		FileURL string `json:"fileUrl"`
	}

	DownloadVoiceResponse struct {
		Content     string `json:"content"`
		VoiceURL    string `json:"voiceUrl"`
		VoiceLength int    `json:"voiceLength"`
	}

	DownloadVideoResponse struct {
		Content  string `json:"content"`
		VideoURL string `json:"videoUrl"`
	}
)
