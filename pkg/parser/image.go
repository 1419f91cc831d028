// Copyright 2024-2026 Aiku AI

package parser

import (
	"encoding/xml"

	"github.com/aiku/simplepad-adapter/pkg/simplepad"
)

// ImagePayload is the decoded <msg><img> body of an image message. The CDN
// fields feed the keyed download endpoints.
type ImagePayload struct {
	AESKey         string
	EncryVer       string
	CDNThumbAESKey string
	CDNThumbURL    string
	CDNThumbLength int
	CDNThumbHeight int
	CDNThumbWidth  int
	CDNMidImgURL   string
	CDNBigImgURL   string
	Length         int
	HDLength       int
	MD5            string
}

type imageXML struct {
	Img struct {
		AESKey         string `xml:"aeskey,attr"`
		EncryVer       string `xml:"encryver,attr"`
		CDNThumbAESKey string `xml:"cdnthumbaeskey,attr"`
		CDNThumbURL    string `xml:"cdnthumburl,attr"`
		CDNThumbLength int    `xml:"cdnthumblength,attr"`
		CDNThumbHeight int    `xml:"cdnthumbheight,attr"`
		CDNThumbWidth  int    `xml:"cdnthumbwidth,attr"`
		CDNMidImgURL   string `xml:"cdnmidimgurl,attr"`
		CDNBigImgURL   string `xml:"cdnbigimgurl,attr"`
		Length         int    `xml:"length,attr"`
		HDLength       int    `xml:"hdlength,attr"`
		MD5            string `xml:"md5,attr"`
	} `xml:"img"`
}

// ParseImage decodes the image markup of a message.
func ParseImage(msg *simplepad.Message) (*ImagePayload, error) {
	var decoded imageXML
	if err := xml.Unmarshal([]byte(stripSenderLine(msg.Content)), &decoded); err != nil {
		return nil, &DecodeError{What: "image message", Err: err}
	}
	img := decoded.Img
	return &ImagePayload{
		AESKey:         img.AESKey,
		EncryVer:       img.EncryVer,
		CDNThumbAESKey: img.CDNThumbAESKey,
		CDNThumbURL:    img.CDNThumbURL,
		CDNThumbLength: img.CDNThumbLength,
		CDNThumbHeight: img.CDNThumbHeight,
		CDNThumbWidth:  img.CDNThumbWidth,
		CDNMidImgURL:   img.CDNMidImgURL,
		CDNBigImgURL:   img.CDNBigImgURL,
		Length:         img.Length,
		HDLength:       img.HDLength,
		MD5:            img.MD5,
	}, nil
}
