// Copyright 2024-2026 Aiku AI

package parser

import (
	"encoding/xml"
	"errors"
	"html"
	"strings"

	"github.com/aiku/simplepad-adapter/pkg/simplepad"
)

// SysMsgLinkMember names one contact referenced by a template placeholder.
type SysMsgLinkMember struct {
	UserName string `xml:"username"`
	NickName string `xml:"nickname"`
}

// SysMsgLink is one placeholder binding inside a system notice template.
type SysMsgLink struct {
	Name    string             `xml:"name,attr"`
	Type    string             `xml:"type,attr"`
	Members []SysMsgLinkMember `xml:"memberlist>member"`
	Plain   string             `xml:"plain"`
}

// SysMsgTemplate is the unwrapped natural-language template of a chatroom
// system notice, with its placeholder bindings.
type SysMsgTemplate struct {
	Template string
	Links    []SysMsgLink
}

type sysMsgXML struct {
	SysMsgTemplate struct {
		ContentTemplate struct {
			Template string       `xml:"template"`
			Links    []SysMsgLink `xml:"link_list>link"`
		} `xml:"content_template"`
	} `xml:"sysmsgtemplate"`
}

// ParseSysMsg unwraps a chatroom system notice. The wire content is the
// room id followed by ":" and the escaped <sysmsg> markup.
func ParseSysMsg(msg *simplepad.Message) (*SysMsgTemplate, error) {
	content := msg.Content
	if idx := strings.Index(content, ":"); idx >= 0 {
		content = content[idx+1:]
	}
	content = strings.TrimSpace(html.UnescapeString(content))

	var decoded sysMsgXML
	if err := xml.Unmarshal([]byte(content), &decoded); err != nil {
		return nil, &DecodeError{What: "system notice", Err: err}
	}
	tmpl := decoded.SysMsgTemplate.ContentTemplate
	if tmpl.Template == "" {
		return nil, &DecodeError{What: "system notice", Err: errNoTemplate}
	}
	return &SysMsgTemplate{Template: tmpl.Template, Links: tmpl.Links}, nil
}

var errNoTemplate = errors.New("no content template element")

// linkByPlaceholder finds the link bound to a template placeholder such as
// "$names$".
func (t *SysMsgTemplate) linkByPlaceholder(placeholder string) *SysMsgLink {
	name := strings.Trim(placeholder, "$")
	for i := range t.Links {
		if t.Links[i].Name == name {
			return &t.Links[i]
		}
	}
	return nil
}

// UserNames resolves a placeholder to the contact ids it references. When the
// placeholder is unbound the raw text is returned as-is, which covers
// templates that inline a literal nickname.
func (t *SysMsgTemplate) UserNames(placeholder string) []string {
	link := t.linkByPlaceholder(placeholder)
	if link == nil || len(link.Members) == 0 {
		return []string{placeholder}
	}
	out := make([]string, len(link.Members))
	for i, member := range link.Members {
		out[i] = member.UserName
	}
	return out
}

// UserName resolves a placeholder to a single contact id.
func (t *SysMsgTemplate) UserName(placeholder string) string {
	return t.UserNames(placeholder)[0]
}

// NickName resolves a placeholder to the display name it references.
func (t *SysMsgTemplate) NickName(placeholder string) string {
	link := t.linkByPlaceholder(placeholder)
	if link == nil || len(link.Members) == 0 {
		return placeholder
	}
	return link.Members[0].NickName
}
