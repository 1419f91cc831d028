// Copyright 2024-2026 Aiku AI

package parser

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.mau.fi/util/jsontime"

	"github.com/aiku/simplepad-adapter/pkg/simplepad"
)

// fakeResolver provides canned roster context for classifier tests.
type fakeResolver struct {
	selfID  string
	topics  map[string]string
	members map[string]string // display name -> contact id
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		selfID:  "wxid_self",
		topics:  make(map[string]string),
		members: make(map[string]string),
	}
}

func (f *fakeResolver) SelfID(context.Context, string) (string, error) {
	return f.selfID, nil
}

func (f *fakeResolver) FindMemberIDs(_ context.Context, _ string, name string) ([]string, error) {
	if id, ok := f.members[name]; ok {
		return []string{id}, nil
	}
	return nil, nil
}

func (f *fakeResolver) RoomTopic(_ context.Context, roomID string) (string, error) {
	return f.topics[roomID], nil
}

var _ MemberResolver = (*fakeResolver)(nil)

func newTestPipeline() (*Pipeline, *fakeResolver) {
	resolver := newFakeResolver()
	return NewPipeline(resolver, zerolog.Nop()), resolver
}

func testMessage(from, content string, msgType int) *simplepad.Message {
	return &simplepad.Message{
		ReportMsgType: simplepad.ReportMessage,
		FromUser:      from,
		ToUser:        "wxid_self",
		Content:       content,
		MsgType:       msgType,
		NewMsgID:      "7777888899990000111",
		CreateTime:    jsontime.Unix{Time: time.Unix(1700000000, 0)},
	}
}

// sysNotice wraps a template and links in the wire shape of a chatroom
// system notice.
func sysNotice(roomID, template, links string) *simplepad.Message {
	content := roomID + `:<sysmsg type="sysmsgtemplate"><sysmsgtemplate>` +
		`<content_template type="tmpl_type_profile"><plain><![CDATA[]]></plain>` +
		`<template><![CDATA[` + template + `]]></template>` +
		`<link_list>` + links + `</link_list>` +
		`</content_template></sysmsgtemplate></sysmsg>`
	return testMessage(roomID, content, simplepad.MsgTypeSys)
}

func memberLink(name, userName, nickName string) string {
	return `<link name="` + name + `" type="link_profile"><memberlist><member>` +
		`<username><![CDATA[` + userName + `]]></username>` +
		`<nickname><![CDATA[` + nickName + `]]></nickname>` +
		`</member></memberlist></link>`
}

// inviteCard builds the app message body of a room invitation.
func inviteCard(title, des, url string) string {
	return `<msg><appmsg appid="" sdkver="0"><title>` + title + `</title>` +
		`<des><![CDATA[` + des + `]]></des><type>5</type>` +
		`<url><![CDATA[` + url + `]]></url>` +
		`<thumburl><![CDATA[http://cdn.example.com/avatar.jpg]]></thumburl>` +
		`</appmsg></msg>`
}
