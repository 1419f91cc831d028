// Copyright 2024-2026 Aiku AI

package adapter

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.mau.fi/util/jsontime"

	"github.com/aiku/simplepad-adapter/pkg/simplepad"
)

func sendResponse(id string) simplepad.SendMessageResponse {
	return simplepad.SendMessageResponse{
		CreateTime:  jsontime.Unix{Time: time.Unix(1700000100, 0)},
		ClientMsgID: 4242,
		MsgID:       17,
		NewMsgID:    simplepad.MsgID(id),
	}
}

func TestSendTextRecordsMessageAndRevokeInfo(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.backend.setResponse("/api/v1/chat/sendText", sendResponse("8001"))
	env.start()

	id, err := env.adapter.SendText(context.Background(), "wxid_friend", "hello there", nil)
	if err != nil {
		t.Fatal(err)
	}
	if id != "8001" {
		t.Errorf("message id = %q, want 8001", id)
	}

	msg, err := env.adapter.RawMessage(id)
	if err != nil {
		t.Fatalf("sent message not cached: %v", err)
	}
	if msg.FromUser != "wxid_self" || msg.ToUser != "wxid_friend" || msg.Content != "hello there" {
		t.Errorf("cached record = %+v", msg)
	}

	info, err := env.adapter.Cache().MessageRevokeInfo(id)
	if err != nil {
		t.Fatalf("revoke info not cached: %v", err)
	}
	if info.ClientMsgID != "4242" || info.SvrMsgID != "8001" || info.ToUser != "wxid_friend" {
		t.Errorf("revoke info = %+v", info)
	}
}

func TestMessageRecall(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.backend.setResponse("/api/v1/chat/sendText", sendResponse("8002"))
	env.backend.setResponse("/api/v1/chat/revokeMsg", simplepad.RevokeMessageResponse{SysWording: "已撤回"})
	env.start()

	id, err := env.adapter.SendText(context.Background(), "wxid_friend", "oops", nil)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := env.adapter.MessageRecall(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("recall reported failure")
	}
	if !env.backend.calledPath("revokeMsg") {
		t.Error("recall never reached the backend")
	}

	if _, err := env.adapter.MessageRecall(context.Background(), "never-sent"); err == nil {
		t.Error("recall of unknown message succeeded")
	}
}

func TestMessageForwardNotSupported(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.start()

	if err := env.adapter.MessageForward(context.Background(), "wxid_friend", "8003"); err != ErrNotSupported {
		t.Errorf("forward error = %v, want ErrNotSupported", err)
	}
	if err := env.adapter.MarkMessageRead(context.Background(), "8003"); err != ErrNotSupported {
		t.Errorf("mark read error = %v, want ErrNotSupported", err)
	}
}

func TestMessageImageURL(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.backend.setResponse("/api/v1/chat/downloadImageByKey", map[string]string{
		"imgUrl": "https://cdn.example.com/full.jpg",
	})
	env.start()

	content := `<msg><img aeskey="aes-full" cdnthumbaeskey="aes-thumb" ` +
		`cdnthumburl="3057thumb" cdnmidimgurl="3057mid" length="1024" md5="abcd"/></msg>`
	msg := inboundMessage("8004", "wxid_friend", content, simplepad.MsgTypeImage)
	env.adapter.handleMessage(context.Background(), msg)
	waitEvent[*MessageEvent](t, env.sink)

	url, err := env.adapter.MessageImageURL(context.Background(), "8004", simplepad.DownloadImageOrigin)
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://cdn.example.com/full.jpg" {
		t.Errorf("image url = %q", url)
	}

	// Wrong type is rejected before any backend call.
	env.adapter.handleMessage(context.Background(), inboundMessage("8005", "wxid_friend", "text", simplepad.MsgTypeText))
	waitEvent[*MessageEvent](t, env.sink)
	if _, err := env.adapter.MessageImageURL(context.Background(), "8005", simplepad.DownloadImageOrigin); err == nil {
		t.Error("image url of a text message succeeded")
	}
}

func TestMessageFileURL(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.backend.setResponse("/api/v1/chat/downloadFileByKey", map[string]string{
		"fileUrl": "https://cdn.example.com/report.pdf",
	})
	env.start()

	content := `<msg><appmsg appid="" sdkver="0"><title>report</title><type>6</type>` +
		`<appattach><totallen>2048</totallen><fileext>pdf</fileext>` +
		`<attachid>att-1</attachid><cdnattachurl>3057attach</cdnattachurl>` +
		`<aeskey>aes-file</aeskey></appattach></appmsg></msg>`
	env.adapter.handleMessage(context.Background(), inboundMessage("8006", "wxid_friend", content, simplepad.MsgTypeApp))
	waitEvent[*MessageEvent](t, env.sink)

	url, err := env.adapter.MessageFileURL(context.Background(), "8006")
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://cdn.example.com/report.pdf" {
		t.Errorf("file url = %q", url)
	}
}

func TestMessageURLCard(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.start()

	content := `<msg><appmsg appid="" sdkver="0"><title>Interesting read</title>` +
		`<des><![CDATA[An article]]></des><type>5</type>` +
		`<url><![CDATA[https://example.com/article]]></url></appmsg></msg>`
	env.adapter.handleMessage(context.Background(), inboundMessage("8007", "wxid_friend", content, simplepad.MsgTypeApp))
	waitEvent[*MessageEvent](t, env.sink)

	card, err := env.adapter.MessageURLCard("8007")
	if err != nil {
		t.Fatal(err)
	}
	if card.Title != "Interesting read" || !strings.Contains(card.URL, "example.com") {
		t.Errorf("card = %+v", card)
	}
}

func TestSendFileDataUploadsFirst(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.backend.setResponse("/upload", simplepad.UploadFileResponse{URL: "https://files.example.com/notes.txt"})
	env.backend.setResponse("/api/v1/chat/sendFile", sendResponse("8008"))
	env.start()

	id, err := env.adapter.SendFileData(context.Background(), "wxid_friend", "notes.txt", strings.NewReader("file body"))
	if err != nil {
		t.Fatal(err)
	}
	if id != "8008" {
		t.Errorf("message id = %q, want 8008", id)
	}
	if !env.backend.calledPath("/upload") {
		t.Error("file was never uploaded")
	}
	if !env.backend.calledPath("sendFile") {
		t.Error("file was never sent")
	}
}
