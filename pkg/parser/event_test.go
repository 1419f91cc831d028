// Copyright 2024-2026 Aiku AI

package parser

import (
	"context"
	"testing"
	"time"

	"github.com/aiku/simplepad-adapter/pkg/simplepad"
)

// TestClassify_PlainText verifies an ordinary text message falls through the
// whole chain and comes out as a normal message carrying only its id.
func TestClassify_PlainText(t *testing.T) {
	t.Parallel()
	p, _ := newTestPipeline()
	msg := testMessage("wxid_friend", "hello", simplepad.MsgTypeText)

	parsed := p.Classify(context.Background(), msg)
	if parsed.Category != CategoryNormalMessage {
		t.Fatalf("expected normal message, got %s", parsed.Category)
	}
	payload := parsed.Payload.(*NormalMessagePayload)
	if payload.MessageID != msg.NewMsgID.String() {
		t.Fatalf("unexpected message id: %q", payload.MessageID)
	}
}

// TestClassify_Deterministic verifies repeated classification of the same
// message gives the same category.
func TestClassify_Deterministic(t *testing.T) {
	t.Parallel()
	p, _ := newTestPipeline()
	msg := testMessage("wxid_friend", "你已添加了小明，现在可以开始聊天了。", simplepad.MsgTypeText)

	first := p.Classify(context.Background(), msg)
	second := p.Classify(context.Background(), msg)
	if first.Category != CategoryFriendship || second.Category != first.Category {
		t.Fatalf("classification not deterministic: %s then %s", first.Category, second.Category)
	}
}

// TestClassify_MalformedMarkupIsNormal verifies a message with broken markup
// that matches no classifier still classifies as a normal message.
func TestClassify_MalformedMarkupIsNormal(t *testing.T) {
	t.Parallel()
	p, _ := newTestPipeline()
	msg := testMessage("wxid_friend", "<msg><appmsg><title>x", simplepad.MsgTypeApp)

	parsed := p.Classify(context.Background(), msg)
	if parsed.Category != CategoryNormalMessage {
		t.Fatalf("expected normal message fallback, got %s", parsed.Category)
	}
}

// TestFriendship_ConfirmVariants covers the accept wordings in both locales.
func TestFriendship_ConfirmVariants(t *testing.T) {
	t.Parallel()
	p, _ := newTestPipeline()
	contents := []string{
		"You have added Ming as your WeChat contact. Start chatting!",
		"你已添加了小明，现在可以开始聊天了。",
		"I've accepted your friend request. Now let's chat!",
		"Ming just added you to his/her contacts list. Send a message to him/her now!",
		"小明刚刚把你添加到通讯录，现在可以开始聊天了。",
		"我通过了你的朋友验证请求，现在我们可以开始聊天了",
	}
	for _, content := range contents {
		msg := testMessage("wxid_ming", content, simplepad.MsgTypeText)
		parsed := p.Classify(context.Background(), msg)
		if parsed.Category != CategoryFriendship {
			t.Fatalf("content %q: expected friendship, got %s", content, parsed.Category)
		}
		payload := parsed.Payload.(*FriendshipPayload)
		if payload.Type != FriendshipConfirm || payload.ContactID != "wxid_ming" {
			t.Fatalf("content %q: unexpected payload %+v", content, payload)
		}
	}
}

// TestFriendship_Verify covers the verification-required wordings.
func TestFriendship_Verify(t *testing.T) {
	t.Parallel()
	p, _ := newTestPipeline()
	msg := testMessage("wxid_ming", "Ming has enabled Friend Confirmation", simplepad.MsgTypeText)
	parsed := p.Classify(context.Background(), msg)
	if parsed.Category != CategoryFriendship {
		t.Fatalf("expected friendship, got %s", parsed.Category)
	}
	if parsed.Payload.(*FriendshipPayload).Type != FriendshipVerify {
		t.Fatal("expected verify type")
	}
}

// TestFriendship_Receive covers an inbound friend request verify body.
func TestFriendship_Receive(t *testing.T) {
	t.Parallel()
	p, _ := newTestPipeline()
	content := `<msg fromusername="wxid_stranger" encryptusername="v3_encrypted" content="hi, add me" scene="14" ticket="t123" sourcenickname="" sourceusername="" sharecardnickname="" sharecardusername=""></msg>`
	msg := testMessage("fmessage", content, simplepad.MsgTypeVerify)

	parsed := p.Classify(context.Background(), msg)
	if parsed.Category != CategoryFriendship {
		t.Fatalf("expected friendship, got %s", parsed.Category)
	}
	payload := parsed.Payload.(*FriendshipPayload)
	if payload.Type != FriendshipReceive {
		t.Fatal("expected receive type")
	}
	if payload.ContactID != "wxid_stranger" || payload.Stranger != "v3_encrypted" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.Hello != "hi, add me" || payload.Scene != 14 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.VerifyXML == "" {
		t.Fatal("expected raw verify markup to be kept")
	}
}

// TestFriendship_ReceiveEnterprise covers an @openim sender, which needs no
// encryptusername.
func TestFriendship_ReceiveEnterprise(t *testing.T) {
	t.Parallel()
	p, _ := newTestPipeline()
	content := `<msg fromusername="abc@openim" encryptusername="" content="hello" scene="30" ticket=""></msg>`
	msg := testMessage("fmessage", content, simplepad.MsgTypeVerifyEnterprise)

	parsed := p.Classify(context.Background(), msg)
	if parsed.Category != CategoryFriendship {
		t.Fatalf("expected friendship, got %s", parsed.Category)
	}
	if parsed.Payload.(*FriendshipPayload).ContactID != "abc@openim" {
		t.Fatalf("unexpected payload: %+v", parsed.Payload)
	}
}

// TestRoomInvite verifies the invitation card classifies with the room topic
// captured from the description.
func TestRoomInvite(t *testing.T) {
	t.Parallel()
	p, _ := newTestPipeline()
	content := inviteCard(
		"Group Chat Invitation",
		`"X" invited you to join the group chat "Y". Enter to view details.`,
		"https://support.weixin.qq.com/cgi-bin/invite?x=1",
	)
	msg := testMessage("wxid_x", content, simplepad.MsgTypeApp)

	parsed := p.Classify(context.Background(), msg)
	if parsed.Category != CategoryRoomInvite {
		t.Fatalf("expected room invite, got %s", parsed.Category)
	}
	payload := parsed.Payload.(*RoomInvitePayload)
	if payload.Topic != "Y" {
		t.Fatalf("expected topic Y, got %q", payload.Topic)
	}
	if payload.InviterID != "wxid_x" || payload.ReceiverID != "wxid_self" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.InviteURL == "" || payload.Avatar == "" {
		t.Fatalf("expected url and avatar: %+v", payload)
	}
}

// TestRoomInvite_ZH covers the Chinese invitation phrasing.
func TestRoomInvite_ZH(t *testing.T) {
	t.Parallel()
	p, _ := newTestPipeline()
	content := inviteCard(
		"邀请你加入群聊",
		`"小明"邀请你加入群聊周末爬山，进入可查看详情。`,
		"https://support.weixin.qq.com/cgi-bin/invite?x=2",
	)
	msg := testMessage("wxid_ming", content, simplepad.MsgTypeApp)

	parsed := p.Classify(context.Background(), msg)
	if parsed.Category != CategoryRoomInvite {
		t.Fatalf("expected room invite, got %s", parsed.Category)
	}
	if topic := parsed.Payload.(*RoomInvitePayload).Topic; topic != "周末爬山" {
		t.Fatalf("expected topic 周末爬山, got %q", topic)
	}
}

// TestRoomInvite_PlainLinkIsNotInvite verifies an ordinary shared link does
// not classify as an invitation.
func TestRoomInvite_PlainLinkIsNotInvite(t *testing.T) {
	t.Parallel()
	p, _ := newTestPipeline()
	content := inviteCard("Interesting article", "Read this", "https://example.com/a")
	msg := testMessage("wxid_x", content, simplepad.MsgTypeApp)

	parsed := p.Classify(context.Background(), msg)
	if parsed.Category != CategoryNormalMessage {
		t.Fatalf("expected normal message, got %s", parsed.Category)
	}
}

// TestRoomJoin_YouInvited verifies the account's own invitation notice.
func TestRoomJoin_YouInvited(t *testing.T) {
	t.Parallel()
	p, resolver := newTestPipeline()
	resolver.members["小明"] = "wxid_ming"
	msg := testMessage("88@chatroom", `你邀请"小明"加入了群聊`, simplepad.MsgTypeSys)

	parsed := p.Classify(context.Background(), msg)
	if parsed.Category != CategoryRoomJoin {
		t.Fatalf("expected room join, got %s", parsed.Category)
	}
	payload := parsed.Payload.(*RoomJoinPayload)
	if payload.InviterID != "wxid_self" {
		t.Fatalf("expected self inviter, got %q", payload.InviterID)
	}
	if len(payload.InviteeIDs) != 1 || payload.InviteeIDs[0] != "wxid_ming" {
		t.Fatalf("unexpected invitees: %v", payload.InviteeIDs)
	}
}

// TestRoomJoin_OtherInvited verifies a wrapped notice resolving invitees
// through the placeholder bindings.
func TestRoomJoin_OtherInvited(t *testing.T) {
	t.Parallel()
	p, _ := newTestPipeline()
	msg := sysNotice("88@chatroom",
		`"$username$"邀请"$names$"加入了群聊`,
		memberLink("username", "wxid_inviter", "老王")+memberLink("names", "wxid_new", "小明"))

	parsed := p.Classify(context.Background(), msg)
	if parsed.Category != CategoryRoomJoin {
		t.Fatalf("expected room join, got %s", parsed.Category)
	}
	payload := parsed.Payload.(*RoomJoinPayload)
	if payload.InviterID != "wxid_inviter" {
		t.Fatalf("unexpected inviter: %q", payload.InviterID)
	}
	if len(payload.InviteeIDs) != 1 || payload.InviteeIDs[0] != "wxid_new" {
		t.Fatalf("unexpected invitees: %v", payload.InviteeIDs)
	}
}

// TestRoomJoin_ScanQRCode verifies the shared-QR join phrasing.
func TestRoomJoin_ScanQRCode(t *testing.T) {
	t.Parallel()
	p, resolver := newTestPipeline()
	resolver.members["Ming"] = "wxid_ming"
	msg := testMessage("88@chatroom", `"Ming" joined group chat via the QR code you shared`, simplepad.MsgTypeSys)

	parsed := p.Classify(context.Background(), msg)
	if parsed.Category != CategoryRoomJoin {
		t.Fatalf("expected room join, got %s", parsed.Category)
	}
	payload := parsed.Payload.(*RoomJoinPayload)
	if payload.InviterID != "wxid_self" || payload.InviteeIDs[0] != "wxid_ming" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

// TestRoomLeave_OtherRemoved verifies the account removing a member, with the
// removee resolved from the placeholder binding, and that the event is
// registered for debouncing.
func TestRoomLeave_OtherRemoved(t *testing.T) {
	t.Parallel()
	p, _ := newTestPipeline()
	msg := sysNotice("88@chatroom",
		`You removed "$names$" from the group chat`,
		memberLink("names", "wxid_gone", "小明"))

	parsed := p.Classify(context.Background(), msg)
	if parsed.Category != CategoryRoomLeave {
		t.Fatalf("expected room leave, got %s", parsed.Category)
	}
	payload := parsed.Payload.(*RoomLeavePayload)
	if payload.RemoverID != "wxid_self" {
		t.Fatalf("unexpected remover: %q", payload.RemoverID)
	}
	if len(payload.RemoveeIDs) != 1 || payload.RemoveeIDs[0] != "wxid_gone" {
		t.Fatalf("unexpected removees: %v", payload.RemoveeIDs)
	}
	if !p.IsRoomLeaveDebouncing("88@chatroom", "wxid_gone") {
		t.Fatal("leave event was not registered for debouncing")
	}
	if p.IsRoomLeaveDebouncing("88@chatroom", "wxid_other") {
		t.Fatal("unrelated member reported as debouncing")
	}
}

// TestRoomLeave_BotRemoved verifies the plain-text notice for the account's
// own removal in both locales.
func TestRoomLeave_BotRemoved(t *testing.T) {
	t.Parallel()
	p, _ := newTestPipeline()
	for _, content := range []string{
		`You were removed from the group chat by "Boss"`,
		`你被"老板"移出群聊`,
	} {
		parsed := p.Classify(context.Background(), testMessage("88@chatroom", content, simplepad.MsgTypeSys))
		if parsed.Category != CategoryRoomLeave {
			t.Fatalf("content %q: expected room leave, got %s", content, parsed.Category)
		}
		payload := parsed.Payload.(*RoomLeavePayload)
		if len(payload.RemoveeIDs) != 1 || payload.RemoveeIDs[0] != "wxid_self" {
			t.Fatalf("content %q: unexpected removees %v", content, payload.RemoveeIDs)
		}
	}
}

// TestRoomLeave_DebounceExpires verifies the debounce window closes on its
// own after the configured interval.
func TestRoomLeave_DebounceExpires(t *testing.T) {
	t.Parallel()
	p, _ := newTestPipeline()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p.leaveDebounce.now = func() time.Time { return now }

	p.leaveDebounce.mark("88@chatroom", "wxid_gone")
	if !p.IsRoomLeaveDebouncing("88@chatroom", "wxid_gone") {
		t.Fatal("expected debouncing right after mark")
	}
	now = now.Add(roomLeaveDebounceWindow + time.Millisecond)
	if p.IsRoomLeaveDebouncing("88@chatroom", "wxid_gone") {
		t.Fatal("debounce did not expire")
	}
}

// TestRoomTopic_Other verifies a rename by another member through the
// wrapped notice, with the old topic read from the resolver.
func TestRoomTopic_Other(t *testing.T) {
	t.Parallel()
	p, resolver := newTestPipeline()
	resolver.topics["88@chatroom"] = "Old Topic"
	msg := sysNotice("88@chatroom",
		`"$username$" changed the group name to "$remark$"`,
		memberLink("username", "wxid_changer", "老王")+memberLink("remark", "", "New Topic"))

	parsed := p.Classify(context.Background(), msg)
	if parsed.Category != CategoryRoomTopic {
		t.Fatalf("expected room topic, got %s", parsed.Category)
	}
	payload := parsed.Payload.(*RoomTopicPayload)
	if payload.ChangerID != "wxid_changer" {
		t.Fatalf("unexpected changer: %q", payload.ChangerID)
	}
	if payload.OldTopic != "Old Topic" || payload.NewTopic != "New Topic" {
		t.Fatalf("unexpected topics: %+v", payload)
	}
}

// TestRoomTopic_You verifies the plain-text notice for the account's own
// rename.
func TestRoomTopic_You(t *testing.T) {
	t.Parallel()
	p, _ := newTestPipeline()
	msg := testMessage("88@chatroom", `你修改群名为“新的群名”`, simplepad.MsgTypeSys)

	parsed := p.Classify(context.Background(), msg)
	if parsed.Category != CategoryRoomTopic {
		t.Fatalf("expected room topic, got %s", parsed.Category)
	}
	payload := parsed.Payload.(*RoomTopicPayload)
	if payload.ChangerID != "wxid_self" || payload.NewTopic != "新的群名" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

// TestRoomEvents_IgnoreDirectChats verifies room classifiers never match
// messages outside chatrooms.
func TestRoomEvents_IgnoreDirectChats(t *testing.T) {
	t.Parallel()
	p, _ := newTestPipeline()
	msg := testMessage("wxid_friend", `You removed "X" from the group chat`, simplepad.MsgTypeText)

	parsed := p.Classify(context.Background(), msg)
	if parsed.Category != CategoryNormalMessage {
		t.Fatalf("expected normal message, got %s", parsed.Category)
	}
}
