// Copyright 2024-2026 Aiku AI

package simplepad

import "testing"

func TestIDClassification(t *testing.T) {
	t.Parallel()
	cases := []struct {
		id                          string
		room, imRoom, imContact, contact bool
	}{
		{"123456789@chatroom", true, false, false, false},
		{"987654321@im.chatroom", false, true, false, false},
		{"abc@openim", false, false, true, false},
		{"wxid_abcdef", false, false, false, true},
		{"filehelper", false, false, false, true},
		{"", false, false, false, false},
	}
	for _, tc := range cases {
		if got := IsRoomID(tc.id); got != tc.room {
			t.Errorf("IsRoomID(%q) = %v, want %v", tc.id, got, tc.room)
		}
		if got := IsIMRoomID(tc.id); got != tc.imRoom {
			t.Errorf("IsIMRoomID(%q) = %v, want %v", tc.id, got, tc.imRoom)
		}
		if got := IsIMContactID(tc.id); got != tc.imContact {
			t.Errorf("IsIMContactID(%q) = %v, want %v", tc.id, got, tc.imContact)
		}
		if got := IsContactID(tc.id); got != tc.contact {
			t.Errorf("IsContactID(%q) = %v, want %v", tc.id, got, tc.contact)
		}
	}
}
