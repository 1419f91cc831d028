// Copyright 2024-2026 Aiku AI

package simplepad

import "strings"

// IsRoomID reports whether the id names a chatroom.
func IsRoomID(id string) bool {
	return id != "" && strings.HasSuffix(id, "@chatroom")
}

// IsIMRoomID reports whether the id names an enterprise (WeCom) chatroom.
func IsIMRoomID(id string) bool {
	return id != "" && strings.HasSuffix(id, "@im.chatroom")
}

// IsIMContactID reports whether the id names an enterprise/open-platform
// contact.
func IsIMContactID(id string) bool {
	return id != "" && strings.HasSuffix(id, "@openim")
}

// IsContactID reports whether the id names a plain personal contact.
func IsContactID(id string) bool {
	if id == "" {
		return false
	}
	return !IsRoomID(id) && !IsIMRoomID(id) && !IsIMContactID(id)
}
