// Copyright 2024-2026 Aiku AI

package adapter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aiku/simplepad-adapter/pkg/parser"
	"github.com/aiku/simplepad-adapter/pkg/simplepad"
	"github.com/aiku/simplepad-adapter/pkg/wecache"
)

// SelfInfo returns the account's own profile.
func (a *Adapter) SelfInfo() (*simplepad.User, error) {
	a.selfMu.RLock()
	defer a.selfMu.RUnlock()
	if a.self == nil {
		return nil, ErrNotLoggedIn
	}
	self := *a.self
	return &self, nil
}

// SetSelfName updates the account display name.
func (a *Adapter) SetSelfName(ctx context.Context, name string) error {
	if err := a.client.ModifyNickName(ctx, name); err != nil {
		return err
	}
	a.selfMu.Lock()
	if a.self != nil {
		a.self.NickName = name
	}
	a.selfMu.Unlock()
	return nil
}

// SetSelfSignature updates the account signature.
func (a *Adapter) SetSelfSignature(ctx context.Context, signature string) error {
	return a.client.ModifySignature(ctx, signature)
}

// SetSelfAvatar replaces the account avatar from a hosted image.
func (a *Adapter) SetSelfAvatar(ctx context.Context, imageURL string) error {
	resp, err := a.client.UploadHeadImage(ctx, imageURL)
	if err != nil {
		return err
	}
	a.selfMu.Lock()
	if a.self != nil {
		a.self.BigHeadImgURL = resp.BigHeadImageURL
		a.self.SmallHeadImgURL = resp.SmallHeadImageURL
	}
	a.selfMu.Unlock()
	return nil
}

// SelfQRCode returns the account's contact QR code.
func (a *Adapter) SelfQRCode(ctx context.Context) (string, error) {
	id := a.selfID()
	if id == "" {
		return "", ErrNotLoggedIn
	}
	qr, err := a.client.GetSelfQRCode(ctx, id)
	if err != nil {
		return "", err
	}
	return qr.QRCode, nil
}

// ContactList returns the ids of all known contacts.
func (a *Adapter) ContactList() ([]string, error) {
	contacts, err := a.cache.AllContacts()
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(contacts))
	for i, contact := range contacts {
		ids[i] = contact.UserName
	}
	return ids, nil
}

// ContactPayload returns a contact record, fetching and caching it on a
// miss.
func (a *Adapter) ContactPayload(ctx context.Context, contactID string) (*simplepad.Contact, error) {
	contact, err := a.cache.Contact(contactID)
	if err == nil {
		return contact, nil
	}
	if !errors.Is(err, wecache.ErrNotFound) {
		return nil, err
	}
	contact, err = a.client.GetContact(ctx, contactID)
	if err != nil {
		return nil, err
	}
	if err := a.cache.SetContact(contact); err != nil {
		return nil, err
	}
	return contact, nil
}

// SetContactAlias updates the remark of a contact.
func (a *Adapter) SetContactAlias(ctx context.Context, contactID, alias string) error {
	if err := a.client.UpdateContactRemark(ctx, contactID, alias); err != nil {
		return err
	}
	contact, err := a.cache.Contact(contactID)
	if err != nil {
		return nil
	}
	contact.Remark = alias
	return a.cache.SetContact(contact)
}

// ContactAvatar returns the best available avatar URL of a contact.
func (a *Adapter) ContactAvatar(ctx context.Context, contactID string) (string, error) {
	contact, err := a.ContactPayload(ctx, contactID)
	if err != nil {
		return "", err
	}
	if contact.BigHeadImgURL != "" {
		return contact.BigHeadImgURL, nil
	}
	return contact.SmallHeadImgURL, nil
}

// ContactDelete removes a contact relationship.
func (a *Adapter) ContactDelete(ctx context.Context, contactID string) error {
	if err := a.client.DeleteContact(ctx, contactID); err != nil {
		return err
	}
	return a.cache.DeleteContact(contactID)
}

// FriendshipSearch looks a contact up by phone number or account id.
// Results are served from the ephemeral tier while fresh.
func (a *Adapter) FriendshipSearch(ctx context.Context, query string) (*simplepad.SearchContact, error) {
	if cached, err := a.cache.ContactSearch(query); err == nil {
		return cached, nil
	}
	result, err := a.client.SearchContact(ctx, query)
	if err != nil {
		return nil, err
	}
	if err := a.cache.SetContactSearch(query, result); err != nil {
		return nil, err
	}
	return result, nil
}

// FriendshipAdd sends a friend request.
func (a *Adapter) FriendshipAdd(ctx context.Context, contactID, hello string) error {
	return a.client.ApplyNewContact(ctx, contactID, hello)
}

// FriendshipAccept accepts a received friend request by the id of the
// message that carried it.
func (a *Adapter) FriendshipAccept(ctx context.Context, friendshipID string) error {
	var payload parser.FriendshipPayload
	if err := a.cache.FriendshipPayload(friendshipID, &payload); err != nil {
		return fmt.Errorf("unknown friendship %s: %w", friendshipID, err)
	}
	if payload.Type != parser.FriendshipReceive {
		return fmt.Errorf("friendship %s is not a received request", friendshipID)
	}
	return a.client.VerifyFriendApply(ctx, payload.VerifyXML)
}

// ---- contact tags ----

// labelList returns the global label list, loading it once and serving it
// from memory until a mutation invalidates it.
func (a *Adapter) labelList(ctx context.Context) ([]simplepad.Label, error) {
	if labels, ok := a.cache.Labels(); ok {
		return labels, nil
	}
	labels, err := a.client.GetAllContactLabels(ctx)
	if err != nil {
		return nil, err
	}
	a.cache.SetLabels(labels)
	return labels, nil
}

// TagList returns all tag names.
func (a *Adapter) TagList(ctx context.Context) ([]string, error) {
	labels, err := a.labelList(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(labels))
	for i, label := range labels {
		names[i] = label.LabelName
	}
	return names, nil
}

// ContactTagList returns the tag names attached to a contact.
func (a *Adapter) ContactTagList(ctx context.Context, contactID string) ([]string, error) {
	contact, err := a.ContactPayload(ctx, contactID)
	if err != nil {
		return nil, err
	}
	labels, err := a.labelList(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int]string, len(labels))
	for _, label := range labels {
		byID[label.LabelID] = label.LabelName
	}
	var names []string
	for _, id := range parseLabelIDs(contact.LabelIDList) {
		if name, ok := byID[id]; ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// TagContactAdd attaches a tag to a contact, creating the tag when needed.
func (a *Adapter) TagContactAdd(ctx context.Context, tagName, contactID string) error {
	labelID, err := a.findLabelID(ctx, tagName)
	if err != nil {
		return err
	}
	if labelID == 0 {
		labelID, err = a.client.AddContactLabel(ctx, tagName)
		if err != nil {
			return err
		}
		// The list changed remotely, patching it locally would drift.
		a.cache.InvalidateLabels()
	}

	contact, err := a.ContactPayload(ctx, contactID)
	if err != nil {
		return err
	}
	ids := parseLabelIDs(contact.LabelIDList)
	for _, id := range ids {
		if id == labelID {
			return nil
		}
	}
	ids = append(ids, labelID)
	return a.writeContactLabels(ctx, contact, ids)
}

// TagContactRemove detaches a tag from a contact.
func (a *Adapter) TagContactRemove(ctx context.Context, tagName, contactID string) error {
	labelID, err := a.findLabelID(ctx, tagName)
	if err != nil {
		return err
	}
	if labelID == 0 {
		return fmt.Errorf("unknown tag %q", tagName)
	}
	contact, err := a.ContactPayload(ctx, contactID)
	if err != nil {
		return err
	}
	ids := parseLabelIDs(contact.LabelIDList)
	kept := ids[:0]
	for _, id := range ids {
		if id != labelID {
			kept = append(kept, id)
		}
	}
	return a.writeContactLabels(ctx, contact, kept)
}

// TagDelete removes a tag globally.
func (a *Adapter) TagDelete(ctx context.Context, tagName string) error {
	labelID, err := a.findLabelID(ctx, tagName)
	if err != nil {
		return err
	}
	if labelID == 0 {
		return fmt.Errorf("unknown tag %q", tagName)
	}
	if err := a.client.DelContactLabel(ctx, strconv.Itoa(labelID)); err != nil {
		return err
	}
	a.cache.InvalidateLabels()
	return nil
}

func (a *Adapter) findLabelID(ctx context.Context, tagName string) (int, error) {
	labels, err := a.labelList(ctx)
	if err != nil {
		return 0, err
	}
	for _, label := range labels {
		if label.LabelName == tagName {
			return label.LabelID, nil
		}
	}
	return 0, nil
}

func (a *Adapter) writeContactLabels(ctx context.Context, contact *simplepad.Contact, ids []int) error {
	joined := joinLabelIDs(ids)
	if err := a.client.EditContactLabel(ctx, contact.UserName, joined); err != nil {
		return err
	}
	contact.LabelIDList = joined
	return a.cache.SetContact(contact)
}

func parseLabelIDs(joined string) []int {
	if joined == "" {
		return nil
	}
	parts := strings.Split(joined, ",")
	var ids []int
	for _, part := range parts {
		if id, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func joinLabelIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
