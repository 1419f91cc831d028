// Copyright 2024-2026 Aiku AI

package adapter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mau.fi/util/exsync"

	"github.com/aiku/simplepad-adapter/pkg/parser"
	"github.com/aiku/simplepad-adapter/pkg/simplepad"
	"github.com/aiku/simplepad-adapter/pkg/wecache"
)

// ErrNotSupported marks operations the backend has no endpoint for.
var ErrNotSupported = errors.New("adapter: operation not supported by backend")

// ErrNotLoggedIn is returned by operations that need an active session.
var ErrNotLoggedIn = errors.New("adapter: not logged in")

// Adapter normalizes the SimplePad backend into typed events and cached
// entity lookups. One adapter serves one account session.
type Adapter struct {
	log      zerolog.Logger
	cfg      *Config
	client   *simplepad.Client
	cache    *wecache.Manager
	pipeline *parser.Pipeline
	sink     EventSink

	selfMu sync.RWMutex
	self   *simplepad.User

	// active is true between a successful login and logout. The connection
	// loop only reconnects while it is set.
	active atomic.Bool
	ready  *exsync.Event

	stopChan  chan struct{}
	stopOnce  sync.Once
	readyOnce sync.Once
	wg        sync.WaitGroup

	connMu sync.Mutex
	conn   wsConn

	dialWS wsDialFunc
}

// New creates an adapter for the configured account. Every adapter instance
// gets its own session id so logs from concurrent accounts stay separable.
func New(cfg *Config, sink EventSink, log zerolog.Logger) *Adapter {
	a := &Adapter{
		log:      log.With().Str("component", "adapter").Str("session_id", uuid.NewString()).Logger(),
		cfg:      cfg,
		client:   simplepad.NewClient(cfg.Endpoint, cfg.Token, log),
		cache:    wecache.NewManager(cfg.DataDir, log),
		sink:     sink,
		ready:    exsync.NewEvent(),
		stopChan: make(chan struct{}),
		dialWS:   defaultDialWS,
	}
	a.pipeline = parser.NewPipeline(a, log)
	return a
}

// Client exposes the wire client for host operations the adapter does not
// wrap.
func (a *Adapter) Client() *simplepad.Client {
	return a.client
}

// Cache exposes the entity cache for host lookups.
func (a *Adapter) Cache() *wecache.Manager {
	return a.cache
}

// Start brings the session up: login if needed, initial sync, then the push
// channel. It returns once the connection loop is running.
func (a *Adapter) Start(ctx context.Context) error {
	if !a.client.IsOnline(ctx) {
		if err := a.manualLogin(ctx); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
	}

	self, err := a.client.GetSelfInfo(ctx)
	if err != nil {
		return fmt.Errorf("failed to load own profile: %w", err)
	}
	a.selfMu.Lock()
	a.self = self
	a.selfMu.Unlock()
	a.log.Info().Str("user_name", self.UserName).Msg("Session established")

	if err := a.cache.Open(self.UserName); err != nil && !errors.Is(err, wecache.ErrAlreadyOpen) {
		return fmt.Errorf("failed to open cache: %w", err)
	}

	if err := a.syncContacts(ctx); err != nil {
		return fmt.Errorf("initial contact sync failed: %w", err)
	}

	a.active.Store(true)
	a.sink.QueueEvent(&LoginEvent{UserName: self.UserName, NickName: self.NickName})

	a.wg.Add(1)
	go a.connectionLoop()
	return nil
}

// manualLogin drives the QR login flow: emit the code, poll the scan status
// until the user confirms, then promote the scan to a session.
func (a *Adapter) manualLogin(ctx context.Context) error {
	qr, err := a.client.GetQRCode(ctx)
	if err != nil {
		return err
	}
	a.sink.QueueEvent(&ScanEvent{QRCode: qr.QRCode, Status: simplepad.ScanStatusWaiting})
	a.log.Info().Msg("Waiting for QR code scan")

	ticker := time.NewTicker(a.cfg.ScanPollInterval)
	defer ticker.Stop()
	lastStatus := simplepad.ScanStatusWaiting
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.stopChan:
			return errors.New("adapter stopped during login")
		case <-ticker.C:
		}

		status, err := a.client.CheckScanStatus(ctx)
		if err != nil {
			a.log.Warn().Err(err).Msg("Scan status check failed")
			continue
		}
		if status.Status != lastStatus {
			lastStatus = status.Status
			a.sink.QueueEvent(&ScanEvent{QRCode: qr.QRCode, Status: status.Status})
		}

		switch status.Status {
		case simplepad.ScanStatusConfirmed:
			resp, err := a.client.ManualLogin(ctx)
			if err != nil {
				return err
			}
			a.log.Info().Str("user_name", resp.UserName).Msg("QR login confirmed")
			return nil
		case simplepad.ScanStatusCancel, simplepad.ScanStatusTimeout:
			// Expired or rejected, issue a fresh code and keep waiting.
			qr, err = a.client.GetQRCode(ctx)
			if err != nil {
				return err
			}
			lastStatus = simplepad.ScanStatusWaiting
			a.sink.QueueEvent(&ScanEvent{QRCode: qr.QRCode, Status: simplepad.ScanStatusWaiting})
		}
	}
}

// syncContacts pages through the initial contact id sync and materializes
// contact and room records.
func (a *Adapter) syncContacts(ctx context.Context) error {
	var ids []string
	var chatroomSeq, contactSeq int64
	for {
		page, err := a.client.InitContact(ctx, chatroomSeq, contactSeq)
		if err != nil {
			return err
		}
		ids = append(ids, page.UserNameList...)
		if !page.IsContinue {
			break
		}
		chatroomSeq = page.CurrentChatRoomContactSeq
		contactSeq = page.CurrentWxContactSeq
	}
	a.log.Info().Int("count", len(ids)).Msg("Initial contact id sync finished")

	const batchSize = 20
	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		contacts, err := a.client.GetContactListDetail(ctx, ids[start:end])
		if err != nil {
			return err
		}
		for i := range contacts {
			if err := a.storeContact(&contacts[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// storeContact routes a contact record to the contact or room namespace.
func (a *Adapter) storeContact(contact *simplepad.Contact) error {
	if simplepad.IsRoomID(contact.UserName) || simplepad.IsIMRoomID(contact.UserName) {
		return a.cache.SetRoom(contact)
	}
	return a.cache.SetContact(contact)
}

// Ready returns a channel closed once the push channel is established.
func (a *Adapter) Ready() exsync.EventChan {
	return a.ready.GetChan()
}

// IsActive reports whether the session is live.
func (a *Adapter) IsActive() bool {
	return a.active.Load()
}

// SelfID returns the account's own contact id.
func (a *Adapter) selfID() string {
	a.selfMu.RLock()
	defer a.selfMu.RUnlock()
	if a.self == nil {
		return ""
	}
	return a.self.UserName
}

// Logout terminates the backend session and stops the adapter. The on-disk
// cache is kept for the next login.
func (a *Adapter) Logout(ctx context.Context) error {
	err := a.client.Logout(ctx)
	a.sink.QueueEvent(&LogoutEvent{UserName: a.selfID(), Reason: "logout requested"})
	a.Stop()
	return err
}

// Stop tears the adapter down without logging the backend session out. Safe
// to call more than once.
func (a *Adapter) Stop() {
	a.stopOnce.Do(func() {
		a.active.Store(false)
		close(a.stopChan)
		a.closeConn()
		a.wg.Wait()
		if err := a.cache.Close(); err != nil {
			a.log.Warn().Err(err).Msg("Failed to close cache")
		}
		a.log.Info().Msg("Adapter stopped")
	})
}

func (a *Adapter) emit(category parser.Category, evt Event) {
	eventsEmitted.WithLabelValues(category.String()).Inc()
	a.sink.QueueEvent(evt)
}
