// Copyright 2024-2026 Aiku AI

package adapter

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aiku/simplepad-adapter/pkg/simplepad"
)

// wsConn is the subset of *websocket.Conn the connection loop needs. Tests
// substitute their own transport.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type wsDialFunc func(url string) (wsConn, error)

func defaultDialWS(url string) (wsConn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

type closeReason int

const (
	reasonTransport closeReason = iota
	reasonRemoteLogout
	reasonStopped
)

// connectionLoop owns the push channel for the whole session: dial, serve,
// and redial after ReconnectDelay for as long as the session is active.
// Remote logout ends the loop, the session can only come back through a
// fresh manual login.
func (a *Adapter) connectionLoop() {
	defer a.wg.Done()
	for {
		select {
		case <-a.stopChan:
			return
		default:
		}

		conn, err := a.dialWS(a.client.WebSocketURL())
		if err != nil {
			a.log.Warn().Err(err).Msg("Push channel dial failed")
			if !a.waitReconnect() {
				return
			}
			wsReconnects.Inc()
			continue
		}
		a.setConn(conn)
		a.ready.Set()
		a.readyOnce.Do(func() {
			a.sink.QueueEvent(&ReadyEvent{})
		})
		a.log.Debug().Msg("Push channel connected")

		reason := a.serveConn(conn)
		a.closeConn()
		a.ready.Clear()

		switch reason {
		case reasonRemoteLogout:
			a.log.Info().Msg("Session terminated from another device")
			a.active.Store(false)
			a.sink.QueueEvent(&LogoutEvent{UserName: a.selfID(), Reason: "remote logout"})
			return
		case reasonStopped:
			return
		}
		if !a.active.Load() {
			return
		}
		a.log.Info().Dur("delay", a.cfg.ReconnectDelay).Msg("Push channel lost, reconnecting")
		if !a.waitReconnect() {
			return
		}
		wsReconnects.Inc()
	}
}

func (a *Adapter) waitReconnect() bool {
	select {
	case <-a.stopChan:
		return false
	case <-time.After(a.cfg.ReconnectDelay):
		return true
	}
}

// serveConn runs the heartbeat and read loop of one connection. The
// heartbeat is torn down before serveConn returns, so a reconnect always
// starts with exactly one fresh timer.
func (a *Adapter) serveConn(conn wsConn) closeReason {
	var missedAcks atomic.Int32
	hbStop := make(chan struct{})
	hbDone := make(chan struct{})
	go a.heartbeat(conn, &missedAcks, hbStop, hbDone)
	defer func() {
		close(hbStop)
		<-hbDone
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-a.stopChan:
				return reasonStopped
			default:
				return reasonTransport
			}
		}

		switch string(data) {
		case simplepad.FrameHeartbeatAck:
			missedAcks.Store(0)
		case simplepad.FrameRemoteLogout:
			return reasonRemoteLogout
		default:
			// Frames are handled one at a time, in arrival order.
			a.handleFrame(data)
		}
	}
}

// heartbeat writes a ping every HeartbeatInterval and force-closes the
// connection when too many pings go unanswered, which lets the read loop
// engage the normal reconnect path.
func (a *Adapter) heartbeat(conn wsConn, missedAcks *atomic.Int32, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(a.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		if max := a.cfg.MaxMissedHeartbeats; max > 0 && int(missedAcks.Load()) >= max {
			heartbeatMisses.Inc()
			a.log.Warn().Int32("missed", missedAcks.Load()).Msg("Heartbeat acks missing, forcing reconnect")
			_ = conn.Close()
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
			a.log.Debug().Err(err).Msg("Heartbeat write failed")
			return
		}
		missedAcks.Add(1)
	}
}

func (a *Adapter) setConn(conn wsConn) {
	a.connMu.Lock()
	a.conn = conn
	a.connMu.Unlock()
}

func (a *Adapter) closeConn() {
	a.connMu.Lock()
	if a.conn != nil {
		_ = a.conn.Close()
		a.conn = nil
	}
	a.connMu.Unlock()
}
