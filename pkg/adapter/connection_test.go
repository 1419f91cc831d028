// Copyright 2024-2026 Aiku AI

package adapter

import (
	"testing"
	"time"
)

func TestReconnectAfterTransportDrop(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.start()

	sock1 := env.dialer.socket(t, 1)
	sock1.waitWrites(t, 1)
	sock1.Close()

	sock2 := env.dialer.socket(t, 2)
	if !env.adapter.IsActive() {
		t.Error("session went inactive after a transport drop")
	}

	// The heartbeat must resume on the new connection with a single timer:
	// five pings take at least four full intervals, a leftover timer from
	// the first connection would deliver them roughly twice as fast.
	started := time.Now()
	sock2.waitWrites(t, 5)
	if elapsed := time.Since(started); elapsed < 4*env.adapter.cfg.HeartbeatInterval-5*time.Millisecond {
		t.Errorf("five heartbeats arrived in %v, duplicate timer suspected", elapsed)
	}
}

func TestReconnectWaitsConfiguredDelay(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.adapter.cfg.ReconnectDelay = 150 * time.Millisecond
	env.start()

	dropped := time.Now()
	env.dialer.socket(t, 1).Close()
	env.dialer.socket(t, 2)
	if elapsed := time.Since(dropped); elapsed < 140*time.Millisecond {
		t.Errorf("redialed after %v, want at least the configured delay", elapsed)
	}
}

func TestRemoteLogoutStopsReconnecting(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.start()

	env.dialer.socket(t, 1).pushText("CLIENT_QUIT_ACCOUNT")

	evt := waitEvent[*LogoutEvent](t, env.sink)
	if evt.UserName != "wxid_self" {
		t.Errorf("logout event for %q, want wxid_self", evt.UserName)
	}

	time.Sleep(10 * env.adapter.cfg.ReconnectDelay)
	if got := env.dialer.dialCount(); got != 1 {
		t.Errorf("dialed %d times after remote logout, want 1", got)
	}
	if env.adapter.IsActive() {
		t.Error("session still active after remote logout")
	}
}

func TestHeartbeatAckResetsMissCounter(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.adapter.cfg.MaxMissedHeartbeats = 2
	env.start()

	// Answer every ping; the connection must stay up well past the point
	// where unanswered pings would have forced a reconnect.
	sock := env.dialer.socket(t, 1)
	deadline := time.Now().Add(8 * env.adapter.cfg.HeartbeatInterval)
	answered := 0
	for time.Now().Before(deadline) {
		if sock.writeCount() > answered {
			answered = sock.writeCount()
			sock.pushText("pong")
		}
		time.Sleep(time.Millisecond)
	}
	if got := env.dialer.dialCount(); got != 1 {
		t.Errorf("dialed %d times while acks were flowing, want 1", got)
	}
}

func TestMissedHeartbeatsForceReconnect(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.adapter.cfg.MaxMissedHeartbeats = 2
	env.start()

	// Never answer a ping. After two unanswered intervals the adapter must
	// close the connection itself and redial.
	env.dialer.socket(t, 2)
}

func TestStopClosesConnectionWithoutRedial(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.start()

	env.adapter.Stop()
	time.Sleep(10 * env.adapter.cfg.ReconnectDelay)
	if got := env.dialer.dialCount(); got != 1 {
		t.Errorf("dialed %d times after stop, want 1", got)
	}
}
