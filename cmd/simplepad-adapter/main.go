// Copyright 2024-2026 Aiku AI

// Command simplepad-adapter runs a SimplePad protocol adapter as a standalone
// daemon: it keeps one account session alive, normalizes the vendor push
// stream into typed events and logs them. Hosts embedding the adapter as a
// library use pkg/adapter directly instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/aiku/simplepad-adapter/pkg/adapter"
)

// These are filled at build time with -ldflags.
var (
	Tag       = "unknown"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	version := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *version {
		fmt.Printf("simplepad-adapter %s (%s, built %s)\n", Tag, Commit, BuildTime)
		return
	}

	_ = godotenv.Load()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	cfg, err := adapter.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	sink := adapter.NewChannelSink(cfg.EventBuffer, log)
	a := adapter.New(cfg, sink, log)

	if cfg.MetricsListen != "" {
		go adapter.ServeMetrics(cfg.MetricsListen, log)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start adapter")
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Shutting down")
			a.Stop()
			return
		case evt := <-sink.Events():
			logEvent(log, evt)
			if logout, ok := evt.(*adapter.LogoutEvent); ok && logout.Reason == "remote logout" {
				a.Stop()
				return
			}
		}
	}
}

func logEvent(log zerolog.Logger, evt adapter.Event) {
	switch e := evt.(type) {
	case *adapter.ScanEvent:
		log.Info().Int("status", e.Status).Str("qrcode", e.QRCode).Msg("Scan QR code to log in")
	case *adapter.LoginEvent:
		log.Info().Str("user_name", e.UserName).Str("nick_name", e.NickName).Msg("Logged in")
	case *adapter.LogoutEvent:
		log.Info().Str("user_name", e.UserName).Str("reason", e.Reason).Msg("Logged out")
	case *adapter.ReadyEvent:
		log.Info().Msg("Push channel ready")
	case *adapter.MessageEvent:
		log.Info().Str("message_id", e.MessageID).Msg("Message received")
	case *adapter.FriendshipEvent:
		log.Info().Str("contact_id", e.ContactID).Int("type", int(e.Type)).Msg("Friendship event")
	case *adapter.RoomInviteEvent:
		log.Info().Str("inviter_id", e.InviterID).Str("topic", e.Topic).Msg("Room invitation")
	case *adapter.RoomJoinEvent:
		log.Info().Str("room_id", e.RoomID).Strs("invitee_ids", e.InviteeIDs).Msg("Members joined room")
	case *adapter.RoomLeaveEvent:
		log.Info().Str("room_id", e.RoomID).Strs("removee_ids", e.RemoveeIDs).Msg("Members left room")
	case *adapter.RoomTopicEvent:
		log.Info().Str("room_id", e.RoomID).Str("new_topic", e.NewTopic).Msg("Room renamed")
	default:
		log.Info().Str("event_type", evt.EventType()).Msg("Event")
	}
}
