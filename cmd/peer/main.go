// Headless room participant: dials the signaling server, joins a room and
// runs a full negotiation session without a browser. Useful for smoke-testing
// a deployment and as the second party on an otherwise empty room.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codepair/peercall/internal/client"
	"github.com/codepair/peercall/internal/client/rtc"
	"github.com/codepair/peercall/internal/domain"
	"github.com/codepair/peercall/lib/logger/sl"
)

func main() {
	serverURL := flag.String("server", "ws://localhost:5150/ws", "signaling server websocket url")
	roomID := flag.String("room", "", "room id to join")
	say := flag.String("say", "", "chat message to send after joining")
	stun := flag.String("stun", "stun:stun1.l.google.com:19302", "stun server url")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *roomID == "" {
		fmt.Fprintln(os.Stderr, "usage: peer -room <room-id> [-server <url>] [-say <message>]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	channel, err := client.DialWSChannel(ctx, *serverURL)
	if err != nil {
		log.Error("failed to dial signaling server", sl.Err(err))
		os.Exit(1)
	}
	defer channel.Close()

	log.Info("connected", slog.String("connection_id", channel.ConnectionID()))

	engine := rtc.NewPionEngine([]string{*stun})
	session := client.NewPeerSession(channel, rtc.NewStaticSource(), engine, *roomID, log)

	session.Chat.OnMessage(func(msg domain.ChatMessage) {
		sender := msg.Sender
		if session.Chat.IsMine(msg) {
			sender = "me"
		}
		fmt.Printf("[%s] %s: %s\n", msg.Timestamp.Local().Format(time.Kitchen), sender, msg.Content)
	})
	session.OnRemoteControl(func(payload domain.UserControlPayload) {
		log.Info("remote control changed",
			slog.String("type", payload.Kind),
			slog.Bool("value", payload.Value),
		)
	})

	if *say != "" {
		go func() {
			// Give the join round-trip a moment to finish.
			time.Sleep(time.Second)
			if err := session.Chat.Send(*say); err != nil {
				log.Warn("failed to send chat message", sl.Err(err))
			}
		}()
	}

	if err := session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("session ended", sl.Err(err))
		os.Exit(1)
	}
}
