// Command chat is a terminal client for the relay. It connects as a user,
// joins a room, prints everything the room sees, and publishes each line
// typed on stdin as a chat message.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jmswain/chat-relay/internal/channel"
	"github.com/jmswain/chat-relay/internal/protocol"
)

func main() {
	url := flag.String("url", "ws://localhost:3001/ws", "relay WebSocket URL")
	user := flag.String("user", "", "user id to connect as (required)")
	room := flag.String("room", "general", "room to join")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	if *user == "" {
		fmt.Fprintln(os.Stderr, "usage: chat -user <id> [-room <id>] [-url <ws url>]")
		os.Exit(2)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := channel.DefaultConfig()
	cfg.URL = *url

	ch := channel.New(cfg, logger)

	unsubscribe := ch.Subscribe(func(evt channel.InboundEvent) {
		switch evt.Type {
		case protocol.EventMessage:
			m := evt.Message
			fmt.Printf("[%s] %s: %s\n", m.Timestamp.Format(time.Kitchen), m.SenderID, m.Content)
		case protocol.EventPresence:
			p := evt.Presence
			fmt.Printf("* %s is %s in %s\n", p.UserID, p.Status, p.RoomID)
		}
	})
	defer unsubscribe()

	if err := ch.Connect(*user); err != nil {
		logger.Warn("initial connect failed, retrying in background", "error", err)
	}
	ch.JoinRoom(*room)

	fmt.Printf("connected as %s, room %s (ctrl-d or ctrl-c to quit)\n", *user, *room)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case sig := <-sigCh:
			logger.Info("received signal", "signal", sig)
			ch.Disconnect()
			return
		case line, ok := <-lines:
			if !ok {
				ch.Disconnect()
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			ch.SendMessage(*user, text, *room)
		}
	}
}
