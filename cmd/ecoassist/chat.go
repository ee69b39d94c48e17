package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"eco-assistant/internal/config"
	"eco-assistant/internal/usecase"
)

var chatUser string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant on stdin/stdout",
	Long:  "Starts a session and answers one line at a time. Type /history to show the transcript, /clear to start over, /quit to leave.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg, slog.Default())
		if err != nil {
			return err
		}
		defer a.Close()
		return runChat(cmd.Context(), a.chat, chatUser, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatUser, "user", "u", "local", "user id that owns tracked activities")
}

// runChat reads utterances from in until EOF or /quit.
func runChat(ctx context.Context, chat *usecase.ChatService, userID string, in io.Reader, out io.Writer) error {
	start, err := chat.Start(ctx, usecase.StartInput{UserID: userID})
	if err != nil {
		return err
	}
	sessionID := start.Session.ID
	fmt.Fprintf(out, "🌱 Session %s started for %s. Say hello!\n", sessionID, start.Session.UserID)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/history":
			sess, err := chat.History(ctx, sessionID)
			if err != nil {
				return err
			}
			for _, m := range sess.Messages {
				fmt.Fprintf(out, "[%s] %s: %s\n", m.Timestamp.Format("15:04:05"), m.Sender, m.Text)
			}
			continue
		case "/clear":
			if err := chat.Clear(ctx, sessionID); err != nil {
				return err
			}
			start, err = chat.Start(ctx, usecase.StartInput{UserID: userID})
			if err != nil {
				return err
			}
			sessionID = start.Session.ID
			fmt.Fprintln(out, "Transcript cleared.")
			continue
		}

		turn, err := chat.Send(ctx, usecase.SendInput{SessionID: sessionID, Text: line})
		if err != nil {
			fmt.Fprintf(out, "⚠️ %v\n", err)
			continue
		}
		fmt.Fprintln(out, turn.BotMessage.Text)
		if len(turn.Response.QuickReplies) > 0 {
			fmt.Fprintf(out, "   Try: %s\n", strings.Join(turn.Response.QuickReplies, " | "))
		}
	}
}
