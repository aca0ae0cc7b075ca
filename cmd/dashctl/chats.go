package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/GTDGit/gtd_dashboard/internal/chat"
	"github.com/GTDGit/gtd_dashboard/internal/models"
	"github.com/GTDGit/gtd_dashboard/pkg/dashboard"
)

func newChatsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "Read and send chat messages",
	}
	cmd.AddCommand(
		newChatsListCommand(a),
		newChatsShowCommand(a),
		newChatsSendCommand(a),
		newChatsWatchCommand(a),
	)
	return cmd
}

func printThreads(a *app, threads []models.Chat) error {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tGROUP\tLAST ACTIVITY")
	for i := range threads {
		t := &threads[i]
		fmt.Fprintf(w, "%d\t%s\t%t\t%s\n", t.ID, t.Name, t.IsGroup, chat.EffectiveTime(t).Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func printMessage(a *app, m models.Message) {
	fmt.Fprintf(a.out, "[%s] %s#%d: %s\n", m.CreatedAt.Format("15:04"), m.SenderType, m.SenderID, m.Body)
}

func newChatsListCommand(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List chat threads, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout())
			defer cancel()

			slice := dashboard.NewChatSlice(c)
			if err := slice.FetchAll(ctx, limit); err != nil {
				return err
			}
			return printThreads(a, slice.Threads())
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 100, "Page size used while paging")
	return cmd
}

func newChatsShowCommand(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "show <chat-id>",
		Short: "Print the latest messages of a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid chat id %q", args[0])
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout())
			defer cancel()

			msgs, err := dashboard.NewChatSlice(c).Open(ctx, chatID, limit)
			if err != nil {
				return err
			}
			for _, m := range msgs {
				printMessage(a, m)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 50, "Number of messages")
	return cmd
}

func newChatsSendCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "send <chat-id> <message...>",
		Short: "Send a message as the signed-in user",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid chat id %q", args[0])
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout())
			defer cancel()

			msg, err := c.SendMessage(ctx, chatID, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			printMessage(a, *msg)
			return nil
		},
	}
}

func newChatsWatchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream new messages over the realtime socket until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := c.DialRealtime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			slice := dashboard.NewChatSlice(c)
			var threads []models.Chat
			callCtx, cancel := context.WithTimeout(ctx, a.timeout())
			err = rt.Call(callCtx, dashboard.ActionChatsList, map[string]int{"page": 1, "limit": 100}, &struct {
				Chats *[]models.Chat `json:"chats"`
			}{Chats: &threads})
			cancel()
			if err != nil {
				return err
			}
			slice.Merge(threads)
			fmt.Fprintf(a.out, "watching %d chats of business %d\n", len(slice.Threads()), c.BusinessID())

			for {
				select {
				case ev, ok := <-rt.Events():
					if !ok {
						return nil
					}
					if err := slice.Apply(ev); err != nil {
						log.Warn().Err(err).Msg("skipping event")
						continue
					}
					if ev.Event != dashboard.EventMessageCreated {
						continue
					}
					var m models.Message
					if err := json.Unmarshal(ev.Data, &m); err == nil {
						printMessage(a, m)
					}
				case <-ctx.Done():
					return nil
				}
			}
		},
	}
}
