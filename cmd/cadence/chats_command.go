package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cadence/internal/chatstore"
	"cadence/internal/quality"
)

func newChatsCommand(configFlag *string) *cobra.Command {
	chatsCmd := &cobra.Command{
		Use:   "chats",
		Short: "Manage per-chat configuration",
	}

	chatsCmd.AddCommand(newChatsListCommand(configFlag))
	chatsCmd.AddCommand(newChatsAddCommand(configFlag))
	chatsCmd.AddCommand(newChatsRemoveCommand(configFlag))
	chatsCmd.AddCommand(newChatsSetLanguageCommand(configFlag))
	chatsCmd.AddCommand(newChatsSetQualityCommand(configFlag))
	chatsCmd.AddCommand(newChatsSetAdminOnlyCommand(configFlag))
	chatsCmd.AddCommand(newChatsStatsCommand(configFlag))

	return chatsCmd
}

func withChatStore(configFlag *string, fn func(ctx context.Context, store *chatstore.Store) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configFlag)
		if err != nil {
			return err
		}
		store, err := chatstore.Open(cfg)
		if err != nil {
			return fmt.Errorf("open chat store: %w", err)
		}
		defer store.Close()
		return fn(cmd.Context(), store)
	}
}

func parseChatID(arg string) (int64, error) {
	chatID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id %q", arg)
	}
	return chatID, nil
}

func newChatsListCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured chats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withChatStore(configFlag, func(ctx context.Context, store *chatstore.Store) error {
				chats, err := store.List(ctx)
				if err != nil {
					return err
				}
				if len(chats) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No chats configured")
					return nil
				}

				rows := make([][]string, 0, len(chats))
				for _, chat := range chats {
					rows = append(rows, []string{
						strconv.FormatInt(chat.ChatID, 10),
						strconv.FormatInt(chat.OwnerID, 10),
						chat.Language,
						string(chat.Quality),
						strconv.FormatBool(chat.AdminOnly),
					})
				}
				headers := []string{"Chat", "Owner", "Language", "Quality", "Admin Only"}
				aligns := []columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, aligns))
				return nil
			})(cmd, args)
		},
	}
}

func newChatsAddCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "add <chat-id> <owner-id>",
		Short: "Register a chat with default settings",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withChatStore(configFlag, func(ctx context.Context, store *chatstore.Store) error {
				chatID, err := parseChatID(args[0])
				if err != nil {
					return err
				}
				ownerID, err := strconv.ParseInt(args[1], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid owner id %q", args[1])
				}
				created, err := store.Add(ctx, chatID, ownerID)
				if err != nil {
					return err
				}
				if !created {
					fmt.Fprintf(cmd.OutOrStdout(), "Chat %d already configured\n", chatID)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Chat %d added\n", chatID)
				return nil
			})(cmd, args)
		},
	}
}

func newChatsRemoveCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <chat-id>",
		Short: "Delete a chat's configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withChatStore(configFlag, func(ctx context.Context, store *chatstore.Store) error {
				chatID, err := parseChatID(args[0])
				if err != nil {
					return err
				}
				if err := store.Delete(ctx, chatID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Chat %d removed\n", chatID)
				return nil
			})(cmd, args)
		},
	}
}

func newChatsSetLanguageCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set-language <chat-id> <tag>",
		Short: "Set a chat's language tag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withChatStore(configFlag, func(ctx context.Context, store *chatstore.Store) error {
				chatID, err := parseChatID(args[0])
				if err != nil {
					return err
				}
				changed, err := store.SetLanguage(ctx, chatID, args[1])
				if err != nil {
					return err
				}
				if !changed {
					fmt.Fprintf(cmd.OutOrStdout(), "Chat %d already uses that language\n", chatID)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Language updated for chat %d\n", chatID)
				return nil
			})(cmd, args)
		},
	}
}

func newChatsSetQualityCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set-quality <chat-id> <low|medium|high>",
		Short: "Set a chat's streaming quality",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withChatStore(configFlag, func(ctx context.Context, store *chatstore.Store) error {
				chatID, err := parseChatID(args[0])
				if err != nil {
					return err
				}
				tier, err := quality.ParseTier(args[1])
				if err != nil {
					return err
				}
				changed, err := store.SetQuality(ctx, chatID, tier)
				if err != nil {
					return err
				}
				if !changed {
					fmt.Fprintf(cmd.OutOrStdout(), "Chat %d already streams at %s quality\n", chatID, tier)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Quality set to %s for chat %d\n", tier, chatID)
				return nil
			})(cmd, args)
		},
	}
}

func newChatsSetAdminOnlyCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set-admin-only <chat-id> <true|false>",
		Short: "Restrict playback control to chat admins",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withChatStore(configFlag, func(ctx context.Context, store *chatstore.Store) error {
				chatID, err := parseChatID(args[0])
				if err != nil {
					return err
				}
				adminOnly, err := strconv.ParseBool(args[1])
				if err != nil {
					return fmt.Errorf("invalid admin-only value %q", args[1])
				}
				changed, err := store.SetAdminOnly(ctx, chatID, adminOnly)
				if err != nil {
					return err
				}
				if !changed {
					fmt.Fprintf(cmd.OutOrStdout(), "Chat %d already set\n", chatID)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Admin-only set to %t for chat %d\n", adminOnly, chatID)
				return nil
			})(cmd, args)
		},
	}
}

func newChatsStatsCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show configured chat counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withChatStore(configFlag, func(ctx context.Context, store *chatstore.Store) error {
				stats, err := store.Stats(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Groups: %d\n", stats.Groups)
				fmt.Fprintf(out, "Direct chats: %d\n", stats.Direct)
				fmt.Fprintf(out, "Total: %d\n", stats.Groups+stats.Direct)
				return nil
			})(cmd, args)
		},
	}
}
