package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/org/rfidconsole/internal/console"
	"github.com/org/rfidconsole/pkg/models"
	"github.com/spf13/cobra"
)

// --- stats ---

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show registry statistics and the last presented card",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng := newEngine(newLogger(), termNotifier{w: stderr}, console.StaticConfirmer(false), 0)
			if err := eng.sync.Sync(cmd.Context()); err != nil {
				return errReported
			}
			snap := eng.store.Snapshot()
			result := map[string]any{
				"total_cards":    snap.Stats.TotalCards,
				"total_accesses": snap.Stats.TotalAccesses,
				"last_card":      snap.LastCardLabel,
				"last_updated":   console.FormatDateTime(snap.LastUpdated),
			}
			if lc := snap.LastCard; lc != nil && lc.AccessLevel.Valid() {
				result["last_card_level"] = lc.AccessLevel.String()
				result["last_card_accesses"] = lc.AccessCount
			}
			printResult(result)
			return nil
		},
	}
}

// --- cards ---

func cardsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "cards", Short: "Manage the card registry"}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered cards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng := newEngine(newLogger(), console.NopNotifier{}, console.StaticConfirmer(false), 0)
			cards, err := eng.client.Cards(cmd.Context())
			if err != nil {
				return fmt.Errorf("list cards: %w", err)
			}
			eng.store.RenderCards(cards)
			snap := eng.store.Snapshot()
			rows := make([][]string, len(snap.Cards))
			for i, c := range snap.Cards {
				rows[i] = []string{c.UID, c.Name, c.LevelLabel, c.FirstSeenText, c.LastSeenText, strconv.FormatInt(c.AccessCount, 10)}
			}
			printRows([]string{"UID", "NAME", "LEVEL", "FIRST SEEN", "LAST SEEN", "ACCESSES"}, rows, snap.Cards)
			return nil
		},
	}

	addCmd := &cobra.Command{
		Use:   "add [uid] <name>",
		Short: "Enroll a card",
		Long:  "Enroll a card. With --scan the UID is read from the next card presented to the reader and only the name is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			scan, _ := cmd.Flags().GetBool("scan")
			levelName, _ := cmd.Flags().GetString("level")
			timeout, _ := cmd.Flags().GetDuration("timeout")

			level, err := models.ParseAccessLevel(levelName)
			if err != nil {
				return err
			}

			eng := newEngine(newLogger(), termNotifier{w: stderr}, console.StaticConfirmer(false), timeout)
			card := models.NewCard{AccessLevel: level}
			switch {
			case scan && len(args) == 1:
				uid, err := waitForCard(cmd.Context(), eng)
				if err != nil {
					return err
				}
				card.UID, card.Name = uid, args[0]
			case !scan && len(args) == 2:
				card.UID, card.Name = args[0], args[1]
			default:
				return errors.New("usage: cards add <uid> <name>, or cards add --scan <name>")
			}

			if err := eng.gateway.CreateCard(cmd.Context(), card); err != nil {
				return errReported
			}
			if outputFormat == "json" {
				printJSON(card.Normalize())
			}
			return nil
		},
	}
	addCmd.Flags().Bool("scan", false, "Read the UID from the reader")
	addCmd.Flags().String("level", "basic", "Access level: basic, intermediate, administrator (or 1-3)")
	addCmd.Flags().Duration("timeout", 30*time.Second, "How long --scan waits for a card (0 waits forever)")

	deleteCmd := &cobra.Command{
		Use:   "delete <uid>",
		Short: "Remove a card from the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				name = args[0]
			}

			var confirm console.Confirmer = console.StaticConfirmer(true)
			if !yes {
				confirm = newPromptConfirmer(stdin, stderr)
			}
			eng := newEngine(newLogger(), termNotifier{w: stderr}, confirm, 0)
			err := eng.gateway.DeleteCard(cmd.Context(), args[0], name)
			switch {
			case errors.Is(err, console.ErrNotConfirmed):
				printSuccess("Aborted")
				return nil
			case err != nil:
				return errReported
			}
			return nil
		},
	}
	deleteCmd.Flags().Bool("yes", false, "Do not ask for confirmation")
	deleteCmd.Flags().String("name", "", "Card holder name shown in the prompt")

	cmd.AddCommand(listCmd, addCmd, deleteCmd)
	return cmd
}

// waitForCard arms a scan and blocks until it ends.
func waitForCard(ctx context.Context, eng *engine) (string, error) {
	field := &lineField{editable: true}
	sess := eng.scan.Arm(ctx, field)
	outcome, uid, err := sess.Wait(ctx)
	if err != nil {
		eng.scan.Cancel()
		return "", err
	}
	switch outcome {
	case console.OutcomeDetected:
		return uid, nil
	case console.OutcomeExpired:
		return "", errReported
	default:
		return "", errors.New("scan cancelled")
	}
}

// --- logs ---

func logsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the device's recent access log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			eng := newEngine(newLogger(), console.NopNotifier{}, console.StaticConfirmer(false), 0)
			logs, err := eng.client.Logs(cmd.Context())
			if err != nil {
				return fmt.Errorf("read logs: %w", err)
			}
			if limit > 0 && len(logs) > limit {
				logs = logs[:limit]
			}
			eng.store.RenderLogs(logs)
			snap := eng.store.Snapshot()
			rows := make([][]string, len(snap.Logs))
			for i, l := range snap.Logs {
				rows[i] = []string{l.UID, l.TimeText, string(l.Action)}
			}
			printRows([]string{"UID", "TIME", "ACTION"}, rows, snap.Logs)
			return nil
		},
	}
	cmd.Flags().Int("limit", 0, "Show at most this many entries")
	return cmd
}

// --- scan ---

func scanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Wait for a card and print its UID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, _ := cmd.Flags().GetDuration("timeout")
			eng := newEngine(newLogger(), termNotifier{w: stderr, quiet: outputFormat != "table"}, console.StaticConfirmer(false), timeout)
			uid, err := waitForCard(cmd.Context(), eng)
			if err != nil {
				return err
			}
			printResult(map[string]any{"uid": uid})
			return nil
		},
	}
	cmd.Flags().Duration("timeout", 30*time.Second, "How long to wait for a card (0 waits forever)")
	return cmd
}

// --- config ---

func configCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Manage CLI configuration"}

	setDeviceCmd := &cobra.Command{
		Use:   "set-device <url>",
		Short: "Set the device base URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateDeviceURL(args[0]); err != nil {
				return err
			}
			cfg.DeviceURL = args[0]
			if err := saveConfig(); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			printSuccess("Device set to " + args[0])
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printResult(map[string]any{
				"config_file":     configPath(),
				"device_url":      deviceURL(),
				"request_timeout": cfg.RequestTimeout.String(),
			})
			return nil
		},
	}

	cmd.AddCommand(setDeviceCmd, showCmd)
	return cmd
}
