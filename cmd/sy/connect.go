package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/sprintyard/internal/config"
	"github.com/zulandar/sprintyard/internal/db"
	"github.com/zulandar/sprintyard/internal/telegraph"
	"github.com/zulandar/sprintyard/internal/telegraph/discord"
	"github.com/zulandar/sprintyard/internal/telegraph/slack"
	"golang.org/x/term"
	"gorm.io/gorm"
)

func addConfigFlag(cmd *cobra.Command, configPath *string) {
	cmd.Flags().StringVarP(configPath, "config", "c", defaultConfigPath, "path to Sprintyard config file")
}

func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, gormDB, nil
}

// buildNotifier creates a Broadcaster over every chat platform that has a
// bot token configured. It returns nil when none is configured.
func buildNotifier(cfg *config.Config) (*telegraph.Broadcaster, error) {
	var adapters []telegraph.Adapter
	if n := cfg.Notify.Slack; n.BotToken != "" {
		a, err := slack.New(slack.AdapterOpts{BotToken: n.BotToken, ChannelID: n.ChannelID})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	if n := cfg.Notify.Discord; n.BotToken != "" {
		a, err := discord.New(discord.AdapterOpts{BotToken: n.BotToken, ChannelID: n.ChannelID})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	if len(adapters) == 0 {
		return nil, nil
	}
	return telegraph.NewBroadcaster(adapters...), nil
}

// connectNotifier builds and connects the configured notifier. Connection
// failures disable notifications instead of failing the command.
func connectNotifier(ctx context.Context, cmd *cobra.Command, cfg *config.Config) *telegraph.Broadcaster {
	notifier, err := buildNotifier(cfg)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Notifications disabled: %v\n", err)
		return nil
	}
	if notifier.Len() == 0 {
		return nil
	}
	if err := notifier.Connect(ctx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Notifications disabled: %v\n", err)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Notifications enabled (%d platform(s))\n", notifier.Len())
	return notifier
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// confirm asks the user to type "yes". Input that is an OS file but not a
// terminal (a pipe or redirect) is never taken as consent.
func confirm(cmd *cobra.Command, warning string) bool {
	out := cmd.OutOrStdout()
	in := cmd.InOrStdin()

	if f, ok := in.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		fmt.Fprintln(out, "Refusing to continue without a terminal; pass --yes to confirm.")
		return false
	}

	fmt.Fprintln(out, warning)
	fmt.Fprintln(out, "This action cannot be undone.")
	fmt.Fprint(out, "Type \"yes\" to confirm: ")

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()) == "yes"
	}
	return false
}
