package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Damdev80/chat-for-company-sub002/internal/api"
	"github.com/Damdev80/chat-for-company-sub002/internal/config"
	"github.com/Damdev80/chat-for-company-sub002/internal/engine"
	"github.com/Damdev80/chat-for-company-sub002/internal/history"
	"github.com/Damdev80/chat-for-company-sub002/internal/logger"
	"github.com/Damdev80/chat-for-company-sub002/internal/notify"
	"github.com/Damdev80/chat-for-company-sub002/internal/session"
	"github.com/Damdev80/chat-for-company-sub002/internal/tui"
	"github.com/Damdev80/chat-for-company-sub002/internal/ws"
)

var version = "dev"

func main() {
	var cfgPath string

	root := &cobra.Command{
		Use:   "companychat",
		Short: "Terminal client for the company chat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cfgPath)
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath(), "config file path")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Connect and open the terminal UI",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runTUI(cfgPath)
			},
		},
		&cobra.Command{
			Use:   "headless",
			Short: "Run the sync engine without UI, logging events",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runHeadless(cfgPath)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Println(version)
			},
		},
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup(ctx context.Context, cfgPath string) (*engine.Engine, *history.Store, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}

	hist, err := history.Open(cfg.Cache.Path)
	if err != nil {
		// The cache is advisory; run without it.
		logger.Warn("local cache unavailable", "path", cfg.Cache.Path, "err", err)
		hist = nil
	} else if err := hist.SaveToken(cfg.Auth.Token); err != nil {
		logger.Debug("persist token failed", "err", err)
	}

	sess := session.New(cfg.Auth.Username, cfg.Auth.Token)
	if claims, ok := sess.DisplayClaims(); ok {
		logger.Info("authenticated", "subject", claims.Subject, "expires", claims.ExpiresAt)
	}

	eng := engine.New(engine.Options{
		Session: sess,
		API:     api.NewClient(cfg.Server.BaseURL, cfg.Auth.Token),
		WSURL:   cfg.Server.WSURL,
		Hist:    hist,
		Pusher:  pusherFor(cfg),
	})

	// Live log-level changes without restart.
	go func() {
		_ = config.Watch(ctx, cfgPath, func(next *config.Config) {
			if err := logger.SetLevel(next.Logging.Level, next.Logging.File); err != nil {
				logger.Warn("apply log level failed", "err", err)
			}
		})
	}()

	return eng, hist, nil
}

func pusherFor(cfg *config.Config) notify.Pusher {
	if cfg.Push.Topic == "" {
		return nil
	}
	return notify.NewNtfyClient(cfg.Push.Topic, cfg.Push.Token)
}

func runTUI(cfgPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	eng, hist, err := setup(ctx, cfgPath)
	if err != nil {
		return err
	}
	if hist != nil {
		defer hist.Close()
	}

	p := tea.NewProgram(tui.NewModel(ctx, eng), tea.WithAltScreen())

	var engErr error
	done := make(chan struct{})
	go func() {
		engErr = eng.Run(ctx)
		close(done)
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		return err
	}
	stop()

	select {
	case <-done:
		if errors.Is(engErr, ws.ErrAuthRejected) {
			return engErr
		}
	default:
	}
	return nil
}

func runHeadless(cfgPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	eng, hist, err := setup(ctx, cfgPath)
	if err != nil {
		return err
	}
	if hist != nil {
		defer hist.Close()
	}

	go func() {
		for u := range eng.Updates() {
			switch u.Kind {
			case engine.UpdateMessages:
				logger.Info("messages changed", "count", len(eng.Messages()))
			case engine.UpdateProgress:
				logger.Info("progress changed", "group_percent", eng.Progress().GroupPercent)
			case engine.UpdateConnState:
				logger.Info("connection state", "state", eng.ConnState())
			case engine.UpdateTyping:
				active, who := eng.Typing()
				logger.Debug("typing", "active", active, "user", who)
			case engine.UpdateNotification:
				if n := eng.Notification(); n != nil {
					logger.Info("notification", "title", n.Title, "message", n.Message)
				}
			case engine.UpdateGroups:
				logger.Info("groups changed", "count", len(eng.Groups()))
			}
		}
	}()

	err = eng.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
