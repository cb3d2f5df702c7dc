package cli

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/moepig/qqbridge/internal/backend"
	"github.com/moepig/qqbridge/internal/bridge"
	"github.com/moepig/qqbridge/internal/config"
	"github.com/moepig/qqbridge/internal/control"
	"github.com/moepig/qqbridge/internal/logging"
	"github.com/moepig/qqbridge/internal/media"
	"github.com/moepig/qqbridge/internal/napcat"
	"github.com/moepig/qqbridge/internal/onebot"
	"github.com/moepig/qqbridge/internal/session"
	"github.com/moepig/qqbridge/internal/store"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var controlPort int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("control-port") {
				cfg.Control.Port = controlPort
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			if err := paths.EnsureDirs(); err != nil {
				return fmt.Errorf("creating data directories: %w", err)
			}

			log = logging.NewFromOptions(logging.Options{
				Level: cfg.Logging.Level,
				Style: cfg.Logging.ConsoleStyle,
				File:  cfg.Logging.File,
			})

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Event audit log (optional)
			var events bridge.Recorder
			if cfg.Store.StoreEnabled() {
				dbPath := cfg.Store.Path
				if dbPath == "" {
					dbPath = filepath.Join(paths.Data, "qqbridge.db")
				}
				db, err := store.Open(dbPath, log)
				if err != nil {
					return fmt.Errorf("opening database: %w", err)
				}
				defer db.Close()
				events = store.NewEventLog(db)
			}

			sessionsDir := cfg.Sessions.Dir
			if sessionsDir == "" {
				sessionsDir = paths.Sessions
			}

			mediaCache := media.New(cfg.Media.Dir, log)
			sessions := session.New(sessionsDir, log)
			responder := backend.New(cfg.Backend, log)
			manager := napcat.New(cfg.NapCat, log)

			pipeline := bridge.NewPipeline(
				cfg.NapCat,
				bridge.NewExtractor(mediaCache, log),
				mediaCache,
				sessions,
				responder,
				manager,
				events,
				log,
			)
			manager.OnEvent(func(ev onebot.Event) {
				pipeline.Handle(ctx, ev)
			})

			manager.Start()
			defer manager.Stop()

			if cfg.Control.Port > 0 {
				ctrl := control.New(cfg.Control, manager, log)
				go func() {
					if err := ctrl.Start(ctx); err != nil {
						log.Error().Err(err).Msg("control endpoint failed")
					}
				}()
			}

			logStartup(cfg, sessionsDir)

			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().IntVar(&controlPort, "control-port", 0, "override the control endpoint port (0 disables)")

	return cmd
}

// logStartup summarizes the effective configuration.
func logStartup(cfg config.Config, sessionsDir string) {
	users := "(all)"
	if len(cfg.NapCat.AllowedUsers) > 0 {
		users = strings.Join(cfg.NapCat.AllowedUsers, ", ")
	}
	groups := "(disabled)"
	if len(cfg.NapCat.AllowedGroups) > 0 {
		groups = strings.Join(cfg.NapCat.AllowedGroups, ", ")
	}

	log.Info().Msg("qqbridge started")
	log.Info().Str("url", cfg.NapCat.URL).Msg("  NapCat WS")
	log.Info().Str("url", cfg.Backend.URL).Msg("  backend")
	log.Info().Str("qq", orUnset(cfg.NapCat.BotQQ)).Msg("  bot QQ")
	log.Info().Str("users", users).Msg("  allowed users")
	log.Info().Str("groups", groups).Msg("  allowed groups")
	log.Info().Str("dir", sessionsDir).Msg("  sessions")
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
