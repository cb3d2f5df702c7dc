package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/moepig/qqbridge/internal/config"
	"github.com/moepig/qqbridge/internal/store"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent bridge traffic from the audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				cfg = config.Defaults()
			}
			if !cfg.Store.StoreEnabled() {
				return fmt.Errorf("audit log is disabled (store.enabled: false)")
			}

			dbPath := cfg.Store.Path
			if dbPath == "" {
				dbPath = filepath.Join(paths.Data, "qqbridge.db")
			}

			db, err := store.Open(dbPath, log)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			rows, err := store.NewEventLog(db).Recent(limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, row := range rows {
				arrow := "<-"
				if row.Direction == store.DirectionOut {
					arrow = "->"
				}
				fmt.Fprintf(out, "%s %s %s %s\n",
					row.CreatedAt.Format(time.DateTime), arrow, row.Conversation, row.Body)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of entries to show")

	return cmd
}
