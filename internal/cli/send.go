package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/moepig/qqbridge/internal/config"
	"github.com/spf13/cobra"
)

func newSendCmd() *cobra.Command {
	var (
		userID  string
		groupID string
		port    int
	)

	cmd := &cobra.Command{
		Use:   "send [text]",
		Short: "Send a proactive message through a running bridge",
		Long:  "Posts to the control endpoint of a running qqbridge instance to deliver a message outside the normal event flow.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if userID == "" && groupID == "" {
				return fmt.Errorf("one of --user or --group is required")
			}

			cfg, err := config.Load(paths.Config)
			if err != nil {
				cfg = config.Defaults()
			}
			if port == 0 {
				port = cfg.Control.Port
			}
			if port == 0 {
				return fmt.Errorf("control endpoint is disabled (control.port is 0)")
			}

			body, err := json.Marshal(map[string]string{
				"userId":  userID,
				"groupId": groupID,
				"text":    text,
			})
			if err != nil {
				return err
			}

			client := &http.Client{Timeout: 10 * time.Second}
			url := fmt.Sprintf("http://%s:%d/send", cfg.Control.Bind, port)
			resp, err := client.Post(url, "application/json", bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("posting to control endpoint: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
				return fmt.Errorf("control endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
			}

			fmt.Fprintln(cmd.OutOrStdout(), "sent")
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "target user id")
	cmd.Flags().StringVar(&groupID, "group", "", "target group id")
	cmd.Flags().IntVar(&port, "port", 0, "control endpoint port (default from config)")

	return cmd
}
