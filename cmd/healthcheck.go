package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// healthcheckCommand ヘルスチェックコマンド
func healthcheckCommand() *cobra.Command {
	var timeout time.Duration

	cmd := cobra.Command{
		Use:   "healthcheck",
		Short: "Run healthcheck against the local server",
		Run: func(_ *cobra.Command, _ []string) {
			logger := getCLILogger()
			defer logger.Sync()

			client := &http.Client{Timeout: timeout}
			resp, err := client.Get(fmt.Sprintf("http://localhost:%d/api/ping", c.Port))
			if err != nil {
				logger.Fatal("HTTP Client Error", zap.Error(err))
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				logger.Fatal("Unexpected status", zap.Int("status", resp.StatusCode))
			}
		},
	}

	flags := cmd.Flags()
	flags.DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")

	return &cmd
}
