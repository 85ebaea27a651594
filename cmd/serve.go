package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/notedraft/internal/assets"
	"github.com/ziadkadry99/notedraft/internal/metrics"
	"github.com/ziadkadry99/notedraft/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  `Serves POST /api/notes, the /ws/notes attempt stream, run history under /api/runs and Prometheus metrics on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// Fail on an unusable backend now rather than on the first request.
		if err := cfg.Validate(); err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}

		validator, err := loadValidator(cfg.OutputSchema, assets.OutputSchema)
		if err != nil {
			return err
		}

		store, closeHistory := openHistory(cfg)
		defer closeHistory()

		srv := server.New(server.Config{
			Port:     cfg.Server.Port,
			AllowAll: cfg.Server.AllowAllOrigins,
		}, server.Deps{
			Pipeline:  cfg,
			Validator: validator,
			PromptDir: cfg.PromptDir,
			History:   store,
			Metrics:   metrics.NewCollector(),
		})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			log.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
