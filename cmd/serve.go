package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"crsurvey/internal/api"
	"crsurvey/internal/daemon"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the survey HTTP server",
	Long: `Start the HTTP server that handles slot reservation, the developer
profile questionnaire, and the paginated review survey.
By default it listens on port 8080. Use --port to change it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
}

func serveRun(ctx context.Context) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ds, err := getDrafts()
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	port := viper.GetInt("port")
	addr := fmt.Sprintf(":%d", port)

	if dryRun {
		ui.DryRunMsg("Would start survey server on %s", addr)
		return nil
	}

	stateDir := viper.GetString("state_dir")
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	lockPath := filepath.Join(stateDir, "crsurvey.lock")
	lock := daemon.NewLockfile(lockPath)
	if pid, lport, live := lock.LiveServer(); live {
		return fmt.Errorf("server already running (pid %d, port %d)", pid, lport)
	}
	if err := lock.Acquire(port); err != nil {
		ui.Warning("Could not write lockfile %s: %v", lockPath, err)
	} else {
		defer func() { _ = lock.Release() }()
	}

	srv := &http.Server{
		Addr:    addr,
		Handler: api.NewServer(s, ds, logger).Router(),
	}

	ctx, stop := signal.NotifyContext(ctx, shutdownSignals()...)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		ui.Info("Survey server listening at http://localhost%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	ui.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
