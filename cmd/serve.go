package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/facecap"
	"github.com/kozaktomas/face-attendance/internal/hub"
	"github.com/kozaktomas/face-attendance/internal/match"
	"github.com/kozaktomas/face-attendance/internal/notify"
	"github.com/kozaktomas/face-attendance/internal/pipeline"
	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/store/postgres"
	"github.com/kozaktomas/face-attendance/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attendance server",
	Long: `Start the attendance server: the WebSocket endpoint for cameras and
kiosk clients plus the REST API for dashboards. Migrations run
automatically on startup.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides SERVER_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides SERVER_HOST)")
}

// buildNotifier picks the notification backend: SMTP when a relay is
// configured, otherwise process-log only.
func buildNotifier(cfg *config.Config) notify.Notifier {
	if cfg.Notifications.SMTPAddr != "" {
		fmt.Printf("Email notifications enabled via %s\n", cfg.Notifications.SMTPAddr)
		return notify.NewSMTP(cfg.Notifications.SMTPAddr, cfg.Notifications.From, cfg.Defaults.Notifications)
	}
	return notify.NewLog(cfg.Defaults.Notifications)
}

func defaultOffice(cfg *config.Config) store.OfficeTiming {
	return store.OfficeTiming{
		LoginTime:  cfg.Defaults.OfficeTiming.LoginTime,
		LogoutTime: cfg.Defaults.OfficeTiming.LogoutTime,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if port := mustGetInt(cmd, "port"); port != 0 {
		cfg.Server.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Server.Host = host
	}

	repo, pool, err := postgres.Open(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	faces := facecap.NewClient(cfg.Face.URL)
	matcher := match.New(cfg.Matching.Workers)
	index := match.NewIndex()

	engine := attendance.NewEngine(repo, repo, repo,
		cfg.Attendance.AutoExitThreshold,
		constants.ShiftCacheTTL, constants.SettingsCacheTTL,
		cfg.Attendance.Timezone, defaultOffice(cfg))

	conns := hub.New()
	pipe := pipeline.New(repo, engine, matcher, index, faces, conns, buildNotifier(cfg), pipeline.Options{
		Workers:        cfg.Matching.Workers,
		MatchThreshold: cfg.Matching.Threshold,
	})

	ctx := context.Background()
	if err := pipe.RebuildIndex(ctx); err != nil {
		log.Printf("Warning: failed to build candidate index, falling back to full scans: %v", err)
	}
	pipe.Start(ctx)

	loc, err := time.LoadLocation(cfg.Attendance.Timezone)
	if err != nil {
		log.Printf("invalid timezone %q, using UTC", cfg.Attendance.Timezone)
		loc = time.UTC
	}

	srv := web.NewServer(cfg, conns, pipe, repo, loc)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		pipe.Stop()
		return err
	case sig := <-sigCh:
		log.Printf("Received %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	pipe.Stop()
	return nil
}
