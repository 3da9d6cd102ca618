package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/faceembed"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/web"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the attendance API server.

Requires DATABASE_URL and AUTH_JWT_SECRET. Face images are sent to the
embedding server at EMBEDDING_URL for face detection.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
}

// applyServeFlags lets explicit flags win over environment and defaults.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("port") {
		cfg.Web.Port = mustGetInt(cmd, "port")
	}
	if cmd.Flags().Changed("host") {
		cfg.Web.Host = mustGetString(cmd, "host")
	}
}

// buildService wires the attendance service to the registered repositories and the embedding server.
func buildService(ctx context.Context, cfg *config.Config) (*attendance.Service, error) {
	enrollments, err := database.GetEnrollmentReader(ctx)
	if err != nil {
		return nil, err
	}
	memberships, err := database.GetMembershipReader(ctx)
	if err != nil {
		return nil, err
	}
	records, err := database.GetAttendanceWriter(ctx)
	if err != nil {
		return nil, err
	}

	extractor := faceembed.NewClient(cfg.Embedding.URL, cfg.Embedding.Model, cfg.Embedding.MaxImageSize)
	return attendance.NewService(attendance.Deps{
		Enrollments: enrollments,
		Memberships: memberships,
		Records:     records,
		Extractor:   extractor,
		Scorer:      facematch.CosineScorer,
	}, attendance.OptionsFromConfig(&cfg.Attendance)), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyServeFlags(cmd, cfg)

	if err := cfg.Attendance.Validate(); err != nil {
		return err
	}

	if cfg.Auth.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET environment variable is required")
	}
	tokens, err := middleware.NewTokenValidator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		return err
	}

	pool, err := openDatabase(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	identities, err := database.GetIdentityReader(ctx)
	if err != nil {
		return err
	}

	server := web.NewServer(cfg, web.Deps{
		Service:    svc,
		Identities: identities,
		Tokens:     tokens,
		DB:         pool,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Similarity threshold %.2f, check-in times in %s\n", svc.Threshold(), cfg.Attendance.Location())
	fmt.Printf("Starting Face Attendance API on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
