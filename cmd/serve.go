package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/veriface/internal/config"
	"github.com/kozaktomas/veriface/internal/constants"
	"github.com/kozaktomas/veriface/internal/credential"
	"github.com/kozaktomas/veriface/internal/fingerprint"
	"github.com/kozaktomas/veriface/internal/membership"
	"github.com/kozaktomas/veriface/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Veriface HTTP API.
Migrations are applied on startup and the look-alike index is built from
every enrolled member before requests are accepted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (defaults to WEB_PORT or 8080)")
	serveCmd.Flags().String("host", "", "Host to bind to (defaults to WEB_HOST or 0.0.0.0)")
}

// resolveServeHostPort lets flags override the environment.
func resolveServeHostPort(cmd *cobra.Command, cfg *config.Config) {
	if port, ok := mustGetChanged(cmd, "port", cmd.Flags().GetInt); ok {
		cfg.Web.Port = port
	}
	if host, ok := mustGetChanged(cmd, "host", cmd.Flags().GetString); ok && host != "" {
		cfg.Web.Host = host
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	resolveServeHostPort(cmd, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	svc := newService(ctx, cfg, store, true)
	importer := membership.NewImporter(store, credential.NewBcryptHasher(), membership.ImporterOptions{
		MaxRows:        cfg.Import.MaxRows,
		PasswordLength: cfg.Import.PasswordLength,
	})
	embedder := fingerprint.NewEmbeddingClient(cfg.Embedding.URL, constants.MaxImageSize)

	server := web.NewServer(cfg, web.Deps{
		Service:  svc,
		Importer: importer,
		Embedder: embedder,
		DB:       pool,
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

	fmt.Printf("Starting Veriface API on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
