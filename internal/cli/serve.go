package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/markjakearzadon/paymentserver/internal/db"
	"github.com/markjakearzadon/paymentserver/internal/handlers"
)

var skipImport bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the payment API. Unless payments are already stored, the CSV file
named by IMPORT_FILE is imported first.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&skipImport, "skip-import", false, "do not run the startup import")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, paymentService, err := openService(ctx)
	if err != nil {
		return err
	}
	defer db.Disconnect(client)

	if cfg.ImportOnStart && !skipImport {
		n, err := paymentService.ImportFile(ctx, cfg.ImportFile)
		if err != nil {
			return fmt.Errorf("startup import failed: %w", err)
		}
		if n > 0 {
			log.Printf("Startup import loaded %d payments from %s", n, cfg.ImportFile)
		}
	}

	router := handlers.NewRouter(handlers.NewPaymentHandler(paymentService))

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server running on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
