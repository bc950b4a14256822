package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github/itish2003/cricketbot/controller"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Build the index and serve the chat API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, newProgress("Loading docs"))
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				log.Warnf("Warning: %v", err)
			}
		}()

		ragService, err := a.start(ctx)
		if err != nil {
			return err
		}
		router := controller.NewRouter(controller.NewRAGController(ragService))

		server := &http.Server{
			Addr:    cfg.Server.Address(),
			Handler: router,
		}

		serveErr := make(chan error, 1)
		go func() {
			log.Printf("Go Gin backend server starting on http://%s", server.Addr)
			log.Printf("API endpoints:")
			log.Printf("  POST http://%s/chat", server.Addr)
			log.Printf("  GET  http://%s/api/v1/health", server.Addr)
			log.Printf("  GET  http://%s/api/v1/stats", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		select {
		case err := <-serveErr:
			return err
		case <-ctx.Done():
		}

		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		log.Println("Server stopped. Adios!")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
