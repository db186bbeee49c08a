package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hperssn/productwizard/internal/config"
	httpapi "github.com/hperssn/productwizard/internal/http"
	"github.com/hperssn/productwizard/internal/logging"
	"github.com/hperssn/productwizard/internal/session"
	"github.com/hperssn/productwizard/internal/storage"
	"github.com/hperssn/productwizard/internal/wizard"
)

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "productwizard",
	Short: "Three-step product creation wizard",
	Long: `productwizard collects a product's name, price and category over three
wizard steps, validating each step on its own, and stores the finished product.

Run without a subcommand to start the HTTP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, err = logging.New(cfg.Logging, verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the wizard over HTTP",
	RunE:  runServe,
}

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List stored products",
	RunE:  runProducts,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "productwizard.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(wizardCmd)
	rootCmd.AddCommand(productsCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openRepository() (storage.Repository, error) {
	repo, err := storage.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Database.Driver, err)
	}
	return repo, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	repo, err := openRepository()
	if err != nil {
		return err
	}
	defer repo.Close()

	sessions := session.NewMemoryStore(cfg.GetSessionTTL(), cfg.GetCleanupInterval())
	defer sessions.Close()

	wz, err := wizard.New(repo, wizard.WithLogger(logger.Named("wizard")))
	if err != nil {
		return err
	}

	srv, err := httpapi.New(wz, sessions, repo, logger.Named("http"), httpapi.Options{
		CookieName:   cfg.Session.CookieName,
		SecureCookie: cfg.Session.SecureCookie,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: cfg.GetWriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("listening",
		zap.String("addr", cfg.Server.Addr),
		zap.String("driver", cfg.Database.Driver))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server stopped unexpectedly: %w", err)
	}
	return nil
}

func runProducts(cmd *cobra.Command, args []string) error {
	repo, err := openRepository()
	if err != nil {
		return err
	}
	defer repo.Close()

	records, err := repo.ListProducts(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "no products")
		return nil
	}
	for _, r := range records {
		fmt.Fprintf(out, "%d\t%s\t%s\t%s\n", r.ID, r.Name, r.Price, r.Category)
	}
	return nil
}
