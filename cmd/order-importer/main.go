package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/order-importer/internal/address"
	"github.com/order-importer/internal/config"
	"github.com/order-importer/internal/db"
	"github.com/order-importer/internal/importer"
	"github.com/order-importer/internal/store"
	"github.com/order-importer/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := newLogger(cfg.Log.Level)
	defer logger.Sync()

	rootCmd := &cobra.Command{
		Use:   "order-importer",
		Short: "Order Export Importer",
		Long:  `Imports e-commerce order export CSV files into a relational schema, reconciling free-form addresses into a canonical address table`,
	}

	rootCmd.AddCommand(newImportCmd(cfg, logger))
	rootCmd.AddCommand(newPingCmd(cfg, logger))
	rootCmd.AddCommand(newServeCmd(cfg, logger))

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func newLogger(level string) *zap.Logger {
	var zcfg zap.Config
	if level == "debug" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	logger, err := zcfg.Build()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	return logger
}

// buildImporter wires the connection, parser, reconciler and importer.
func buildImporter(cfg *config.Config, logger *zap.Logger) (*db.Connection, *importer.Importer, error) {
	conn, err := db.NewConnection(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	parser, err := address.NewParser(cfg.Parser.Strategy)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}

	reconciler := address.NewReconciler(parser, store.NewPostgres(conn.DB, logger), logger)
	return conn, importer.New(conn.DB, reconciler, logger), nil
}

func newImportCmd(cfg *config.Config, logger *zap.Logger) *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import order export data",
		Long:  `Import CSV files containing retail orders, returns, refunds and digital orders`,
	}

	importCmd.AddCommand(&cobra.Command{
		Use:   "all [dir]",
		Short: "Import every export folder under a base directory",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			baseDir := cfg.Data.Dir
			if len(args) == 1 {
				baseDir = args[0]
			}
			conn, im, err := buildImporter(cfg, logger)
			if err != nil {
				logger.Fatal("setup failed", zap.Error(err))
			}
			defer conn.Close()

			if err := im.ImportAll(cmd.Context(), baseDir); err != nil {
				logger.Fatal("import failed", zap.Error(err))
			}
		},
	})

	importCmd.AddCommand(&cobra.Command{
		Use:   "retail [filename]",
		Short: "Import a retail order history CSV",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			conn, im, err := buildImporter(cfg, logger)
			if err != nil {
				logger.Fatal("setup failed", zap.Error(err))
			}
			defer conn.Close()

			if err := im.ImportRetailOrders(cmd.Context(), args[0]); err != nil {
				logger.Fatal("import failed", zap.Error(err))
			}
		},
	})

	importCmd.AddCommand(&cobra.Command{
		Use:   "returns [filename]",
		Short: "Import a returns/refunds CSV",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			conn, im, err := buildImporter(cfg, logger)
			if err != nil {
				logger.Fatal("setup failed", zap.Error(err))
			}
			defer conn.Close()

			if err := im.ImportReturns(cmd.Context(), args[0]); err != nil {
				logger.Fatal("import failed", zap.Error(err))
			}
		},
	})

	importCmd.AddCommand(&cobra.Command{
		Use:   "digital [orders] [items] [payments]",
		Short: "Import a digital ordering export (three CSV files)",
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			conn, im, err := buildImporter(cfg, logger)
			if err != nil {
				logger.Fatal("setup failed", zap.Error(err))
			}
			defer conn.Close()

			if err := im.ImportDigitalOrders(cmd.Context(), args[0], args[1], args[2]); err != nil {
				logger.Fatal("import failed", zap.Error(err))
			}
		},
	})

	importCmd.AddCommand(&cobra.Command{
		Use:   "borrows [filename]",
		Short: "Import a digital borrows CSV",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			conn, im, err := buildImporter(cfg, logger)
			if err != nil {
				logger.Fatal("setup failed", zap.Error(err))
			}
			defer conn.Close()

			if err := im.ImportDigitalBorrows(cmd.Context(), args[0]); err != nil {
				logger.Fatal("import failed", zap.Error(err))
			}
		},
	})

	return importCmd
}

func newPingCmd(cfg *config.Config, logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Test database connectivity",
		Run: func(cmd *cobra.Command, args []string) {
			conn, err := db.NewConnection(cfg)
			if err != nil {
				logger.Fatal("failed to connect to database", zap.Error(err))
			}
			defer conn.Close()

			fmt.Println("Database connection successful!")

			for _, table := range []string{"orders", "addresses", "order_addresses"} {
				var count int
				if err := conn.DB.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
					logger.Warn("count failed", zap.String("table", table), zap.Error(err))
					continue
				}
				fmt.Printf("%s: %d rows\n", table, count)
			}
		},
	}
}

func newServeCmd(cfg *config.Config, logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only query API",
		Run: func(cmd *cobra.Command, args []string) {
			conn, err := db.NewConnection(cfg)
			if err != nil {
				logger.Fatal("failed to connect to database", zap.Error(err))
			}
			defer conn.Close()

			parser, err := address.NewParser(cfg.Parser.Strategy)
			if err != nil {
				logger.Fatal("invalid parser strategy", zap.Error(err))
			}

			server := web.NewServer(cfg.Server.Addr, conn.DB, parser, logger)
			if err := server.Start(); err != nil {
				logger.Fatal("server failed", zap.Error(err))
			}
		},
	}
}
