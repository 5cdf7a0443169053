package main

import (
	"path/filepath"

	"github.com/Veraticus/halpa/internal/api"
	"github.com/Veraticus/halpa/internal/certs"
	"github.com/Veraticus/halpa/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Long: `Serve the price comparison and the import endpoints over HTTP:

  GET  /api/health, /api/status, /api/stores, /api/products,
       /api/products/:id/history, /api/comparison
  POST /api/import-prices, /api/import-csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, cleanup, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			rules, err := loadRules()
			if err != nil {
				return err
			}
			ingester, err := newIngestService(db, rules, nil)
			if err != nil {
				return err
			}

			if viper.GetString("logging.level") != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}

			cfg := api.DefaultConfig()
			if viper.IsSet("api.products_cache_ttl") {
				cfg.ProductsCacheTTL = viper.GetDuration("api.products_cache_ttl")
			}
			if n := viper.GetInt("api.difference_limit"); n > 0 {
				cfg.DifferenceLimit = n
			}

			if viper.GetBool("api.tls") {
				dir := viper.GetString("api.cert_dir")
				if dir == "" {
					if dir, err = certDir(db.Path()); err != nil {
						return err
					}
				}
				cfg.TLS, err = certs.TLSConfig(certs.NewFileManager(config.ExpandPath(dir), viper.GetStringSlice("api.tls_hosts")...))
				if err != nil {
					return err
				}
			}

			return api.New(db, ingester, cfg).ListenAndServe(ctx, viper.GetString("api.addr"))
		},
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	_ = viper.BindPFlag("api.addr", cmd.Flags().Lookup("addr"))
	cmd.Flags().Bool("tls", false, "serve HTTPS with a self-signed certificate")
	_ = viper.BindPFlag("api.tls", cmd.Flags().Lookup("tls"))
	cmd.Flags().StringSlice("tls-host", nil, "extra host names for the certificate")
	_ = viper.BindPFlag("api.tls_hosts", cmd.Flags().Lookup("tls-host"))

	return cmd
}

// certDir keeps certificates next to the database, or in the config
// directory when the database lives in memory.
func certDir(dbPath string) (string, error) {
	if dbPath != "" && dbPath != ":memory:" {
		return filepath.Join(filepath.Dir(dbPath), "certs"), nil
	}
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "certs"), nil
}
