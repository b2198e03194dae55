package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"polyvibe/logger"
	"polyvibe/proxy"
	"polyvibe/server"
	"polyvibe/site"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the site and the streaming proxy",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server_addr and POLYVIBE_ADDR)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.ServerAddr = serveAddr
	}

	log := logger.NewZapLogger(cfg.LogFilePath, cfg.IsProduction())
	defer func() { _ = log.Sync() }()

	upstream := newUpstream(cfg)
	if !upstream.Configured() {
		log.Warn("serve", "ZAI_API_KEY is not set; /api/glm will answer with a configuration error", nil)
	}
	glm, err := proxy.NewHandler(upstream, log)
	if err != nil {
		return err
	}
	pages, err := site.New(log)
	if err != nil {
		return err
	}
	srv, err := server.New(server.Options{
		Proxy:     glm,
		Mock:      proxy.NewMockHandler(cfg.MockDelay, log),
		Catalogue: proxy.CatalogueHandler(upstream),
		Site:      pages,
		Logger:    log,
		Addr:      cfg.ServerAddr,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log.Info("serve", "starting", map[string]interface{}{
		"addr":  cfg.ServerAddr,
		"model": upstream.Model(),
		"env":   cfg.Environment,
	})
	return srv.Run(ctx)
}
