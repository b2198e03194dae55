package cmd

import (
	"context"
	"net"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"polyvibe/config"
	"polyvibe/proxy"
)

var (
	version    = "dev"
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "polyvibe",
	Short: "AI landing-page generator",
	Long: `polyvibe streams AI-generated landing pages.

  polyvibe serve     run the site and the /api/glm streaming proxy
  polyvibe studio    generate and edit a page from the terminal
  polyvibe models    list the model catalogue

The upstream credential is read from ZAI_API_KEY.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json (default ~/.polyvibe/config.json)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(studioCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(versionCmd)
}

// SetVersion records the build version shown by `polyvibe version`.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute is the entry point called from main.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = filepath.Join(config.Dir(), "config.json")
	}
	return config.Load(path)
}

func newUpstream(cfg *config.Config) *proxy.Upstream {
	return proxy.NewUpstream(proxy.UpstreamSettings{
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.APIKey,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: *cfg.LLM.Temperature,
	}, nil)
}

// endpointFor turns a listen address into the local /api/glm URL.
func endpointFor(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://localhost:8080/api/glm"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return "http://" + host + ":" + port + "/api/glm"
}
