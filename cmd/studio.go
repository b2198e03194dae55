package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"polyvibe/generator"
	"polyvibe/logger"
	"polyvibe/site"
	"polyvibe/ui"
)

var (
	studioEndpoint string
	studioTimeout  time.Duration
	studioOut      string
	studioPreview  string
	studioHistory  string
	studioOffline  bool
)

var studioCmd = &cobra.Command{
	Use:   "studio",
	Short: "Generate and edit a landing page from the terminal",
	Long: `studio is a chat panel in the terminal.

Describe the page you want. Once a page exists every message is an edit
request; edits are staged until you apply them.

  /apply          keep the staged change
  /cancel         discard the staged change
  /new            start a new chat
  /save [path]    write the current page to a file
  /status         show the panel state
  exit            leave`,
	Args: cobra.NoArgs,
	RunE: runStudio,
}

func init() {
	studioCmd.Flags().StringVar(&studioEndpoint, "endpoint", "", "edge endpoint (default derived from server_addr)")
	studioCmd.Flags().DurationVar(&studioTimeout, "timeout", generator.DefaultTimeout, "how long to wait for the endpoint to answer")
	studioCmd.Flags().StringVar(&studioOut, "out", "", "write every committed page to this file")
	studioCmd.Flags().StringVar(&studioPreview, "preview", "", "serve a sandboxed preview on this address, e.g. :8090")
	studioCmd.Flags().StringVar(&studioHistory, "history", "", "transcript file (default ~/.polyvibe/polyvibe_demo_chat.json)")
	studioCmd.Flags().BoolVar(&studioOffline, "offline", false, "answer with the built-in mock instead of calling the endpoint")
}

func runStudio(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.NewIsolatedLogger(cfg.LogFilePath)
	defer func() { _ = log.Sync() }()

	endpoint := studioEndpoint
	if endpoint == "" {
		endpoint = endpointFor(cfg.ServerAddr)
	}
	var streamer generator.Streamer
	if studioOffline {
		streamer = generator.MockStreamer{Delay: cfg.MockDelay}
	} else {
		streamer, err = generator.NewProxyStreamer(endpoint, nil, log)
		if err != nil {
			return err
		}
	}
	agent, err := generator.NewAgent(streamer)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printer := ui.NewPrinter(out, !color.NoColor)
	panel, err := generator.NewPanel(agent, generator.PanelConfig{
		Timeout: studioTimeout,
		Store:   generator.NewHistoryStore(studioHistory),
		Hooks:   printer.Hooks(),
		Logger:  log,
	})
	if err != nil {
		return err
	}

	s := &studio{panel: panel, out: out, outPath: studioOut, logger: log}
	ui.Banner(out, endpoint, studioOffline)
	if n := len(panel.Entries()); n > 0 {
		ui.Info(out, "restored %d messages; /new starts over", n)
	}

	if studioPreview != "" {
		stop, url, err := s.servePreview(studioPreview)
		if err != nil {
			return err
		}
		defer stop()
		ui.Info(out, "preview: %s", url)
		s.previewURL = url
	}

	return s.run(cmd.Context(), cmd.InOrStdin())
}

type studio struct {
	panel      *generator.Panel
	out        io.Writer
	outPath    string
	previewURL string
	logger     logger.ILogger
}

func (s *studio) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		fmt.Fprint(s.out, color.MagentaString("› "))
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		if s.handle(ctx, strings.TrimSpace(scanner.Text())) {
			return nil
		}
	}
}

// handle runs one line of input and reports whether the studio should exit.
func (s *studio) handle(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "":
		return false
	case "exit", "quit", "/exit", "/quit":
		return true
	case "/apply":
		if err := s.panel.Approve(); err != nil {
			ui.Failure(s.out, "nothing to apply")
			return false
		}
		ui.Success(s.out, "change applied")
		s.autosave()
	case "/cancel":
		if err := s.panel.Cancel(); err != nil {
			ui.Failure(s.out, "nothing to cancel")
			return false
		}
		ui.Info(s.out, "change discarded; the page is unchanged")
	case "/new":
		if err := s.panel.Reset(); err != nil {
			ui.Failure(s.out, "reset failed: %v", err)
			return false
		}
		ui.Success(s.out, "new chat")
	case "/save":
		path := arg
		if path == "" {
			path = s.outPath
		}
		if path == "" {
			ui.Failure(s.out, "usage: /save <path>")
			return false
		}
		s.save(path)
	case "/status":
		s.status()
	default:
		if strings.HasPrefix(cmd, "/") {
			ui.Failure(s.out, "unknown command %s", cmd)
			return false
		}
		s.submit(ctx, line)
	}
	return false
}

func (s *studio) submit(ctx context.Context, text string) {
	res, err := s.panel.Submit(ctx, text)
	if err != nil {
		if !errors.Is(err, generator.ErrEmptyMessage) {
			ui.Failure(s.out, "%v", err)
		}
		return
	}
	switch res.Outcome {
	case generator.OutcomeCommitted:
		s.autosave()
		if s.previewURL != "" {
			ui.Info(s.out, "open %s to see it", s.previewURL)
		}
	case generator.OutcomeStaged:
		if s.previewURL != "" {
			ui.Info(s.out, "staged change at %s", s.previewURL)
		}
	}
}

func (s *studio) autosave() {
	if s.outPath != "" {
		s.save(s.outPath)
	}
}

func (s *studio) save(path string) {
	if err := site.Publish(path, s.panel.Committed()); err != nil {
		ui.Failure(s.out, "save failed: %v", err)
		return
	}
	ui.Success(s.out, "saved %s", path)
	s.logger.Info("studio", "page saved", map[string]interface{}{"path": path})
}

func (s *studio) status() {
	ui.Info(s.out, "state %s, last mode %s, preview %s", s.panel.State(), s.panel.Mode(), s.panel.RenderState())
	ui.Info(s.out, "%d messages, page %d bytes", len(s.panel.Entries()), len(s.panel.Committed()))
	if pending, ok := s.panel.Pending(); ok {
		ui.Info(s.out, "staged change for %q (%d bytes)", pending.Instruction, len(pending.HTML))
	}
}

// previewSource shows the raw code while a reply streams, then the staged
// change while one exists, else the page.
func (s *studio) previewSource() site.Preview {
	if s.panel.RenderState() == generator.RenderStreaming {
		if code := s.panel.StreamingCode(); code != "" {
			return site.Preview{Label: "Generating", Code: code}
		}
	}
	if pending, ok := s.panel.Pending(); ok {
		return site.Preview{Label: "Staged change: " + pending.Instruction, Doc: pending.HTML}
	}
	return site.Preview{Label: "Current page", Doc: s.panel.Committed()}
}

func (s *studio) servePreview(addr string) (func(), string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", err
	}
	srv := &http.Server{
		Handler:           site.PreviewHandler(s.previewSource),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("studio", "preview server stopped", map[string]interface{}{"error": err.Error()})
		}
	}()
	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return stop, "http://" + previewHost(ln.Addr()), nil
}

func previewHost(addr net.Addr) string {
	if tcp, ok := addr.(*net.TCPAddr); ok && tcp.IP.IsUnspecified() {
		return fmt.Sprintf("localhost:%d", tcp.Port)
	}
	return addr.String()
}
