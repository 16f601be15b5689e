package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/FlyMan2612/DocCrawler/internal/analyze"
	"github.com/FlyMan2612/DocCrawler/internal/config"
	"github.com/FlyMan2612/DocCrawler/internal/crawler"
	"github.com/FlyMan2612/DocCrawler/internal/database"
	"github.com/FlyMan2612/DocCrawler/internal/download"
	"github.com/FlyMan2612/DocCrawler/internal/extract"
	doclog "github.com/FlyMan2612/DocCrawler/internal/log"
	"github.com/FlyMan2612/DocCrawler/internal/model"
	"github.com/FlyMan2612/DocCrawler/internal/pipeline"
	"github.com/FlyMan2612/DocCrawler/internal/report"
	"github.com/FlyMan2612/DocCrawler/internal/session"
	"github.com/FlyMan2612/DocCrawler/internal/tor"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <url>",
		Short: "Crawl a site and analyze discovered documents",
		Long: `Scan crawls a web site from the given seed URL, collects document
links (PDFs, Office files, text files), downloads each one, and asks
the analysis backend whether it looks sensitive or unintended for
public release.

Examples:
  # Scan a site with defaults (depth 2, direct connection)
  docscoop scan https://example.com

  # Scan anonymously through a running Tor proxy
  docscoop scan --anonymous https://example.com

  # Start a Tor process if none is running
  docscoop scan --anonymous --launch-tor https://example.com

  # Deeper crawl, write results to CSV
  docscoop scan --depth 3 --output results.csv https://example.com

  # Custom document types
  docscoop scan --include-ext zip --exclude-ext txt https://example.com

Configuration file (.docscoop) example:
  documentExtensions: [pdf, docx, xlsx]
  ignoreExtensions: [log]
  depth: 3
  concurrency: 8`,
		Args: cobra.ExactArgs(1),
		RunE: runScanCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("depth", "d", config.DefaultCrawlDepth,
		"Maximum crawl recursion depth (0 fetches only the seed)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Connection timeout for each crawl request")
	cmd.Flags().Duration("download-timeout", config.DefaultDownloadTimeout,
		"Connection timeout for each document download")
	cmd.Flags().Int("concurrency", config.DefaultConcurrency,
		"Number of concurrent document retrievals")
	cmd.Flags().Int("retries", config.DefaultDownloadRetries,
		"Download retry budget per document in anonymous mode")

	// Document classification flags
	cmd.Flags().StringSlice("include-ext", nil,
		"Additional extensions to treat as documents (e.g., zip,json)")
	cmd.Flags().StringSlice("exclude-ext", nil,
		"Extensions to remove from the document list and ignore entirely")

	// Tor flags
	cmd.Flags().BoolP("anonymous", "a", false,
		"Route all crawl and download traffic through a Tor SOCKS proxy")
	cmd.Flags().BoolP("launch-tor", "l", false,
		"Start a Tor process if none is reachable (requires --anonymous)")
	cmd.Flags().Int("tor-port", config.DefaultSocksPort,
		"Tor SOCKS proxy port")
	cmd.Flags().Int("control-port", config.DefaultControlPort,
		"Tor control port used for identity rotation")
	cmd.Flags().String("tor-password", "",
		"Tor control port password (cookie auth is tried when empty)")

	// Report flags
	cmd.Flags().StringP("output", "o", "",
		"Write analyzed results as CSV to the specified file")
	cmd.Flags().BoolP("markdown", "m", false,
		"Print the report as Markdown instead of plain text")
	cmd.Flags().BoolP("silent", "s", false,
		"Suppress progress output (the report is still printed)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .docscoop in current or home directory)")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	// A .env in the working directory may carry GEMINI_API_KEY.
	// Absence is fine; the variable can come from the environment.
	_ = godotenv.Load()

	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := doclog.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// SIGINT/SIGTERM cancel the context; the pipeline drains gracefully
	// and partial results are still reported and persisted.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runScan(ctx, cfg, logger)
}

// buildConfig creates a Config from the config file and cobra flags.
// File values apply first; explicitly set flags win over both the file
// and the built-in defaults.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Seed = args[0]
	cfg.APIKey = os.Getenv("GEMINI_API_KEY")

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	explicitConfigPath := configPath != ""

	if found := config.FindConfigFile(configPath); found != "" {
		cf, err := config.LoadConfigFile(found)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", found, err)
		}
		cf.Apply(cfg)
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	flags := cmd.Flags()

	if flags.Changed("depth") {
		if cfg.CrawlDepth, err = flags.GetInt("depth"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("concurrency") {
		if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
			return nil, err
		}
	}

	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.DownloadTimeout, err = flags.GetDuration("download-timeout"); err != nil {
		return nil, err
	}
	if cfg.DownloadRetries, err = flags.GetInt("retries"); err != nil {
		return nil, err
	}

	if cfg.Anonymous, err = flags.GetBool("anonymous"); err != nil {
		return nil, err
	}
	if cfg.LaunchTor, err = flags.GetBool("launch-tor"); err != nil {
		return nil, err
	}
	if cfg.SocksPort, err = flags.GetInt("tor-port"); err != nil {
		return nil, err
	}
	if cfg.ControlPort, err = flags.GetInt("control-port"); err != nil {
		return nil, err
	}
	if cfg.ControlPassword, err = flags.GetString("tor-password"); err != nil {
		return nil, err
	}

	if cfg.OutputFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.Silent, err = flags.GetBool("silent"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	includeExts, err := flags.GetStringSlice("include-ext")
	if err != nil {
		return nil, err
	}
	excludeExts, err := flags.GetStringSlice("exclude-ext")
	if err != nil {
		return nil, err
	}
	applyExtensionFlags(cfg, includeExts, excludeExts)

	return cfg, nil
}

// applyExtensionFlags merges --include-ext and --exclude-ext into the
// configured extension lists. Excluded extensions are removed from the
// document list and added to the ignore list so the deny always wins.
func applyExtensionFlags(cfg *config.Config, includeExts, excludeExts []string) {
	for _, ext := range config.NormalizeExtensions(includeExts) {
		if !containsExt(cfg.DocumentExtensions, ext) {
			cfg.DocumentExtensions = append(cfg.DocumentExtensions, ext)
		}
	}

	for _, ext := range config.NormalizeExtensions(excludeExts) {
		cfg.DocumentExtensions = removeExt(cfg.DocumentExtensions, ext)
		if !containsExt(cfg.IgnoreExtensions, ext) {
			cfg.IgnoreExtensions = append(cfg.IgnoreExtensions, ext)
		}
	}
}

func containsExt(exts []string, ext string) bool {
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}

func removeExt(exts []string, ext string) []string {
	out := exts[:0]
	for _, e := range exts {
		if e != ext {
			out = append(out, e)
		}
	}
	return out
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// runScan executes the scan.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	status := newStatusPrinter(cfg.Silent)

	db, err := database.Open(cfg.DBDir)
	if err != nil {
		return fmt.Errorf("failed to open scan history database: %w", err)
	}
	defer db.Close()

	// Bring up the transport. Activation never aborts the scan: an
	// unreachable or unverifiable proxy degrades to a direct connection
	// with a warning.
	transportOpts := []tor.Option{
		tor.WithLogger(logger),
		tor.WithDataDir(config.TorDataDir()),
	}
	if cfg.ControlPassword != "" {
		transportOpts = append(transportOpts, tor.WithControlPassword(cfg.ControlPassword))
	}
	transport := tor.NewTransport(cfg.SocksAddr(), cfg.ControlAddr(), transportOpts...)
	defer transport.Deactivate()

	if cfg.Anonymous {
		status.infof("Activating anonymous transport...")
		if state := transport.Activate(ctx, cfg.LaunchTor); state == tor.StateActiveAnonymous {
			status.okf("Anonymous mode active (Tor proxy at %s)", cfg.SocksAddr())
		} else {
			status.warnf("Tor unavailable, proceeding WITHOUT anonymity")
		}
	}

	scanReport := model.NewScanReport(cfg.Seed, cfg.CrawlDepth)
	scanReport.Anonymous = transport.Active()

	p := buildPipeline(cfg, transport, logger)

	status.infof("Scanning %s (depth %d)...", cfg.Seed, cfg.CrawlDepth)
	startTime := time.Now()

	execErr := p.Execute(ctx, scanReport)
	if scanReport.FinishedAt.IsZero() {
		scanReport.FinishedAt = time.Now()
	}

	if execErr != nil && !scanReport.Interrupted {
		return execErr
	}
	if scanReport.Interrupted {
		status.warnf("Scan interrupted, reporting partial results")
	} else {
		status.okf("Scan completed in %s", time.Since(startTime).Round(time.Millisecond))
	}

	if err := outputReport(cfg, scanReport); err != nil {
		return err
	}

	if err := db.SaveScanReport(ctx, scanReport); err != nil {
		// History is a convenience; losing one row is not worth
		// failing a finished scan.
		logger.Error("failed to save scan report", "error", err)
	}

	if scanReport.Interrupted {
		return context.Canceled
	}
	return nil
}

// buildPipeline assembles the crawl and retrieve steps from the
// configuration.
func buildPipeline(cfg *config.Config, transport *tor.Transport, logger *slog.Logger) *pipeline.Pipeline {
	classifier := crawler.NewClassifier(cfg.DocumentExtensions, cfg.IgnoreExtensions)

	crawlSessions := session.NewFactory(transport, cfg.Timeout)
	spider := crawler.NewSpider(crawlSessions, transport, classifier,
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithSpiderLogger(logger),
	)

	downloadSessions := session.NewFactory(transport, cfg.DownloadTimeout)
	downloader := download.NewDownloader(downloadSessions, transport,
		download.WithMaxRetries(cfg.DownloadRetries),
		download.WithDownloadLogger(logger),
	)

	extractor := extract.NewExtractor(logger)
	analyzer := analyze.NewGeminiAnalyzer(cfg.APIKey)

	p := pipeline.New(
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(false),
	)
	p.AddSteps(
		pipeline.NewCrawlStep(spider, pipeline.WithCrawlLogger(logger)),
		pipeline.NewRetrieveStep(downloader, extractor, analyzer,
			pipeline.WithRetrieveConcurrency(cfg.Concurrency),
			pipeline.WithRetrieveLogger(logger),
		),
	)
	return p
}

// outputReport prints the human-facing report and writes the optional
// CSV results file.
func outputReport(cfg *config.Config, scanReport *model.ScanReport) error {
	var human report.Writer
	if cfg.MarkdownReport {
		human = report.NewMarkdownWriter(os.Stdout)
	} else {
		human = report.NewSimpleWriter(os.Stdout, report.WithVerbose(cfg.Verbose))
	}

	if _, err := human.Write(scanReport); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if cfg.OutputFile == "" {
		return nil
	}

	dir := filepath.Dir(cfg.OutputFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// 0600 because results may quote sensitive document content.
	f, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if _, err := report.NewCSVWriter(f).Write(scanReport); err != nil {
		return fmt.Errorf("failed to write CSV results: %w", err)
	}
	return nil
}

// statusPrinter writes colored progress lines to stderr unless
// silenced. The report itself always goes to stdout.
type statusPrinter struct {
	silent bool
	ok     *color.Color
	warn   *color.Color
	info   *color.Color
}

func newStatusPrinter(silent bool) *statusPrinter {
	return &statusPrinter{
		silent: silent,
		ok:     color.New(color.FgGreen),
		warn:   color.New(color.FgYellow),
		info:   color.New(color.FgCyan),
	}
}

func (s *statusPrinter) print(c *color.Color, format string, args ...any) {
	if s.silent {
		return
	}
	c.Fprintf(os.Stderr, format+"\n", args...)
}

func (s *statusPrinter) okf(format string, args ...any)   { s.print(s.ok, format, args...) }
func (s *statusPrinter) warnf(format string, args ...any) { s.print(s.warn, format, args...) }
func (s *statusPrinter) infof(format string, args ...any) { s.print(s.info, format, args...) }
