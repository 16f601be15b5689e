package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/FlyMan2612/DocCrawler/internal/analyze"
	"github.com/FlyMan2612/DocCrawler/internal/config"
	"github.com/FlyMan2612/DocCrawler/internal/crawler"
	"github.com/FlyMan2612/DocCrawler/internal/download"
	"github.com/FlyMan2612/DocCrawler/internal/extract"
	"github.com/FlyMan2612/DocCrawler/internal/model"
)

// CrawlStep walks the site from the seed URL and collects document
// URLs into the report. It is the first step of every scan; the
// retrieve step consumes the URLs it discovers.
type CrawlStep struct {
	// spider performs the bounded-depth traversal.
	spider *crawler.Spider

	// logger for structured logging.
	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a crawl step around a configured spider.
func NewCrawlStep(spider *crawler.Spider, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		spider: spider,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl and records discovered document URLs.
// A cancelled crawl still records the URLs found so far; the report is
// marked interrupted and the cancellation propagates.
func (s *CrawlStep) Do(ctx context.Context, report *model.ScanReport) error {
	docs, err := s.spider.Crawl(ctx, report.Seed, report.MaxDepth)

	report.DocumentURLs = docs
	report.PagesCrawled = s.spider.PagesCrawled()

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			report.Interrupted = true
		}
		return err
	}

	s.logger.Info("crawl finished",
		"pages", report.PagesCrawled,
		"documents", len(docs),
	)
	return nil
}

// RetrieveStep downloads, extracts, and analyzes every document URL in
// the report. Documents are processed concurrently with a bounded
// worker count; each produces one DocumentResult regardless of outcome.
//
// Design decision: We use errgroup.SetLimit rather than a hand-rolled
// worker pool because it's simpler and handles the concurrency
// correctly. Results are written to pre-allocated slots so the output
// order matches the discovery order despite concurrent execution.
type RetrieveStep struct {
	// downloader fetches document bodies to temporary files.
	downloader *download.Downloader

	// extractor pulls analyzable text out of downloaded files.
	extractor *extract.Extractor

	// analyzer renders the sensitivity verdict.
	analyzer analyze.Analyzer

	// concurrency is the maximum number of documents in flight.
	concurrency int

	// keepFiles disables temporary file cleanup, used for debugging.
	keepFiles bool

	// logger for structured logging.
	logger *slog.Logger
}

// RetrieveStepOption configures a RetrieveStep.
type RetrieveStepOption func(*RetrieveStep)

// WithRetrieveConcurrency sets the maximum number of concurrent
// document retrievals.
func WithRetrieveConcurrency(n int) RetrieveStepOption {
	return func(s *RetrieveStep) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithKeepFiles disables removal of downloaded temporary files.
func WithKeepFiles(keep bool) RetrieveStepOption {
	return func(s *RetrieveStep) {
		s.keepFiles = keep
	}
}

// WithRetrieveLogger sets a custom logger for the retrieve step.
func WithRetrieveLogger(logger *slog.Logger) RetrieveStepOption {
	return func(s *RetrieveStep) {
		s.logger = logger
	}
}

// NewRetrieveStep creates a retrieve step.
func NewRetrieveStep(downloader *download.Downloader, extractor *extract.Extractor, analyzer analyze.Analyzer, opts ...RetrieveStepOption) *RetrieveStep {
	s := &RetrieveStep{
		downloader:  downloader,
		extractor:   extractor,
		analyzer:    analyzer,
		concurrency: config.DefaultConcurrency,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *RetrieveStep) Name() string {
	return "retrieve"
}

// Do processes every discovered document. Per-document failures are
// recorded in the result and never abort the step; only context
// cancellation stops processing early.
func (s *RetrieveStep) Do(ctx context.Context, report *model.ScanReport) error {
	if len(report.DocumentURLs) == 0 {
		report.FinishedAt = time.Now()
		return nil
	}

	results := make([]*model.DocumentResult, len(report.DocumentURLs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, docURL := range report.DocumentURLs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			results[i] = s.process(gctx, docURL)
			return nil
		})
	}

	err := g.Wait()

	// Keep whatever completed, even on cancellation.
	for _, r := range results {
		if r != nil {
			report.Documents = append(report.Documents, r)
		}
	}
	report.FinishedAt = time.Now()

	if err != nil {
		report.Interrupted = true
		return err
	}
	return nil
}

// process runs the download-extract-analyze sequence for one URL.
// It always returns a result; failures are recorded in Error.
func (s *RetrieveStep) process(ctx context.Context, docURL string) *model.DocumentResult {
	result := &model.DocumentResult{URL: docURL}

	s.logger.Info("retrieving document", "url", docURL)

	dl, err := s.downloader.Fetch(ctx, docURL)
	if err != nil {
		s.logger.Warn("download failed", "url", docURL, "error", err)
		result.Error = err.Error()
		return result
	}

	result.LocalPath = dl.Path
	result.ContentHash = dl.ContentHash
	result.Size = dl.Size

	if !s.keepFiles {
		defer func() {
			if err := os.Remove(dl.Path); err != nil {
				s.logger.Debug("temp file cleanup failed", "path", dl.Path, "error", err)
			}
		}()
	}

	text := s.extractor.Extract(dl.Path)

	sensitive, rationale, err := s.analyzer.Analyze(ctx, text, docURL)
	if err != nil {
		s.logger.Warn("analysis failed", "url", docURL, "error", err)
		result.Error = err.Error()
		return result
	}

	result.Sensitive = sensitive
	result.Analysis = rationale
	result.Analyzed = true

	if sensitive {
		s.logger.Warn("sensitive document detected", "url", docURL)
	}
	return result
}
