package scheduler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cdoc/crawldoc/internal/assets"
	"github.com/cdoc/crawldoc/internal/browser"
	"github.com/cdoc/crawldoc/internal/config"
	"github.com/cdoc/crawldoc/internal/extractor"
	"github.com/cdoc/crawldoc/internal/fetcher"
	"github.com/cdoc/crawldoc/internal/frontier"
	"github.com/cdoc/crawldoc/internal/indexing"
	"github.com/cdoc/crawldoc/internal/linkrewrite"
	"github.com/cdoc/crawldoc/internal/mdconvert"
	"github.com/cdoc/crawldoc/internal/metadata"
	"github.com/cdoc/crawldoc/internal/normalize"
	"github.com/cdoc/crawldoc/internal/robots"
	"github.com/cdoc/crawldoc/internal/sanitizer"
	"github.com/cdoc/crawldoc/internal/scope"
	"github.com/cdoc/crawldoc/internal/storage"
	"github.com/cdoc/crawldoc/pkg/breaker"
	"github.com/cdoc/crawldoc/pkg/failure"
	"github.com/cdoc/crawldoc/pkg/fileutil"
	"github.com/cdoc/crawldoc/pkg/hashutil"
	"github.com/cdoc/crawldoc/pkg/limiter"
	"github.com/cdoc/crawldoc/pkg/retry"
	"github.com/cdoc/crawldoc/pkg/retryqueue"
	"github.com/cdoc/crawldoc/pkg/timeutil"
	"github.com/cdoc/crawldoc/pkg/urlutil"
)

/*
 Scheduler is the sole control-plane authority of the crawl.

 Determinism and admission guarantees:
 - Scheduler is the ONLY component allowed to decide whether a URL
   may enter the crawl frontier.
 - All semantic admission checks (robots.txt, scope, depth, limits)
   MUST be completed before submitting a URL to the frontier.
 - No other component may enqueue, reject, or reorder URLs.
 - The frontier should only accept already-admitted URLs.
 - Pipeline stages may detect and classify failure, but must never decide retry, continuation, or abortion.

 The scheduler coordinates pipeline execution but does not delegate
 control-flow decisions to downstream stages.

 Metadata emission is observational only and MUST NOT influence
 scheduling, retries, or crawl termination.

 Scheduler Responsibilities:
 - Coordinate crawl lifecycle
 - Enforce global limits (pages, depth)
 - Manage graceful shutdown
 - Aggregate crawl statistics
 - Decide whether a robots outcome proceeds to the frontier.
 - The sole authority on:
	- retry
	- continue
	- abort

 ExecuteCrawling runs a bounded pool of worker goroutines over the frontier
 (see crawlWorker), sized by Concurrency() and further bounded by the
 browser pool's permit count. Every component a worker touches off the
 Scheduler (frontier, circuitBreaker, retryQueue, tokenBucket, rateLimiter,
 robot) guards its own state, so workers never coordinate directly with
 each other; per-crawl statistics are aggregated through crawlAccumulator.
*/

type Scheduler struct {
	ctx                    context.Context
	metadataSink           metadata.MetadataSink
	crawlFinalizer         metadata.CrawlFinalizer
	robot                  robots.Robot
	frontier               *frontier.Frontier
	htmlFetcher            fetcher.Fetcher
	domExtractor           extractor.Extractor
	htmlSanitizer          sanitizer.Sanitizer
	markdownConversionRule mdconvert.ConvertRule
	assetResolver          assets.Resolver
	markdownConstraint     normalize.MarkdownConstraint
	storageSink            storage.Sink
	writeResults           []storage.WriteResult
	currentHost            string
	rateLimiter            limiter.RateLimiter
	sleeper                timeutil.Sleeper

	// Per-domain admission shaping. These sit alongside rateLimiter rather
	// than replace it: rateLimiter paces politeness delay, tokenBucket
	// enforces the configured request rate ceiling, and circuitBreaker +
	// retryQueue keep a misbehaving domain from starving the rest of the
	// crawl.
	tokenBucket    *limiter.TokenBucketLimiter
	circuitBreaker *breaker.Breaker
	retryQueue     *retryqueue.Queue

	// browserPool renders pages through a headless browser when preferBrowserFetch
	// is set. It is constructed lazily in ExecuteCrawling once config is
	// loaded, since pool sizing and page timeout are config-driven.
	browserPool        *browser.Pool
	preferBrowserFetch bool

	// linkRewriter retargets already-saved pages' outgoing links onto local
	// paths as sibling pages are discovered and written.
	linkRewriter *linkrewrite.Rewriter

	// Search indexing is optional: it only runs when the crawl config names
	// an index directory. indexService owns the background writer goroutine;
	// indexSender is the producer handle the crawl loop submits through.
	indexService    *indexing.Service
	indexSender     indexing.Sender
	indexingEnabled bool
}

func NewScheduler() Scheduler {
	recorder := metadata.NewRecorder("sample-single-sync-worker")
	cachedRobot := robots.NewCachedRobot(&recorder)
	htmlFetcher := fetcher.NewHtmlFetcher(&recorder)
	ext := extractor.NewDomExtractor(&recorder, extractor.ExtractParam{})
	htmlSanitizer := sanitizer.NewHTMLSanitizer(&recorder)
	conversionRule := mdconvert.NewRule(&recorder)
	resolver := assets.NewLocalResolver(&recorder, &http.Client{}, "docs-crawler/1.0")
	markdownConstraint := normalize.NewMarkdownConstraint(&recorder)
	localSink := storage.NewLocalSink(&recorder)
	rateLimiter := limiter.NewConcurrentRateLimiter()
	sleeper := timeutil.NewRealSleeper()
	return Scheduler{
		metadataSink:           &recorder,
		crawlFinalizer:         &recorder,
		robot:                  &cachedRobot,
		frontier:               frontier.NewCrawlFrontier(),
		htmlFetcher:            &htmlFetcher,
		domExtractor:           &ext,
		htmlSanitizer:          &htmlSanitizer,
		markdownConversionRule: conversionRule,
		assetResolver:          &resolver,
		markdownConstraint:     markdownConstraint,
		storageSink:            &localSink,
		rateLimiter:            rateLimiter,
		sleeper:                &sleeper,
		tokenBucket:            limiter.NewTokenBucketLimiter(),
		linkRewriter:           linkrewrite.NewRewriter(),
		preferBrowserFetch:     true,
	}
}

// NewSchedulerWithDeps creates a Scheduler with injected dependencies for testing.
// This constructor allows tests to provide mock implementations of metadata interfaces
// to verify behavior without relying on real infrastructure.
func NewSchedulerWithDeps(
	ctx context.Context,
	crawlFinalizer metadata.CrawlFinalizer,
	metadataSink metadata.MetadataSink,
	rateLimiter limiter.RateLimiter,
	fetcher fetcher.Fetcher,
	robot robots.Robot,
	domExtractor extractor.Extractor,
	sanitizer sanitizer.Sanitizer,
	rule mdconvert.ConvertRule,
	resolver assets.Resolver,
	sleeper timeutil.Sleeper,
) Scheduler {
	markdownConstraint := normalize.NewMarkdownConstraint(metadataSink)
	localSink := storage.NewLocalSink(metadataSink)
	return Scheduler{
		ctx:                    ctx,
		metadataSink:           metadataSink,
		crawlFinalizer:         crawlFinalizer,
		robot:                  robot,
		frontier:               frontier.NewCrawlFrontier(),
		htmlFetcher:            fetcher,
		domExtractor:           domExtractor,
		htmlSanitizer:          sanitizer,
		markdownConversionRule: rule,
		assetResolver:          resolver,
		markdownConstraint:     markdownConstraint,
		storageSink:            &localSink,
		rateLimiter:            rateLimiter,
		sleeper:                sleeper,
		tokenBucket:            limiter.NewTokenBucketLimiter(),
		linkRewriter:           linkrewrite.NewRewriter(),
		preferBrowserFetch:     false,
	}
}

// SubmitUrlForAdmission performs all semantic checks required for a URL
// to enter the crawl frontier.
//
// This function is the single admission choke point for the system.
// If this function returns nil, the URL is guaranteed to be admissible
// and safe to submit to the frontier.
//
// No other code path may call Frontier.Submit.
// - Only the scheduler imports frontier
// - Only the scheduler constructs CrawlAdmissionCandidate
// - Pipeline stages never see frontier types
func (s *Scheduler) SubmitUrlForAdmission(
	url url.URL,
	sourceContext frontier.SourceContext,
	depth int,
) failure.ClassifiedError {
	// Fetch robots.txt
	robotsDecision, robotsError := s.robot.Decide(url)
	// Robots infrastructure failure → scheduler-level error
	if robotsError != nil {
		return robotsError
	}

	// Reset backoff after successful robots request
	if s.rateLimiter != nil {
		s.rateLimiter.ResetBackoff(url.Host)
	}

	if robotsDecision.CrawlDelay != nil && *robotsDecision.CrawlDelay > 0 && s.rateLimiter != nil {
		s.rateLimiter.SetCrawlDelay(s.currentHost, *robotsDecision.CrawlDelay)
	}

	// Robots explicitly disallowed → normal, terminal outcome
	if !robotsDecision.Allowed {
		// Important:
		// - metadata is recorded below as a robots-disallow artifact
		// - NO retry
		// - NO abort
		// - NO frontier submission
		s.metadataSink.RecordArtifact(
			metadata.ArtifactKind("robots-disallow"),
			url.String(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, url.String()),
				metadata.NewAttr(metadata.AttrField, string(robotsDecision.Reason)),
			},
		)
		return nil
	}

	// Only submit to frontier if robots allowed
	candidate := frontier.NewCrawlAdmissionCandidate(
		robotsDecision.Url,
		sourceContext,
		frontier.NewDiscoveryMetadata(depth, nil),
	)

	// Submit Allowed URL for Admission by Frontier
	s.frontier.Submit(candidate)
	return nil
}

// crawlAccumulator collects the statistics and outputs that crawlWorker
// goroutines produce concurrently. Every access is mutex-guarded; there is
// no hot path here worth making lock-free, since writes happen once per
// page rather than once per fetch attempt.
type crawlAccumulator struct {
	mu           sync.Mutex
	totalErrors  int
	totalAssets  int
	writeResults []storage.WriteResult
	fatalErr     failure.ClassifiedError
}

func (a *crawlAccumulator) addError() {
	a.mu.Lock()
	a.totalErrors++
	a.mu.Unlock()
}

func (a *crawlAccumulator) addAssets(n int) {
	a.mu.Lock()
	a.totalAssets += n
	a.mu.Unlock()
}

func (a *crawlAccumulator) addWriteResult(r storage.WriteResult) {
	a.mu.Lock()
	a.writeResults = append(a.writeResults, r)
	a.mu.Unlock()
}

// setFatal records the first fatal error seen across all workers. Later
// fatal errors from other workers are dropped; one is enough to abort the
// crawl and the first is as good a report as any.
func (a *crawlAccumulator) setFatal(err failure.ClassifiedError) {
	a.mu.Lock()
	if a.fatalErr == nil {
		a.fatalErr = err
	}
	a.mu.Unlock()
}

func (a *crawlAccumulator) fatal() failure.ClassifiedError {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fatalErr
}

func (a *crawlAccumulator) snapshot() (int, int, []storage.WriteResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totalErrors, a.totalAssets, a.writeResults
}

// idlePollInterval is how long a worker backs off before re-checking the
// frontier and retry queue when both are momentarily empty but another
// worker is still mid-fetch and may submit more work.
const idlePollInterval = 10 * time.Millisecond

func (s *Scheduler) ExecuteCrawling(configPath string) (CrawlingExecution, error) {
	// Track crawl start time for duration calculation
	crawlStartTime := time.Now()

	acc := &crawlAccumulator{}

	// Ensure final stats are recorded even if errors occur
	defer func() {
		crawlDuration := time.Since(crawlStartTime)
		totalPages := s.frontier.VisitedCount()
		totalErrors, totalAssets, _ := acc.snapshot()
		s.crawlFinalizer.RecordFinalCrawlStats(
			totalPages,
			totalErrors,
			totalAssets,
			crawlDuration,
		)
	}()

	// 1. Prepare config File
	cfg, err := config.WithConfigFile(configPath)
	if err != nil {
		s.metadataSink.RecordError(
			time.Now(),
			"config",
			"config.WithConfigFile",
			metadata.CauseContentInvalid,
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrField, fmt.Sprintf("field: %v", "theFieldError")),
			},
		)
		return CrawlingExecution{}, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
	defer cancel()
	if s.ctx == nil {
		s.ctx = ctx
	}

	// Validate that at least one seed URL exists
	if len(cfg.SeedURLs()) == 0 {
		err := fmt.Errorf("no seed URLs configured")
		s.metadataSink.RecordError(
			time.Now(),
			"config",
			"config validation",
			metadata.CauseContentInvalid,
			err.Error(),
			[]metadata.Attribute{},
		)
		return CrawlingExecution{}, err
	}

	// 1.1 Initialize rate limiter
	s.rateLimiter.SetBaseDelay(cfg.BaseDelay())
	s.rateLimiter.SetJitter(cfg.Jitter())
	s.rateLimiter.SetRandomSeed(cfg.RandomSeed())

	// 1.2 Initialize Robots and Frontier
	s.robot.Init(cfg.UserAgent())
	s.frontier.Init(cfg)

	// 1.3 Configure DOM Extractor with extraction parameters from config
	extractParam := extractor.ExtractParam{
		BodySpecificityBias:  cfg.BodySpecificityBias(),
		LinkDensityThreshold: cfg.LinkDensityThreshold(),
		ScoreMultiplier: extractor.ContentScoreMultiplier{
			NonWhitespaceDivisor: cfg.ScoreMultiplierNonWhitespaceDivisor(),
			Paragraphs:           cfg.ScoreMultiplierParagraphs(),
			Headings:             cfg.ScoreMultiplierHeadings(),
			CodeBlocks:           cfg.ScoreMultiplierCodeBlocks(),
			ListItems:            cfg.ScoreMultiplierListItems(),
		},
		Threshold: extractor.MeaningfulThreshold{
			MinNonWhitespace:    cfg.ThresholdMinNonWhitespace(),
			MinHeadings:         cfg.ThresholdMinHeadings(),
			MinParagraphsOrCode: cfg.ThresholdMinParagraphsOrCode(),
			MaxLinkDensity:      cfg.ThresholdMaxLinkDensity(),
		},
	}
	s.domExtractor.SetExtractParam(extractParam)

	// 1.4 Circuit breaker + retry queue gate admission per domain so one
	// unhealthy host cannot starve the rest of the crawl.
	s.circuitBreaker = breaker.New(cfg.CircuitFailureThreshold(), cfg.CircuitSuccessThreshold(), cfg.CircuitOpenTimeout())
	s.retryQueue = retryqueue.New(s.circuitBreaker)

	// 1.5 Render through a headless browser pool when configured to, so
	// client-side-rendered docs sites produce the same DOM a visitor sees.
	if s.preferBrowserFetch {
		pool := browser.NewPool(cfg)
		if startErr := pool.Start(); startErr != nil {
			s.metadataSink.RecordError(
				time.Now(),
				"scheduler",
				"browser.Pool.Start",
				metadata.CauseUnknown,
				startErr.Error(),
				[]metadata.Attribute{},
			)
		} else {
			s.browserPool = pool
			browserFetcher := fetcher.NewBrowserFetcher(s.metadataSink, pool, cfg.PageTimeout(), cfg.SaveScreenshots())
			s.htmlFetcher = &browserFetcher
			defer func() {
				_ = s.browserPool.Close(5 * time.Second)
			}()
		}
	}

	// 1.6 Open the search index only when a directory is configured; an
	// empty SearchIndexDir means indexing is disabled for this crawl.
	if cfg.SearchIndexDir() != "" {
		idx, idxErr := indexing.OpenIndex(cfg.SearchIndexDir())
		if idxErr != nil {
			s.metadataSink.RecordError(
				time.Now(),
				"scheduler",
				"indexing.OpenIndex",
				metadata.CauseUnknown,
				idxErr.Error(),
				[]metadata.Attribute{},
			)
		} else {
			svc := indexing.New(idx, indexing.Options{
				BatchSize:  cfg.IndexingBatchSize(),
				BatchWait:  cfg.IndexingBatchWait(),
				MaxRetries: cfg.IndexingMaxRetries(),
			})
			s.indexService = svc
			s.indexSender = svc.Start()
			s.indexingEnabled = true
			defer func() {
				s.indexSender.Shutdown()
				s.indexService.Wait()
			}()
		}
	}

	// 2. Fetch robots.txt & decide the crawling policy for this hostname based on that
	s.currentHost = cfg.SeedURLs()[0].Host
	seedScheme := cfg.SeedURLs()[0].Scheme
	err = s.SubmitUrlForAdmission(cfg.SeedURLs()[0], frontier.SourceSeed, 0)
	if err != nil {
		// Check if this is a robots error that requires backoff
		if robotsErr, ok := err.(*robots.RobotsError); ok {
			s.recordRobotsErrorAndBackoff(robotsErr, cfg.SeedURLs()[0])
		}
		return CrawlingExecution{}, err
	}

	// Apply rate limiting delay after successful robots check
	delay := s.rateLimiter.ResolveDelay(s.currentHost)
	s.sleeper.Sleep(delay)

	// 2.1 Run a bounded pool of worker goroutines over the frontier.
	// Parallelism is bounded twice over: Concurrency() caps the goroutine
	// count here, and the browser pool (when preferBrowserFetch is set)
	// caps how many of those goroutines can be mid-fetch at once.
	concurrency := cfg.Concurrency()
	if concurrency < 1 {
		concurrency = 1
	}

	workerCtx, cancelWorkers := context.WithCancel(s.ctx)
	defer cancelWorkers()

	var inFlight int64
	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			s.crawlWorker(workerCtx, cancelWorkers, cfg, seedScheme, &inFlight, acc)
		}()
	}
	wg.Wait()

	if fatalErr := acc.fatal(); fatalErr != nil {
		return CrawlingExecution{}, fatalErr
	}

	_, _, writeResults := acc.snapshot()
	s.writeResults = writeResults

	// Stats are recorded by defer - return successful execution result
	return CrawlingExecution{
		WriteResults: writeResults,
	}, nil
}

// crawlWorker is one goroutine of the bounded crawl pool. It pulls tokens
// from the frontier (mutex-protected, safe to call from many goroutines at
// once), re-feeds anything the retry queue has recovered, and otherwise
// backs off briefly before re-checking: a momentarily empty frontier can't
// be told apart from a finished crawl unless inFlight (tokens currently
// being processed by some worker) is also zero, since a sibling worker may
// still be about to submit more work.
func (s *Scheduler) crawlWorker(
	ctx context.Context,
	cancel context.CancelFunc,
	cfg config.Config,
	seedScheme string,
	inFlight *int64,
	acc *crawlAccumulator,
) {
	for {
		if ctx.Err() != nil {
			return
		}

		nextCrawlToken, ok := s.frontier.Dequeue()
		if !ok {
			ready := s.retryQueue.DrainReady()
			if len(ready) > 0 {
				for _, token := range ready {
					candidate := frontier.NewCrawlAdmissionCandidate(
						token.URL(),
						frontier.SourceCrawl,
						frontier.NewDiscoveryMetadata(token.Depth(), nil),
					)
					s.frontier.Submit(candidate)
				}
				continue
			}
			if atomic.LoadInt64(inFlight) == 0 {
				return
			}
			time.Sleep(idlePollInterval)
			continue
		}

		atomic.AddInt64(inFlight, 1)
		s.processToken(ctx, cfg, seedScheme, nextCrawlToken, acc)
		atomic.AddInt64(inFlight, -1)

		if acc.fatal() != nil {
			cancel()
			return
		}
	}
}

// processToken runs one dequeued token through fetch, extract, sanitize,
// convert, write, link-rewrite, and index. Recoverable stage failures are
// counted on acc and the worker moves on to its next token; a fatal one is
// recorded on acc so the pool winds down instead of aborting this one
// goroutine alone.
func (s *Scheduler) processToken(
	ctx context.Context,
	cfg config.Config,
	seedScheme string,
	nextCrawlToken frontier.CrawlToken,
	acc *crawlAccumulator,
) {
	host := nextCrawlToken.URL().Host

	// Per-domain admission shaping: a tripped circuit or an exhausted
	// token bucket defers the token instead of burning a fetch attempt.
	if !s.circuitBreaker.ShouldAttemptURL(nextCrawlToken.URL().String()) {
		s.retryQueue.Add(nextCrawlToken)
		return
	}
	if allow, retryAfter := s.tokenBucket.Check(nextCrawlToken.URL().String(), cfg.CrawlRateRPS()); !allow {
		s.sleeper.Sleep(retryAfter)
	}

	// 3. Fetch Page URL
	fetchParam := fetcher.NewFetchParam(
		nextCrawlToken.URL(),
		cfg.UserAgent(),
	)
	fetchResult, err := s.htmlFetcher.Fetch(ctx, nextCrawlToken.Depth(), fetchParam, RetryParam(cfg))
	if err != nil {
		s.circuitBreaker.RecordFailure(host)
		if err.Severity() == failure.SeverityFatal {
			acc.setFatal(err)
			return
		}
		// recoverable → log already done → count error
		acc.addError()
		return
	}
	s.circuitBreaker.RecordSuccess(host)

	// 4. Extract HTML DOM
	extractionResult, err := s.domExtractor.Extract(fetchResult.URL(), fetchResult.Body())
	if err != nil {
		if err.Severity() == failure.SeverityFatal {
			acc.setFatal(err)
			return
		}
		acc.addError()
		return
	}

	// 5. Sanitize extracted HTML
	sanitizedHtml, err := s.htmlSanitizer.Sanitize(extractionResult.ContentNode)
	if err != nil {
		if err.Severity() == failure.SeverityFatal {
			acc.setFatal(err)
			return
		}
		acc.addError()
		return
	}

	// 5.2 Resolve relative URLs to absolute URLs and filter by host
	discoveredURLs := sanitizedHtml.GetDiscoveredURLs()

	// 5.3 Resolve all URLs to absolute form using the seed scheme and current host
	resolvedURLs := make([]url.URL, 0, len(discoveredURLs))
	for _, u := range discoveredURLs {
		resolved := urlutil.Resolve(u, seedScheme, s.currentHost)
		resolvedURLs = append(resolvedURLs, resolved)
	}

	// 5.4 Filter to only keep URLs from the current host
	filteredURLs := urlutil.FilterByHost(s.currentHost, resolvedURLs)

	// 5.5 submit all discovered links through robots checking to frontier
	for _, discoveredurl := range filteredURLs {
		if !scope.ShouldVisit(discoveredurl.String(), cfg) {
			continue
		}
		submissionErr := s.SubmitUrlForAdmission(discoveredurl, frontier.SourceCrawl, nextCrawlToken.Depth()+1)
		if submissionErr != nil {
			// Check if this is a robots error that requires backoff
			if robotsErr, ok := submissionErr.(*robots.RobotsError); ok {
				s.recordRobotsErrorAndBackoff(robotsErr, discoveredurl)
			}
			// Submission errors are scheduler-level errors, count them
			acc.addError()
			// Continue processing other URLs, don't abort the crawl
		}
	}

	// 6. HTML → Markdown Conversion
	markdownDoc, err := s.markdownConversionRule.Convert(sanitizedHtml)
	if err != nil {
		if err.Severity() == failure.SeverityFatal {
			acc.setFatal(err)
			return
		}
		acc.addError()
		return
	}

	// 7. Assets Resolution
	resolveParam := assets.NewResolveParam(cfg.OutputDir(), cfg.MaxAssetSize())
	assetfulMarkdown, err := s.assetResolver.Resolve(
		ctx,
		fetchResult.URL(),
		markdownDoc,
		resolveParam,
		RetryParam(cfg),
	)
	if err != nil {
		if err.Severity() == failure.SeverityFatal {
			acc.setFatal(err)
			return
		}
		acc.addError()
		// Continue to process the markdown even if asset resolution had errors
	}
	// Count assets processed - use the actual count of successfully resolved local assets
	acc.addAssets(len(assetfulMarkdown.LocalAssets()))

	// 8. Markdown Normalization
	normalizeParam := normalize.NewNormalizeParam(
		cfg.UserAgent(),
		time.Now(),
		hashutil.HashAlgoBLAKE3,
		nextCrawlToken.Depth(),
		cfg.AllowedPathPrefix(),
	)
	normalizedMarkdown, err := s.markdownConstraint.Normalize(fetchResult.URL(), assetfulMarkdown, normalizeParam)
	if err != nil {
		if err.Severity() == failure.SeverityFatal {
			acc.setFatal(err)
			return
		}
		acc.addError()
		return
	}

	// 9. Write Artifact
	outboundLinks := make([]string, 0, len(filteredURLs))
	for _, u := range filteredURLs {
		outboundLinks = append(outboundLinks, u.String())
	}
	headings := markdownDoc.GetHeadings()
	headingMeta := make([]storage.HeadingMeta, 0, len(headings))
	for _, h := range headings {
		headingMeta = append(headingMeta, storage.HeadingMeta{
			Level:    h.Level,
			Text:     h.Text,
			AnchorID: h.AnchorID,
			Ordinal:  h.Ordinal,
		})
	}
	pageArtifacts := storage.PageArtifacts{
		RawHTML:      fetchResult.Body(),
		Screenshot:   fetchResult.Screenshot(),
		Headings:     headingMeta,
		Links:        outboundLinks,
		Status:       fetchResult.Code(),
		FinalURL:     fetchResult.FinalURL().String(),
		WriteRawHTML: cfg.SaveRawHTML(),
		WriteJSON:    true,
		WriteScreen:  cfg.SaveScreenshots(),
	}
	writeResult, err := s.storageSink.Write(cfg.OutputDir(), normalizedMarkdown, hashutil.HashAlgoBLAKE3, pageArtifacts)
	if err != nil {
		if err.Severity() == failure.SeverityFatal {
			acc.setFatal(err)
			return
		}
		// recoverable → log already done → count error
		acc.addError()
		return
	}
	acc.addWriteResult(writeResult)

	// 9.1 Retarget already-saved sibling pages whose outgoing links point
	// at the page just written, and rewrite this page's own outgoing
	// links against everything saved so far. The rewriter guards its own
	// per-path locks, so concurrent workers writing different pages don't
	// race on the referrer index or on any single file.
	outgoingURLs := make([]string, 0, len(filteredURLs))
	for _, u := range filteredURLs {
		outgoingURLs = append(outgoingURLs, u.String())
	}
	rewritten, rewriteErr := s.linkRewriter.AfterSave(
		normalizedMarkdown.Frontmatter().SourceURL(),
		writeResult.Path(),
		normalizedMarkdown.Content(),
		outgoingURLs,
	)
	if rewriteErr == nil && rewritten != nil {
		_ = fileutil.WriteFileAtomic(writeResult.Path(), rewritten, 0644)
	}

	// 9.2 Hand the written page to the background indexer. Indexing
	// failures are observational; they never affect crawl control flow.
	if s.indexingEnabled {
		_ = s.indexSender.AddOrUpdate(
			normalizedMarkdown.Frontmatter().SourceURL(),
			writeResult.Path(),
			indexing.PriorityNormal,
			nil,
		)
	}

	// Apply rate limiting delay at the end of processing this token
	delay := s.rateLimiter.ResolveDelay(s.currentHost)
	s.sleeper.Sleep(delay)
}

// recordRobotsErrorAndBackoff records a robots error using metadataSink and
// triggers exponential backoff on the rate limiter if the error cause warrants it.
// This method handles ErrCauseHttpTooManyRequests (429) and ErrCauseHttpServerError (5xx)
// by recording the error and applying backoff to the current host.
func (s *Scheduler) recordRobotsErrorAndBackoff(robotsErr *robots.RobotsError, targetURL url.URL) {
	// Only record and backoff for specific HTTP error causes
	if robotsErr.Cause == robots.ErrCauseHttpTooManyRequests ||
		robotsErr.Cause == robots.ErrCauseHttpServerError {
		s.metadataSink.RecordError(
			time.Now(),
			"scheduler",
			"SubmitUrlForAdmission",
			metadata.CauseNetworkFailure,
			robotsErr.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, targetURL.String()),
				metadata.NewAttr(metadata.AttrHost, targetURL.Host),
				metadata.NewAttr(metadata.AttrPath, targetURL.Path),
			},
		)
		if s.rateLimiter != nil {
			s.rateLimiter.Backoff(targetURL.Host)
		}
	}
}

func RetryParam(cfg config.Config) retry.RetryParam {
	return retry.NewRetryParam(
		cfg.BaseDelay(),
		cfg.Jitter(),
		cfg.RandomSeed(),
		cfg.MaxAttempt(),
		timeutil.NewBackoffParam(
			cfg.BackoffInitialDuration(),
			cfg.BackoffMultiplier(),
			cfg.BackoffMaxDuration(),
		),
	)
}

// ---------------------------------------------------------------------------
// Test Helper Methods
// These methods are exported to enable testing of SubmitUrlForAdmission()
// and other scheduler internals. They are not part of the public API.
// ---------------------------------------------------------------------------

// InitWith initializes the dependencies with the given data.
// This is a test helper method.
func (s *Scheduler) InitWith(userAgent string, baseDelay time.Duration, jitter time.Duration, randomSeed int64) {
	s.robot.Init(userAgent)
	s.rateLimiter.SetBaseDelay(baseDelay)
	s.rateLimiter.SetJitter(jitter)
	s.rateLimiter.SetRandomSeed(randomSeed)
	if s.circuitBreaker == nil {
		s.circuitBreaker = breaker.New(5, 2, 30*time.Second)
	}
	if s.retryQueue == nil {
		s.retryQueue = retryqueue.New(s.circuitBreaker)
	}
}

// SetCurrentHost sets the current host.
// This is a test helper method to simulate the host context.
func (s *Scheduler) SetCurrentHost(host string) {
	s.currentHost = host
	// s.rateLimiter.RegisterHost(host)
}

// FrontierVisitedCount returns the number of URLs in the frontier's visited set.
// This is a test helper method to verify frontier state.
func (s *Scheduler) FrontierVisitedCount() int {
	if s.frontier == nil {
		return 0
	}
	return s.frontier.VisitedCount()
}

// DequeueFromFrontier dequeues a token from the frontier.
// This is a test helper method to verify frontier contents.
func (s *Scheduler) DequeueFromFrontier() (frontier.CrawlToken, bool) {
	if s.frontier == nil {
		return frontier.CrawlToken{}, false
	}
	return s.frontier.Dequeue()
}

// SetConvertRule sets the markdown conversion rule for testing.
// This is a test helper method to inject mock conversion rules.
func (s *Scheduler) SetConvertRule(rule mdconvert.ConvertRule) {
	s.markdownConversionRule = rule
}
