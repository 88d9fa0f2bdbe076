package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"
)

type Config struct {
	//===============
	//  Crawl scope
	//===============
	// Initial pages to give to the crawler to begin discovering and traversing other pages.
	seedURLs []url.URL
	// Whitelisted hostname. When empty, Build fills it with the hosts of the seed URLs
	allowedHosts map[string]struct{}
	// Which URL path segments are permitted to be fetched and traversed, even if the links are on the same domain
	allowedPathPrefix []string
	// Whether a subdomain of an allowed host (e.g. docs.example.com for example.com) is in scope
	allowSubdomains bool
	// URLs whose final (post-redirect) form matches any of these patterns are dropped from
	// the frontier even if otherwise in scope
	excludedPatterns []*regexp.Regexp

	//===============
	// Limits
	//===============
	// Maximum number of hyperlink hops from a seed (root) URL
	maxDepth int
	// Maximum number of total documents are allowed to be fetched
	maxPages int

	//===============
	// Politeness
	//===============
	// Maximum number of crawl worker goroutines processing URLs concurrently;
	// it does not control OS threads or CPU parallelism.
	concurrency int
	// Minimum, fixed waiting time you enforce between two HTTP requests to the same host.
	baseDelay time.Duration
	// Randomized variation added on top of the base delay.
	// Intentional randomness applied to timing.
	jitter time.Duration
	// Controls the random number generator
	randomSeed int64
	// maximum attempt during retry
	maxAttempt int
	// initial delay for backoff
	backoffInitialDuration time.Duration
	// multiplier during exponential backoff
	backoffMultiplier float64
	// capped maximum delay for backoff to stop exponential multiplication
	backoffMaxDuration time.Duration
	// Steady-state admission rate per registered domain, in requests per second,
	// enforced in addition to baseDelay/crawl-delay. 0 means no additional cap.
	crawlRateRPS float64
	// Consecutive failures before a domain's circuit opens
	circuitFailureThreshold int
	// Consecutive half-open successes required to close a domain's circuit
	circuitSuccessThreshold int
	// How long a domain's circuit stays open before a half-open probe is allowed
	circuitOpenTimeout time.Duration

	//===============
	// Fetch
	//===============
	// Maximum duration of a single fetch request
	timeout time.Duration
	// User agent that will be used in the request header. In raw string
	userAgent string
	// Whether pages are rendered headlessly (no visible browser window)
	headless bool
	// Whether the browser fingerprint is masked to resist automation detection
	stealthMode bool
	// Screenshot quality (0-100). Screenshots are captured as PNG and this
	// value is not applied to them
	screenshotQuality int
	// Maximum time a single page is allotted in the browser before it is abandoned
	pageTimeout time.Duration
	// Minimum number of warm browser instances kept in the pool
	browserPoolMinSize int
	// Maximum number of browser instances the pool may grow to
	browserPoolMaxSize int
	// Extra idle instances kept above current in-use demand
	browserPoolWarmSpare int
	// How often the pool re-evaluates its target size
	browserPoolResizeInterval time.Duration

	//===============
	// Output
	//===============
	// Root directory in which to store the resulting markdown files
	outputDir string
	// Whether the program will simulates what it would do without
	// actually performing any irreversible or side-effecting actions
	dryRun bool
	// Whether converted Markdown documents are written to disk
	saveMarkdown bool
	// Whether the raw fetched HTML is preserved alongside the converted document
	saveRawHTML bool
	// Whether a screenshot is captured and saved for each page
	saveScreenshots bool
	// Directory holding the full-text search index
	searchIndexDir string
	// Largest embedded resource (image, stylesheet, etc.) the asset resolver
	// will download and localize; larger resources are left as remote links
	maxAssetSize int64

	//===============
	// Conversion
	//===============
	// These values are stored and returned by their getters; the Markdown
	// converter in internal/mdconvert does not read them.
	//
	// Fenced ("```") or indented code block rendering
	codeBlockStyle string
	// Fence character/sequence used when codeBlockStyle is fenced
	codeBlockFence string
	// Inline or reference-style link rendering
	linkStyle string
	// Placement convention for reference-style link definitions
	linkReferenceStyle string
	// Marker character used for unordered list items
	bulletListMarker string
	// How <br> elements are rendered in the resulting Markdown
	brStyle string

	//===============
	// Indexing
	//===============
	// Number of documents batched per index writer transaction
	indexingBatchSize int
	// Maximum time a partial batch waits before being flushed anyway
	indexingBatchWait time.Duration
	// Maximum retries of one batch commit on transient failures
	indexingMaxRetries int
	// Backpressure ceiling on outstanding (unacknowledged) index operations.
	// This value is not passed to the indexing service, which uses its own
	// fixed ceiling (indexing.MaxPendingMessages)
	indexingMaxPending int

	//===============
	// Extraction
	//===============
	// BodySpecificityBias is the threshold for preferring a child container over <body>.
	// If a child node's score is >= BodySpecificityBias * bodyScore, the child is preferred.
	// Default: 0.75 (75%)
	bodySpecificityBias float64
	// LinkDensityThreshold is the maximum ratio of link text to total text before
	// applying a penalty. Higher values allow more link-heavy content.
	// Default: 0.80 (80%)
	linkDensityThreshold float64
	// ScoreMultiplierNonWhitespaceDivisor is the divisor for calculating text score.
	// Score gets +1 point per NonWhitespaceDivisor characters.
	// Default: 50.0
	scoreMultiplierNonWhitespaceDivisor float64
	// ScoreMultiplierParagraphs is the score multiplier for each paragraph element.
	// Default: 5.0
	scoreMultiplierParagraphs float64
	// ScoreMultiplierHeadings is the score multiplier for each heading element (h1-h3).
	// Default: 10.0
	scoreMultiplierHeadings float64
	// ScoreMultiplierCodeBlocks is the score multiplier for each code block.
	// Default: 15.0
	scoreMultiplierCodeBlocks float64
	// ScoreMultiplierListItems is the score multiplier for each list item.
	// Default: 2.0
	scoreMultiplierListItems float64
	// ThresholdMinNonWhitespace is the minimum number of non-whitespace characters
	// required for content to be considered meaningful.
	// Default: 50
	thresholdMinNonWhitespace int
	// ThresholdMinHeadings is the minimum number of headings required.
	// Headings are optional but valuable.
	// Default: 0
	thresholdMinHeadings int
	// ThresholdMinParagraphsOrCode is the minimum number of paragraphs OR code blocks
	// required for content to be considered meaningful.
	// Default: 1
	thresholdMinParagraphsOrCode int
	// ThresholdMaxLinkDensity is the maximum ratio of link text to total text before
	// content is considered navigation-only and rejected.
	// Default: 0.8 (80%)
	thresholdMaxLinkDensity float64
}

type configDTO struct {
	SeedURLs               []url.URL           `json:"seedUrls"`
	AllowedHosts           map[string]struct{} `json:"allowedHosts,omitempty"`
	AllowedPathPrefix      []string            `json:"allowedPathPrefix,omitempty"`
	MaxDepth               int                 `json:"maxDepth,omitempty"`
	MaxPages               int                 `json:"maxPages,omitempty"`
	Concurrency            int                 `json:"concurrency,omitempty"`
	BaseDelay              time.Duration       `json:"baseDelay,omitempty"`
	Jitter                 time.Duration       `json:"jitter,omitempty"`
	RandomSeed             int64               `json:"randomSeed,omitempty"`
	MaxAttempt             int                 `json:"maxAttempt,omitempty"`
	BackoffInitialDuration time.Duration       `json:"backoffInitialDuration,omitempty"`
	BackoffMultiplier      float64             `json:"backoffMultiplier,omitempty"`
	BackoffMaxDuration     time.Duration       `json:"backoffMaxDuration,omitempty"`
	Timeout                time.Duration       `json:"timeout,omitempty"`
	UserAgent              string              `json:"userAgent,omitempty"`
	OutputDir              string              `json:"outputDir,omitempty"`
	DryRun                 bool                `json:"dryRun,omitempty"`
	AllowSubdomains        bool                `json:"allowSubdomains,omitempty"`
	ExcludedPatterns       []string            `json:"excludedPatterns,omitempty"`
	CrawlRateRPS           float64             `json:"crawlRateRps,omitempty"`
	CircuitFailureThreshold int                `json:"circuitFailureThreshold,omitempty"`
	CircuitSuccessThreshold int                `json:"circuitSuccessThreshold,omitempty"`
	CircuitOpenTimeout      time.Duration      `json:"circuitOpenTimeout,omitempty"`
	Headless                  bool            `json:"headless,omitempty"`
	StealthMode                bool            `json:"stealthMode,omitempty"`
	ScreenshotQuality          int             `json:"screenshotQuality,omitempty"`
	PageTimeout                time.Duration   `json:"pageTimeout,omitempty"`
	BrowserPoolMinSize         int             `json:"browserPoolMinSize,omitempty"`
	BrowserPoolMaxSize         int             `json:"browserPoolMaxSize,omitempty"`
	BrowserPoolWarmSpare       int             `json:"browserPoolWarmSpare,omitempty"`
	BrowserPoolResizeInterval  time.Duration   `json:"browserPoolResizeInterval,omitempty"`
	SaveMarkdown               bool            `json:"saveMarkdown,omitempty"`
	SaveRawHTML                bool            `json:"saveRawHtml,omitempty"`
	SaveScreenshots            bool            `json:"saveScreenshots,omitempty"`
	SearchIndexDir             string          `json:"searchIndexDir,omitempty"`
	MaxAssetSize               int64           `json:"maxAssetSize,omitempty"`
	CodeBlockStyle             string          `json:"codeBlockStyle,omitempty"`
	CodeBlockFence             string          `json:"codeBlockFence,omitempty"`
	LinkStyle                  string          `json:"linkStyle,omitempty"`
	LinkReferenceStyle         string          `json:"linkReferenceStyle,omitempty"`
	BulletListMarker           string          `json:"bulletListMarker,omitempty"`
	BrStyle                    string          `json:"brStyle,omitempty"`
	IndexingBatchSize          int             `json:"indexingBatchSize,omitempty"`
	IndexingBatchWait          time.Duration   `json:"indexingBatchWait,omitempty"`
	IndexingMaxRetries         int             `json:"indexingMaxRetries,omitempty"`
	IndexingMaxPending         int             `json:"indexingMaxPending,omitempty"`
	// Extraction parameters
	BodySpecificityBias                 float64 `json:"bodySpecificityBias,omitempty"`
	LinkDensityThreshold                float64 `json:"linkDensityThreshold,omitempty"`
	ScoreMultiplierNonWhitespaceDivisor float64 `json:"scoreMultiplierNonWhitespaceDivisor,omitempty"`
	ScoreMultiplierParagraphs           float64 `json:"scoreMultiplierParagraphs,omitempty"`
	ScoreMultiplierHeadings             float64 `json:"scoreMultiplierHeadings,omitempty"`
	ScoreMultiplierCodeBlocks           float64 `json:"scoreMultiplierCodeBlocks,omitempty"`
	ScoreMultiplierListItems            float64 `json:"scoreMultiplierListItems,omitempty"`
	ThresholdMinNonWhitespace           int     `json:"thresholdMinNonWhitespace,omitempty"`
	ThresholdMinHeadings                int     `json:"thresholdMinHeadings,omitempty"`
	ThresholdMinParagraphsOrCode        int     `json:"thresholdMinParagraphsOrCode,omitempty"`
	ThresholdMaxLinkDensity             float64 `json:"thresholdMaxLinkDensity,omitempty"`
}

func newConfigFromDTO(dto configDTO) (Config, error) {

	// Start with default config
	cfg, err := WithDefault(dto.SeedURLs).Build()
	if err != nil {
		return Config{}, err
	}

	// AllowedHosts can be empty - if so, default to seed URLs hostnames
	if len(dto.AllowedHosts) > 0 {
		cfg.allowedHosts = dto.AllowedHosts
	}

	// AllowedPathPrefix can be empty - always use DTO values
	cfg.allowedPathPrefix = dto.AllowedPathPrefix

	// For other fields, only override if non-zero value is provided
	if dto.MaxDepth != 0 {
		cfg.maxDepth = dto.MaxDepth
	}
	if dto.MaxPages != 0 {
		cfg.maxPages = dto.MaxPages
	}
	if dto.Concurrency != 0 {
		cfg.concurrency = dto.Concurrency
	}
	if dto.BaseDelay != 0 {
		cfg.baseDelay = dto.BaseDelay
	}
	if dto.Jitter != 0 {
		cfg.jitter = dto.Jitter
	}
	if dto.RandomSeed != 0 {
		cfg.randomSeed = dto.RandomSeed
	}
	if dto.MaxAttempt != 0 {
		cfg.maxAttempt = dto.MaxAttempt
	}
	if dto.BackoffInitialDuration != 0 {
		cfg.backoffInitialDuration = dto.BackoffInitialDuration
	}
	if dto.BackoffMultiplier != 0 {
		cfg.backoffMultiplier = dto.BackoffMultiplier
	}
	if dto.BackoffMaxDuration != 0 {
		cfg.backoffMaxDuration = dto.BackoffMaxDuration
	}

	if dto.Timeout != 0 {
		cfg.timeout = dto.Timeout
	}
	if dto.UserAgent != "" {
		cfg.userAgent = dto.UserAgent
	}
	if dto.OutputDir != "" {
		cfg.outputDir = dto.OutputDir
	}
	// DryRun is a boolean, check if explicitly set (we use the DTO value as-is since bool zero value is false)
	cfg.dryRun = dto.DryRun
	cfg.allowSubdomains = dto.AllowSubdomains
	if len(dto.ExcludedPatterns) > 0 {
		cfg.WithExcludedPatterns(dto.ExcludedPatterns)
	}
	if dto.CrawlRateRPS != 0 {
		cfg.crawlRateRPS = dto.CrawlRateRPS
	}
	if dto.CircuitFailureThreshold != 0 {
		cfg.circuitFailureThreshold = dto.CircuitFailureThreshold
	}
	if dto.CircuitSuccessThreshold != 0 {
		cfg.circuitSuccessThreshold = dto.CircuitSuccessThreshold
	}
	if dto.CircuitOpenTimeout != 0 {
		cfg.circuitOpenTimeout = dto.CircuitOpenTimeout
	}
	cfg.headless = dto.Headless
	cfg.stealthMode = dto.StealthMode
	if dto.ScreenshotQuality != 0 {
		cfg.screenshotQuality = dto.ScreenshotQuality
	}
	if dto.PageTimeout != 0 {
		cfg.pageTimeout = dto.PageTimeout
	}
	if dto.BrowserPoolMinSize != 0 {
		cfg.browserPoolMinSize = dto.BrowserPoolMinSize
	}
	if dto.BrowserPoolMaxSize != 0 {
		cfg.browserPoolMaxSize = dto.BrowserPoolMaxSize
	}
	if dto.BrowserPoolWarmSpare != 0 {
		cfg.browserPoolWarmSpare = dto.BrowserPoolWarmSpare
	}
	if dto.BrowserPoolResizeInterval != 0 {
		cfg.browserPoolResizeInterval = dto.BrowserPoolResizeInterval
	}
	cfg.saveMarkdown = dto.SaveMarkdown
	cfg.saveRawHTML = dto.SaveRawHTML
	cfg.saveScreenshots = dto.SaveScreenshots
	if dto.SearchIndexDir != "" {
		cfg.searchIndexDir = dto.SearchIndexDir
	}
	if dto.MaxAssetSize != 0 {
		cfg.maxAssetSize = dto.MaxAssetSize
	}
	if dto.CodeBlockStyle != "" {
		cfg.codeBlockStyle = dto.CodeBlockStyle
	}
	if dto.CodeBlockFence != "" {
		cfg.codeBlockFence = dto.CodeBlockFence
	}
	if dto.LinkStyle != "" {
		cfg.linkStyle = dto.LinkStyle
	}
	if dto.LinkReferenceStyle != "" {
		cfg.linkReferenceStyle = dto.LinkReferenceStyle
	}
	if dto.BulletListMarker != "" {
		cfg.bulletListMarker = dto.BulletListMarker
	}
	if dto.BrStyle != "" {
		cfg.brStyle = dto.BrStyle
	}
	if dto.IndexingBatchSize != 0 {
		cfg.indexingBatchSize = dto.IndexingBatchSize
	}
	if dto.IndexingBatchWait != 0 {
		cfg.indexingBatchWait = dto.IndexingBatchWait
	}
	if dto.IndexingMaxRetries != 0 {
		cfg.indexingMaxRetries = dto.IndexingMaxRetries
	}
	if dto.IndexingMaxPending != 0 {
		cfg.indexingMaxPending = dto.IndexingMaxPending
	}

	// Extraction parameters - only override if non-zero value is provided
	// For float64, we check if value is not 0 (which is also the zero value)
	if dto.BodySpecificityBias != 0 {
		cfg.bodySpecificityBias = dto.BodySpecificityBias
	}
	if dto.LinkDensityThreshold != 0 {
		cfg.linkDensityThreshold = dto.LinkDensityThreshold
	}
	if dto.ScoreMultiplierNonWhitespaceDivisor != 0 {
		cfg.scoreMultiplierNonWhitespaceDivisor = dto.ScoreMultiplierNonWhitespaceDivisor
	}
	if dto.ScoreMultiplierParagraphs != 0 {
		cfg.scoreMultiplierParagraphs = dto.ScoreMultiplierParagraphs
	}
	if dto.ScoreMultiplierHeadings != 0 {
		cfg.scoreMultiplierHeadings = dto.ScoreMultiplierHeadings
	}
	if dto.ScoreMultiplierCodeBlocks != 0 {
		cfg.scoreMultiplierCodeBlocks = dto.ScoreMultiplierCodeBlocks
	}
	if dto.ScoreMultiplierListItems != 0 {
		cfg.scoreMultiplierListItems = dto.ScoreMultiplierListItems
	}
	if dto.ThresholdMinNonWhitespace != 0 {
		cfg.thresholdMinNonWhitespace = dto.ThresholdMinNonWhitespace
	}
	// Note: ThresholdMinHeadings can be 0 (which is a valid value), so we don't check for non-zero
	cfg.thresholdMinHeadings = dto.ThresholdMinHeadings
	if dto.ThresholdMinParagraphsOrCode != 0 {
		cfg.thresholdMinParagraphsOrCode = dto.ThresholdMinParagraphsOrCode
	}
	if dto.ThresholdMaxLinkDensity != 0 {
		cfg.thresholdMaxLinkDensity = dto.ThresholdMaxLinkDensity
	}

	return cfg, nil
}

func WithConfigFile(path string) (Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	configContent, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	cfgDTO := configDTO{}

	err = json.Unmarshal(configContent, &cfgDTO)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	cfg, err := newConfigFromDTO(cfgDTO)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WithDefault creates a new Config with the provided seed URLs and default values for all other fields.
// seedUrls is mandatory and must not be empty - an error will be returned if it is.
func WithDefault(seedUrls []url.URL) *Config {
	defaultConfig := Config{
		seedURLs:     seedUrls,
		allowedHosts: map[string]struct{}{},
		allowedPathPrefix: []string{
			"/",
		},
		allowSubdomains:           false,
		excludedPatterns:          nil,
		maxDepth:                  3,
		maxPages:                  100,
		concurrency:               10,
		baseDelay:                 time.Second,
		jitter:                    time.Millisecond * 500,
		randomSeed:                time.Now().UnixNano(),
		maxAttempt:                10,
		backoffInitialDuration:    100 * time.Millisecond,
		backoffMultiplier:         2.0,
		backoffMaxDuration:        10 * time.Second,
		crawlRateRPS:              1.0,
		circuitFailureThreshold:   5,
		circuitSuccessThreshold:   2,
		circuitOpenTimeout:        30 * time.Second,
		timeout:                   time.Second * 10,
		userAgent:                 "docs-crawler/1.0",
		headless:                  true,
		stealthMode:               true,
		screenshotQuality:         80,
		pageTimeout:               20 * time.Second,
		browserPoolMinSize:        1,
		browserPoolMaxSize:        8,
		browserPoolWarmSpare:      2,
		browserPoolResizeInterval: 5 * time.Second,
		outputDir:                 "output",
		dryRun:                    false,
		saveMarkdown:              true,
		saveRawHTML:               false,
		saveScreenshots:           false,
		searchIndexDir:            "output/.search_index",
		maxAssetSize:              10 * 1024 * 1024,
		codeBlockStyle:            "fenced",
		codeBlockFence:            "```",
		linkStyle:                 "inline",
		linkReferenceStyle:        "full",
		bulletListMarker:          "-",
		brStyle:                   "twospaces",
		indexingBatchSize:         50,
		indexingBatchWait:         100 * time.Millisecond,
		indexingMaxRetries:        3,
		indexingMaxPending:        10000,
		// Extraction defaults
		bodySpecificityBias:                 0.75,
		linkDensityThreshold:                0.80,
		scoreMultiplierNonWhitespaceDivisor: 50.0,
		scoreMultiplierParagraphs:           5.0,
		scoreMultiplierHeadings:             10.0,
		scoreMultiplierCodeBlocks:           15.0,
		scoreMultiplierListItems:            2.0,
		thresholdMinNonWhitespace:           50,
		thresholdMinHeadings:                0,
		thresholdMinParagraphsOrCode:        1,
		thresholdMaxLinkDensity:             0.8,
	}
	return &defaultConfig
}

func (c *Config) WithSeedUrls(urls []url.URL) *Config {
	c.seedURLs = urls
	return c
}

func (c *Config) WithAllowedHosts(hosts map[string]struct{}) *Config {
	c.allowedHosts = hosts
	return c
}

func (c *Config) WithAllowedPathPrefix(prefixes []string) *Config {
	c.allowedPathPrefix = prefixes
	return c
}

func (c *Config) WithMaxDepth(depth int) *Config {
	c.maxDepth = depth
	return c
}

func (c *Config) WithMaxPages(pages int) *Config {
	c.maxPages = pages
	return c
}

func (c *Config) WithConcurrency(concurrency int) *Config {
	c.concurrency = concurrency
	return c
}

func (c *Config) WithBaseDelay(delay time.Duration) *Config {
	c.baseDelay = delay
	return c
}

func (c *Config) WithJitter(jitter time.Duration) *Config {
	c.jitter = jitter
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithMaxAttempt(attempts int) *Config {
	c.maxAttempt = attempts
	return c
}

func (c *Config) WithBackoffInitialDuration(duration time.Duration) *Config {
	c.backoffInitialDuration = duration
	return c
}

func (c *Config) WithBackoffMultiplier(multiplier float64) *Config {
	c.backoffMultiplier = multiplier
	return c
}

func (c *Config) WithBackoffMaxDuration(duration time.Duration) *Config {
	c.backoffMaxDuration = duration
	return c
}

func (c *Config) WithAllowSubdomains(allow bool) *Config {
	c.allowSubdomains = allow
	return c
}

// WithExcludedPatterns compiles raw regular expressions and stores the ones
// that compile successfully; an invalid pattern is skipped rather than
// failing the whole build, mirroring the tolerant DTO-merge style used
// elsewhere in this builder.
func (c *Config) WithExcludedPatterns(patterns []string) *Config {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			continue
		}
		compiled = append(compiled, re)
	}
	c.excludedPatterns = compiled
	return c
}

func (c *Config) WithCrawlRateRPS(rps float64) *Config {
	c.crawlRateRPS = rps
	return c
}

func (c *Config) WithCircuitFailureThreshold(n int) *Config {
	c.circuitFailureThreshold = n
	return c
}

func (c *Config) WithCircuitSuccessThreshold(n int) *Config {
	c.circuitSuccessThreshold = n
	return c
}

func (c *Config) WithCircuitOpenTimeout(d time.Duration) *Config {
	c.circuitOpenTimeout = d
	return c
}

func (c *Config) WithHeadless(headless bool) *Config {
	c.headless = headless
	return c
}

func (c *Config) WithStealthMode(stealth bool) *Config {
	c.stealthMode = stealth
	return c
}

func (c *Config) WithScreenshotQuality(quality int) *Config {
	c.screenshotQuality = quality
	return c
}

func (c *Config) WithPageTimeout(timeout time.Duration) *Config {
	c.pageTimeout = timeout
	return c
}

func (c *Config) WithBrowserPoolMinSize(n int) *Config {
	c.browserPoolMinSize = n
	return c
}

func (c *Config) WithBrowserPoolMaxSize(n int) *Config {
	c.browserPoolMaxSize = n
	return c
}

func (c *Config) WithBrowserPoolWarmSpare(n int) *Config {
	c.browserPoolWarmSpare = n
	return c
}

func (c *Config) WithBrowserPoolResizeInterval(d time.Duration) *Config {
	c.browserPoolResizeInterval = d
	return c
}

func (c *Config) WithSaveMarkdown(save bool) *Config {
	c.saveMarkdown = save
	return c
}

func (c *Config) WithSaveRawHTML(save bool) *Config {
	c.saveRawHTML = save
	return c
}

func (c *Config) WithSaveScreenshots(save bool) *Config {
	c.saveScreenshots = save
	return c
}

func (c *Config) WithMaxAssetSize(n int64) *Config {
	c.maxAssetSize = n
	return c
}

func (c *Config) WithSearchIndexDir(dir string) *Config {
	c.searchIndexDir = dir
	return c
}

func (c *Config) WithCodeBlockStyle(style string) *Config {
	c.codeBlockStyle = style
	return c
}

func (c *Config) WithCodeBlockFence(fence string) *Config {
	c.codeBlockFence = fence
	return c
}

func (c *Config) WithLinkStyle(style string) *Config {
	c.linkStyle = style
	return c
}

func (c *Config) WithLinkReferenceStyle(style string) *Config {
	c.linkReferenceStyle = style
	return c
}

func (c *Config) WithBulletListMarker(marker string) *Config {
	c.bulletListMarker = marker
	return c
}

func (c *Config) WithBrStyle(style string) *Config {
	c.brStyle = style
	return c
}

func (c *Config) WithIndexingBatchSize(n int) *Config {
	c.indexingBatchSize = n
	return c
}

func (c *Config) WithIndexingBatchWait(d time.Duration) *Config {
	c.indexingBatchWait = d
	return c
}

func (c *Config) WithIndexingMaxRetries(n int) *Config {
	c.indexingMaxRetries = n
	return c
}

func (c *Config) WithIndexingMaxPending(n int) *Config {
	c.indexingMaxPending = n
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithOutputDir(outputDir string) *Config {
	c.outputDir = outputDir
	return c
}

func (c *Config) WithDryRun(dryRun bool) *Config {
	c.dryRun = dryRun
	return c
}

func (c *Config) WithBodySpecificityBias(bias float64) *Config {
	c.bodySpecificityBias = bias
	return c
}

func (c *Config) WithLinkDensityThreshold(threshold float64) *Config {
	c.linkDensityThreshold = threshold
	return c
}

func (c *Config) WithScoreMultiplierNonWhitespaceDivisor(divisor float64) *Config {
	c.scoreMultiplierNonWhitespaceDivisor = divisor
	return c
}

func (c *Config) WithScoreMultiplierParagraphs(multiplier float64) *Config {
	c.scoreMultiplierParagraphs = multiplier
	return c
}

func (c *Config) WithScoreMultiplierHeadings(multiplier float64) *Config {
	c.scoreMultiplierHeadings = multiplier
	return c
}

func (c *Config) WithScoreMultiplierCodeBlocks(multiplier float64) *Config {
	c.scoreMultiplierCodeBlocks = multiplier
	return c
}

func (c *Config) WithScoreMultiplierListItems(multiplier float64) *Config {
	c.scoreMultiplierListItems = multiplier
	return c
}

func (c *Config) WithThresholdMinNonWhitespace(min int) *Config {
	c.thresholdMinNonWhitespace = min
	return c
}

func (c *Config) WithThresholdMinHeadings(min int) *Config {
	c.thresholdMinHeadings = min
	return c
}

func (c *Config) WithThresholdMinParagraphsOrCode(min int) *Config {
	c.thresholdMinParagraphsOrCode = min
	return c
}

func (c *Config) WithThresholdMaxLinkDensity(max float64) *Config {
	c.thresholdMaxLinkDensity = max
	return c
}

func (c *Config) Build() (Config, error) {
	if len(c.seedURLs) == 0 {
		return Config{}, fmt.Errorf("%w: seedUrls cannot be empty", ErrInvalidConfig)
	}

	// If allowedHosts is empty, default to seed URLs hostnames
	if len(c.allowedHosts) == 0 {
		c.allowedHosts = make(map[string]struct{})
		for _, u := range c.seedURLs {
			if u.Host != "" {
				c.allowedHosts[u.Host] = struct{}{}
			}
		}
	}

	return *c, nil
}

func (c Config) SeedURLs() []url.URL {
	urls := make([]url.URL, len(c.seedURLs))
	copy(urls, c.seedURLs)
	return urls
}

func (c Config) AllowedHosts() map[string]struct{} {
	hosts := make(map[string]struct{})
	for k, v := range c.allowedHosts {
		hosts[k] = v
	}
	return hosts
}

func (c Config) AllowedPathPrefix() []string {
	prefixes := make([]string, len(c.allowedPathPrefix))
	copy(prefixes, c.allowedPathPrefix)
	return prefixes
}

func (c Config) MaxDepth() int {
	return c.maxDepth
}

func (c Config) MaxPages() int {
	return c.maxPages
}

func (c Config) Concurrency() int {
	return c.concurrency
}

func (c Config) BaseDelay() time.Duration {
	return c.baseDelay
}

func (c Config) Jitter() time.Duration {
	return c.jitter
}

func (c Config) RandomSeed() int64 {
	return c.randomSeed
}

func (c Config) Timeout() time.Duration {
	return c.timeout
}

func (c Config) UserAgent() string {
	return c.userAgent
}

func (c Config) OutputDir() string {
	return c.outputDir
}

func (c Config) DryRun() bool {
	return c.dryRun
}

func (c Config) MaxAttempt() int {
	return c.maxAttempt
}

func (c Config) BackoffInitialDuration() time.Duration {
	return c.backoffInitialDuration
}

func (c Config) BackoffMultiplier() float64 {
	return c.backoffMultiplier
}

func (c Config) BackoffMaxDuration() time.Duration {
	return c.backoffMaxDuration
}

func (c Config) BodySpecificityBias() float64 {
	return c.bodySpecificityBias
}

func (c Config) LinkDensityThreshold() float64 {
	return c.linkDensityThreshold
}

func (c Config) ScoreMultiplierNonWhitespaceDivisor() float64 {
	return c.scoreMultiplierNonWhitespaceDivisor
}

func (c Config) ScoreMultiplierParagraphs() float64 {
	return c.scoreMultiplierParagraphs
}

func (c Config) ScoreMultiplierHeadings() float64 {
	return c.scoreMultiplierHeadings
}

func (c Config) ScoreMultiplierCodeBlocks() float64 {
	return c.scoreMultiplierCodeBlocks
}

func (c Config) ScoreMultiplierListItems() float64 {
	return c.scoreMultiplierListItems
}

func (c Config) ThresholdMinNonWhitespace() int {
	return c.thresholdMinNonWhitespace
}

func (c Config) ThresholdMinHeadings() int {
	return c.thresholdMinHeadings
}

func (c Config) ThresholdMinParagraphsOrCode() int {
	return c.thresholdMinParagraphsOrCode
}

func (c Config) ThresholdMaxLinkDensity() float64 {
	return c.thresholdMaxLinkDensity
}

func (c Config) AllowSubdomains() bool {
	return c.allowSubdomains
}

func (c Config) ExcludedPatterns() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(c.excludedPatterns))
	copy(patterns, c.excludedPatterns)
	return patterns
}

func (c Config) CrawlRateRPS() float64 {
	return c.crawlRateRPS
}

func (c Config) CircuitFailureThreshold() int {
	return c.circuitFailureThreshold
}

func (c Config) CircuitSuccessThreshold() int {
	return c.circuitSuccessThreshold
}

func (c Config) CircuitOpenTimeout() time.Duration {
	return c.circuitOpenTimeout
}

func (c Config) Headless() bool {
	return c.headless
}

func (c Config) StealthMode() bool {
	return c.stealthMode
}

func (c Config) ScreenshotQuality() int {
	return c.screenshotQuality
}

func (c Config) PageTimeout() time.Duration {
	return c.pageTimeout
}

func (c Config) BrowserPoolMinSize() int {
	return c.browserPoolMinSize
}

func (c Config) BrowserPoolMaxSize() int {
	return c.browserPoolMaxSize
}

func (c Config) BrowserPoolWarmSpare() int {
	return c.browserPoolWarmSpare
}

func (c Config) BrowserPoolResizeInterval() time.Duration {
	return c.browserPoolResizeInterval
}

func (c Config) SaveMarkdown() bool {
	return c.saveMarkdown
}

func (c Config) SaveRawHTML() bool {
	return c.saveRawHTML
}

func (c Config) SaveScreenshots() bool {
	return c.saveScreenshots
}

func (c Config) MaxAssetSize() int64 {
	return c.maxAssetSize
}

func (c Config) SearchIndexDir() string {
	return c.searchIndexDir
}

func (c Config) CodeBlockStyle() string {
	return c.codeBlockStyle
}

func (c Config) CodeBlockFence() string {
	return c.codeBlockFence
}

func (c Config) LinkStyle() string {
	return c.linkStyle
}

func (c Config) LinkReferenceStyle() string {
	return c.linkReferenceStyle
}

func (c Config) BulletListMarker() string {
	return c.bulletListMarker
}

func (c Config) BrStyle() string {
	return c.brStyle
}

func (c Config) IndexingBatchSize() int {
	return c.indexingBatchSize
}

func (c Config) IndexingBatchWait() time.Duration {
	return c.indexingBatchWait
}

func (c Config) IndexingMaxRetries() int {
	return c.indexingMaxRetries
}

func (c Config) IndexingMaxPending() int {
	return c.indexingMaxPending
}
