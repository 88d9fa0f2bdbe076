package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/cdoc/crawldoc/internal/browser"
	"github.com/cdoc/crawldoc/internal/metadata"
	"github.com/cdoc/crawldoc/pkg/failure"
	"github.com/cdoc/crawldoc/pkg/retry"
)

/*
BrowserFetcher renders pages through a pooled headless browser instead of a
raw HTTP client, so pages that depend on client-side rendering produce the
same DOM a real visitor's browser would see rather than the pre-render
response body a plain GET observes.
*/
type BrowserFetcher struct {
	metadataSink      metadata.MetadataSink
	pool              *browser.Pool
	pageTimeout       time.Duration
	captureScreenshot bool
}

func NewBrowserFetcher(
	metadataSink metadata.MetadataSink,
	pool *browser.Pool,
	pageTimeout time.Duration,
	captureScreenshot bool,
) BrowserFetcher {
	return BrowserFetcher{
		metadataSink:      metadataSink,
		pool:              pool,
		pageTimeout:       pageTimeout,
		captureScreenshot: captureScreenshot,
	}
}

// Init satisfies the Fetcher interface. The browser pool owns its own
// lifecycle independently of any *http.Client, so there is nothing to wire.
func (b *BrowserFetcher) Init(*http.Client) {}

func (b *BrowserFetcher) Fetch(
	ctx context.Context,
	crawlDepth int,
	fetchParam FetchParam,
	retryParam retry.RetryParam,
) (FetchResult, failure.ClassifiedError) {
	callerMethod := "BrowserFetcher.Fetch"
	startTime := time.Now()

	res := retry.Retry(retryParam, func() (FetchResult, failure.ClassifiedError) {
		return b.render(ctx, fetchParam)
	})

	duration := time.Since(startTime)
	var statusCode int
	var contentType string
	var retryCount int

	if res.IsFailure() {
		var retryErr *retry.RetryError
		if errors.As(res.Err(), &retryErr) {
			retryCount = retryParam.MaxAttempts
		}
	} else {
		result := res.Value()
		statusCode = result.Code()
		contentType = result.Headers()["Content-Type"]
	}

	b.metadataSink.RecordFetch(
		fetchParam.fetchUrl.String(),
		statusCode,
		duration,
		contentType,
		retryCount,
		crawlDepth,
	)

	if res.IsFailure() {
		var fetchErr *FetchError
		if errors.As(res.Err(), &fetchErr) {
			b.metadataSink.RecordError(
				time.Now(),
				"fetcher",
				callerMethod,
				mapFetchErrorToMetadataCause(fetchErr),
				res.Err().Error(),
				[]metadata.Attribute{
					metadata.NewAttr(metadata.AttrURL, fetchParam.fetchUrl.String()),
				},
			)
		}
		return FetchResult{}, res.Err()
	}
	return res.Value(), nil
}

func (b *BrowserFetcher) render(ctx context.Context, fetchParam FetchParam) (FetchResult, failure.ClassifiedError) {
	permit, err := b.pool.Acquire(ctx)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("acquire browser: %v", err),
			Retryable: true,
			Cause:     ErrCauseRenderFailure,
		}
	}
	defer permit.Release()

	page, err := permit.Page()
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("open page: %v", err),
			Retryable: true,
			Cause:     ErrCauseRenderFailure,
		}
	}
	defer page.Close()

	if b.pageTimeout > 0 {
		page = page.Timeout(b.pageTimeout)
	}

	targetURL := fetchParam.fetchUrl.String()
	var mu sync.Mutex
	var statusCode int
	responseHeaders := map[string]string{}
	go page.EachEvent(func(e *proto.NetworkResponseReceived) {
		if e.Type == proto.NetworkResourceTypeDocument && e.Response.URL == targetURL {
			mu.Lock()
			statusCode = e.Response.Status
			if mime := e.Response.MIMEType; mime != "" {
				responseHeaders["Content-Type"] = mime
			}
			mu.Unlock()
		}
	})()

	if err := page.Navigate(targetURL); err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("navigate: %v", err),
			Retryable: true,
			Cause:     ErrCauseNetworkFailure,
		}
	}
	if err := page.WaitLoad(); err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("wait for load: %v", err),
			Retryable: true,
			Cause:     ErrCauseTimeout,
		}
	}

	renderedHTML, err := page.HTML()
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("read rendered HTML: %v", err),
			Retryable: true,
			Cause:     ErrCauseReadResponseBodyError,
		}
	}

	mu.Lock()
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	if _, ok := responseHeaders["Content-Type"]; !ok {
		responseHeaders["Content-Type"] = "text/html"
	}
	mu.Unlock()

	if statusCode >= 400 {
		cause := ErrCauseRequest5xx
		retryable := statusCode >= 500 || statusCode == 429
		switch statusCode {
		case http.StatusForbidden:
			cause = ErrCauseRequestPageForbidden
		case http.StatusTooManyRequests:
			cause = ErrCauseRequestTooMany
		default:
			if statusCode < 500 {
				cause = ErrCauseRequestPageForbidden
			}
		}
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("rendered page returned status %d", statusCode),
			Retryable: retryable,
			Cause:     cause,
		}
	}

	result := NewFetchResult(
		fetchParam.fetchUrl,
		[]byte(renderedHTML),
		statusCode,
		responseHeaders["Content-Type"],
		responseHeaders,
		time.Now(),
	)

	if info, infoErr := page.Info(); infoErr == nil && info != nil {
		if finalURL, parseErr := url.Parse(info.URL); parseErr == nil && finalURL != nil {
			result = result.WithFinalURL(*finalURL)
		}
	}

	if b.captureScreenshot {
		png, shotErr := page.Screenshot(true, &proto.PageCaptureScreenshot{
			Format: proto.PageCaptureScreenshotFormatPng,
		})
		if shotErr == nil {
			result = result.WithScreenshot(png)
		} else {
			b.metadataSink.RecordError(
				time.Now(),
				"fetcher",
				"BrowserFetcher.render",
				metadata.CauseUnknown,
				fmt.Sprintf("screenshot capture failed: %v", shotErr),
				[]metadata.Attribute{
					metadata.NewAttr(metadata.AttrURL, targetURL),
				},
			)
		}
	}

	return result, nil
}
