package fetcher

import (
	"net/url"
	"time"
)

// HTTP boundary

type FetchParam struct {
	fetchUrl  url.URL
	userAgent string
}

func NewFetchParam(fetchUrl url.URL, userAgent string) FetchParam {
	return FetchParam{
		fetchUrl:  fetchUrl,
		userAgent: userAgent,
	}
}

type FetchResult struct {
	url        url.URL
	body       []byte
	meta       ResponseMeta
	fetchedAt  time.Time
	finalURL   *url.URL
	screenshot []byte
}

func (f *FetchResult) URL() url.URL {
	return f.url
}

// FinalURL returns the URL actually rendered, which may differ from URL()
// after redirects. Falls back to URL() when no redirect was observed.
func (f *FetchResult) FinalURL() url.URL {
	if f.finalURL != nil {
		return *f.finalURL
	}
	return f.url
}

// Screenshot returns the captured page screenshot, nil when none was taken.
func (f *FetchResult) Screenshot() []byte {
	return f.screenshot
}

// WithFinalURL returns a copy of f recording the post-redirect URL.
func (f FetchResult) WithFinalURL(finalURL url.URL) FetchResult {
	f.finalURL = &finalURL
	return f
}

// WithScreenshot returns a copy of f carrying the captured screenshot bytes.
func (f FetchResult) WithScreenshot(png []byte) FetchResult {
	f.screenshot = png
	return f
}

func (f *FetchResult) Body() []byte {
	return f.body
}

func (f *FetchResult) Code() int {
	return f.meta.statusCode
}

func (f *FetchResult) SizeByte() uint64 {
	return uint64(len(f.body))
}

func (f *FetchResult) Headers() map[string]string {
	return f.meta.responseHeaders
}

func (f *FetchResult) FetchedAt() time.Time {
	return f.fetchedAt
}

type ResponseMeta struct {
	statusCode      int
	responseHeaders map[string]string
}

// NewFetchResult builds a FetchResult from its observed HTTP boundary
// values. contentType is folded into responseHeaders under "Content-Type"
// when the caller hasn't already set it there.
func NewFetchResult(
	url url.URL,
	body []byte,
	statusCode int,
	contentType string,
	responseHeaders map[string]string,
	fetchedAt time.Time,
) FetchResult {
	if responseHeaders == nil {
		responseHeaders = map[string]string{}
	}
	if contentType != "" {
		if _, ok := responseHeaders["Content-Type"]; !ok {
			responseHeaders["Content-Type"] = contentType
		}
	}
	return FetchResult{
		url:       url,
		body:      body,
		fetchedAt: fetchedAt,
		meta: ResponseMeta{
			statusCode:      statusCode,
			responseHeaders: responseHeaders,
		},
	}
}

// NewFetchResultForTest creates a FetchResult for testing purposes.
// This allows test packages to construct FetchResult values without
// accessing unexported fields directly.
func NewFetchResultForTest(
	url url.URL,
	body []byte,
	statusCode int,
	contentType string,
	responseHeaders map[string]string,
	fetchedAt time.Time,
) FetchResult {
	return NewFetchResult(url, body, statusCode, contentType, responseHeaders, fetchedAt)
}
