package robots

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/cdoc/crawldoc/internal/metadata"
	"github.com/cdoc/crawldoc/internal/robots/cache"
)

/*
Responsibilities

- Fetch robots.txt per host
- Cache rules for crawl duration
- Enforce allow/disallow rules before enqueue

Robots checks occur before a URL enters the frontier.
*/

// Robot is the decision facade the scheduler consults before admitting a
// URL to the frontier. Init must run once, before the first Decide call.
type Robot interface {
	Init(userAgent string)
	Decide(target url.URL) (Decision, *RobotsError)
}

// CachedRobot fetches robots.txt once per host for the lifetime of the
// crawl and evaluates every subsequent URL against the cached rule set.
type CachedRobot struct {
	metadataSink metadata.MetadataSink
	fetcher      *RobotsFetcher
	userAgent    string

	mu    sync.Mutex
	rules map[string]ruleSet
}

func NewCachedRobot(metadataSink metadata.MetadataSink) CachedRobot {
	return CachedRobot{
		metadataSink: metadataSink,
		rules:        make(map[string]ruleSet),
	}
}

// Init configures the user agent robots.txt is evaluated against and wires
// up the fetcher. Must be called before Decide.
func (r *CachedRobot) Init(userAgent string) {
	r.userAgent = userAgent
	r.fetcher = NewRobotsFetcher(r.metadataSink, userAgent, cache.NewMemoryCache())
}

// InitWithCache is Init with a caller-supplied robots.txt cache.
func (r *CachedRobot) InitWithCache(userAgent string, robotsCache cache.Cache) {
	r.userAgent = userAgent
	r.fetcher = NewRobotsFetcher(r.metadataSink, userAgent, robotsCache)
}

// Decide fetches (or reuses the cached) robots.txt for target's host and
// reports whether target may be crawled.
func (r *CachedRobot) Decide(target url.URL) (Decision, *RobotsError) {
	rs, err := r.ruleSetFor(target)
	if err != nil {
		r.metadataSink.RecordError(
			time.Now(),
			"robots",
			"CachedRobot.Decide",
			mapRobotsErrorToMetadataCause(err),
			err.Error(),
			[]metadata.Attribute{metadata.NewAttr(metadata.AttrURL, target.String())},
		)
		return Decision{}, err
	}

	allowed, reason := evaluatePath(rs, target.Path)
	return Decision{
		Url:        target,
		Allowed:    allowed,
		Reason:     reason,
		CrawlDelay: rs.CrawlDelay(),
	}, nil
}

func (r *CachedRobot) ruleSetFor(target url.URL) (ruleSet, *RobotsError) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rs, ok := r.rules[target.Host]; ok {
		return rs, nil
	}

	scheme := target.Scheme
	if scheme == "" {
		scheme = "https"
	}

	result, fetchErr := r.fetcher.Fetch(context.Background(), scheme, target.Host)
	if fetchErr != nil {
		return ruleSet{}, fetchErr
	}

	rs := MapResponseToRuleSet(result.Response, r.userAgent, result.FetchedAt)
	r.rules[target.Host] = rs
	return rs, nil
}

// evaluatePath applies longest-prefix-match precedence between allow and
// disallow rules, with allow winning exact-length ties per the
// conventional robots.txt interpretation.
func evaluatePath(rs ruleSet, path string) (bool, DecisionReason) {
	if !rs.hasGroups {
		return true, EmptyRuleSet
	}
	if !rs.matchedGroup {
		return true, UserAgentNotMatched
	}
	if path == "" {
		path = "/"
	}

	bestAllow := longestMatch(rs.AllowRules(), path)
	bestDisallow := longestMatch(rs.DisallowRules(), path)

	if bestDisallow < 0 {
		if bestAllow < 0 {
			return true, NoMatchingRules
		}
		return true, AllowedByRobots
	}
	if bestAllow >= bestDisallow {
		return true, AllowedByRobots
	}
	return false, DisallowedByRobots
}

func longestMatch(rules []pathRule, path string) int {
	best := -1
	for _, rule := range rules {
		prefix := rule.Prefix()
		matched := strings.HasPrefix(path, prefix)
		if strings.ContainsAny(prefix, "*$") {
			// "*" matches any run of characters; a trailing "$" anchors the end.
			expr := "^" + strings.ReplaceAll(regexp.QuoteMeta(strings.TrimSuffix(prefix, "$")), `\*`, ".*")
			if strings.HasSuffix(prefix, "$") {
				expr += "$"
			}
			matched, _ = regexp.MatchString(expr, path)
		}
		if matched && len(prefix) > best {
			best = len(prefix)
		}
	}
	return best
}
