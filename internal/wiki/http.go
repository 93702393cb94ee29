package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/wikiguard/internal/sentinel"
)

const maxRedirectDepth = 16

var (
	// ErrNoRevisions is returned when a page has no revision history.
	ErrNoRevisions = errors.New("wiki: no revisions found for page")
	// ErrRedirectLoop is returned when canonical title resolution exceeds maxRedirectDepth hops.
	ErrRedirectLoop = errors.New("wiki: redirect chain exceeded maximum depth")

	redirectPattern = regexp.MustCompile(`(?i)#REDIRECT\s*\[\[([^]]+)]]`)
	headingPattern  = regexp.MustCompile(`(?m)^==\s*(.+?)\s*==\s*$`)
)

// responseCache is the read-through key/value store for idempotent API
// calls: keys are the normalized query string, values are raw
// responses, no TTL required. *cache.Cache satisfies this.
type responseCache interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte)
}

// HTTPClient is the production Client backed by the MediaWiki HTTP API.
type HTTPClient struct {
	hostname   string
	httpClient *http.Client
	cache      responseCache
}

// NewHTTPClient returns a Client that talks to hostname (e.g.
// "en.wikipedia.org") over HTTPS via httpClient. A nil httpClient uses
// http.DefaultClient. respCache is optional (a nil value disables the
// read-through cache) and fronts callAPI, keyed on the normalized query
// string.
func NewHTTPClient(hostname string, httpClient *http.Client, respCache responseCache) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &HTTPClient{hostname: hostname, httpClient: httpClient, cache: respCache}
}

var _ Client = (*HTTPClient)(nil)

func (c *HTTPClient) callAPI(ctx context.Context, params url.Values) ([]byte, error) {
	params.Set("format", "json")

	key := params.Encode()

	if c.cache != nil {
		if body, ok := c.cache.Get(key); ok {
			return body, nil
		}
	}

	endpoint := fmt.Sprintf("https://%s/w/api.php", c.hostname)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(key))
	if err != nil {
		return nil, fmt.Errorf("wiki: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wiki: call mediawiki api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("wiki: read mediawiki api response: %w", err)
	}

	if c.cache != nil {
		c.cache.Put(key, body)
	}

	return body, nil
}

type revisionsEnvelope struct {
	Query struct {
		Pages map[string]struct {
			Revisions []struct {
				RevID    uint64 `json:"revid"`
				ParentID uint64 `json:"parentid"`
				Comment  string `json:"comment"`
				Star     string `json:"*"`
			} `json:"revisions"`
		} `json:"pages"`
	} `json:"query"`
}

func (c *HTTPClient) onlyPage(env revisionsEnvelope) (struct {
	Revisions []struct {
		RevID    uint64 `json:"revid"`
		ParentID uint64 `json:"parentid"`
		Comment  string `json:"comment"`
		Star     string `json:"*"`
	} `json:"revisions"`
}, bool,
) {
	for _, page := range env.Query.Pages {
		return page, true
	}

	return struct {
		Revisions []struct {
			RevID    uint64 `json:"revid"`
			ParentID uint64 `json:"parentid"`
			Comment  string `json:"comment"`
			Star     string `json:"*"`
		} `json:"revisions"`
	}{}, false
}

// RecentRevisions implements Client.
func (c *HTTPClient) RecentRevisions(ctx context.Context, title string, limit int) ([]Revision, error) {
	params := url.Values{
		"action":  {"query"},
		"prop":    {"revisions"},
		"titles":  {title},
		"rvprop":  {"comment|ids"},
		"rvlimit": {strconv.Itoa(limit)},
	}

	body, err := c.callAPI(ctx, params)
	if err != nil {
		return nil, err
	}

	var env revisionsEnvelope

	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("wiki: parse revisions response for %q: %w", title, err)
	}

	page, ok := c.onlyPage(env)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoRevisions, title)
	}

	revisions := make([]Revision, 0, len(page.Revisions))
	for _, r := range page.Revisions {
		revisions = append(revisions, Revision{RevisionID: r.RevID, ParentID: r.ParentID, Comment: r.Comment})
	}

	return revisions, nil
}

// LatestRevision implements Client.
func (c *HTTPClient) LatestRevision(ctx context.Context, title string) (Revision, error) {
	revisions, err := c.RecentRevisions(ctx, title, 1)
	if err != nil {
		return Revision{}, err
	}

	if len(revisions) == 0 {
		return Revision{}, fmt.Errorf("%w: %q", ErrNoRevisions, title)
	}

	return revisions[0], nil
}

// RevisionContent implements Client.
func (c *HTTPClient) RevisionContent(ctx context.Context, title string, id uint64) (string, error) {
	params := url.Values{
		"action":    {"query"},
		"prop":      {"revisions"},
		"titles":    {title},
		"rvprop":    {"content"},
		"rvlimit":   {"1"},
		"rvstartid": {strconv.FormatUint(id, 10)},
	}

	body, err := c.callAPI(ctx, params)
	if err != nil {
		return "", err
	}

	var env revisionsEnvelope

	if err := json.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("wiki: parse content response for %q rev %d: %w", title, id, err)
	}

	page, ok := c.onlyPage(env)
	if !ok || len(page.Revisions) == 0 {
		return "", fmt.Errorf("%w: %q rev %d", ErrNoRevisions, title, id)
	}

	return page.Revisions[0].Star, nil
}

// CanonicalTitle implements Client, following #REDIRECT wikitext up to
// maxRedirectDepth hops before giving up with ErrRedirectLoop.
func (c *HTTPClient) CanonicalTitle(ctx context.Context, title string) (string, error) {
	current := title

	for depth := 0; depth < maxRedirectDepth; depth++ {
		latest, err := c.LatestRevision(ctx, current)
		if err != nil {
			return "", err
		}

		content, err := c.RevisionContent(ctx, current, latest.RevisionID)
		if err != nil {
			return "", err
		}

		match := redirectPattern.FindStringSubmatch(content)
		if match == nil {
			return current, nil
		}

		current = match[1]
	}

	return "", fmt.Errorf("%w: starting from %q", ErrRedirectLoop, title)
}

type parseEnvelope struct {
	Parse struct {
		Text struct {
			Star string `json:"*"`
		} `json:"text"`
	} `json:"parse"`
}

// Render implements Client.
func (c *HTTPClient) Render(ctx context.Context, title, wikitext string) (string, error) {
	params := url.Values{
		"action":       {"parse"},
		"prop":         {"text"},
		"disablepp":    {""},
		"contentmodel": {"wikitext"},
		"title":        {title},
		"text":         {wikitext},
	}

	body, err := c.callAPI(ctx, params)
	if err != nil {
		return "", err
	}

	var env parseEnvelope

	if err := json.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("wiki: parse rendered response for %q: %w", title, err)
	}

	return env.Parse.Text.Star, nil
}

// CurrentPageHTML implements Client.
func (c *HTTPClient) CurrentPageHTML(ctx context.Context, title string) (string, error) {
	pageURL := fmt.Sprintf("https://%s/wiki/%s", c.hostname, url.PathEscape(title))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("wiki: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("wiki: fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("wiki: read %s: %w", pageURL, err)
	}

	return string(body), nil
}

// SplitSections implements Client: it splits wikitext on every line
// that starts and ends with "==", so "== Heading ==" and deeper headings
// such as "=== Sub ===" (titled "= Sub =") alike start a new section,
// treating any text before the first heading as
// an untitled lead section, then deduplicates titles per Dedupe.
func (c *HTTPClient) SplitSections(wikitext string) []Section {
	return SplitSections(wikitext)
}

// SplitSections is the standalone section splitter used by both
// HTTPClient and tests. Kept free of Client so it can be exercised
// without a network round trip.
func SplitSections(wikitext string) []Section {
	indices := headingPattern.FindAllStringSubmatchIndex(wikitext, -1)

	var raw []Section

	if len(indices) == 0 || indices[0][0] > 0 {
		leadEnd := len(wikitext)
		if len(indices) > 0 {
			leadEnd = indices[0][0]
		}

		raw = append(raw, Section{Title: "", Content: wikitext[:leadEnd]})
	}

	for i, idx := range indices {
		title := wikitext[idx[2]:idx[3]]
		contentStart := idx[1]

		contentEnd := len(wikitext)
		if i+1 < len(indices) {
			contentEnd = indices[i+1][0]
		}

		raw = append(raw, Section{Title: title, Content: wikitext[contentStart:contentEnd]})
	}

	return Dedupe(raw)
}

// Dedupe appends sentinel.SectionSeparator + 1-based occurrence count
// to every title in sections, repeated or not, so that per-section
// dispatch keys are unique even when the wiki's section parser yields
// duplicate headings.
func Dedupe(sections []Section) []Section {
	seen := make(map[string]int, len(sections))
	out := make([]Section, len(sections))

	for i, s := range sections {
		seen[s.Title]++

		out[i] = Section{
			Title:   s.Title + sentinel.SectionSeparator + strconv.Itoa(seen[s.Title]),
			Content: s.Content,
		}
	}

	return out
}
