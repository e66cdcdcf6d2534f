package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/Desarso/appgen/helpers"
)

// Page_Metadata is what one metadata fetch yields for a source URL.
type Page_Metadata struct {
	Title       string
	Description string
	Image       string
}

// metadataFetchBudget bounds one page's metadata fetch.
const metadataFetchBudget = 8 * time.Second

// fetchMetadata is a package-level var so tests can mock it.
var fetchMetadata = defaultFetchMetadata

// SetMetadataFetcher overrides metadata fetching for tests in other
// packages; nil restores the default.
func SetMetadataFetcher(fn func(pageURL string) (Page_Metadata, error)) {
	if fn == nil {
		fetchMetadata = defaultFetchMetadata
		return
	}
	fetchMetadata = fn
}

// Fetch_Page_Metadata fetches title/description/og-image for a URL. Exposed
// for the url_metadata tool; enrichment uses the same path internally.
func Fetch_Page_Metadata(pageURL string) (Page_Metadata, error) {
	return fetchMetadata(pageURL)
}

func defaultFetchMetadata(pageURL string) (Page_Metadata, error) {
	if pageURL == "" {
		return Page_Metadata{}, fmt.Errorf("url is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), metadataFetchBudget)
	defer cancel()

	resp, err := helpers.Request(ctx, pageURL, helpers.RequestOptions{
		Headers: map[string]string{
			"User-Agent": "appgen/1.0 (Source Metadata)",
			"Accept":     "text/html,application/xhtml+xml",
		},
	}, helpers.RetryOptions{MaxRetries: 0, Timeout: metadataFetchBudget})
	if err != nil {
		return Page_Metadata{}, fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Page_Metadata{}, fmt.Errorf("HTTP %d fetching %s", resp.StatusCode, pageURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024)) // head metadata only
	if err != nil {
		return Page_Metadata{}, fmt.Errorf("reading response: %w", err)
	}

	return parseMetadata(string(body)), nil
}

var (
	reTitleTag = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	reMetaTag  = regexp.MustCompile(`(?is)<meta\s[^>]*>`)
	reAttr     = regexp.MustCompile(`(?is)(name|property|content)\s*=\s*"([^"]*)"`)
)

func parseMetadata(html string) Page_Metadata {
	meta := Page_Metadata{}

	og := map[string]string{}
	for _, tag := range reMetaTag.FindAllString(html, -1) {
		var key, content string
		for _, attr := range reAttr.FindAllStringSubmatch(tag, -1) {
			switch strings.ToLower(attr[1]) {
			case "name", "property":
				key = strings.ToLower(attr[2])
			case "content":
				content = attr[2]
			}
		}
		if key != "" && content != "" {
			if _, seen := og[key]; !seen {
				og[key] = content
			}
		}
	}

	meta.Title = og["og:title"]
	if meta.Title == "" {
		if m := reTitleTag.FindStringSubmatch(html); m != nil {
			meta.Title = strings.TrimSpace(decodeEntities(m[1]))
		}
	} else {
		meta.Title = decodeEntities(meta.Title)
	}

	meta.Description = og["og:description"]
	if meta.Description == "" {
		meta.Description = og["description"]
	}
	meta.Description = decodeEntities(meta.Description)

	meta.Image = og["og:image"]
	if meta.Image == "" {
		meta.Image = og["twitter:image"]
	}

	return meta
}

func decodeEntities(s string) string {
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", "\"")
	s = strings.ReplaceAll(s, "&#39;", "'")
	s = strings.ReplaceAll(s, "&apos;", "'")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	return s
}
