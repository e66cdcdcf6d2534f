package sources

import (
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/Desarso/appgen/media"
	"github.com/Desarso/appgen/models"
)

const (
	// DefaultMaxSources bounds how many sources get enriched per turn.
	DefaultMaxSources = 6
	// maxCachedImageBytes is the ceiling for locally cached source images.
	maxCachedImageBytes = 2 * 1024 * 1024
	// PlaceholderHost serves the deterministic seeded fallback images.
	PlaceholderHost = "picsum.photos"
)

// ImageCacher is the slice of the media collaborator the pipeline needs.
type ImageCacher interface {
	SaveRemoteImage(url string, maxBytes int64) *media.Saved
}

// Enrich_Options configures Enrich_Sources.
type Enrich_Options struct {
	Max    int
	Cacher ImageCacher
}

// Dedupe_Sources removes duplicate sources keyed by URL. Later entries
// shallow-merge over earlier ones (last-write wins for overlapping fields)
// while first-seen ordering is preserved.
func Dedupe_Sources(sources []models.Source) []models.Source {
	order := []string{}
	byURL := map[string]models.Source{}

	for _, src := range sources {
		if src.URL == "" {
			continue
		}
		existing, seen := byURL[src.URL]
		if !seen {
			order = append(order, src.URL)
			byURL[src.URL] = src
			continue
		}
		byURL[src.URL] = mergeSource(existing, src)
	}

	result := make([]models.Source, 0, len(order))
	for _, u := range order {
		result = append(result, byURL[u])
	}
	return result
}

func mergeSource(base, over models.Source) models.Source {
	if over.Title != "" {
		base.Title = over.Title
	}
	if over.Description != "" {
		base.Description = over.Description
	}
	if over.Image != "" {
		base.Image = over.Image
	}
	if over.Image_Cached != "" {
		base.Image_Cached = over.Image_Cached
	}
	if over.Image_Fallback != "" {
		base.Image_Fallback = over.Image_Fallback
	}
	return base
}

// Enrich_Sources truncates to opts.Max, fetches page metadata for every
// source concurrently, merges metadata into fields the source lacks, caches
// any resolved remote image, and guarantees a non-empty Image_Fallback for
// every source. Output preserves input ordering; per-source failures only
// affect that source.
func Enrich_Sources(sources []models.Source, opts Enrich_Options) []models.Source {
	max := opts.Max
	if max <= 0 {
		max = DefaultMaxSources
	}
	if len(sources) > max {
		sources = sources[:max]
	}

	enriched := make([]models.Source, len(sources))
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src models.Source) {
			defer wg.Done()
			enriched[i] = enrichOne(src, opts.Cacher)
		}(i, src)
	}
	wg.Wait()

	return enriched
}

func enrichOne(src models.Source, cacher ImageCacher) models.Source {
	meta, err := fetchMetadata(src.URL)
	if err != nil {
		log.Printf("Warning: metadata fetch failed for %s: %v", src.URL, err)
	} else {
		// Metadata only fills gaps; model-provided fields win.
		if src.Title == "" {
			src.Title = meta.Title
		}
		if src.Description == "" {
			src.Description = meta.Description
		}
		if src.Image == "" {
			src.Image = meta.Image
		}
	}

	if src.Image != "" && cacher != nil {
		if saved := cacher.SaveRemoteImage(src.Image, maxCachedImageBytes); saved != nil {
			src.Image_Cached = saved.URL
		}
	}

	switch {
	case src.Image_Cached != "":
		src.Image_Fallback = src.Image_Cached
	case src.Image != "":
		src.Image_Fallback = src.Image
	default:
		src.Image_Fallback = Placeholder_Image_URL(src.Title, src.URL)
	}

	return src
}

// Placeholder_Image_URL builds a deterministic seeded placeholder keyed by
// the source's title, or its URL when the title is empty.
func Placeholder_Image_URL(title, sourceURL string) string {
	seed := seedFrom(title)
	if seed == "" {
		seed = seedFrom(sourceURL)
	}
	if seed == "" {
		seed = "source"
	}
	return fmt.Sprintf("https://%s/seed/%s/800/600", PlaceholderHost, url.PathEscape(seed))
}

var nonSeedChars = regexp.MustCompile(`[^a-z0-9]+`)

func seedFrom(s string) string {
	seed := nonSeedChars.ReplaceAllString(strings.ToLower(s), "-")
	seed = strings.Trim(seed, "-")
	if len(seed) > 48 {
		seed = seed[:48]
	}
	return seed
}

// Pick_Best_Source matches a plan item to its best source. An exact URL match
// wins outright; otherwise sources are scored by normalized title-token
// overlap (exact match = 3, containment = 2, Jaccard-like overlap below
// that), skipping URLs already claimed by another item. Falls back to the
// first unused source, then the first source overall. Ties resolve to the
// earliest source, so assignment is stable and order-dependent.
func Pick_Best_Source(item models.Plan_Item, srcs []models.Source, usedURLs map[string]bool) *models.Source {
	if len(srcs) == 0 {
		return nil
	}

	if item.Source_URL != "" {
		for i := range srcs {
			if srcs[i].URL == item.Source_URL && !usedURLs[srcs[i].URL] {
				return &srcs[i]
			}
		}
	}

	wantTitle := item.Source_Title
	if wantTitle == "" {
		wantTitle = item.Title
	}
	itemTokens := titleTokens(wantTitle)

	var best *models.Source
	bestScore := 0.0
	for i := range srcs {
		if usedURLs[srcs[i].URL] {
			continue
		}
		score := titleScore(itemTokens, titleTokens(srcs[i].Title))
		if score > bestScore {
			bestScore = score
			best = &srcs[i]
		}
	}
	if best != nil {
		return best
	}

	// No scored match: first unused, then first overall.
	for i := range srcs {
		if !usedURLs[srcs[i].URL] {
			return &srcs[i]
		}
	}
	return &srcs[0]
}

var nonTokenChars = regexp.MustCompile(`[^\p{L}\p{N}]+`)

func titleTokens(title string) []string {
	normalized := nonTokenChars.ReplaceAllString(strings.ToLower(title), " ")
	fields := strings.Fields(normalized)
	return fields
}

func titleScore(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	joinedA := strings.Join(a, " ")
	joinedB := strings.Join(b, " ")
	if joinedA == joinedB {
		return 3
	}
	if strings.Contains(joinedA, joinedB) || strings.Contains(joinedB, joinedA) {
		return 2
	}

	setA := map[string]bool{}
	for _, tok := range a {
		setA[tok] = true
	}
	intersection := 0
	setB := map[string]bool{}
	for _, tok := range b {
		if setB[tok] {
			continue
		}
		setB[tok] = true
		if setA[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
