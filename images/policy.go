package images

import (
	"log"
	"regexp"
	"strings"

	"github.com/Desarso/appgen/models"
	"github.com/Desarso/appgen/sources"
)

// Image policy modes. Precedence is deliberate: news intent always wins
// (never fabricate imagery for breaking-news requests), explicit user intent
// beats heuristics, visualization language gets a smaller allowance.
const (
	ModeNone     = "none"
	ModeAssist   = "assist"
	ModeExplicit = "explicit"
)

const (
	explicitMax = 4
	assistMax   = 2
)

// Intent is the outcome of classifying the last user message.
type Intent struct {
	Mode string
	Max  int
}

var (
	reNewsIntent     = regexp.MustCompile(`(?i)\b(news|headlines?|breaking)\b|\blatest\b.*\b(on|about|in|from)\b`)
	reExplicitIntent = regexp.MustCompile(`(?i)\b(generate|create|draw|make|render)\b[^.!?]*\b(image|images|picture|pictures|photo|photos|illustration|artwork|art)\b|\ban?\s+image\s+of\b`)
	reAssistIntent   = regexp.MustCompile(`(?i)\b(visuali[sz]e|visuali[sz]ation|diagram|chart|infographic|illustrate|mockup|mock-up)\b`)
)

// Classify_Intent decides whether and how many images to synthesize for a
// turn, from the last user message alone.
func Classify_Intent(lastUserText string) Intent {
	text := strings.TrimSpace(lastUserText)
	if text == "" {
		return Intent{Mode: ModeNone}
	}

	if reNewsIntent.MatchString(text) {
		return Intent{Mode: ModeNone}
	}
	if reExplicitIntent.MatchString(text) {
		return Intent{Mode: ModeExplicit, Max: explicitMax}
	}
	if reAssistIntent.MatchString(text) {
		return Intent{Mode: ModeAssist, Max: assistMax}
	}
	return Intent{Mode: ModeNone}
}

// lowValueFragments marks image URLs not worth keeping: site chrome,
// trackers, and our own placeholder domain.
var lowValueFragments = []string{
	"logo",
	"icon",
	"favicon",
	"sprite",
	"placeholder",
	"spacer",
	"default",
	sources.PlaceholderHost,
}

// Is_Likely_Low_Value_Image_URL reports whether an existing image URL looks
// like a logo/icon/placeholder rather than real content.
func Is_Likely_Low_Value_Image_URL(url string) bool {
	if url == "" {
		return true
	}
	lower := strings.ToLower(url)
	for _, fragment := range lowValueFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

// Ensure_Plan_Images walks plan items in order and generates at most max
// images. Items whose existing image already looks high-value are skipped
// unless force is set. A generation failure for one item is logged and
// swallowed; partial success is acceptable. Returns how many images were
// generated.
func Ensure_Plan_Images(plan *models.Grounded_Plan, provider string, max int, force bool) int {
	if plan == nil || max <= 0 {
		return 0
	}

	prompts := map[string]string{}
	for _, req := range plan.Image_Requests {
		if req.For_Title != "" {
			prompts[strings.ToLower(req.For_Title)] = req.Prompt
		}
	}

	generated := 0
	for i := range plan.Items {
		if generated >= max {
			break
		}
		item := &plan.Items[i]
		if item.Generated_Image != "" {
			continue
		}
		if !force && item.Image != "" && !Is_Likely_Low_Value_Image_URL(item.Image) {
			continue
		}

		prompt := prompts[strings.ToLower(item.Title)]
		if prompt == "" {
			prompt = promptForItem(*item)
		}

		img, err := generateImageFunc(prompt, provider)
		if err != nil {
			log.Printf("Warning: image generation failed for item %q: %v", item.Title, err)
			continue
		}
		item.Generated_Image = img.URL
		generated++
	}
	return generated
}

func promptForItem(item models.Plan_Item) string {
	prompt := item.Title
	if item.Summary != "" {
		prompt += ". " + item.Summary
	}
	return "Editorial illustration, no text overlay: " + prompt
}
