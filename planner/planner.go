// Package planner produces a grounded plan — summary, items, image requests —
// from a search-augmented model call, before any UI code is generated.
package planner

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/Desarso/appgen/models"
	"github.com/Desarso/appgen/sources"
)

var logger = log.New(os.Stdout, "[planner] ", log.LstdFlags)

// planSystemPrompt instructs the model to research first and answer with a
// plan object only; code generation happens in a later call.
const planSystemPrompt = `You are a research planner for a UI generation pipeline.
Search the web for current, factual information relevant to the user's request, then respond with a single JSON object and nothing else:
{"summary": "one-paragraph overview", "items": [{"title": "...", "summary": "...", "source_title": "...", "source_url": "..."}], "image_requests": [{"prompt": "...", "for_title": "..."}]}
Every item must cite a real source URL you found. Do not invent URLs. Do not produce code.`

// maxSynthesizedItems caps plan items synthesized directly from sources when
// the model returns none.
const maxSynthesizedItems = 6

// Plan_Result is the planner's output: the plan plus the deduplicated
// sources discovered while grounding, and the tokens spent.
type Plan_Result struct {
	Plan    *models.Grounded_Plan
	Sources []models.Source
	Usage   models.Usage
}

// Build_Grounded_Plan asks the model for a plan with web search enabled.
// Failures degrade in a fixed order — full toolset with search, search only,
// then no tools at all — and only the final rung's error propagates.
func Build_Grounded_Plan(model models.Model, messages []models.Message, tools []models.FunctionDeclaration) (*Plan_Result, error) {
	attempts := []struct {
		label  string
		search bool
		tools  []models.FunctionDeclaration
	}{
		{"search with tools", true, tools},
		{"search only", true, nil},
		{"no tools", false, nil},
	}

	var response models.Model_Response
	var err error
	for i, attempt := range attempts {
		request := models.Model_Request{
			System_Prompt: planSystemPrompt,
			Messages:      messages,
			Enable_Search: attempt.search,
		}
		response, err = model.Model_Request(request, attempt.tools)
		if err == nil {
			break
		}
		if i < len(attempts)-1 {
			logger.Printf("plan attempt %q failed, downgrading to %q: %v", attempt.label, attempts[i+1].label, err)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("planning failed after downgrades: %w", err)
	}

	deduped := sources.Dedupe_Sources(response.Sources)

	plan := parsePlanText(response.Text)
	if plan == nil || len(plan.Items) == 0 {
		if len(deduped) == 0 {
			if plan == nil {
				return nil, fmt.Errorf("model returned no plan and no sources")
			}
		} else {
			logger.Printf("plan carried no items; synthesizing %d from sources", min(len(deduped), maxSynthesizedItems))
			synthesized := Synthesize_Items(deduped, maxSynthesizedItems)
			if plan == nil {
				plan = &models.Grounded_Plan{}
			}
			plan.Items = synthesized
		}
	}

	return &Plan_Result{Plan: plan, Sources: deduped, Usage: response.Usage}, nil
}

// parsePlanText tolerates prose around the JSON object and fenced output;
// returns nil when no plan can be decoded.
func parsePlanText(text string) *models.Grounded_Plan {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil
	}

	var plan models.Grounded_Plan
	if err := json.Unmarshal([]byte(text[start:end+1]), &plan); err != nil {
		return nil
	}
	if plan.Summary == "" && len(plan.Items) == 0 && len(plan.Image_Requests) == 0 {
		return nil
	}
	return &plan
}

// Synthesize_Items builds plan items directly from sources, capped at max.
func Synthesize_Items(srcs []models.Source, max int) []models.Plan_Item {
	if max <= 0 || len(srcs) == 0 {
		return nil
	}
	if len(srcs) > max {
		srcs = srcs[:max]
	}

	items := make([]models.Plan_Item, 0, len(srcs))
	for _, src := range srcs {
		title := src.Title
		if title == "" {
			title = hostOf(src.URL)
		}
		items = append(items, models.Plan_Item{
			Title:        title,
			Summary:      src.Description,
			Source_Title: src.Title,
			Source_URL:   src.URL,
			Image:        src.Image,
		})
	}
	return items
}

// Attach_Sources binds each plan item to its best-matching enriched source,
// filling citation and image fields the planner left empty. Each source URL
// is claimed at most once.
func Attach_Sources(plan *models.Grounded_Plan, srcs []models.Source) {
	if plan == nil || len(srcs) == 0 {
		return
	}

	used := map[string]bool{}
	for i := range plan.Items {
		item := &plan.Items[i]
		src := sources.Pick_Best_Source(*item, srcs, used)
		if src == nil {
			continue
		}
		used[src.URL] = true

		if item.Source_URL == "" {
			item.Source_URL = src.URL
		}
		if item.Source_Title == "" {
			item.Source_Title = src.Title
		}
		if item.Image == "" {
			if src.Image_Cached != "" {
				item.Image = src.Image_Cached
			} else {
				item.Image = src.Image
			}
		}
		if item.Image_Fallback == "" {
			item.Image_Fallback = src.Image_Fallback
		}
		if item.Image_Fallback == "" {
			item.Image_Fallback = sources.Placeholder_Image_URL(item.Title, item.Source_URL)
		}
	}
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return rawURL
	}
	return parsed.Host
}
