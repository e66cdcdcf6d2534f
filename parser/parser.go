// Package parser extracts structured results from raw model text. Strategies
// run in order — strict JSON after fence stripping, brace-scan JSON, field
// regex salvage, raw component detection — and the first success wins. The
// parser never panics and never returns an empty result set.
package parser

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/Desarso/appgen/models"
)

// FailureMessage is the generic variant returned when nothing could be
// extracted from a JSON-looking payload.
const FailureMessage = "The response could not be parsed into an application. Please try again."

// Parse_Response turns raw model output into one or more structured results.
func Parse_Response(text string) []models.Parsed_Result {
	cleaned := stripFence(strings.TrimSpace(text))

	if looksLikeJSON(cleaned) {
		if results, ok := parseJSON(cleaned); ok {
			return results
		}
		if result, ok := salvageCodeFields(cleaned); ok {
			return []models.Parsed_Result{result}
		}
		return []models.Parsed_Result{{Type: models.ResultTypeMessage, Content: FailureMessage}}
	}

	if looksLikeComponentCode(cleaned) {
		return []models.Parsed_Result{{
			Type: models.ResultTypeSandbox,
			Code: &models.Sandbox_Code{AppJS: cleaned},
		}}
	}

	return []models.Parsed_Result{{Type: models.ResultTypeMessage, Content: cleaned}}
}

// Has_Sandbox reports whether any result is the sandbox success contract.
func Has_Sandbox(results []models.Parsed_Result) bool {
	for _, r := range results {
		if r.Type == models.ResultTypeSandbox && r.Code != nil {
			return true
		}
	}
	return false
}

var reFence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\n(.*?)\n?```$")

// stripFence removes a single layer of markdown fencing, if present.
func stripFence(text string) string {
	if m := reFence.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

func looksLikeJSON(text string) bool {
	return strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[")
}

// parseJSON locates the outermost brace pair and tries a strict parse.
// Tolerates trailing truncation garbage after the final closing brace.
func parseJSON(text string) ([]models.Parsed_Result, bool) {
	open, close := "{", "}"
	if strings.HasPrefix(text, "[") {
		open, close = "[", "]"
	}
	start := strings.Index(text, open)
	end := strings.LastIndex(text, close)
	if start == -1 || end == -1 || end < start {
		return nil, false
	}
	payload := text[start : end+1]

	if open == "[" {
		var items []json.RawMessage
		if err := json.Unmarshal([]byte(payload), &items); err != nil {
			return nil, false
		}
		results := []models.Parsed_Result{}
		for _, item := range items {
			if result, ok := resultFromObject(item); ok {
				results = append(results, result)
			}
		}
		if len(results) == 0 {
			return nil, false
		}
		return results, true
	}

	result, ok := resultFromObject(json.RawMessage(payload))
	if !ok {
		return nil, false
	}
	return []models.Parsed_Result{result}, true
}

// resultFromObject accepts a sandbox object with a code field as-is, and any
// other object carrying a type as-is.
func resultFromObject(raw json.RawMessage) (models.Parsed_Result, bool) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return models.Parsed_Result{}, false
	}

	var typ string
	if rawType, ok := probe["type"]; ok {
		if err := json.Unmarshal(rawType, &typ); err != nil {
			return models.Parsed_Result{}, false
		}
	}
	if typ == "" {
		return models.Parsed_Result{}, false
	}

	var result models.Parsed_Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return models.Parsed_Result{}, false
	}
	if result.Type == models.ResultTypeSandbox && result.Code == nil {
		return models.Parsed_Result{}, false
	}
	return result, true
}

var (
	reAppJS     = regexp.MustCompile(`"App\.js"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	reStylesCSS = regexp.MustCompile(`"styles\.css"\s*:\s*"((?:[^"\\]|\\.)*)"`)
)

// salvageCodeFields handles the common failure of one malformed quote in an
// otherwise intact payload: pull the two expected code fields out by regex,
// unescape them, and return a synthetic sandbox result.
func salvageCodeFields(text string) (models.Parsed_Result, bool) {
	appMatch := reAppJS.FindStringSubmatch(text)
	if appMatch == nil {
		return models.Parsed_Result{}, false
	}

	appJS, ok := unescapeJSONString(appMatch[1])
	if !ok {
		return models.Parsed_Result{}, false
	}

	code := &models.Sandbox_Code{AppJS: appJS}
	if stylesMatch := reStylesCSS.FindStringSubmatch(text); stylesMatch != nil {
		if styles, ok := unescapeJSONString(stylesMatch[1]); ok {
			code.StylesCSS = styles
		}
	}

	return models.Parsed_Result{Type: models.ResultTypeSandbox, Code: code}, true
}

func unescapeJSONString(escaped string) (string, bool) {
	var out string
	if err := json.Unmarshal([]byte(`"`+escaped+`"`), &out); err != nil {
		return "", false
	}
	return out, true
}

var reComponentCode = regexp.MustCompile(`(?s)(function\s+App\s*\(|const\s+App\s*=|export\s+default\s)`)

// looksLikeComponentCode detects raw UI code the model emitted without any
// JSON wrapper.
func looksLikeComponentCode(text string) bool {
	return reComponentCode.MatchString(text)
}
