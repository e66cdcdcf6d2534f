// Package gemini adapts the normalized request contract onto the
// generativelanguage generateContent wire format, including google_search
// grounding and client-side function calling.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Desarso/appgen/helpers"
	"github.com/Desarso/appgen/models"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// contextInstruction precedes the serialized context block; the model must
// treat the block as the only source of citations.
const contextInstruction = "The following JSON context is authoritative for this request. " +
	"Use only the sources it lists when citing or linking; do not invent URLs."

type Gemini_Model struct {
	Model   string
	APIKey  string
	BaseURL string

	// Retry governs transport retries; zero value falls back to defaults.
	Retry helpers.RetryOptions
}

// New returns a Gemini adapter for the given model. The key is injected at
// construction so a missing key surfaces as a typed error on first use, not a
// silent empty header.
func New(model, apiKey string) *Gemini_Model {
	return &Gemini_Model{Model: model, APIKey: apiKey}
}

// Model_Request translates the normalized request, invokes the API, and
// extracts text, tool calls, sources, and usage.
func (g *Gemini_Model) Model_Request(request models.Model_Request, tools []models.FunctionDeclaration) (models.Model_Response, error) {
	if g.APIKey == "" {
		return models.Model_Response{}, &models.Config_Error{Variable: "GEMINI_API_KEY"}
	}

	body, err := g.buildBody(request, tools)
	if err != nil {
		return models.Model_Response{}, err
	}

	raw, err := g.invoke(body)
	if err != nil {
		return models.Model_Response{}, err
	}

	return extractResponse(raw)
}

func (g *Gemini_Model) buildBody(request models.Model_Request, tools []models.FunctionDeclaration) ([]byte, error) {
	body := Gemini_Request_Body{
		Contents: buildContents(request),
	}

	if request.System_Prompt != "" {
		body.SystemInstruction = &SystemInstruction{Parts: []SystemPart{{Text: request.System_Prompt}}}
	}

	if len(tools) > 0 {
		body.Tools = append(body.Tools, Gemini_Tool{
			FunctionDeclarations: ConvertToGeminiFunctionDeclarations(tools),
		})
	}
	if request.Enable_Search {
		body.Tools = append(body.Tools, Gemini_Tool{GoogleSearch: &GoogleSearch{}})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return payload, nil
}

// buildContents maps normalized messages onto contents. Assistant turns map
// to role "model"; tool results unroll into their own user turns with
// functionResponse parts; the context block rides as a final user turn.
func buildContents(request models.Model_Request) []Gemini_Content {
	contents := []Gemini_Content{}

	for _, msg := range request.Messages {
		role := "user"
		if msg.Role == "assistant" {
			role = "model"
		}

		parts := []Request_Part{}
		if msg.Content != "" {
			parts = append(parts, Request_Part{Text: msg.Content})
		}
		for _, att := range msg.Attachments {
			parts = append(parts, attachmentPart(att))
		}
		for _, call := range msg.Tool_Calls {
			parts = append(parts, Request_Part{FunctionCall: &FunctionCall{
				Name: call.Name,
				Args: call.Args,
			}})
		}
		if len(parts) > 0 {
			contents = append(contents, Gemini_Content{Role: role, Parts: parts})
		}

		for _, result := range msg.Tool_Results {
			contents = append(contents, Gemini_Content{
				Role: "user",
				Parts: []Request_Part{{FunctionResponse: &FunctionResponse{
					ID:       result.Tool_ID,
					Name:     result.Tool_Name,
					Response: map[string]interface{}{"output": result.Tool_Output},
				}}},
			})
		}
	}

	if block := contextBlockTurn(request.Context); block != nil {
		contents = append(contents, *block)
	}

	return contents
}

// attachmentPart reuses a native file reference when the attachment was
// uploaded to this provider; anything else degrades to a readable note so the
// model knows the file exists even though its bytes are not available here.
func attachmentPart(att models.Attachment) Request_Part {
	if att.Provider == "gemini" && att.ProviderFileURI != "" {
		return Request_Part{FileData: &FileData{
			MimeType: att.MimeType,
			URI:      att.ProviderFileURI,
		}}
	}

	note := fmt.Sprintf("[attachment %q (%s) is not available to this provider", att.Name, att.MimeType)
	if att.PublicURL != "" {
		note += "; public copy at " + att.PublicURL
	}
	note += "]"
	return Request_Part{Text: note}
}

func contextBlockTurn(block *models.Context_Block) *Gemini_Content {
	if block == nil {
		return nil
	}
	payload, err := json.Marshal(block)
	if err != nil {
		return nil
	}
	text := contextInstruction + "\n```json\n" + string(payload) + "\n```"
	return &Gemini_Content{Role: "user", Parts: []Request_Part{{Text: text}}}
}

func (g *Gemini_Model) invoke(body []byte) (*Gemini_Response, error) {
	baseURL := g.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	url := fmt.Sprintf("%s/models/%s:generateContent", baseURL, g.Model)

	retry := g.Retry
	if retry.MaxRetries == 0 && retry.Timeout == 0 {
		retry = helpers.RetryOptions{MaxRetries: 2, Timeout: 90 * time.Second}
	}

	resp, err := helpers.Request(context.Background(), url, helpers.RequestOptions{
		Method: "POST",
		Headers: map[string]string{
			"Content-Type":   "application/json",
			"x-goog-api-key": g.APIKey,
		},
		Body: body,
	}, retry)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &models.API_Error{Provider: "gemini", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var parsed Gemini_Response
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse gemini response: %w", err)
	}
	return &parsed, nil
}

func extractResponse(raw *Gemini_Response) (models.Model_Response, error) {
	response := models.Model_Response{
		Usage: models.Usage{
			Prompt_Tokens:     raw.UsageMetadata.PromptTokenCount,
			Completion_Tokens: raw.UsageMetadata.CandidatesTokenCount,
			Total_Tokens:      raw.UsageMetadata.TotalTokenCount,
		},
	}

	if len(raw.Candidates) == 0 {
		return response, fmt.Errorf("gemini response contained no candidates")
	}
	candidate := raw.Candidates[0]

	var texts []string
	for i, part := range candidate.Content.Parts {
		if part.Text != nil {
			texts = append(texts, *part.Text)
		}
		if part.FunctionCall != nil {
			args := part.FunctionCall.Args
			if args == nil {
				args = map[string]interface{}{}
			}
			response.Tool_Calls = append(response.Tool_Calls, models.Tool_Call{
				// The API does not return call IDs; synthesize stable ones for
				// the round-trip.
				ID:   fmt.Sprintf("call_%s_%d", part.FunctionCall.Name, i),
				Name: part.FunctionCall.Name,
				Args: args,
			})
		}
	}
	response.Text = strings.Join(texts, "")

	if candidate.GroundingMetadata != nil {
		for _, chunk := range candidate.GroundingMetadata.GroundingChunks {
			if chunk.Web == nil || chunk.Web.URI == "" {
				continue
			}
			response.Sources = append(response.Sources, models.Source{
				Title: chunk.Web.Title,
				URL:   chunk.Web.URI,
			})
		}
	}

	return response, nil
}
