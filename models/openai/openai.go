// Package openai adapts the normalized request contract onto the OpenAI
// Responses wire format, including server-side web_search and client-side
// function calling.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Desarso/appgen/helpers"
	"github.com/Desarso/appgen/models"
)

const defaultBaseURL = "https://api.openai.com/v1"

const contextInstruction = "The following JSON context is authoritative for this request. " +
	"Use only the sources it lists when citing or linking; do not invent URLs."

type OpenAI_Model struct {
	Model   string
	APIKey  string
	BaseURL string

	Retry helpers.RetryOptions
}

// New returns an OpenAI adapter for the given model. The key is injected at
// construction so a missing key surfaces as a typed error on first use.
func New(model, apiKey string) *OpenAI_Model {
	return &OpenAI_Model{Model: model, APIKey: apiKey}
}

// Model_Request translates the normalized request, invokes the API, and
// extracts text, tool calls, sources, and usage.
func (o *OpenAI_Model) Model_Request(request models.Model_Request, tools []models.FunctionDeclaration) (models.Model_Response, error) {
	if o.APIKey == "" {
		return models.Model_Response{}, &models.Config_Error{Variable: "OPENAI_API_KEY"}
	}

	body, err := o.buildBody(request, tools)
	if err != nil {
		return models.Model_Response{}, err
	}

	raw, err := o.invoke(body)
	if err != nil {
		return models.Model_Response{}, err
	}

	return extractResponse(raw), nil
}

func (o *OpenAI_Model) buildBody(request models.Model_Request, tools []models.FunctionDeclaration) ([]byte, error) {
	body := Responses_Request_Body{
		Model:        o.Model,
		Instructions: request.System_Prompt,
		Input:        buildInput(request),
	}

	if request.Enable_Search {
		body.Tools = append(body.Tools, OpenAI_Tool{Type: "web_search"})
	}
	if len(tools) > 0 {
		body.Tools = append(body.Tools, ConvertToOpenAITools(tools)...)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return payload, nil
}

// buildInput maps normalized messages onto input items. Assistant tool calls
// become function_call items, tool results become function_call_output
// items, and the context block rides as a final user message.
func buildInput(request models.Model_Request) []Input_Item {
	input := []Input_Item{}

	for _, msg := range request.Messages {
		role := msg.Role
		if role != "assistant" {
			role = "user"
		}
		partType := "input_text"
		if role == "assistant" {
			partType = "output_text"
		}

		parts := []Content_Part{}
		if msg.Content != "" {
			parts = append(parts, Content_Part{Type: partType, Text: msg.Content})
		}
		for _, att := range msg.Attachments {
			parts = append(parts, attachmentPart(att, partType))
		}
		if len(parts) > 0 {
			input = append(input, Input_Item{Type: "message", Role: role, Content: parts})
		}

		for _, call := range msg.Tool_Calls {
			arguments, err := json.Marshal(call.Args)
			if err != nil {
				arguments = []byte("{}")
			}
			input = append(input, Input_Item{
				Type:      "function_call",
				CallID:    call.ID,
				Name:      call.Name,
				Arguments: string(arguments),
			})
		}
		for _, result := range msg.Tool_Results {
			input = append(input, Input_Item{
				Type:   "function_call_output",
				CallID: result.Tool_ID,
				Output: result.Tool_Output,
			})
		}
	}

	if block := contextBlockItem(request.Context); block != nil {
		input = append(input, *block)
	}

	return input
}

// attachmentPart reuses a native file reference when the attachment was
// uploaded to this provider; anything else degrades to a readable note.
func attachmentPart(att models.Attachment, textType string) Content_Part {
	if att.Provider == "openai" && att.ProviderFileID != "" {
		return Content_Part{Type: "input_file", FileID: att.ProviderFileID}
	}

	note := fmt.Sprintf("[attachment %q (%s) is not available to this provider", att.Name, att.MimeType)
	if att.PublicURL != "" {
		note += "; public copy at " + att.PublicURL
	}
	note += "]"
	return Content_Part{Type: textType, Text: note}
}

func contextBlockItem(block *models.Context_Block) *Input_Item {
	if block == nil {
		return nil
	}
	payload, err := json.Marshal(block)
	if err != nil {
		return nil
	}
	text := contextInstruction + "\n```json\n" + string(payload) + "\n```"
	return &Input_Item{
		Type:    "message",
		Role:    "user",
		Content: []Content_Part{{Type: "input_text", Text: text}},
	}
}

func (o *OpenAI_Model) invoke(body []byte) (*Responses_Response, error) {
	baseURL := o.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	retry := o.Retry
	if retry.MaxRetries == 0 && retry.Timeout == 0 {
		retry = helpers.RetryOptions{MaxRetries: 2, Timeout: 90 * time.Second}
	}

	resp, err := helpers.Request(context.Background(), baseURL+"/responses", helpers.RequestOptions{
		Method: "POST",
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Bearer " + o.APIKey,
		},
		Body: body,
	}, retry)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &models.API_Error{Provider: "openai", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var parsed Responses_Response
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse openai response: %w", err)
	}
	if parsed.Error != nil {
		return nil, &models.API_Error{Provider: "openai", StatusCode: resp.StatusCode, Body: parsed.Error.Message}
	}
	return &parsed, nil
}

func extractResponse(raw *Responses_Response) models.Model_Response {
	response := models.Model_Response{
		Usage: models.Usage{
			Prompt_Tokens:     raw.Usage.InputTokens,
			Completion_Tokens: raw.Usage.OutputTokens,
			Total_Tokens:      raw.Usage.TotalTokens,
		},
	}

	var text string
	seen := map[string]bool{}
	for _, item := range raw.Output {
		switch item.Type {
		case "message":
			for _, part := range item.Content {
				if part.Type != "output_text" {
					continue
				}
				text += part.Text
				for _, ann := range part.Annotations {
					if ann.Type != "url_citation" || ann.URL == "" || seen[ann.URL] {
						continue
					}
					seen[ann.URL] = true
					response.Sources = append(response.Sources, models.Source{
						Title: ann.Title,
						URL:   ann.URL,
					})
				}
			}
		case "function_call":
			response.Tool_Calls = append(response.Tool_Calls, models.Tool_Call{
				ID:   item.CallID,
				Name: item.Name,
				Args: parseArguments(item.Arguments),
			})
		}
	}
	response.Text = text

	return response
}
