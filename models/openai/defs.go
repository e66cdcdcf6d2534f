package openai

import (
	"encoding/json"

	"github.com/Desarso/appgen/models"
)

// Wire structs for the OpenAI Responses endpoint.

type Responses_Request_Body struct {
	Model        string        `json:"model"`
	Instructions string        `json:"instructions,omitempty"`
	Input        []Input_Item  `json:"input"`
	Tools        []OpenAI_Tool `json:"tools,omitempty"`
}

// Input_Item is the union of message, function_call, and
// function_call_output items; exactly one shape is populated per item.
type Input_Item struct {
	Type    string         `json:"type"`
	Role    string         `json:"role,omitempty"`
	Content []Content_Part `json:"content,omitempty"`

	// function_call fields
	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`

	// function_call_output field
	Output string `json:"output,omitempty"`
}

type Content_Part struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	FileID string `json:"file_id,omitempty"`
}

// OpenAI_Tool declares either the provider-side web_search capability or a
// client-side function.
type OpenAI_Tool struct {
	Type        string                 `json:"type"`
	Name        string                 `json:"name,omitempty"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// ConvertToOpenAITools converts standard FunctionDeclarations to the
// Responses tool format (flattened, properties never null).
func ConvertToOpenAITools(fds []models.FunctionDeclaration) []OpenAI_Tool {
	result := make([]OpenAI_Tool, len(fds))
	for i, fd := range fds {
		properties := fd.Parameters.Properties
		if properties == nil {
			properties = make(map[string]interface{})
		}
		typ := fd.Parameters.Type
		if typ == "" {
			typ = "object"
		}
		params := map[string]interface{}{
			"type":       typ,
			"properties": properties,
		}
		if len(fd.Parameters.Required) > 0 {
			params["required"] = fd.Parameters.Required
		}
		result[i] = OpenAI_Tool{
			Type:        "function",
			Name:        fd.Name,
			Description: fd.Description,
			Parameters:  params,
		}
	}
	return result
}

// Response side.

type Responses_Response struct {
	Output []Output_Item `json:"output"`
	Usage  OpenAI_Usage  `json:"usage"`
	Error  *OpenAI_Error `json:"error,omitempty"`
}

type Output_Item struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []Output_Part `json:"content,omitempty"`

	// function_call fields
	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

type Output_Part struct {
	Type        string       `json:"type"`
	Text        string       `json:"text,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// Annotation carries the url_citation entries the web_search tool attaches
// to grounded output text.
type Annotation struct {
	Type  string `json:"type"`
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
}

type OpenAI_Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

type OpenAI_Error struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// parseArguments decodes a function_call arguments string; malformed
// arguments degrade to an empty map rather than failing the whole response.
func parseArguments(arguments string) map[string]interface{} {
	args := map[string]interface{}{}
	if arguments == "" {
		return args
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return map[string]interface{}{}
	}
	return args
}
