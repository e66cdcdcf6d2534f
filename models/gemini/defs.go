package gemini

import "github.com/Desarso/appgen/models"

// Wire structs for the generativelanguage v1beta generateContent endpoint.

type Gemini_Request_Body struct {
	Contents          []Gemini_Content   `json:"contents"`
	Tools             []Gemini_Tool      `json:"tools,omitempty"`
	SystemInstruction *SystemInstruction `json:"systemInstruction,omitempty"`
}

type Gemini_Content struct {
	Role  string         `json:"role"`
	Parts []Request_Part `json:"parts"`
}

type Request_Part struct {
	Text             string            `json:"text,omitempty"`
	FileData         *FileData         `json:"file_data,omitempty"`
	InlineData       *InlineData       `json:"inline_data,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

type FileData struct {
	MimeType string `json:"mime_type,omitempty"`
	URI      string `json:"file_uri,omitempty"`
}

type InlineData struct {
	MimeType string `json:"mime_type,omitempty"`
	Data     string `json:"data,omitempty"`
}

type FunctionCall struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

type FunctionResponse struct {
	ID       string                 `json:"id,omitempty"`
	Name     string                 `json:"name"`
	Response map[string]interface{} `json:"response"`
}

type SystemInstruction struct {
	Parts []SystemPart `json:"parts"`
}

type SystemPart struct {
	Text string `json:"text"`
}

// Gemini_Tool declares either client-side function declarations or the
// provider-side google_search grounding capability; the API rejects both in
// one entry, so they go in separate entries.
type Gemini_Tool struct {
	FunctionDeclarations []GeminiFunctionDeclaration `json:"functionDeclarations,omitempty"`
	GoogleSearch         *GoogleSearch               `json:"google_search,omitempty"`
}

type GoogleSearch struct{}

// GeminiFunctionDeclaration is a sanitized version of FunctionDeclaration for
// the Gemini API (no callable, properties never null).
type GeminiFunctionDeclaration struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Parameters  GeminiParameters `json:"parameters"`
}

type GeminiParameters struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
	Required   []string               `json:"required,omitempty"`
}

// ConvertToGeminiFunctionDeclarations converts standard FunctionDeclarations
// to the Gemini-safe format.
func ConvertToGeminiFunctionDeclarations(fds []models.FunctionDeclaration) []GeminiFunctionDeclaration {
	result := make([]GeminiFunctionDeclaration, len(fds))
	for i, fd := range fds {
		params := GeminiParameters{
			Type:       fd.Parameters.Type,
			Properties: fd.Parameters.Properties,
			Required:   fd.Parameters.Required,
		}
		if params.Properties == nil {
			params.Properties = make(map[string]interface{})
		}
		if params.Type == "" {
			params.Type = "object"
		}
		result[i] = GeminiFunctionDeclaration{
			Name:        fd.Name,
			Description: fd.Description,
			Parameters:  params,
		}
	}
	return result
}

// Response side.

type Gemini_Response struct {
	Candidates    []Candidate   `json:"candidates"`
	UsageMetadata UsageMetadata `json:"usageMetadata"`
	ModelVersion  string        `json:"modelVersion"`
}

type Candidate struct {
	Content           Content            `json:"content"`
	FinishReason      string             `json:"finishReason,omitempty"`
	GroundingMetadata *GroundingMetadata `json:"groundingMetadata,omitempty"`
}

type Content struct {
	Parts []Part `json:"parts"`
	Role  string `json:"role"`
}

type Part struct {
	Text         *string       `json:"text,omitempty"`
	FunctionCall *FunctionCall `json:"functionCall,omitempty"`
}

// GroundingMetadata carries the web citations the google_search tool
// resolved for a grounded response.
type GroundingMetadata struct {
	GroundingChunks []GroundingChunk `json:"groundingChunks,omitempty"`
}

type GroundingChunk struct {
	Web *GroundingWeb `json:"web,omitempty"`
}

type GroundingWeb struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}
