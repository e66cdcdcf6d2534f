package openai

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Desarso/appgen/models"
)

func TestMissingKeyIsConfigError(t *testing.T) {
	model := New("gpt-4.1", "")
	_, err := model.Model_Request(models.Model_Request{}, nil)

	var cfgErr *models.Config_Error
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected Config_Error, got %v", err)
	}
	if cfgErr.Variable != "OPENAI_API_KEY" {
		t.Errorf("unexpected variable: %s", cfgErr.Variable)
	}
}

func TestBuildInputToolRoundTrip(t *testing.T) {
	request := models.Model_Request{
		Messages: []models.Message{
			{Role: "user", Content: "what is on example.com?"},
			{Role: "assistant", Tool_Calls: []models.Tool_Call{
				{ID: "call_1", Name: "url_metadata", Args: map[string]interface{}{"url": "https://example.com"}},
			}},
			{Role: "user", Tool_Results: []models.Tool_Result{
				{Tool_ID: "call_1", Tool_Name: "url_metadata", Tool_Output: `{"title":"Example"}`},
			}},
		},
	}

	input := buildInput(request)
	if len(input) != 3 {
		t.Fatalf("expected 3 items, got %d", len(input))
	}
	if input[1].Type != "function_call" || input[1].CallID != "call_1" {
		t.Errorf("unexpected function_call item: %+v", input[1])
	}
	if !strings.Contains(input[1].Arguments, "example.com") {
		t.Errorf("arguments not serialized: %q", input[1].Arguments)
	}
	if input[2].Type != "function_call_output" || input[2].Output != `{"title":"Example"}` {
		t.Errorf("unexpected function_call_output item: %+v", input[2])
	}
}

func TestBuildInputAttachments(t *testing.T) {
	request := models.Model_Request{
		Messages: []models.Message{{
			Role:    "user",
			Content: "summarize this",
			Attachments: []models.Attachment{
				{Name: "report.pdf", MimeType: "application/pdf", Provider: "openai", ProviderFileID: "file-abc"},
				{Name: "notes.pdf", MimeType: "application/pdf", Provider: "gemini", ProviderFileURI: "files/xyz"},
			},
		}},
	}

	input := buildInput(request)
	parts := input[0].Content
	if len(parts) != 3 {
		t.Fatalf("expected text + 2 attachment parts, got %d", len(parts))
	}
	if parts[1].Type != "input_file" || parts[1].FileID != "file-abc" {
		t.Errorf("native attachment should keep its file reference: %+v", parts[1])
	}
	if parts[2].Type != "input_text" || !strings.Contains(parts[2].Text, "notes.pdf") {
		t.Errorf("foreign attachment should degrade to a note: %+v", parts[2])
	}
}

func TestBuildInputContextBlockIsFinalItem(t *testing.T) {
	request := models.Model_Request{
		Messages: []models.Message{{Role: "user", Content: "make an app"}},
		Context: &models.Context_Block{
			Sources: []models.Source{{Title: "Example", URL: "https://example.com"}},
		},
	}

	input := buildInput(request)
	last := input[len(input)-1]
	if last.Role != "user" || !strings.Contains(last.Content[0].Text, "https://example.com") {
		t.Errorf("context block missing: %+v", last)
	}
	if !strings.Contains(last.Content[0].Text, "do not invent URLs") {
		t.Error("context block should carry the no-invented-URLs instruction")
	}
}

func TestBuildBodySearchAndFunctions(t *testing.T) {
	model := New("gpt-4.1", "key")
	payload, err := model.buildBody(models.Model_Request{
		Messages:      []models.Message{{Role: "user", Content: "hi"}},
		Enable_Search: true,
	}, []models.FunctionDeclaration{{Name: "generate_image", Description: "d"}})
	if err != nil {
		t.Fatal(err)
	}

	var body Responses_Request_Body
	if err := json.Unmarshal(payload, &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Tools) != 2 {
		t.Fatalf("expected web_search plus one function, got %d tools", len(body.Tools))
	}
	if body.Tools[0].Type != "web_search" {
		t.Errorf("unexpected first tool: %+v", body.Tools[0])
	}
	if body.Tools[1].Type != "function" || body.Tools[1].Name != "generate_image" {
		t.Errorf("unexpected second tool: %+v", body.Tools[1])
	}
}

func TestModelRequestExtractsEverything(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer token")
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"instructions"`) {
			t.Errorf("system prompt not forwarded: %s", body)
		}
		w.Write([]byte(`{
			"output": [
				{"type": "web_search_call", "status": "completed"},
				{"type": "message", "role": "assistant", "content": [
					{"type": "output_text", "text": "grounded answer", "annotations": [
						{"type": "url_citation", "url": "https://news.example.com/a", "title": "Story A"},
						{"type": "url_citation", "url": "https://news.example.com/a", "title": "duplicate"}
					]}
				]},
				{"type": "function_call", "call_id": "call_9", "name": "url_metadata", "arguments": "{\"url\":\"https://example.com\"}"}
			],
			"usage": {"input_tokens": 20, "output_tokens": 7, "total_tokens": 27}
		}`))
	}))
	defer server.Close()

	model := New("gpt-4.1", "test-key")
	model.BaseURL = server.URL

	response, err := model.Model_Request(models.Model_Request{
		System_Prompt: "You build apps.",
		Messages:      []models.Message{{Role: "user", Content: "hi"}},
		Enable_Search: true,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if response.Text != "grounded answer" {
		t.Errorf("unexpected text: %q", response.Text)
	}
	if len(response.Sources) != 1 || response.Sources[0].URL != "https://news.example.com/a" {
		t.Errorf("citations should dedupe into one source: %+v", response.Sources)
	}
	if len(response.Tool_Calls) != 1 {
		t.Fatalf("expected one tool call, got %+v", response.Tool_Calls)
	}
	call := response.Tool_Calls[0]
	if call.ID != "call_9" || call.Name != "url_metadata" || call.Args["url"] != "https://example.com" {
		t.Errorf("unexpected tool call: %+v", call)
	}
	if response.Usage.Total_Tokens != 27 {
		t.Errorf("usage not extracted: %+v", response.Usage)
	}
}

func TestModelRequestNon2xxIsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "rate limited"}}`))
	}))
	defer server.Close()

	model := New("gpt-4.1", "test-key")
	model.BaseURL = server.URL

	_, err := model.Model_Request(models.Model_Request{
		Messages: []models.Message{{Role: "user", Content: "hi"}},
	}, nil)

	var apiErr *models.API_Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected API_Error, got %v", err)
	}
	if apiErr.Provider != "openai" || apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestParseArgumentsMalformed(t *testing.T) {
	if args := parseArguments("not json"); len(args) != 0 {
		t.Errorf("malformed arguments should degrade to empty map, got %+v", args)
	}
	if args := parseArguments(""); len(args) != 0 {
		t.Errorf("empty arguments should be empty map, got %+v", args)
	}
}
