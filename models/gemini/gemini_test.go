package gemini

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
	model := New("gemini-2.5-flash", "")
	_, err := model.Model_Request(models.Model_Request{}, nil)

	var cfgErr *models.Config_Error
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected Config_Error, got %v", err)
	}
	if cfgErr.Variable != "GEMINI_API_KEY" {
		t.Errorf("unexpected variable: %s", cfgErr.Variable)
	}
}

func TestBuildContentsRoleMapping(t *testing.T) {
	request := models.Model_Request{
		Messages: []models.Message{
			{Role: "user", Content: "hello"},
			{Role: "assistant", Content: "hi there"},
		},
	}

	contents := buildContents(request)
	if len(contents) != 2 {
		t.Fatalf("expected 2 contents, got %d", len(contents))
	}
	if contents[0].Role != "user" || contents[1].Role != "model" {
		t.Errorf("unexpected roles: %s, %s", contents[0].Role, contents[1].Role)
	}
}

func TestBuildContentsToolRoundTrip(t *testing.T) {
	request := models.Model_Request{
		Messages: []models.Message{
			{Role: "user", Content: "what is on example.com?"},
			{Role: "assistant", Tool_Calls: []models.Tool_Call{
				{ID: "call_url_metadata_0", Name: "url_metadata", Args: map[string]interface{}{"url": "https://example.com"}},
			}},
			{Role: "user", Tool_Results: []models.Tool_Result{
				{Tool_ID: "call_url_metadata_0", Tool_Name: "url_metadata", Tool_Output: `{"title":"Example"}`},
			}},
		},
	}

	contents := buildContents(request)
	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}
	if contents[1].Parts[0].FunctionCall == nil {
		t.Error("assistant tool call should become a functionCall part")
	}
	fr := contents[2].Parts[0].FunctionResponse
	if fr == nil || fr.Name != "url_metadata" {
		t.Fatalf("tool result should become a functionResponse part, got %+v", contents[2].Parts[0])
	}
	if fr.Response["output"] != `{"title":"Example"}` {
		t.Errorf("tool output not carried: %+v", fr.Response)
	}
}

func TestBuildContentsAttachments(t *testing.T) {
	request := models.Model_Request{
		Messages: []models.Message{{
			Role:    "user",
			Content: "summarize this",
			Attachments: []models.Attachment{
				{Name: "report.pdf", MimeType: "application/pdf", Provider: "gemini", ProviderFileURI: "files/abc123"},
				{Name: "notes.pdf", MimeType: "application/pdf", Provider: "openai", ProviderFileID: "file-xyz", PublicURL: "http://localhost:8080/media/notes.pdf"},
			},
		}},
	}

	contents := buildContents(request)
	parts := contents[0].Parts
	if len(parts) != 3 {
		t.Fatalf("expected text + 2 attachment parts, got %d", len(parts))
	}
	if parts[1].FileData == nil || parts[1].FileData.URI != "files/abc123" {
		t.Errorf("native attachment should keep its file reference: %+v", parts[1])
	}
	if parts[2].FileData != nil || parts[2].Text == "" {
		t.Errorf("foreign attachment should degrade to a note: %+v", parts[2])
	}
}

func TestBuildContentsContextBlockIsFinalTurn(t *testing.T) {
	request := models.Model_Request{
		Messages: []models.Message{{Role: "user", Content: "make an app"}},
		Context: &models.Context_Block{
			Sources: []models.Source{{Title: "Example", URL: "https://example.com"}},
		},
	}

	contents := buildContents(request)
	last := contents[len(contents)-1]
	if last.Role != "user" {
		t.Errorf("context block should be a user turn, got %s", last.Role)
	}
	text := last.Parts[0].Text
	if !strings.Contains(text, "https://example.com") {
		t.Errorf("context block missing source payload: %q", text)
	}
}

func TestBuildBodyToolsAndSearch(t *testing.T) {
	model := New("gemini-2.5-flash", "key")
	payload, err := model.buildBody(models.Model_Request{
		Messages:      []models.Message{{Role: "user", Content: "hi"}},
		Enable_Search: true,
	}, []models.FunctionDeclaration{{Name: "generate_image", Description: "d"}})
	if err != nil {
		t.Fatal(err)
	}

	var body Gemini_Request_Body
	if err := json.Unmarshal(payload, &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Tools) != 2 {
		t.Fatalf("expected function declarations and google_search as separate tool entries, got %d", len(body.Tools))
	}
	if body.Tools[0].FunctionDeclarations[0].Name != "generate_image" {
		t.Errorf("unexpected declaration: %+v", body.Tools[0])
	}
	if body.Tools[1].GoogleSearch == nil {
		t.Error("search entry missing")
	}
}

func TestModelRequestExtractsEverything(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "systemInstruction") {
			t.Errorf("system prompt not forwarded: %s", body)
		}
		w.Write([]byte(`{
			"candidates": [{
				"content": {"role": "model", "parts": [
					{"text": "part one "},
					{"functionCall": {"name": "url_metadata", "args": {"url": "https://example.com"}}},
					{"text": "part two"}
				]},
				"groundingMetadata": {"groundingChunks": [
					{"web": {"uri": "https://news.example.com/a", "title": "Story A"}},
					{"web": {"uri": "", "title": "dropped"}}
				]}
			}],
			"usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 5, "totalTokenCount": 15}
		}`))
	}))
	defer server.Close()

	model := New("gemini-2.5-flash", "test-key")
	model.BaseURL = server.URL

	response, err := model.Model_Request(models.Model_Request{
		System_Prompt: "You build apps.",
		Messages:      []models.Message{{Role: "user", Content: "hi"}},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if response.Text != "part one part two" {
		t.Errorf("text parts not concatenated: %q", response.Text)
	}
	if len(response.Tool_Calls) != 1 || response.Tool_Calls[0].Name != "url_metadata" {
		t.Errorf("tool call not extracted: %+v", response.Tool_Calls)
	}
	if response.Tool_Calls[0].ID == "" {
		t.Error("tool call should get a synthesized id")
	}
	if len(response.Sources) != 1 || response.Sources[0].URL != "https://news.example.com/a" {
		t.Errorf("grounding sources not extracted: %+v", response.Sources)
	}
	if response.Usage.Total_Tokens != 15 {
		t.Errorf("usage not extracted: %+v", response.Usage)
	}
}

func TestModelRequestNon2xxIsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "bad request"}}`))
	}))
	defer server.Close()

	model := New("gemini-2.5-flash", "test-key")
	model.BaseURL = server.URL

	_, err := model.Model_Request(models.Model_Request{
		Messages: []models.Message{{Role: "user", Content: "hi"}},
	}, nil)

	var apiErr *models.API_Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected API_Error, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Provider != "gemini" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}
