package tools

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/Desarso/appgen/images"
	"github.com/Desarso/appgen/models"
)

func decodeError(t *testing.T, output string) string {
	t.Helper()
	var payload map[string]string
	if err := json.Unmarshal([]byte(output), &payload); err != nil {
		t.Fatalf("tool output is not JSON: %q", output)
	}
	return payload["error"]
}

func TestGenerateImageToolRefusesWhenIntentIsNone(t *testing.T) {
	tool := GenerateImageTool(images.Intent{Mode: images.ModeNone}, "gemini")

	output, err := tool.Callable(map[string]interface{}{"prompt": "a red panda"})
	if err != nil {
		t.Fatalf("refusal must not be a hard error: %v", err)
	}
	if msg := decodeError(t, output); msg == "" {
		t.Errorf("expected structured refusal, got %q", output)
	}
}

func TestGenerateImageToolRequiresPrompt(t *testing.T) {
	tool := GenerateImageTool(images.Intent{Mode: images.ModeExplicit, Max: 4}, "gemini")

	output, err := tool.Callable(map[string]interface{}{})
	if err != nil {
		t.Fatal(err)
	}
	if decodeError(t, output) != "prompt is required" {
		t.Errorf("unexpected output: %q", output)
	}
}

func TestGenerateImageToolSuccess(t *testing.T) {
	images.SetGenerateImageFunc(func(prompt, provider string) (*models.Generated_Image, error) {
		if prompt != "a red panda" || provider != "gemini" {
			t.Errorf("unexpected call: %q %q", prompt, provider)
		}
		return &models.Generated_Image{URL: "http://localhost:8080/media/gemini_1.png", Filename: "gemini_1.png"}, nil
	})
	defer images.SetGenerateImageFunc(nil)

	tool := GenerateImageTool(images.Intent{Mode: images.ModeExplicit, Max: 4}, "gemini")
	output, err := tool.Callable(map[string]interface{}{"prompt": "a red panda"})
	if err != nil {
		t.Fatal(err)
	}

	var generated models.Generated_Image
	if err := json.Unmarshal([]byte(output), &generated); err != nil {
		t.Fatalf("output not decodable: %q", output)
	}
	if generated.Filename != "gemini_1.png" {
		t.Errorf("unexpected result: %+v", generated)
	}
}

func TestGenerateImageToolWrapsFailure(t *testing.T) {
	images.SetGenerateImageFunc(func(prompt, provider string) (*models.Generated_Image, error) {
		return nil, fmt.Errorf("provider down")
	})
	defer images.SetGenerateImageFunc(nil)

	tool := GenerateImageTool(images.Intent{Mode: images.ModeAssist, Max: 2}, "gemini")
	output, err := tool.Callable(map[string]interface{}{"prompt": "x"})
	if err != nil {
		t.Fatalf("tool failures must be returned as structured output, got %v", err)
	}
	if msg := decodeError(t, output); msg == "" {
		t.Errorf("expected structured error, got %q", output)
	}
}

func TestURLMetadataToolRequiresURL(t *testing.T) {
	tool := URLMetadataTool()
	output, err := tool.Callable(map[string]interface{}{})
	if err != nil {
		t.Fatal(err)
	}
	if decodeError(t, output) != "url is required" {
		t.Errorf("unexpected output: %q", output)
	}
}

func TestDefaultToolsComposition(t *testing.T) {
	toolset := Default_Tools(images.Intent{Mode: images.ModeNone}, "gemini")
	if len(toolset) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(toolset))
	}
	names := map[string]bool{}
	for _, tool := range toolset {
		names[tool.Name] = true
		if tool.Callable == nil {
			t.Errorf("%s has no callable", tool.Name)
		}
		if len(tool.Parameters.Required) == 0 {
			t.Errorf("%s should declare required parameters", tool.Name)
		}
	}
	if !names["generate_image"] || !names["url_metadata"] {
		t.Errorf("unexpected tool names: %v", names)
	}
}
