// Package tools builds the function declarations exposed to the model during
// the tool-call loop.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/Desarso/appgen/images"
	"github.com/Desarso/appgen/models"
	"github.com/Desarso/appgen/sources"
)

// toolError wraps a failure as a structured payload the model can read,
// keeping the loop alive instead of aborting the request.
func toolError(message string) string {
	payload, _ := json.Marshal(map[string]string{"error": message})
	return string(payload)
}

// GenerateImageTool declares image generation, gated by the classified image
// intent: when the intent forbids generation the callable refuses with a
// structured error instead of silently producing images.
func GenerateImageTool(intent images.Intent, provider string) models.FunctionDeclaration {
	return models.FunctionDeclaration{
		Name:        "generate_image",
		Description: "Generate an illustrative image from a text prompt and return its hosted URL.",
		Parameters: models.Parameters{
			Type: "object",
			Properties: map[string]interface{}{
				"prompt": map[string]interface{}{
					"type":        "string",
					"description": "A detailed description of the image to generate",
				},
			},
			Required: []string{"prompt"},
		},
		Callable: func(args map[string]interface{}) (string, error) {
			if intent.Mode == images.ModeNone {
				return toolError("image generation is disabled for this request; use real article imagery from the provided sources instead"), nil
			}

			prompt, _ := args["prompt"].(string)
			if prompt == "" {
				return toolError("prompt is required"), nil
			}

			generated, err := images.Generate_Image(prompt, provider)
			if err != nil {
				return toolError(fmt.Sprintf("image generation failed: %v", err)), nil
			}

			payload, err := json.Marshal(generated)
			if err != nil {
				return toolError(fmt.Sprintf("failed to encode result: %v", err)), nil
			}
			return string(payload), nil
		},
	}
}

// URLMetadataTool declares page metadata lookup for a single URL.
func URLMetadataTool() models.FunctionDeclaration {
	return models.FunctionDeclaration{
		Name:        "url_metadata",
		Description: "Fetch the title, description, and preview image of a web page by URL.",
		Parameters: models.Parameters{
			Type: "object",
			Properties: map[string]interface{}{
				"url": map[string]interface{}{
					"type":        "string",
					"description": "The absolute URL of the page to inspect",
				},
			},
			Required: []string{"url"},
		},
		Callable: func(args map[string]interface{}) (string, error) {
			url, _ := args["url"].(string)
			if url == "" {
				return toolError("url is required"), nil
			}

			meta, err := sources.Fetch_Page_Metadata(url)
			if err != nil {
				return toolError(fmt.Sprintf("metadata fetch failed: %v", err)), nil
			}

			payload, err := json.Marshal(meta)
			if err != nil {
				return toolError(fmt.Sprintf("failed to encode result: %v", err)), nil
			}
			return string(payload), nil
		},
	}
}

// Default_Tools assembles the toolset for a generation request.
func Default_Tools(intent images.Intent, provider string) []models.FunctionDeclaration {
	return []models.FunctionDeclaration{
		GenerateImageTool(intent, provider),
		URLMetadataTool(),
	}
}
