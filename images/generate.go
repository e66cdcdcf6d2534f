package images

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/Desarso/appgen/media"
	"github.com/Desarso/appgen/models"
	"google.golang.org/genai"
)

// GenerateConfig wires the media collaborator into image generation at
// process start.
type GenerateConfig struct {
	Media *media.Store
}

var generateConfig *GenerateConfig

// SetGenerateConfig must be called before any image can be generated.
func SetGenerateConfig(cfg *GenerateConfig) {
	generateConfig = cfg
}

// generateImageFunc is the pluggable generation function (mockable for tests).
var generateImageFunc = defaultGenerateImage

// SetGenerateImageFunc overrides the generation function for testing; nil
// restores the default.
func SetGenerateImageFunc(fn func(prompt, provider string) (*models.Generated_Image, error)) {
	if fn == nil {
		generateImageFunc = defaultGenerateImage
		return
	}
	generateImageFunc = fn
}

// Generate_Image synthesizes one image for prompt and persists it through the
// media collaborator, returning the persisted reference.
func Generate_Image(prompt, provider string) (*models.Generated_Image, error) {
	return generateImageFunc(prompt, provider)
}

func defaultGenerateImage(prompt, provider string) (*models.Generated_Image, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("image prompt cannot be empty")
	}
	if generateConfig == nil || generateConfig.Media == nil {
		return nil, fmt.Errorf("image generation not configured; wire up a media store via SetGenerateConfig")
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	result, err := client.Models.GenerateContent(
		ctx,
		"gemini-2.5-flash-image",
		genai.Text(prompt),
		nil, // config
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate image: %w", err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no image generated in response")
	}

	for _, part := range result.Candidates[0].Content.Parts {
		if part.InlineData == nil {
			continue
		}
		saved, err := generateConfig.Media.SaveGeneratedImage(provider, base64.StdEncoding.EncodeToString(part.InlineData.Data))
		if err != nil {
			return nil, fmt.Errorf("failed to persist generated image: %w", err)
		}
		return &models.Generated_Image{URL: saved.URL, Filename: saved.Filename}, nil
	}

	return nil, fmt.Errorf("no image data found in response")
}
