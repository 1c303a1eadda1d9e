package gemini

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/mydudu/screening-api/internal/generation"
	"google.golang.org/genai"
)

//go:embed system_prompt.txt
var defaultSystemPrompt string

// loadSystemPrompt returns the prompt at path, or the embedded default when
// path is empty.
func loadSystemPrompt(path string) (string, error) {
	if path == "" {
		return strings.TrimSpace(defaultSystemPrompt), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read prompt template from %s: %v",
			generation.ErrInvalidConfig, path, err)
	}
	prompt := strings.TrimSpace(string(raw))
	if prompt == "" {
		return "", fmt.Errorf("%w: prompt template %s is empty", generation.ErrInvalidConfig, path)
	}
	return prompt, nil
}

// articleSchema is the structured reply the model must produce.
type articleSchema struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
	Image       string `json:"image"`
}

func responseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title": {
				Type:        genai.TypeString,
				Description: "Judul artikel pendek yang menarik (Maksimal 6 kata).",
			},
			"description": {
				Type:        genai.TypeString,
				Description: "Satu kalimat penjelasan ringkas dan suportif tentang kondisi medis (Maksimal 20 kata).",
			},
			"link": {
				Type:        genai.TypeString,
				Description: "URL referensi asli yang valid dari sumber terpercaya (Misal: Kemenkes, IDAI).",
			},
			"image": {
				Type:        genai.TypeString,
				Description: "Keyword gambar. Misalnya: 'stunting_care', 'healthy_food', atau 'posyandu_visit'.",
			},
		},
		Required: []string{"title", "description", "link", "image"},
	}
}
