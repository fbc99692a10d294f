// gemini.go — Backend for the hosted Gemini image models.
package generator

import (
	"context"
	"strings"

	"gitlab.com/tozd/go/errors"
	"google.golang.org/genai"

	"github.com/PardalJao/Nano-Banana-Pro-3-Pardal/pkg/pngmeta"
)

// DefaultModel is the image model used when none is configured.
const DefaultModel = "gemini-3-pro-image-preview"

// Gemini generates images through the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini backend. An empty model selects DefaultModel.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Errorf("create genai client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Generate implements Generator.
func (g *Gemini) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	res, err := g.client.Models.GenerateContent(ctx, g.model, buildContents(req), buildConfig(req))
	if err != nil {
		return nil, errors.Errorf("generate content: %w", err)
	}

	out, err := collect(res)
	if err != nil {
		return nil, err
	}
	out.Model = g.model
	return out, nil
}

// buildContents places reference images before the prompt text in a single
// user turn.
func buildContents(req Request) []*genai.Content {
	parts := make([]*genai.Part, 0, len(req.References)+1)
	for _, ref := range req.References {
		parts = append(parts, genai.NewPartFromBytes(ref.Data, ref.MediaType))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

func buildConfig(req Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}
	if req.AspectRatio != "" || req.ImageSize != "" {
		cfg.ImageConfig = &genai.ImageConfig{
			AspectRatio: req.AspectRatio,
			ImageSize:   req.ImageSize,
		}
	}
	return cfg
}

// collect gathers inline images and text from the first candidate.
func collect(res *genai.GenerateContentResponse) (*Result, error) {
	if res == nil {
		return nil, ErrNoImage
	}
	if res.PromptFeedback != nil && res.PromptFeedback.BlockReason != "" {
		return nil, errors.Errorf("%w: %s", ErrBlocked, res.PromptFeedback.BlockReason)
	}
	if len(res.Candidates) == 0 || res.Candidates[0] == nil || res.Candidates[0].Content == nil {
		return nil, errors.Errorf("%w: no candidates", ErrNoImage)
	}

	out := &Result{}
	var text []string
	for _, part := range res.Candidates[0].Content.Parts {
		switch {
		case part == nil || part.Thought:
		case part.InlineData != nil && len(part.InlineData.Data) > 0:
			mt := part.InlineData.MIMEType
			if mt == "" {
				mt = pngmeta.MediaTypePNG
			}
			out.Images = append(out.Images, pngmeta.Blob{Data: part.InlineData.Data, MediaType: mt})
		case part.Text != "":
			text = append(text, part.Text)
		}
	}
	out.Text = strings.Join(text, "\n")

	if len(out.Images) == 0 {
		if out.Text != "" {
			return nil, errors.Errorf("%w: model said %q", ErrNoImage, out.Text)
		}
		if reason := res.Candidates[0].FinishReason; reason != "" {
			return nil, errors.Errorf("%w: finish reason %s", ErrNoImage, reason)
		}
		return nil, ErrNoImage
	}
	return out, nil
}
