package recognize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	promptDefault = `Analyze the provided photo of a utility meter and read the ` +
		`numeric value shown on the display. Consider only the digits inside the ` +
		`bounded display region. Return the digits you read, nothing else.`

	promptDualColor = `Analyze the provided photo of a utility meter with a ` +
		`dual-color dial and read the numeric value shown on the display. Consider ` +
		`only the digits in the primary (black) color; ignore any digits rendered ` +
		`in the secondary (red) color. Return the digits you read, nothing else.`
)

// GeminiEngine calls the Gemini API to read a meter display from a photo.
type GeminiEngine struct {
	apiKey string
	model  string
}

func NewGemini(apiKey, model string) *GeminiEngine {
	return &GeminiEngine{
		apiKey: strings.TrimSpace(apiKey),
		model:  strings.TrimSpace(model),
	}
}

func (e *GeminiEngine) Recognize(ctx context.Context, image []byte, opt Options) (string, error) {
	if e.apiKey == "" {
		return "", errors.New("GEMINI_API_KEY is empty")
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.apiKey))
	if err != nil {
		return "", fmt.Errorf("create gemini client: %w", err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: ptrFloat32(0),
	}

	prompt := promptDefault
	if opt.Variant == VariantDualColor {
		prompt = promptDualColor
	}

	resp, err := m.GenerateContent(ctx,
		genai.Text(prompt),
		&genai.Blob{MIMEType: opt.MIMEType, Data: image},
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	return responseText(resp), nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return strings.TrimSpace(sb.String())
}

func ptrFloat32(f float32) *float32 { return &f }
