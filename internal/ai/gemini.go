package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	genai "google.golang.org/genai"
)

var ErrMissingAPIKey = errors.New("missing Gemini API key (set ai.api_key or PDF2DOCX_AI_API_KEY)")

// generator is the slice of the genai client Gemini needs.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Gemini struct {
	models generator
	model  string
	log    logrus.FieldLogger
}

func NewGemini(ctx context.Context, apiKey, model string, log logrus.FieldLogger) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Gemini{models: c.Models, model: model, log: log}, nil
}

func transcribePrompt(first, last int) string {
	return fmt.Sprintf(`You are a document transcriber. Return ONLY valid JSON - no markdown code blocks, no explanations.

Transcribe pages %d to %d (1-based, inclusive) of this PDF in reading order.
Output ONLY this JSON structure:
{
  "blocks": [
    {"kind": "heading", "level": 1, "text": "Introduction", "page": %d},
    {"kind": "paragraph", "text": "Full paragraph text...", "page": %d}
  ]
}

RULES:
- kind: "heading" for titles and section headings, "paragraph" for everything else
- level: 1 to 3 for headings, omit for paragraphs
- text: exact text, one paragraph per block, no line-wrapping hyphens
- page: the 1-based page the block appears on
- DO NOT wrap response in code blocks
`, first, last, first, first)
}

func (g *Gemini) Transcribe(ctx context.Context, pdfPath string, first, last int) (Transcript, error) {
	var out Transcript
	if g.models == nil {
		return out, errors.New("gemini not configured")
	}
	b, err := os.ReadFile(pdfPath)
	if err != nil {
		return out, err
	}
	content := []*genai.Content{
		{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				{Text: transcribePrompt(first, last)},
				{InlineData: &genai.Blob{MIMEType: "application/pdf", Data: b}},
			},
		},
	}
	res, err := g.models.GenerateContent(ctx, g.model, content, nil)
	if err != nil {
		return out, fmt.Errorf("gemini API call failed: %w", err)
	}
	js := res.Text()
	g.log.WithFields(logrus.Fields{"bytes": len(js), "first": first, "last": last}).Debug("gemini transcript received")

	out, err = decodeTranscript(js)
	if err != nil {
		return out, err
	}
	g.log.WithField("blocks", len(out.Blocks)).Info("transcribed pages without a text layer")
	return out, nil
}

func decodeTranscript(js string) (Transcript, error) {
	var out Transcript
	js = stripCodeFences(js)
	if err := json.Unmarshal([]byte(js), &out); err != nil {
		s := findFirstJSON(js)
		if s == "" {
			return out, fmt.Errorf("failed to parse Gemini response - no JSON found: %w", err)
		}
		if err2 := json.Unmarshal([]byte(s), &out); err2 != nil {
			return out, fmt.Errorf("failed to parse Gemini response as JSON: %w (original error: %v)", err2, err)
		}
	}
	kept := out.Blocks[:0]
	for _, b := range out.Blocks {
		b.Text = strings.TrimSpace(b.Text)
		if b.Text == "" {
			continue
		}
		if b.Kind != KindHeading {
			b.Kind = KindParagraph
			b.Level = 0
		}
		kept = append(kept, b)
	}
	out.Blocks = kept
	return out, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.Index(s, "\n"); nl != -1 {
			s = s[nl+1:]
		}
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

// findFirstJSON returns the first balanced {...} span, ignoring braces
// inside string literals.
func findFirstJSON(s string) string {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			if start != -1 {
				inString = true
			}
		case '{':
			if start == -1 {
				start = i
			}
			depth++
		case '}':
			if start != -1 {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}
