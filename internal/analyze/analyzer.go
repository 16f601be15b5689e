package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SampleSize caps the text handed to the model. Ten thousand
// characters is enough signal for a sensitivity call and keeps request
// sizes predictable.
const SampleSize = 10000

// minTextLength is the shortest text worth analyzing. Anything shorter
// is declared non-sensitive without a model call.
const minTextLength = 10

// defaultEndpoint is the Gemini generateContent endpoint.
const defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-pro:generateContent"

// Analyzer is the sensitivity-analysis collaborator boundary.
// Implementations receive a text sample and the source URL and return
// a verdict plus a free-text rationale. Callers must not assume any
// structure in the rationale.
type Analyzer interface {
	Analyze(ctx context.Context, text, sourceURL string) (sensitive bool, rationale string, err error)
}

// GeminiAnalyzer analyzes document text with the Gemini API.
//
// The API is called directly over REST with the standard HTTP client
// rather than through an SDK: the scanner needs exactly one endpoint,
// and the analysis traffic intentionally bypasses the anonymizing
// transport — it carries our own credential, not crawl traffic.
type GeminiAnalyzer struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// GeminiOption configures a GeminiAnalyzer.
type GeminiOption func(*GeminiAnalyzer)

// WithEndpoint overrides the API endpoint, used by tests.
func WithEndpoint(endpoint string) GeminiOption {
	return func(g *GeminiAnalyzer) {
		g.endpoint = endpoint
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) GeminiOption {
	return func(g *GeminiAnalyzer) {
		g.client = client
	}
}

// NewGeminiAnalyzer creates an analyzer with the given API key.
func NewGeminiAnalyzer(apiKey string, opts ...GeminiOption) *GeminiAnalyzer {
	g := &GeminiAnalyzer{
		apiKey:   apiKey,
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// generateRequest and generateResponse mirror the small slice of the
// Gemini wire format the scanner needs.
type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Analyze asks the model whether the document text looks sensitive.
// Empty or near-empty text short-circuits to non-sensitive. The
// boolean verdict comes from ParseVerdict over the model's rationale.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, text, sourceURL string) (bool, string, error) {
	if len(text) < minTextLength {
		return false, "Document is empty or too short.", nil
	}

	sample := text
	if len(sample) > SampleSize {
		sample = sample[:SampleSize]
	}

	rationale, err := g.generate(ctx, buildPrompt(sample, sourceURL))
	if err != nil {
		return false, "", err
	}

	return ParseVerdict(rationale), rationale, nil
}

// buildPrompt asks for a Yes/No lead followed by an explanation,
// matching what ParseVerdict scrapes for.
func buildPrompt(sample, sourceURL string) string {
	return fmt.Sprintf(`Analyze this document content and determine if it appears to be sensitive, private, or unintended for public release. Look for:

1. Personal information (names, addresses, phone numbers, SSNs, etc.)
2. Financial data (credit card numbers, bank accounts, etc.)
3. Internal/confidential business information (marked confidential, internal only, etc.)
4. Login credentials or API keys
5. Draft documents not meant for public consumption
6. Any information that seems inappropriate for public access

Document URL: %s

Document sample text:
%s

Respond with:
1. Is this document potentially sensitive? (Yes/No)
2. Brief explanation of your determination
3. Specific sensitive elements found (if any)`, sourceURL, sample)
}

// generate performs one generateContent call and returns the first
// candidate's text.
func (g *GeminiAnalyzer) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("analysis request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	var parsed generateResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode analysis response: %w", err)
	}

	if parsed.Error != nil {
		return "", fmt.Errorf("analysis API error: %s", parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("analysis API status %d", resp.StatusCode)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("analysis response contained no candidates")
	}

	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
