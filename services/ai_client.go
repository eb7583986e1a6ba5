// quiz-stake-system/services/ai_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"

	"quiz-stake-system/models"
	"quiz-stake-system/utils"
)

// GenerationRequest is the consumer-side contract with the AI generator:
// a company profile in, exactly NumberOfQuestions single-word-answer
// questions out.
type GenerationRequest struct {
	CompanyName        string
	Website            string
	CompanyDescription string
	NumberOfQuestions  int
	SearchContext      string
}

// GeneratorClient calls the external text-generation API and turns its free
// text into validated question pairs. Prompting internals beyond the contract
// live on the model side; this client only owns the request shape and the
// strict parse of the response.
type GeneratorClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewGeneratorClient(baseURL, apiKey string) *GeneratorClient {
	return &GeneratorClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  utils.HTTPClient, // generation runs are slow
	}
}

// GenerateQuestions asks the model for the company's question set.
func (g *GeneratorClient) GenerateQuestions(ctx context.Context, req GenerationRequest) ([]models.QuestionPair, error) {
	prompt := buildPrompt(req)

	reqBody := map[string]interface{}{
		"prompt": prompt,
	}
	jsonData, _ := json.Marshal(reqBody)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", g.BaseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.APIKey)

	resp, err := g.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: generator request failed: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		log.Printf("Generator API returned %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("%w: generator returned status %d", ErrUpstream, resp.StatusCode)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode generator response: %v", ErrUpstream, err)
	}

	pairs, err := ParseGeneratedQuestions(out.Text)
	if err != nil {
		return nil, err
	}

	if len(pairs) != req.NumberOfQuestions {
		log.Printf("⚠️ [GEN] Expected %d questions but got %d", req.NumberOfQuestions, len(pairs))
	}
	return pairs, nil
}

var jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

// ParseGeneratedQuestions extracts the JSON array from the model's text
// output and validates every pair. Model output routinely carries prose or
// code fences around the array, so the array is located by pattern rather
// than decoded directly.
func ParseGeneratedQuestions(text string) ([]models.QuestionPair, error) {
	match := jsonArrayPattern.FindString(text)
	if match == "" {
		return nil, fmt.Errorf("%w: no JSON array in generator output", ErrUpstream)
	}

	var pairs []models.QuestionPair
	if err := json.Unmarshal([]byte(match), &pairs); err != nil {
		return nil, fmt.Errorf("%w: malformed question array: %v", ErrUpstream, err)
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: generator produced no questions", ErrUpstream)
	}

	for i := range pairs {
		if pairs[i].Question == "" || pairs[i].Answer == "" {
			return nil, fmt.Errorf("%w: question %d is missing question or answer", ErrUpstream, i)
		}
		pairs[i].Answer = NormalizeAnswer(pairs[i].Answer)
	}
	return pairs, nil
}

func buildPrompt(req GenerationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are a master strategist and business analyst. Generate exceptionally insightful questions about a company, each answerable with a single, precise word.

Company Information:
- Company Name: %s
- Website: %s
- Company Description: %s

Web Search Context:
%s

Instructions:
1. Analyze the company's website and the search context to understand its core business, target audience, revenue model, and what makes it unique.
2. Create exactly %d questions that cut to the heart of the company's operations.
3. Each question MUST be answerable with a single, specific word.
4. For each question, provide the correct single-word answer in lowercase.
5. Do NOT ask questions that could apply to any company; they must be specific to '%s'.
6. When referring to the company, always use its name, '%s'.

Format your response ONLY as a JSON array with this exact structure:
[
  {
    "question": "The question text here",
    "answer": "thesinglewordanswer"
  }
]

IMPORTANT: Respond ONLY with the JSON array, no additional text or explanation.
`, req.CompanyName, req.Website, req.CompanyDescription, req.SearchContext,
		req.NumberOfQuestions, req.CompanyName, req.CompanyName)
	return b.String()
}
