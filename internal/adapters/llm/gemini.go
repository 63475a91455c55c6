package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/mindwell-app/mindwell-backend/internal/domain"
)

// GeminiClient implements domain.StreamClient against the Gemini API.
//
// A genai client is bound to one API key, and the credential changes
// between fail-over attempts, so the client is constructed per call
// rather than held on the struct.
type GeminiClient struct {
	modelName string
}

func NewGeminiClient(modelName string) *GeminiClient {
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	return &GeminiClient{modelName: modelName}
}

func (c *GeminiClient) newClient(ctx context.Context, credential string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  credential,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, classify(fmt.Errorf("creating gemini client: %w", err))
	}
	return client, nil
}

// Stream implements domain.StreamClient. Fragments are forwarded in
// emission order; an onFragment error aborts the stream and is
// returned unchanged so the caller can tell client faults from
// provider faults.
func (c *GeminiClient) Stream(
	ctx context.Context,
	credential string,
	req domain.GenerateRequest,
	onFragment func(text string) error,
) error {
	client, err := c.newClient(ctx, credential)
	if err != nil {
		return err
	}

	for resp, err := range client.Models.GenerateContentStream(ctx, c.modelName, buildContents(req), generateConfig()) {
		if err != nil {
			return classify(fmt.Errorf("gemini stream: %w", err))
		}
		text := resp.Text()
		if text == "" {
			continue
		}
		if err := onFragment(text); err != nil {
			return err
		}
	}
	return nil
}

// Generate implements the non-streaming variant of domain.StreamClient.
func (c *GeminiClient) Generate(
	ctx context.Context,
	credential string,
	req domain.GenerateRequest,
) (string, error) {
	client, err := c.newClient(ctx, credential)
	if err != nil {
		return "", err
	}

	res, err := client.Models.GenerateContent(ctx, c.modelName, buildContents(req), generateConfig())
	if err != nil {
		return "", classify(fmt.Errorf("gemini generate: %w", err))
	}

	text := res.Text()
	if text == "" {
		return "", classify(fmt.Errorf("gemini returned empty text"))
	}
	return text, nil
}

func generateConfig() *genai.GenerateContentConfig {
	temp := float32(0.7)
	topP := float32(0.9)

	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemInstruction(), genai.RoleUser),
		Temperature:       &temp,
		TopP:              &topP,
		MaxOutputTokens:   int32(8192),
	}
}

// buildContents maps stored turns plus the new prompt to the wire shape.
func buildContents(req domain.GenerateRequest) []*genai.Content {
	var contents []*genai.Content
	for _, turn := range req.History {
		var role genai.Role = genai.RoleUser
		if turn.Role == domain.RoleModel {
			role = genai.RoleModel
		}
		text := turn.Text()
		if text == "" {
			continue
		}
		contents = append(contents, genai.NewContentFromText(text, role))
	}
	contents = append(contents, genai.NewContentFromText(req.Prompt, genai.RoleUser))
	return contents
}

// classify maps provider failures to the domain taxonomy:
// 429 rotates, 401/403 invalidate the credential, 5xx and timeouts are
// transient, everything else is fatal.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return &domain.UpstreamError{Code: domain.UpstreamRateLimited, HTTPStatus: apiErr.Code, Err: err}
		case apiErr.Code == http.StatusUnauthorized:
			return &domain.UpstreamError{Code: domain.UpstreamUnauthorized, HTTPStatus: apiErr.Code, Err: err}
		case apiErr.Code == http.StatusForbidden:
			return &domain.UpstreamError{Code: domain.UpstreamForbidden, HTTPStatus: apiErr.Code, Err: err}
		case apiErr.Code >= 500:
			return &domain.UpstreamError{Code: domain.UpstreamTransient, HTTPStatus: apiErr.Code, Err: err}
		default:
			return &domain.UpstreamError{Code: domain.UpstreamFatal, HTTPStatus: apiErr.Code, Err: err}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.UpstreamError{Code: domain.UpstreamTransient, HTTPStatus: http.StatusGatewayTimeout, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		// Caller cancellation, not a provider fault.
		return err
	}
	return &domain.UpstreamError{Code: domain.UpstreamFatal, HTTPStatus: http.StatusInternalServerError, Err: err}
}
