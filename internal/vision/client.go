// Package vision talks to an OpenAI-compatible chat-completions endpoint for the
// three model tasks of the designer: classifying uploads, parsing floor plans and
// interpreting natural-language scene commands.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/home-designer/backend/internal/config"
	"github.com/home-designer/backend/internal/metrics"
	"github.com/home-designer/backend/internal/models"
	"github.com/home-designer/backend/internal/parser"
)

// Task names, used in errors, logs and metrics.
const (
	TaskClassify  = "classify_image"
	TaskFloorPlan = "parse_floorplan"
	TaskCommand   = "scene_command"
)

const (
	classifyMaxTokens  = 150
	floorPlanMaxTokens = 4000
	commandMaxTokens   = 1500
)

// Client is safe for concurrent use.
type Client struct {
	cfg        config.VisionConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	registry   *parser.Registry
	catalog    *models.Catalog
	logger     *zap.Logger
	metrics    *metrics.Collector
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// WithCatalog sets the catalog rendered into the command prompt.
func WithCatalog(cat *models.Catalog) Option {
	return func(c *Client) { c.catalog = cat }
}

// WithRegistry sets the operation decoder registry.
func WithRegistry(r *parser.Registry) Option {
	return func(c *Client) { c.registry = r }
}

// NewClient builds a client from cfg. RequestsPerMinute <= 0 disables rate limiting.
func NewClient(cfg config.VisionConfig, opts ...Option) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
		registry:   parser.GetGlobalRegistry(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("component", "vision"))
	return c
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return strings.TrimSpace(c.cfg.APIKey) != ""
}

// ClassifyImage asks the small model which kind of picture image is.
func (c *Client) ClassifyImage(ctx context.Context, image string) (*models.Classification, error) {
	if image == "" {
		return nil, ErrEmptyImage
	}
	content, err := c.complete(ctx, TaskClassify, chatRequest{
		Model: c.cfg.ClassifyModel,
		Messages: []chatMessage{
			{Role: "system", Content: classifyPrompt},
			{Role: "user", Content: []contentPart{imagePart(image)}},
		},
		MaxTokens: classifyMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	result, err := parser.ParseClassification([]byte(content))
	if err != nil {
		return nil, c.decodeFailure(TaskClassify, err)
	}
	return result, nil
}

// ParseFloorPlan converts a floor-plan image into a preview summary and an
// unvalidated scene document.
func (c *Client) ParseFloorPlan(ctx context.Context, image string) (*models.FloorPlanResult, error) {
	if image == "" {
		return nil, ErrEmptyImage
	}
	content, err := c.complete(ctx, TaskFloorPlan, chatRequest{
		Model: c.cfg.FloorPlanModel,
		Messages: []chatMessage{
			{Role: "system", Content: FloorPlanSystemPrompt()},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: floorPlanInstruction},
				imagePart(image),
			}},
		},
		MaxTokens: floorPlanMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	result, err := parser.ParseFloorPlanResult([]byte(content))
	if err != nil {
		return nil, c.decodeFailure(TaskFloorPlan, err)
	}
	return result, nil
}

// InterpretCommand turns a natural-language command into scene operations.
// referenceImage is optional. Malformed operations in the reply come back as
// diagnostics rather than an error.
func (c *Client) InterpretCommand(ctx context.Context, command string, current *models.SceneDocument, referenceImage string) (*models.CommandResponse, []models.OperationDiagnostic, error) {
	if strings.TrimSpace(command) == "" {
		return nil, nil, ErrEmptyCommand
	}
	if current == nil {
		current = models.NewSceneDocument()
	}
	sceneJSON, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encoding current scene: %w", err)
	}

	parts := []contentPart{{
		Type: "text",
		Text: fmt.Sprintf("Current scene:\n%s\n\nCommand: %s", sceneJSON, command),
	}}
	if referenceImage != "" {
		parts = append(parts, imagePart(referenceImage))
	}

	content, err := c.complete(ctx, TaskCommand, chatRequest{
		Model: c.cfg.CommandModel,
		Messages: []chatMessage{
			{Role: "system", Content: CommandSystemPrompt(c.catalog)},
			{Role: "user", Content: parts},
		},
		MaxTokens: commandMaxTokens,
	})
	if err != nil {
		return nil, nil, err
	}

	resp, diags, err := c.registry.ParseCommandResponse([]byte(content))
	if err != nil {
		return nil, nil, c.decodeFailure(TaskCommand, err)
	}
	if len(diags) > 0 {
		c.logger.Warn("dropped malformed operations from model reply",
			zap.Int("count", len(diags)),
			zap.String("first", diags[0].Message))
	}
	return resp, diags, nil
}

// complete sends one JSON-mode chat request and returns the first choice's content.
func (c *Client) complete(ctx context.Context, task string, body chatRequest) (string, error) {
	if !c.Configured() {
		return "", &RemoteServiceFailure{Task: task, Message: ErrNotConfigured.Error(), Err: ErrNotConfigured}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%s: waiting for rate limiter: %w", task, err)
	}

	start := time.Now()
	content, err := c.do(ctx, task, body)
	status := "ok"
	if err != nil {
		status = "error"
		c.logger.Error("model request failed", zap.String("task", task), zap.Error(err))
	} else {
		c.logger.Debug("model request completed",
			zap.String("task", task),
			zap.String("model", body.Model),
			zap.Duration("duration", time.Since(start)))
	}
	c.metrics.RecordVisionRequest(task, status, time.Since(start))
	return content, err
}

func (c *Client) do(ctx context.Context, task string, body chatRequest) (string, error) {
	body.ResponseFormat = &responseFormat{Type: "json_object"}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("%s: marshal request: %w", task, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/chat/completions"), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%s: create request: %w", task, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &RemoteServiceFailure{Task: task, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &RemoteServiceFailure{Task: task, StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &RemoteServiceFailure{Task: task, StatusCode: resp.StatusCode, Message: "undecodable response: " + err.Error(), Err: err}
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", &RemoteServiceFailure{Task: task, StatusCode: resp.StatusCode, Message: "response has no content"}
	}
	return out.Choices[0].Message.Content, nil
}

func (c *Client) decodeFailure(task string, err error) error {
	return &RemoteServiceFailure{Task: task, Message: err.Error(), Err: err}
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + path
}

// readErrorMessage pulls error.message out of an OpenAI-style error body, falling
// back to the raw text.
func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil {
		return "failed to read error response"
	}
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		if errResp.Error.Type != "" {
			return fmt.Sprintf("%s (type: %s)", errResp.Error.Message, errResp.Error.Type)
		}
		return errResp.Error.Message
	}
	return strings.TrimSpace(string(data))
}
