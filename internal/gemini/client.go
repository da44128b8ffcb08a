package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const (
	defaultTextModel  = "gemini-3-pro-preview"
	defaultImageModel = "gemini-2.5-flash-image"
	defaultVideoModel = "veo-3.0-generate-001"
)

type Options struct {
	Credentials Credentials
	BaseURL     string
	APIVersion  string
	TextModel   string
	ImageModel  string
	VideoModel  string
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

type Client struct {
	creds      Credentials
	baseURL    string
	apiVersion string
	textModel  string
	imageModel string
	videoModel string
	httpClient *http.Client
	logger     *slog.Logger
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "v1beta"
	}

	creds := opts.Credentials
	if creds == nil {
		creds = StaticKey("")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		creds:      creds,
		baseURL:    baseURL,
		apiVersion: apiVersion,
		textModel:  orDefault(opts.TextModel, defaultTextModel),
		imageModel: orDefault(opts.ImageModel, defaultImageModel),
		videoModel: orDefault(opts.VideoModel, defaultVideoModel),
		httpClient: opts.HTTPClient,
		logger:     logger,
	}
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

// GenerateText sends a single self-contained instruction to the text model and
// returns the first candidate's text. An empty string is a valid result; the
// caller decides whether that counts as a failure.
func (c *Client) GenerateText(ctx context.Context, instruction string) (string, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return "", errors.New("instruction is empty")
	}

	req := generateContentRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: instruction}}},
		},
		GenerationConfig: generationConfig{
			Temperature:    0.7,
			ThinkingConfig: &thinkingConfig{ThinkingBudget: 1024},
		},
	}

	resp, err := c.generateContent(ctx, c.textModel, req)
	if err != nil && req.GenerationConfig.ThinkingConfig != nil && isUnknownFieldError(err, "thinkingConfig") {
		req.GenerationConfig.ThinkingConfig = nil
		resp, err = c.generateContent(ctx, c.textModel, req)
	}
	if err != nil {
		return "", err
	}

	return extractText(resp), nil
}

// GenerateImage runs a multimodal image generation call. The reference blob,
// when present, is attached after the prompt text. A response without an
// inline image part fails with ErrNoImage.
func (c *Client) GenerateImage(ctx context.Context, imgReq ImageRequest) (Blob, error) {
	prompt := strings.TrimSpace(imgReq.Prompt)
	if prompt == "" {
		return Blob{}, errors.New("prompt is empty")
	}

	parts := []part{{Text: prompt}}
	if imgReq.Reference != nil && !imgReq.Reference.Empty() {
		parts = append(parts, part{InlineData: newInlineData(*imgReq.Reference)})
	}

	req := generateContentRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"IMAGE"},
			ImageConfig: &imageConfig{
				AspectRatio: imgReq.AspectRatio,
				ImageSize:   imgReq.ImageSize,
			},
		},
	}

	resp, err := c.generateContent(ctx, c.imageModel, req)
	if err != nil && req.GenerationConfig.ImageConfig != nil && isUnknownFieldError(err, "imageConfig") {
		req.GenerationConfig.ImageConfig = nil
		resp, err = c.generateContent(ctx, c.imageModel, req)
	}
	if err != nil {
		return Blob{}, err
	}

	img, ok := extractImage(resp)
	if !ok {
		return Blob{}, ErrNoImage
	}
	return img, nil
}

func (c *Client) generateContent(ctx context.Context, model string, payload generateContentRequest) (generateContentResponse, error) {
	var decoded generateContentResponse

	raw, err := c.post(ctx, fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, model), payload)
	if err != nil {
		return decoded, err
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return decoded, fmt.Errorf("decode response: %w", err)
	}
	return decoded, nil
}

func (c *Client) post(ctx context.Context, url string, payload any) ([]byte, error) {
	if c.httpClient == nil {
		return nil, errors.New("http client is nil")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.creds.APIKey())

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		return nil, fmt.Errorf("gemini API %s: %s", httpResp.Status, strings.TrimSpace(string(rawBody)))
	}

	return rawBody, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if c.httpClient == nil {
		return nil, errors.New("http client is nil")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("x-goog-api-key", c.creds.APIKey())

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		return nil, fmt.Errorf("gemini API %s: %s", httpResp.Status, strings.TrimSpace(string(rawBody)))
	}

	return rawBody, nil
}

func extractText(resp generateContentResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}

	var textBuilder strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.Text != "" {
			textBuilder.WriteString(p.Text)
		}
	}
	return textBuilder.String()
}

func extractImage(resp generateContentResponse) (Blob, bool) {
	if len(resp.Candidates) == 0 {
		return Blob{}, false
	}

	for _, p := range resp.Candidates[0].Content.Parts {
		if p.InlineData == nil || p.InlineData.Data == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(stripDataURLPrefix(p.InlineData.Data))
		if err != nil || len(data) == 0 {
			continue
		}
		mime := p.InlineData.MimeType
		if mime == "" {
			mime = "image/png"
		}
		return Blob{Data: data, Mime: mime}, true
	}
	return Blob{}, false
}

func newInlineData(b Blob) *blob {
	mime := b.Mime
	if mime == "" {
		mime = "image/png"
	}
	return &blob{
		Data:     base64.StdEncoding.EncodeToString(b.Data),
		MimeType: mime,
	}
}

type generateContentRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	Temperature        float64         `json:"temperature,omitempty"`
	ResponseModalities []string        `json:"responseModalities,omitempty"`
	ThinkingConfig     *thinkingConfig `json:"thinkingConfig,omitempty"`
	ImageConfig        *imageConfig    `json:"imageConfig,omitempty"`
}

type thinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget,omitempty"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	ImageSize   string `json:"imageSize,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

type blob struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

type generateContentResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content content `json:"content"`
}

func isUnknownFieldError(err error, field string) bool {
	message := err.Error()
	return strings.Contains(message, "Unknown name") && strings.Contains(message, field)
}
