package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Operation is the opaque handle of one long-running video generation. It is
// plain data so the poll loop stays a pure read: feed an Operation in, get the
// refreshed one back.
type Operation struct {
	Name    string
	Done    bool
	URIs    []string
	Failure string
}

// URI returns the first generated video location, empty until the operation
// completes successfully.
func (o Operation) URI() string {
	if len(o.URIs) > 0 {
		return o.URIs[0]
	}
	return ""
}

// StartVideo submits a video generation job and returns its operation handle.
// Older video models reject the lastFrame instance field; those submissions
// are retried without it.
func (c *Client) StartVideo(ctx context.Context, vidReq VideoRequest) (Operation, error) {
	prompt := strings.TrimSpace(vidReq.Prompt)
	if prompt == "" {
		return Operation{}, errors.New("prompt is empty")
	}

	count := vidReq.Count
	if count <= 0 {
		count = 1
	}

	instance := videoInstance{Prompt: prompt}
	if !vidReq.FirstFrame.Empty() {
		instance.Image = newVideoImage(vidReq.FirstFrame)
	}
	if !vidReq.LastFrame.Empty() {
		instance.LastFrame = newVideoImage(vidReq.LastFrame)
	}

	payload := predictLongRunningRequest{
		Instances: []videoInstance{instance},
		Parameters: videoParameters{
			SampleCount: count,
			AspectRatio: vidReq.AspectRatio,
			Resolution:  vidReq.Resolution,
		},
	}

	endpoint := fmt.Sprintf("%s/%s/models/%s:predictLongRunning", c.baseURL, c.apiVersion, c.videoModel)

	raw, err := c.post(ctx, endpoint, payload)
	if err != nil && instance.LastFrame != nil && isUnknownFieldError(err, "lastFrame") {
		payload.Instances[0].LastFrame = nil
		raw, err = c.post(ctx, endpoint, payload)
	}
	if err != nil {
		return Operation{}, err
	}

	op, err := decodeOperation(raw)
	if err != nil {
		return Operation{}, err
	}
	if op.Name == "" {
		return Operation{}, errors.New("gemini: submit returned no operation name")
	}

	c.logger.Debug("video operation submitted", "operation", op.Name)
	return op, nil
}

// PollVideo reads the current status of an operation. It never waits; pacing
// belongs to the caller.
func (c *Client) PollVideo(ctx context.Context, op Operation) (Operation, error) {
	if op.Name == "" {
		return Operation{}, errors.New("operation name is empty")
	}

	raw, err := c.get(ctx, fmt.Sprintf("%s/%s/%s", c.baseURL, c.apiVersion, strings.TrimLeft(op.Name, "/")))
	if err != nil {
		return Operation{}, err
	}
	return decodeOperation(raw)
}

// FetchVideo downloads the generated file. The provider's download endpoints
// authenticate through a key query parameter, not the request header.
func (c *Client) FetchVideo(ctx context.Context, uri string) (Blob, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return Blob{}, errors.New("video uri is empty")
	}

	parsed, err := url.Parse(uri)
	if err != nil {
		return Blob{}, fmt.Errorf("parse video uri: %w", err)
	}
	query := parsed.Query()
	query.Set("key", c.creds.APIKey())
	parsed.RawQuery = query.Encode()

	if c.httpClient == nil {
		return Blob{}, errors.New("http client is nil")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return Blob{}, fmt.Errorf("create request: %w", err)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Blob{}, fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Blob{}, fmt.Errorf("read video: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		return Blob{}, fmt.Errorf("gemini API %s: %s", httpResp.Status, strings.TrimSpace(string(truncateBytes(data, 512))))
	}
	if len(data) == 0 {
		return Blob{}, errors.New("empty video payload")
	}

	mime := httpResp.Header.Get("Content-Type")
	if mime == "" || strings.HasPrefix(mime, "application/octet-stream") {
		mime = "video/mp4"
	}

	c.logger.Debug("video downloaded", "bytes", len(data), "mime", mime)
	return Blob{Data: data, Mime: mime}, nil
}

func decodeOperation(raw []byte) (Operation, error) {
	var decoded operationResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Operation{}, fmt.Errorf("decode operation: %w", err)
	}

	op := Operation{
		Name: decoded.Name,
		Done: decoded.Done,
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		op.Failure = decoded.Error.Message
	}
	if decoded.Response != nil {
		op.URIs = collectVideoURIs(*decoded.Response)
	}
	return op, nil
}

// collectVideoURIs accepts the shapes this endpoint has been seen returning:
// response.generateVideoResponse.generatedSamples[].video.uri and
// response.generatedVideos[].video.uri, with the uri occasionally sitting
// directly on the sample.
func collectVideoURIs(result operationResult) []string {
	var samples []videoSample
	if result.GenerateVideoResponse != nil {
		samples = append(samples, result.GenerateVideoResponse.GeneratedSamples...)
		samples = append(samples, result.GenerateVideoResponse.GeneratedVideos...)
	}
	samples = append(samples, result.GeneratedVideos...)

	var uris []string
	for _, sample := range samples {
		switch {
		case sample.Video != nil && sample.Video.URI != "":
			uris = append(uris, sample.Video.URI)
		case sample.URI != "":
			uris = append(uris, sample.URI)
		}
	}
	return uris
}

func truncateBytes(data []byte, limit int) []byte {
	if len(data) <= limit {
		return data
	}
	return data[:limit]
}

func newVideoImage(b Blob) *videoImage {
	mime := b.Mime
	if mime == "" {
		mime = "image/png"
	}
	return &videoImage{
		BytesBase64Encoded: base64.StdEncoding.EncodeToString(b.Data),
		MimeType:           mime,
	}
}

type predictLongRunningRequest struct {
	Instances  []videoInstance `json:"instances"`
	Parameters videoParameters `json:"parameters,omitempty"`
}

type videoInstance struct {
	Prompt    string      `json:"prompt"`
	Image     *videoImage `json:"image,omitempty"`
	LastFrame *videoImage `json:"lastFrame,omitempty"`
}

type videoImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type videoParameters struct {
	SampleCount int    `json:"sampleCount,omitempty"`
	AspectRatio string `json:"aspectRatio,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
}

type operationResponse struct {
	Name     string           `json:"name"`
	Done     bool             `json:"done"`
	Error    *operationError  `json:"error,omitempty"`
	Response *operationResult `json:"response,omitempty"`
}

type operationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type operationResult struct {
	GenerateVideoResponse *videoSampleSet `json:"generateVideoResponse,omitempty"`
	GeneratedVideos       []videoSample   `json:"generatedVideos,omitempty"`
}

type videoSampleSet struct {
	GeneratedSamples []videoSample `json:"generatedSamples,omitempty"`
	GeneratedVideos  []videoSample `json:"generatedVideos,omitempty"`
}

type videoSample struct {
	Video *videoRef `json:"video,omitempty"`
	URI   string    `json:"uri,omitempty"`
}

type videoRef struct {
	URI string `json:"uri,omitempty"`
}
