package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func textResponse(text string) string {
	return `{"candidates":[{"content":{"parts":[{"text":` + strconvQuote(text) + `}]}}]}`
}

func strconvQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := New(Options{
		Credentials: StaticKey("test-key"),
		BaseURL:     srv.URL,
		HTTPClient:  srv.Client(),
	})
	return client, srv
}

func TestGenerateTextReturnsFirstCandidate(t *testing.T) {
	var gotPath, gotKey string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(textResponse("legenda pronta")))
	})

	got, err := client.GenerateText(context.Background(), "escreva uma legenda")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if got != "legenda pronta" {
		t.Fatalf("text: want=%q got=%q", "legenda pronta", got)
	}
	if want := "/v1beta/models/" + defaultTextModel + ":generateContent"; gotPath != want {
		t.Fatalf("path: want=%q got=%q", want, gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("api key header: want=%q got=%q", "test-key", gotKey)
	}
}

func TestGenerateTextRetriesWithoutThinkingConfig(t *testing.T) {
	var bodies []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(body))
		if len(bodies) == 1 {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Unknown name \"thinkingConfig\""}}`))
			return
		}
		_, _ = w.Write([]byte(textResponse("ok")))
	})

	got, err := client.GenerateText(context.Background(), "oi")
	if err != nil {
		t.Fatalf("GenerateText after retry: %v", err)
	}
	if got != "ok" {
		t.Fatalf("text: want=%q got=%q", "ok", got)
	}
	if len(bodies) != 2 {
		t.Fatalf("calls: want=2 got=%d", len(bodies))
	}
	if !strings.Contains(bodies[0], "thinkingConfig") {
		t.Fatalf("first call should carry thinkingConfig, body=%s", bodies[0])
	}
	if strings.Contains(bodies[1], "thinkingConfig") {
		t.Fatalf("retry should drop thinkingConfig, body=%s", bodies[1])
	}
}

func TestGenerateImageDecodesInlineData(t *testing.T) {
	raw := []byte{0x89, 0x50, 0x4e, 0x47}
	encoded := base64.StdEncoding.EncodeToString(raw)

	var gotBody string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"inlineData":{"data":"` + encoded + `","mimeType":"image/png"}}]}}]}`))
	})

	ref := Blob{Data: []byte("ref-bytes"), Mime: "image/jpeg"}
	img, err := client.GenerateImage(context.Background(), ImageRequest{
		Prompt:      "typography scene",
		Reference:   &ref,
		AspectRatio: "16:9",
		ImageSize:   "2K",
	})
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if string(img.Data) != string(raw) {
		t.Fatalf("image bytes mismatch: got=%v", img.Data)
	}
	if img.Mime != "image/png" {
		t.Fatalf("mime: want=image/png got=%q", img.Mime)
	}
	for _, want := range []string{`"aspectRatio":"16:9"`, `"imageSize":"2K"`, `"mimeType":"image/jpeg"`, "IMAGE"} {
		if !strings.Contains(gotBody, want) {
			t.Fatalf("request body missing %q: %s", want, gotBody)
		}
	}
}

func TestGenerateImageWithoutInlinePartFails(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(textResponse("sorry, text only")))
	})

	_, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "x", AspectRatio: "16:9"})
	if err != ErrNoImage {
		t.Fatalf("want ErrNoImage, got %v", err)
	}
}

func TestGenerateImageSurfacesAPIError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota"}}`))
	})

	_, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "x"})
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("want 429 error, got %v", err)
	}
}

func TestParseDataURL(t *testing.T) {
	payload := []byte("hello-image")
	url := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(payload)

	b, err := ParseDataURL(url)
	if err != nil {
		t.Fatalf("ParseDataURL: %v", err)
	}
	if b.Mime != "image/jpeg" {
		t.Fatalf("mime: want=image/jpeg got=%q", b.Mime)
	}
	if string(b.Data) != string(payload) {
		t.Fatalf("payload mismatch: got=%q", b.Data)
	}

	if _, err := ParseDataURL("data:image/png;base64,!!!"); err == nil {
		t.Fatalf("want error for invalid base64")
	}
	if _, err := ParseDataURL("   "); err == nil {
		t.Fatalf("want error for empty input")
	}

	back := b.DataURL()
	if !strings.HasPrefix(back, "data:image/jpeg;base64,") {
		t.Fatalf("DataURL prefix wrong: %q", back)
	}
	again, err := ParseDataURL(back)
	if err != nil || string(again.Data) != string(payload) {
		t.Fatalf("round trip failed: %v %q", err, again.Data)
	}
}
