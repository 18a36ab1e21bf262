package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

// DefaultBaseURL is the public Fish Audio API root.
const DefaultBaseURL = "https://api.fish.audio/v1"

const (
	pathTTS        = "/tts"
	pathReferences = "/references"

	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	contentTypeJSON     = "application/json"

	// maxErrorBody caps how much of a failed response is read for its message.
	maxErrorBody = 4 << 10
)

// FishAudioClient talks to the Fish Audio HTTP API. Synthesis and uploads
// use separate http.Clients so each gets its own overall timeout.
type FishAudioClient struct {
	baseURL    string
	apiKey     string
	synthesize *http.Client
	upload     *http.Client
}

// FishAudioOption customizes a FishAudioClient.
type FishAudioOption func(*FishAudioClient)

// WithTransport replaces the round tripper of both underlying clients.
func WithTransport(rt http.RoundTripper) FishAudioOption {
	return func(c *FishAudioClient) {
		c.synthesize.Transport = rt
		c.upload.Transport = rt
	}
}

// NewFishAudioClient builds a client for baseURL (DefaultBaseURL when empty).
func NewFishAudioClient(baseURL, apiKey string, synthTimeout, uploadTimeout time.Duration, opts ...FishAudioOption) *FishAudioClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &FishAudioClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		synthesize: &http.Client{Timeout: synthTimeout},
		upload:     &http.Client{Timeout: uploadTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type ttsRequest struct {
	Text        string `json:"text"`
	Format      string `json:"format"`
	ReferenceID string `json:"reference_id,omitempty"`
	VoiceID     string `json:"voice_id,omitempty"`
}

// Synthesize posts the text to /tts and returns the audio body unread.
func (c *FishAudioClient) Synthesize(ctx context.Context, req SynthesisRequest) (io.ReadCloser, error) {
	body, err := json.Marshal(ttsRequest{
		Text:        req.Text,
		Format:      req.Format,
		ReferenceID: req.ReferenceID,
		VoiceID:     req.VoiceID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pathTTS, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set(headerContentType, contentTypeJSON)
	c.authorize(httpReq)

	resp, err := c.synthesize.Do(httpReq)
	if err != nil {
		return nil, classify("synthesize", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, parseError("synthesize", resp)
	}
	return resp.Body, nil
}

type referenceResponse struct {
	ReferenceID string `json:"reference_id"`
	UnderID     string `json:"_id"`
	ID          string `json:"id"`
}

// UploadReference streams the material to /references as multipart form
// data (fields "audio" and "name") and returns the new reference id.
func (c *FishAudioClient) UploadReference(ctx context.Context, up ReferenceUpload) (string, error) {
	pr, pw := io.Pipe()
	defer pr.Close()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeReferenceForm(mw, up))
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pathReferences, pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set(headerContentType, mw.FormDataContentType())
	c.authorize(httpReq)

	resp, err := c.upload.Do(httpReq)
	if err != nil {
		_ = pr.CloseWithError(err)
		return "", classify("upload", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", parseError("upload", resp)
	}

	var out referenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &ProviderError{Op: "upload", StatusCode: resp.StatusCode, Message: "malformed response: " + err.Error()}
	}
	for _, id := range []string{out.ReferenceID, out.UnderID, out.ID} {
		if id != "" {
			return id, nil
		}
	}
	return "", &ProviderError{Op: "upload", StatusCode: resp.StatusCode, Message: "response carried no reference id"}
}

func writeReferenceForm(mw *multipart.Writer, up ReferenceUpload) error {
	ct := up.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename=%q`, up.Filename))
	h.Set(headerContentType, ct)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, up.Body); err != nil {
		return err
	}
	if up.Name != "" {
		if err := mw.WriteField("name", up.Name); err != nil {
			return err
		}
	}
	return mw.Close()
}

func (c *FishAudioClient) authorize(r *http.Request) {
	if c.apiKey != "" {
		r.Header.Set(headerAuthorization, "Bearer "+c.apiKey)
	}
}

// classify maps transport failures; deadlines become ErrTimeout.
func classify(op string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, context.Canceled)
	}
	return &ProviderError{Op: op, Message: err.Error()}
}

// parseError extracts the provider's message from a failed response. Known
// JSON fields are preferred; otherwise the trimmed body is used.
func parseError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(raw))

	var payload struct {
		Message string `json:"message"`
		Detail  any    `json:"detail"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		switch {
		case payload.Message != "":
			msg = payload.Message
		case payload.Error != "":
			msg = payload.Error
		case payload.Detail != nil:
			if s, ok := payload.Detail.(string); ok {
				msg = s
			} else if b, err := json.Marshal(payload.Detail); err == nil {
				msg = string(b)
			}
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &ProviderError{Op: op, StatusCode: resp.StatusCode, Message: msg}
}
