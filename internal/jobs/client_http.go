package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"upscale-bot/internal/tier"
)

const (
	DefaultBaseURL = "https://photoai.imglarger.com"

	uploadPath = "/api/PhoAi/Upload"
	statusPath = "/api/PhoAi/CheckStatus"

	remoteOrigin    = "https://image-enhancer-snowy.vercel.app"
	remoteReferer   = "https://image-enhancer-snowy.vercel.app/"
	remoteUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36"

	// enhanceType is the service's "upscale" operation.
	enhanceType = "2"

	maxResultBytes = 64 << 20
)

// HTTPClient implements Client against the imglarger PhoAi API.
type HTTPClient struct {
	baseURL     string
	maxAttempts int
	httpClient  *http.Client
}

// NewHTTPClient constructs an HTTPClient. Empty baseURL selects DefaultBaseURL.
func NewHTTPClient(baseURL string, timeout time.Duration, maxAttempts int) *HTTPClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &HTTPClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		maxAttempts: maxAttempts,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

type uploadResponse struct {
	Code json.RawMessage `json:"code"`
	Data *struct {
		Code json.RawMessage `json:"code"`
		Type json.RawMessage `json:"type"`
	} `json:"data"`
}

type statusRequest struct {
	Code json.RawMessage `json:"code"`
	Type string          `json:"type"`
}

type statusResponse struct {
	Data *struct {
		Status       string   `json:"status"`
		DownloadURLs []string `json:"downloadUrls"`
	} `json:"data"`
}

// Submit uploads image as multipart form data.
func (c *HTTPClient) Submit(ctx context.Context, image []byte, t tier.Tier) (Job, error) {
	if !t.Valid() {
		return Job{}, &SubmissionError{Err: tier.ErrUnknown}
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	partHeader.Set("Content-Type", "image/jpeg")
	part, err := mw.CreatePart(partHeader)
	if err != nil {
		return Job{}, &SubmissionError{Err: err}
	}
	if _, err := part.Write(image); err != nil {
		return Job{}, &SubmissionError{Err: err}
	}
	if err := mw.WriteField("type", enhanceType); err != nil {
		return Job{}, &SubmissionError{Err: err}
	}
	if err := mw.WriteField("scaleRadio", t.Code()); err != nil {
		return Job{}, &SubmissionError{Err: err}
	}
	if err := mw.Close(); err != nil {
		return Job{}, &SubmissionError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+uploadPath, &body)
	if err != nil {
		return Job{}, &SubmissionError{Err: err}
	}
	setRemoteHeaders(req)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Job{}, &SubmissionError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Job{}, &SubmissionError{Err: err}
	}

	var parsed uploadResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Job{}, &SubmissionError{Body: truncate(string(raw)), Err: fmt.Errorf("parse response: %w", err)}
	}
	if rawString(parsed.Code) != "200" || parsed.Data == nil || len(parsed.Data.Code) == 0 {
		return Job{}, &SubmissionError{Body: truncate(string(raw))}
	}

	return Job{
		Handle: Handle{
			Code: parsed.Data.Code,
			Type: rawString(parsed.Data.Type),
		},
		Tier:        t,
		State:       StateSubmitted,
		MaxAttempts: c.maxAttempts,
	}, nil
}

// Poll performs one CheckStatus call and applies it to job.
func (c *HTTPClient) Poll(ctx context.Context, job Job) (Job, error) {
	if job.State.Terminal() {
		return job, nil
	}
	payload, err := json.Marshal(statusRequest{Code: job.Handle.Code, Type: job.Handle.Type})
	if err != nil {
		return job, &PollTransportError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+statusPath, bytes.NewReader(payload))
	if err != nil {
		return job, &PollTransportError{Err: err}
	}
	setRemoteHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return job, &PollTransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return job, &PollTransportError{StatusCode: resp.StatusCode}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return job, &PollTransportError{Err: err}
	}
	var parsed statusResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return job, &PollTransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("parse response: %w", err)}
	}

	return Advance(job, observe(parsed, raw)), nil
}

func observe(parsed statusResponse, raw []byte) Observation {
	if parsed.Data == nil {
		return Observation{Status: StatusFailure, Reason: "unknown status: " + truncate(string(raw))}
	}
	switch parsed.Data.Status {
	case "waiting":
		return Observation{Status: StatusWaiting}
	case "success":
		ref := ""
		if len(parsed.Data.DownloadURLs) > 0 {
			ref = parsed.Data.DownloadURLs[0]
		}
		return Observation{Status: StatusSuccess, ResultRef: ref}
	default:
		return Observation{Status: StatusFailure, Reason: "unknown status: " + truncate(string(raw))}
	}
}

// Fetch downloads the result image.
func (c *HTTPClient) Fetch(ctx context.Context, resultRef string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultRef, nil)
	if err != nil {
		return Result{}, &FetchError{URL: resultRef, Err: err}
	}
	req.Header.Set("User-Agent", remoteUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, &FetchError{URL: resultRef, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Result{}, &FetchError{URL: resultRef, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResultBytes+1))
	if err != nil {
		return Result{}, &FetchError{URL: resultRef, Err: err}
	}
	if len(data) > maxResultBytes {
		return Result{}, &FetchError{URL: resultRef, Err: errors.New("result exceeds size limit")}
	}
	if len(data) == 0 {
		return Result{}, &FetchError{URL: resultRef, Err: errors.New("empty result")}
	}

	return Result{
		Bytes:       data,
		ContentType: resp.Header.Get("Content-Type"),
		URL:         resultRef,
	}, nil
}

func setRemoteHeaders(req *http.Request) {
	req.Header.Set("Origin", remoteOrigin)
	req.Header.Set("Referer", remoteReferer)
	req.Header.Set("User-Agent", remoteUserAgent)
}

// rawString renders a JSON scalar as plain text: strings are unquoted,
// numbers keep their literal form.
func rawString(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	return string(trimmed)
}

func truncate(s string) string {
	const max = 300
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

var _ Client = (*HTTPClient)(nil)
