package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upscale-bot/internal/tier"
)

func assertRemoteHeaders(t *testing.T, r *http.Request) {
	t.Helper()
	assert.Equal(t, remoteOrigin, r.Header.Get("Origin"))
	assert.Equal(t, remoteReferer, r.Header.Get("Referer"))
	assert.Equal(t, remoteUserAgent, r.Header.Get("User-Agent"))
}

func TestSubmitSendsMultipartForm(t *testing.T) {
	image := []byte{0xFF, 0xD8, 0xFF, 0xE0, 1, 2, 3}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, uploadPath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assertRemoteHeaders(t, r)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "2", r.FormValue("type"))
		assert.Equal(t, "3", r.FormValue("scaleRadio"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "image.jpg", hdr.Filename)
		assert.Equal(t, "image/jpeg", hdr.Header.Get("Content-Type"))
		got, _ := io.ReadAll(f)
		assert.Equal(t, image, got)

		_, _ = w.Write([]byte(`{"code":200,"data":{"code":"abc123","type":2}}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, time.Second, 20)
	job, err := client.Submit(context.Background(), image, tier.Elite)
	require.NoError(t, err)
	assert.Equal(t, StateSubmitted, job.State)
	assert.Equal(t, tier.Elite, job.Tier)
	assert.Equal(t, 20, job.MaxAttempts)
	assert.JSONEq(t, `"abc123"`, string(job.Handle.Code))
	assert.Equal(t, "2", job.Handle.Type)
}

func TestSubmitRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":500,"msg":"busy"}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, time.Second, 20)
	_, err := client.Submit(context.Background(), []byte("x"), tier.Basic)
	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Contains(t, subErr.Body, "busy")
}

func TestSubmitTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewHTTPClient(srv.URL, time.Second, 20)
	_, err := client.Submit(context.Background(), []byte("x"), tier.Basic)
	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.NotNil(t, subErr.Err)
}

func TestPollMapsStatuses(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantState State
		wantRef   string
	}{
		{name: "waiting", body: `{"code":200,"data":{"status":"waiting"}}`, wantState: StateWaiting},
		{name: "success", body: `{"code":200,"data":{"status":"success","downloadUrls":["https://cdn/out.png","https://cdn/b.png"]}}`, wantState: StateSucceeded, wantRef: "https://cdn/out.png"},
		{name: "other", body: `{"code":200,"data":{"status":"error"}}`, wantState: StateFailed},
		{name: "missing data", body: `{"code":200}`, wantState: StateFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, statusPath, r.URL.Path)
				assertRemoteHeaders(t, r)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				var req map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, float64(77), req["code"])
				assert.Equal(t, "2", req["type"])
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewHTTPClient(srv.URL, time.Second, 20)
			job := Job{Handle: Handle{Code: json.RawMessage(`77`), Type: "2"}, State: StateSubmitted, MaxAttempts: 20}
			got, err := client.Poll(context.Background(), job)
			require.NoError(t, err)
			assert.Equal(t, tt.wantState, got.State)
			assert.Equal(t, 1, got.Attempt)
			assert.Equal(t, tt.wantRef, got.ResultRef)
		})
	}
}

func TestPollNon200IsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, time.Second, 20)
	job := Job{Handle: Handle{Code: json.RawMessage(`"c"`), Type: "2"}, State: StateSubmitted}
	got, err := client.Poll(context.Background(), job)
	var pollErr *PollTransportError
	require.ErrorAs(t, err, &pollErr)
	assert.Equal(t, http.StatusBadGateway, pollErr.StatusCode)
	assert.Equal(t, job, got)
}

func TestFetch(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000IHDR")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, time.Second, 20)
	res, err := client.Fetch(context.Background(), srv.URL+"/out")
	require.NoError(t, err)
	assert.Equal(t, png, res.Bytes)
	assert.Equal(t, "image/png", res.ContentType)

	_, err = client.Fetch(context.Background(), srv.URL+"/missing")
	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
}

func TestRawString(t *testing.T) {
	assert.Equal(t, "2", rawString(json.RawMessage(`2`)))
	assert.Equal(t, "2", rawString(json.RawMessage(`"2"`)))
	assert.Equal(t, "", rawString(json.RawMessage(`null`)))
	assert.Equal(t, "", rawString(nil))
}
