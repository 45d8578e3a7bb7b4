package fiber

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"visit-dashboard-service/internal/media/core/domain"
	"visit-dashboard-service/internal/media/core/usecase"

	"github.com/gofiber/fiber/v2"
)

type fakeMediaUseCase struct {
	UploadFn func(ctx context.Context, in usecase.UploadInput) (*domain.Descriptor, error)
	RemoveFn func(ctx context.Context, in usecase.RemoveInput) error
	URLFn    func(ctx context.Context, key string) (string, error)

	lastUpload     usecase.UploadInput
	lastUploadBody []byte
	lastRemove     usecase.RemoveInput
	lastKey        string
}

func (f *fakeMediaUseCase) Upload(ctx context.Context, in usecase.UploadInput) (*domain.Descriptor, error) {
	f.lastUpload = in
	f.lastUploadBody, _ = io.ReadAll(in.Body)
	if f.UploadFn != nil {
		return f.UploadFn(ctx, in)
	}
	return &domain.Descriptor{Key: "media/x"}, nil
}

func (f *fakeMediaUseCase) Remove(ctx context.Context, in usecase.RemoveInput) error {
	f.lastRemove = in
	if f.RemoveFn != nil {
		return f.RemoveFn(ctx, in)
	}
	return nil
}

func (f *fakeMediaUseCase) URL(ctx context.Context, key string) (string, error) {
	f.lastKey = key
	if f.URLFn != nil {
		return f.URLFn(ctx, key)
	}
	return "https://bucket.example/" + key, nil
}

func setupTestApp(uc MediaUseCase) *fiber.App {
	app := fiber.New()
	h := NewMediaHandler(uc, nil)
	app.Get("/media/*", h.RedirectMedia)
	app.Post("/collections/:name/:id/media", h.UploadMedia)
	app.Delete("/collections/:name/:id/media", h.RemoveMedia)
	return app
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	_ = resp.Body.Close()
	return resp, body
}

// ------------------------------------------------------------
// UPLOAD
// ------------------------------------------------------------

func TestUploadMedia_Success(t *testing.T) {
	uploaded := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	fakeUC := &fakeMediaUseCase{
		UploadFn: func(ctx context.Context, in usecase.UploadInput) (*domain.Descriptor, error) {
			return &domain.Descriptor{
				Key:         "media/diaryEntries/d1/abc.jpg",
				ThumbKey:    "media/diaryEntries/d1/abc_thumb.jpg",
				ContentType: "image/jpeg",
				Size:        5,
				Filename:    in.Filename,
				UploadedAt:  uploaded,
			}, nil
		},
	}
	app := setupTestApp(fakeUC)

	body, ct := multipartBody(t, "file", "bridge.jpg", []byte("bytes"))
	req := httptest.NewRequest(http.MethodPost, "/collections/diaryEntries/d1/media?field=gallery", body)
	req.Header.Set("Content-Type", ct)

	resp, out := doRequest(t, app, req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d (body: %s)", http.StatusCreated, resp.StatusCode, string(out))
	}

	in := fakeUC.lastUpload
	if in.Collection != "diaryEntries" || in.DocumentID != "d1" || in.Field != "gallery" || in.Filename != "bridge.jpg" {
		t.Fatalf("unexpected input: %+v", in)
	}
	if string(fakeUC.lastUploadBody) != "bytes" {
		t.Fatalf("unexpected body: %q", fakeUC.lastUploadBody)
	}

	var got MediaResponse
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("invalid json response: %v", err)
	}
	if got.ThumbKey == "" || !got.UploadedAt.Equal(uploaded) {
		t.Fatalf("unexpected response: %+v", got)
	}
}

func TestUploadMedia_MissingFile(t *testing.T) {
	app := setupTestApp(&fakeMediaUseCase{})

	body, ct := multipartBody(t, "other", "x.jpg", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/collections/diaryEntries/d1/media", body)
	req.Header.Set("Content-Type", ct)

	resp, _ := doRequest(t, app, req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestUploadMedia_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: text/plain", usecase.ErrUnsupportedMedia), http.StatusUnsupportedMediaType},
		{usecase.ErrMediaTooLarge, http.StatusRequestEntityTooLarge},
		{usecase.ErrNotFound, http.StatusNotFound},
		{usecase.ErrUnknownCollection, http.StatusNotFound},
		{usecase.ErrInvalidField, http.StatusBadRequest},
		{errors.New("bucket unavailable"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		fakeUC := &fakeMediaUseCase{
			UploadFn: func(ctx context.Context, in usecase.UploadInput) (*domain.Descriptor, error) {
				return nil, tc.err
			},
		}
		app := setupTestApp(fakeUC)

		body, ct := multipartBody(t, "file", "x.bin", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/collections/packing/p1/media", body)
		req.Header.Set("Content-Type", ct)

		resp, _ := doRequest(t, app, req)
		if resp.StatusCode != tc.status {
			t.Errorf("%v: expected status %d, got %d", tc.err, tc.status, resp.StatusCode)
		}
	}
}

// ------------------------------------------------------------
// REMOVE
// ------------------------------------------------------------

func TestRemoveMedia_Success(t *testing.T) {
	fakeUC := &fakeMediaUseCase{}
	app := setupTestApp(fakeUC)

	req := httptest.NewRequest(http.MethodDelete, "/collections/diaryEntries/d1/media?key=media/diaryEntries/d1/abc.jpg", nil)
	resp, _ := doRequest(t, app, req)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, resp.StatusCode)
	}
	if fakeUC.lastRemove.Key != "media/diaryEntries/d1/abc.jpg" {
		t.Fatalf("unexpected input: %+v", fakeUC.lastRemove)
	}
}

func TestRemoveMedia_NotFound(t *testing.T) {
	fakeUC := &fakeMediaUseCase{
		RemoveFn: func(ctx context.Context, in usecase.RemoveInput) error {
			return usecase.ErrNotFound
		},
	}
	app := setupTestApp(fakeUC)

	req := httptest.NewRequest(http.MethodDelete, "/collections/diaryEntries/d1/media?key=media/nope", nil)
	resp, _ := doRequest(t, app, req)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

// ------------------------------------------------------------
// REDIRECT
// ------------------------------------------------------------

func TestRedirectMedia(t *testing.T) {
	fakeUC := &fakeMediaUseCase{}
	app := setupTestApp(fakeUC)

	req := httptest.NewRequest(http.MethodGet, "/media/welcomeVideo/w1/v.mp4", nil)
	resp, _ := doRequest(t, app, req)
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected status %d, got %d", http.StatusFound, resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "https://bucket.example/media/welcomeVideo/w1/v.mp4" {
		t.Fatalf("unexpected location %q", loc)
	}
	if fakeUC.lastKey != "media/welcomeVideo/w1/v.mp4" {
		t.Fatalf("unexpected key %q", fakeUC.lastKey)
	}
}

func TestRedirectMedia_InvalidKey(t *testing.T) {
	fakeUC := &fakeMediaUseCase{
		URLFn: func(ctx context.Context, key string) (string, error) {
			return "", usecase.ErrInvalidKey
		},
	}
	app := setupTestApp(fakeUC)

	req := httptest.NewRequest(http.MethodGet, "/media/x", nil)
	resp, _ := doRequest(t, app, req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestRedirectMedia_UnknownKey(t *testing.T) {
	fakeUC := &fakeMediaUseCase{
		URLFn: func(ctx context.Context, key string) (string, error) {
			return "", usecase.ErrNotFound
		},
	}
	app := setupTestApp(fakeUC)

	req := httptest.NewRequest(http.MethodGet, "/media/diaryEntries/d1/missing.png", nil)
	resp, _ := doRequest(t, app, req)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}
