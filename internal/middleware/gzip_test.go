package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func echoHandler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	defer r.Body.Close()

	if len(body) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("echo: " + string(body)))
}

func gzipBytes(t *testing.T, s string) io.Reader {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(s)); err != nil {
		t.Fatalf("write gzip: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	return &buf
}

func TestGzipMiddleware(t *testing.T) {
	tests := []struct {
		name            string
		body            string
		gzipBody        bool
		acceptEncoding  string
		contentType     string
		wantStatus      int
		wantEncoding    string
		wantBodyContain string
	}{
		{
			name:            "json response compressed",
			body:            `{"code":"EDELWEISS2026"}`,
			acceptEncoding:  "gzip, deflate",
			contentType:     "application/json",
			wantStatus:      http.StatusOK,
			wantEncoding:    "gzip",
			wantBodyContain: `echo: {"code":"EDELWEISS2026"}`,
		},
		{
			name:            "client without gzip gets plain body",
			body:            `{"quantity":2}`,
			contentType:     "application/json",
			wantStatus:      http.StatusOK,
			wantBodyContain: `echo: {"quantity":2}`,
		},
		{
			name:            "compressed request body is unpacked",
			body:            `{"payment_method":"cod"}`,
			gzipBody:        true,
			acceptEncoding:  "gzip",
			contentType:     "application/json",
			wantStatus:      http.StatusOK,
			wantEncoding:    "gzip",
			wantBodyContain: `echo: {"payment_method":"cod"}`,
		},
		{
			name:            "binary content type is not compressed",
			body:            "png-bytes",
			acceptEncoding:  "gzip",
			contentType:     "image/png",
			wantStatus:      http.StatusOK,
			wantBodyContain: "echo: png-bytes",
		},
		{
			name:           "no content is not compressed",
			acceptEncoding: "gzip",
			wantStatus:     http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader = strings.NewReader(tt.body)
			if tt.gzipBody {
				body = gzipBytes(t, tt.body)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/cart/promo", body)
			if tt.gzipBody {
				req.Header.Set("Content-Encoding", "gzip")
			}
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}

			w := httptest.NewRecorder()
			GzipMiddleware(http.HandlerFunc(echoHandler)).ServeHTTP(w, req)

			res := w.Result()
			defer res.Body.Close()

			if res.StatusCode != tt.wantStatus {
				t.Fatalf("status: got %d want %d", res.StatusCode, tt.wantStatus)
			}
			if ce := res.Header.Get("Content-Encoding"); ce != tt.wantEncoding {
				t.Fatalf("content-encoding: got %q want %q", ce, tt.wantEncoding)
			}

			var reader io.Reader = res.Body
			if tt.wantEncoding == "gzip" {
				gr, err := gzip.NewReader(res.Body)
				if err != nil {
					t.Fatalf("new gzip reader: %v", err)
				}
				defer gr.Close()
				reader = gr
			}

			got, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			if !strings.Contains(string(got), tt.wantBodyContain) {
				t.Fatalf("body %q does not contain %q", string(got), tt.wantBodyContain)
			}
		})
	}
}

func TestGzipMiddleware_BrokenRequestBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/cart/items", strings.NewReader("not gzip"))
	req.Header.Set("Content-Encoding", "gzip")

	w := httptest.NewRecorder()
	GzipMiddleware(http.HandlerFunc(echoHandler)).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d want %d", w.Code, http.StatusBadRequest)
	}
}
