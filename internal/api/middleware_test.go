package api

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestHasGzipEncoding(t *testing.T) {
	cases := map[string]bool{
		"":              false,
		"identity":      false,
		"gzip":          true,
		"GZIP":          true,
		"br, gzip":      true,
		" deflate ,br ": false,
	}
	for header, want := range cases {
		if got := hasGzipEncoding(header); got != want {
			t.Fatalf("hasGzipEncoding(%q) = %v, want %v", header, got, want)
		}
	}
}

func TestGzipRequestMiddlewareDecompresses(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(`{"type":"board"}`)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/refresh", &buf)
	req.Header.Set(echo.HeaderContentEncoding, "gzip")
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	var got string
	next := func(c echo.Context) error {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return err
		}
		got = string(body)
		if c.Request().Header.Get(echo.HeaderContentEncoding) != "" {
			t.Errorf("content encoding header should be removed")
		}
		return c.NoContent(http.StatusNoContent)
	}
	if err := GzipRequestMiddleware()(next)(c); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	if got != `{"type":"board"}` {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestGzipRequestMiddlewarePassesPlainBodies(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/refresh", bytes.NewBufferString("plain"))
	c := echo.New().NewContext(req, httptest.NewRecorder())

	var got string
	next := func(c echo.Context) error {
		body, _ := io.ReadAll(c.Request().Body)
		got = string(body)
		return nil
	}
	if err := GzipRequestMiddleware()(next)(c); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	if got != "plain" {
		t.Fatalf("unexpected body %q", got)
	}
}
