package shared

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestGetAppErrorThroughWrapping(t *testing.T) {
	cause := errors.New("row locked")
	wrapped := fmt.Errorf("award: %w", NewConflictError(cause, "Progress changed"))

	appErr, ok := GetAppError(wrapped)
	if !ok {
		t.Fatal("expected to find the app error")
	}
	if appErr.StatusCode != http.StatusConflict {
		t.Errorf("expected 409, got %d", appErr.StatusCode)
	}
	if !errors.Is(wrapped, cause) {
		t.Error("expected the cause to be reachable")
	}
	if appErr.Error() != "Progress changed: row locked" {
		t.Errorf("unexpected message %q", appErr.Error())
	}

	if _, ok := GetAppError(cause); ok {
		t.Error("plain errors are not app errors")
	}
}

func TestResponseJSON(t *testing.T) {
	app := fiber.New()
	app.Get("/ok", func(c *fiber.Ctx) error { return ResponseOK(c, map[string]int{"streak": 3}) })
	app.Get("/missing", func(c *fiber.Ctx) error { return ResponseJSON(c, http.StatusNotFound, "Not Found", nil) })

	cases := map[string]struct {
		status int
		body   string
	}{
		"/ok":      {http.StatusOK, `{"code":200,"message":"Success","data":{"streak":3}}`},
		"/missing": {http.StatusNotFound, `{"code":404,"message":"Not Found"}`},
	}
	for path, want := range cases {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != want.status {
			t.Errorf("%s: expected %d, got %d", path, want.status, resp.StatusCode)
		}
		if string(body) != want.body {
			t.Errorf("%s: expected %s, got %s", path, want.body, body)
		}
		if ct := resp.Header.Get(fiber.HeaderContentType); ct != fiber.MIMEApplicationJSONCharsetUTF8 {
			t.Errorf("%s: unexpected content type %s", path, ct)
		}
	}
}
