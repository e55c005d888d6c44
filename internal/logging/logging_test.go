package logging

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"goa.design/clue/log"
)

func TestResolveFormat(t *testing.T) {
	cases := []struct {
		name     string
		terminal bool
		want     string
	}{
		{"json", true, FormatJSON},
		{"JSON", false, FormatJSON},
		{"terminal", false, FormatTerminal},
		{"text", false, FormatTerminal},
		{"", true, FormatTerminal},
		{"", false, FormatJSON},
		{"xml", false, FormatJSON},
	}
	for _, tc := range cases {
		if got := ResolveFormat(tc.name, tc.terminal); got != tc.want {
			t.Fatalf("ResolveFormat(%q, %v) = %q, want %q", tc.name, tc.terminal, got, tc.want)
		}
	}
}

func TestContextIsUsable(t *testing.T) {
	ctx := Context(context.Background(), FormatJSON, true)
	if ctx == nil {
		t.Fatalf("expected context")
	}
	log.Print(ctx, log.KV{K: "msg", V: "logging ready"})
}

func TestMiddlewareSetsUserContext(t *testing.T) {
	base := Context(context.Background(), FormatJSON, false)
	app := fiber.New()
	app.Use(Middleware(base))
	app.Get("/ping", func(c *fiber.Ctx) error {
		if c.UserContext() == context.Background() {
			return fiber.ErrInternalServerError
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
}
