// Package logging builds the clue logging context shared by the server and
// its background workers.
package logging

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"goa.design/clue/log"
)

const (
	FormatJSON     = "json"
	FormatTerminal = "terminal"
)

// ResolveFormat normalises a configured format name. An empty or unknown
// name picks terminal output when attached to a terminal and JSON otherwise.
func ResolveFormat(name string, terminal bool) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case FormatJSON:
		return FormatJSON
	case FormatTerminal, "text":
		return FormatTerminal
	}
	if terminal {
		return FormatTerminal
	}
	return FormatJSON
}

// Context returns ctx carrying a clue logger configured with format and
// debug.
func Context(ctx context.Context, format string, debug bool) context.Context {
	f := log.FormatJSON
	if ResolveFormat(format, log.IsTerminal()) == FormatTerminal {
		f = log.FormatTerminal
	}
	ctx = log.Context(ctx, log.WithFormat(f))
	if debug {
		ctx = log.Context(ctx, log.WithDebug())
	}
	return ctx
}

// Middleware makes the base logging context available to handlers through
// c.UserContext(), tagged with the request method and path.
func Middleware(base context.Context) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := log.With(base, log.KV{K: "method", V: c.Method()}, log.KV{K: "path", V: c.Path()})
		c.SetUserContext(ctx)
		return c.Next()
	}
}
