package server

import (
	"sort"

	"warbler/internal/config"
	"warbler/internal/notifications"

	"github.com/gofiber/fiber/v2"
)

// Route is one registered method and path.
type Route struct {
	Method string
	Path   string
}

// Routes lists the HTTP routes the server registers, without touching any
// database or Redis. Implicit HEAD routes are left out.
func Routes() []Route {
	s := &Server{config: &config.Config{}, hub: notifications.NewHub()}
	app := fiber.New()
	s.SetupRoutes(app)

	var out []Route
	seen := make(map[Route]struct{})
	for _, r := range app.GetRoutes(true) {
		if r.Method == fiber.MethodHead {
			continue
		}
		route := Route{Method: r.Method, Path: r.Path}
		if _, dup := seen[route]; dup {
			continue
		}
		seen[route] = struct{}{}
		out = append(out, route)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}
