package core

import (
	"github.com/watt-toolkit/ember/pkg/ember/http11"
	"github.com/watt-toolkit/ember/pkg/ember/server"
)

// App is an ember application: a Router, a 404 fallback and an ordered
// list of response middleware. It implements server.Handler.
//
// Example:
//
//	app := core.New()
//	app.Get("/hello/:name", func(req *http11.Request) (*http11.Response, error) {
//	    name, _ := req.Param("name")
//	    return http11.Text(200, "hello "+name), nil
//	})
//	app.Use(middleware.Static(fs, "/srv/www", "/"))
//	log.Fatal(app.ListenAndServe(server.DefaultConfig()))
type App struct {
	router      *Router
	middlewares []Middleware
	notFound    Handler
}

// New creates an application with an empty router.
func New() *App {
	return &App{
		router:   NewRouter(),
		notFound: DefaultNotFound,
	}
}

// DefaultNotFound answers every unrouted request with an HTML 404.
func DefaultNotFound(*http11.Request) (*http11.Response, error) {
	return http11.HTML(http11.StatusNotFound, "404 not found"), nil
}

// Router returns the application router.
func (app *App) Router() *Router {
	return app.router
}

// Use appends response middleware. Middleware runs in registration order.
func (app *App) Use(middleware ...Middleware) {
	app.middlewares = append(app.middlewares, middleware...)
}

// NotFound replaces the fallback used when no route matches.
func (app *App) NotFound(h Handler) {
	app.notFound = h
}

// Add registers a route. See Router.Add.
func (app *App) Add(method, path string, h Handler) error {
	return app.router.Add(method, path, h)
}

// Get registers a GET route.
//
// Example:
//
//	app.Get("/users/:id", getUser)
func (app *App) Get(path string, h Handler) { app.router.Get(path, h) }

// Post registers a POST route.
func (app *App) Post(path string, h Handler) { app.router.Post(path, h) }

// Put registers a PUT route.
func (app *App) Put(path string, h Handler) { app.router.Put(path, h) }

// Delete registers a DELETE route.
func (app *App) Delete(path string, h Handler) { app.router.Delete(path, h) }

// Patch registers a PATCH route.
func (app *App) Patch(path string, h Handler) { app.router.Patch(path, h) }

// Head registers a HEAD route.
func (app *App) Head(path string, h Handler) { app.router.Head(path, h) }

// Options registers an OPTIONS route.
func (app *App) Options(path string, h Handler) { app.router.Options(path, h) }

// Scope registers routes under a common prefix. See Router.Scope.
func (app *App) Scope(prefix string, fn func(*Scope)) {
	app.router.Scope(prefix, fn)
}

// Handle routes req, falls back to the 404 handler, then runs every
// middleware over the response.
//
// Handler errors are returned untouched for the connection to classify.
func (app *App) Handle(req *http11.Request) (*http11.Response, error) {
	h, err := app.router.Dispatch(req)
	if err != nil {
		return nil, err
	}
	if h == nil {
		h = app.notFound
	}

	res, err := h(req)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, http11.ErrNilResponse
	}

	for _, mw := range app.middlewares {
		mw(req, res)
	}
	return res, nil
}

// ListenAndServe serves the application with cfg until the server is
// closed or the listener fails.
func (app *App) ListenAndServe(cfg server.Config) error {
	return server.New(cfg, app).ListenAndServe()
}
