package middleware

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/watt-toolkit/ember/core"
	"github.com/watt-toolkit/ember/pkg/ember/http11"
)

var knownContentTypes = map[string]string{
	".txt":  "text/plain; charset=utf-8",
	".html": "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "text/javascript; charset=utf-8",
	".json": "application/json; charset=utf-8",
	".ico":  "image/x-icon",
}

const defaultContentType = "application/octet-stream"

// StaticConfig defines configuration for the static file middleware.
type StaticConfig struct {
	// Fs is the filesystem files are read from.
	// Default: afero.NewOsFs()
	Fs afero.Fs

	// Root is the directory served.
	Root string

	// BaseURI is the URL prefix mapped onto Root.
	// Default: "/"
	BaseURI string

	// ShowHidden serves files and directories whose name starts with '.'.
	// Default: false
	ShowHidden bool
}

// Static returns a middleware that serves files below root from the OS
// filesystem. See StaticWithConfig.
//
// Example:
//
//	app.Use(middleware.Static("./public"))
func Static(root string) core.Middleware {
	return StaticWithConfig(StaticConfig{Root: root})
}

// StaticWithConfig returns a middleware that answers unrouted GET and HEAD
// requests from a directory.
//
// It only acts when the response is a 404, so routes always win. A request
// for a directory serves its index.html. Paths escaping Root and, unless
// ShowHidden is set, hidden files are left as 404.
// HEAD gets the GET response; the connection writes only its head.
//
// Example:
//
//	app.Use(middleware.StaticWithConfig(middleware.StaticConfig{
//	    Fs:      afero.NewBasePathFs(afero.NewOsFs(), "/srv"),
//	    Root:    "/www",
//	    BaseURI: "/assets",
//	}))
func StaticWithConfig(config StaticConfig) core.Middleware {
	if config.Fs == nil {
		config.Fs = afero.NewOsFs()
	}
	root := filepath.Clean(config.Root)

	// base has no trailing slash; "/" becomes ""
	base := strings.TrimSuffix(config.BaseURI, "/")
	if base != "" && !strings.HasPrefix(base, "/") {
		base = "/" + base
	}

	return func(req *http11.Request, res *http11.Response) {
		if (req.Method != core.MethodGet && req.Method != core.MethodHead) || res.Status != http11.StatusNotFound {
			return
		}

		rel, ok := strings.CutPrefix(req.Path, base)
		if !ok || (rel != "" && !strings.HasPrefix(rel, "/")) {
			return
		}
		rel, ok = core.Decode(rel)
		if !ok {
			return
		}

		// Cleaning a rooted path drops every ".." that would climb above it
		clean := path.Clean("/" + rel)
		if !config.ShowHidden && hasHiddenSegment(clean) {
			return
		}

		name := filepath.Join(root, filepath.FromSlash(clean))
		if r, err := filepath.Rel(root, name); err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
			return
		}

		content, name, ok := readFile(config.Fs, name)
		if !ok {
			return
		}

		res.Status = http11.StatusOK
		_ = res.Header.Set(http11.HeaderContentType, contentType(name))
		res.SetBody(content)
	}
}

// readFile reads name, or name/index.html when name is a directory.
func readFile(fs afero.Fs, name string) ([]byte, string, bool) {
	info, err := fs.Stat(name)
	if err != nil {
		return nil, "", false
	}
	if info.IsDir() {
		name = filepath.Join(name, "index.html")
		if info, err = fs.Stat(name); err != nil {
			return nil, "", false
		}
	}
	if !info.Mode().IsRegular() {
		return nil, "", false
	}

	content, err := afero.ReadFile(fs, name)
	if err != nil {
		return nil, "", false
	}
	return content, name, true
}

func hasHiddenSegment(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

func contentType(name string) string {
	if ct, ok := knownContentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return defaultContentType
}
