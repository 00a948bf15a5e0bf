package views

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"github.com/Masterminds/sprig/v3"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
)

//go:embed templates
var viewsFS embed.FS

// APIBase is the prefix shared by every data route.
const APIBase = "/api/v1.0/"

// homePage is the rendered, minified GET / body.
var homePage []byte

// Route is one entry in the home page route list.
type Route struct {
	Path        string
	Description string
}

type HomeData struct {
	Title   string
	APIBase string
	Routes  []Route
}

// Home is the static content of GET /.
var Home = HomeData{
	Title:   "Hawaii Climate Analysis API",
	APIBase: APIBase,
	Routes: []Route{
		{Path: "precipitation", Description: "Precipitation for the last 12 months of data, keyed by date."},
		{Path: "stations", Description: "All weather station ids."},
		{Path: "tobs", Description: "Histogram of the last 12 months of temperature observations at the most active station, as a base64 PNG."},
		{Path: "<start>", Description: "Min, avg and max temperature from start (YYYY-MM-DD) onward."},
		{Path: "<start>/<end>", Description: "Min, avg and max temperature between start and end, inclusive."},
	},
}

// loadTemplatesFromFS parses templates from the given fs and dir and renders
// the home page once, minified. Used by LoadTemplates and by tests to
// simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	tmpl, err := template.New("").Funcs(sprig.FuncMap()).ParseFS(sub, "*.html")
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "home.html", Home); err != nil {
		return fmt.Errorf("render home: %w", err)
	}
	page, err := minifyHTML(buf.Bytes())
	if err != nil {
		return fmt.Errorf("minify home: %w", err)
	}

	homePage = page
	return nil
}

// LoadTemplates loads embedded templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

func minifyHTML(b []byte) ([]byte, error) {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	return m.Bytes("text/html", b)
}

// RenderHome writes the pre-rendered home page.
func RenderHome(w io.Writer) error {
	if homePage == nil {
		return errors.New("home template not loaded: call views.LoadTemplates during startup")
	}
	_, err := w.Write(homePage)
	return err
}
