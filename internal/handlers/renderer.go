package handlers

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin/render"
)

// Pages rendered through base.html.
var Pages = []string{"home.html", "detail.html", "inquiry.html", "login.html", "admin.html"}

// HTMLRenderer keeps one template set per page, each parsed with the shared layout.
type HTMLRenderer struct {
	Templates map[string]*template.Template
}

// NewHTMLRenderer parses every page of Pages together with base.html from fsys.
func NewHTMLRenderer(fsys fs.FS) (*HTMLRenderer, error) {
	templates := make(map[string]*template.Template, len(Pages))
	for _, name := range Pages {
		tmpl, err := template.New(name).Funcs(TemplateFuncs).ParseFS(fsys, name, "base.html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		templates[name] = tmpl
	}
	return &HTMLRenderer{Templates: templates}, nil
}

// Instance implements render.HTMLRender.
func (r *HTMLRenderer) Instance(name string, data interface{}) render.Render {
	return render.HTML{
		Template: r.Templates[name],
		Name:     name,
		Data:     data,
	}
}

// Render writes the named page directly to w.
func (r *HTMLRenderer) Render(w http.ResponseWriter, code int, data ...interface{}) error {
	name := data[0].(string)
	instance := r.Instance(name, data[1])
	instance.WriteContentType(w)
	w.WriteHeader(code)
	return instance.Render(w)
}
