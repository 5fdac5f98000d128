package handlers

import (
	"html/template"
	"strings"

	"oahushop/internal/services"
)

// TemplateFuncs are available to every page template.
var TemplateFuncs = template.FuncMap{
	"markdown": services.RenderMarkdown,
	"add": func(a, b int) int {
		return a + b
	},
	"lines": func(s string) []string {
		return strings.Split(s, "\n")
	},
	"ms": func(seconds int) int {
		return seconds * 1000
	},
	"checked": func(b bool) template.HTMLAttr {
		if b {
			return "checked"
		}
		return ""
	},
}
