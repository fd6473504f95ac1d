// internal/view/uahelpers.go
//
// User-Agent template helpers, keyed off the Page's ua.Info:
//
//	{{ browser .UA }} {{ device .UA }}
//	{{ if isBot .UA }}…{{ end }}
package view

import (
	"html/template"

	"github.com/yanizio/storefront/internal/ua"
)

func uaFuncMap() template.FuncMap {
	return template.FuncMap{
		"browser":  func(u ua.Info) string { return u.Browser },
		"os":       func(u ua.Info) string { return u.OS },
		"device":   func(u ua.Info) string { return u.Device },
		"isBot":    func(u ua.Info) bool { return u.IsBot },
		"isMobile": func(u ua.Info) bool { return u.Device == "Mobile" },
	}
}
