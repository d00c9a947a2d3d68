// Package autoreply decides which scripted reply, if any, a DM thread is due.
//
// Everything here is pure: the engine keeps no state between calls and
// re-derives the conversation stage from the history it is handed.
package autoreply

import "regexp"

var placeholderPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// RenderTemplate substitutes {{name}} placeholders in body with vars.
// Unknown placeholders are left untouched so typos stay visible.
func RenderTemplate(body string, vars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(body, func(token string) string {
		name := token[2 : len(token)-2]
		if v, ok := vars[name]; ok {
			return v
		}
		return token
	})
}
