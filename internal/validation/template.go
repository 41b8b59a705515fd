package validation

import (
	"regexp"
	"strings"
)

var (
	blockRe = regexp.MustCompile(`(?s)/\*\[(.+?)\]\*/`)
	bindRe  = regexp.MustCompile(`@([a-zA-Z_][a-zA-Z0-9_]*)`)
)

// RenderTemplate evaluates conditional template blocks in sql against the
// bound parameters.
//
// Blocks are delimited by /*[ ... ]*/. A block is included (without its
// delimiters) only when every bind variable it references is bound with a
// non-nil value. Blocks whose variables are absent are stripped entirely.
// Statements without template blocks pass through unchanged.
func RenderTemplate(sql string, bound *BoundParams) string {
	rendered := blockRe.ReplaceAllStringFunc(sql, func(block string) string {
		content := block[len("/*[") : len(block)-len("]*/")]
		refs := bindRe.FindAllStringSubmatch(content, -1)
		if len(refs) == 0 {
			return content
		}
		for _, ref := range refs {
			v, ok := bound.Get(ref[1])
			if !ok || v == nil {
				return ""
			}
		}
		return content
	})
	return strings.TrimSpace(rendered)
}
