package utils

import (
	"github.com/valyala/fasttemplate"
)

// RenderPath fills {name} placeholders in pattern. Unknown placeholders render empty.
func RenderPath(pattern string, vars map[string]string) string {
	values := make(map[string]any, len(vars))
	for k, v := range vars {
		values[k] = v
	}
	return fasttemplate.ExecuteString(pattern, "{", "}", values)
}
