package domain

import (
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_.]*)\s*\}\}`)

// Render replaces each {{ name }} whose name is present in vars with its value in a single pass.
// Unknown placeholders are kept verbatim and nothing is HTML-escaped. The output never contains
// a placeholder for a name in vars, including one formed across a substitution boundary.
func Render(template string, vars map[string]string) string {
	if len(vars) == 0 || !strings.Contains(template, "{{") {
		return template
	}

	matches := placeholderPattern.FindAllStringSubmatchIndex(template, -1)
	if len(matches) == 0 {
		return template
	}

	var b strings.Builder
	b.Grow(len(template))
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		name := template[m[2]:m[3]]
		value, ok := vars[name]
		if !ok {
			continue
		}

		b.WriteString(template[last:start])
		value = collapseDelimiters(value)
		if strings.HasPrefix(value, "{") && endsWith(&b, '{') {
			value = value[1:]
		}
		if strings.HasPrefix(value, "}") && endsWith(&b, '}') {
			value = value[1:]
		}
		if end < len(template) {
			next := template[end]
			if (next == '{' || next == '}') && strings.HasSuffix(value, string(next)) {
				value = value[:len(value)-1]
			}
		}
		b.WriteString(value)
		last = end
	}
	b.WriteString(template[last:])
	return breakRecognized(b.String(), vars)
}

// breakRecognized drops the leading brace of any placeholder for a known name until none remain.
// Template text between substitutions holds no such placeholder, so every hit spans a value.
func breakRecognized(out string, vars map[string]string) string {
	for {
		at := -1
		for _, m := range placeholderPattern.FindAllStringSubmatchIndex(out, -1) {
			if _, ok := vars[out[m[2]:m[3]]]; ok {
				at = m[0]
				break
			}
		}
		if at < 0 {
			return out
		}
		out = out[:at] + out[at+1:]
	}
}

// Placeholders lists the distinct placeholder names in template, in order of appearance.
func Placeholders(template string) []string {
	seen := map[string]struct{}{}
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}

func collapseDelimiters(value string) string {
	for strings.Contains(value, "{{") || strings.Contains(value, "}}") {
		value = strings.ReplaceAll(value, "{{", "{")
		value = strings.ReplaceAll(value, "}}", "}")
	}
	return value
}

func endsWith(b *strings.Builder, c byte) bool {
	s := b.String()
	return len(s) > 0 && s[len(s)-1] == c
}

// MergeVars combines variable sets; later sets win.
func MergeVars(sets ...map[string]string) map[string]string {
	out := map[string]string{}
	for _, set := range sets {
		for k, v := range set {
			out[k] = v
		}
	}
	return out
}
