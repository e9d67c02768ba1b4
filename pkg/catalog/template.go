package catalog

import (
	"fmt"
	"strings"
)

type templatePart interface {
	append(dst *strings.Builder, p Params)
}

type literalPart string

type datasetPart struct{}

type toolPart struct{}

func (l literalPart) append(dst *strings.Builder, _ Params) { dst.WriteString(string(l)) }

func (datasetPart) append(dst *strings.Builder, p Params) { dst.WriteString(p.Dataset) }

func (toolPart) append(dst *strings.Builder, p Params) { dst.WriteString(p.ToolPath) }

// Template is a compiled command template.
//
// Supported placeholders:
// - `{dataset}`: dataset file path
// - `{tool}`: tool installation path (e.g. weka.jar)
//
// Placeholders are substituted verbatim. Templates are expected to quote
// them so the rendered line can be split back into the same arguments.
type Template struct {
	text  string
	parts []templatePart
}

// Text returns the uncompiled template source.
func (t *Template) Text() string {
	return t.text
}

func (t *Template) render(p Params) string {
	var b strings.Builder
	for _, part := range t.parts {
		part.append(&b, p)
	}
	return b.String()
}

// CompileTemplate parses a template string with `{dataset}` and `{tool}`
// placeholders.
func CompileTemplate(text string) (*Template, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("template is empty")
	}
	if strings.ContainsAny(text, "\r\n") {
		return nil, fmt.Errorf("template must be a single line")
	}

	var parts []templatePart
	s := text
	for len(s) > 0 {
		open := strings.IndexByte(s, '{')
		if open == -1 {
			parts = append(parts, literalPart(s))
			break
		}
		if open > 0 {
			parts = append(parts, literalPart(s[:open]))
			s = s[open:]
		}

		closeIdx := strings.IndexByte(s, '}')
		if closeIdx == -1 {
			return nil, fmt.Errorf("unclosed placeholder in %q", text)
		}

		placeholder := s[1:closeIdx]
		s = s[closeIdx+1:]

		switch placeholder {
		case "dataset":
			parts = append(parts, datasetPart{})
		case "tool":
			parts = append(parts, toolPart{})
		default:
			return nil, fmt.Errorf("unsupported placeholder {%s}", placeholder)
		}
	}

	return &Template{text: text, parts: parts}, nil
}
