// Package render turns a template name and its data into the HTML and plain
// text bodies of an email. Templates are embedded, compiled once and checked
// against a declared field list.
package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	nethtml "golang.org/x/net/html"
)

// Render errors.
var (
	ErrUnknownTemplate = errors.New("unknown template")
	ErrUnknownField    = errors.New("unknown template field")
	ErrCompile         = errors.New("template compile error")
)

//go:embed templates/*.html
var templateFS embed.FS

// Output is a rendered email body.
type Output struct {
	HTML string
	Text string
}

// Renderer holds the compiled templates. It is safe for concurrent use.
type Renderer struct {
	programs map[TemplateName]*program
}

// New compiles every embedded template.
func New() (*Renderer, error) {
	r := &Renderer{programs: make(map[TemplateName]*program, len(schemas))}
	for name, fields := range schemas {
		src, err := templateFS.ReadFile("templates/" + string(name) + ".html")
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCompile, name, err)
		}
		prog, err := compile(name, string(src), fields)
		if err != nil {
			return nil, err
		}
		r.programs[name] = prog
	}
	return r, nil
}

// Validate checks that name is a known template and data only uses declared fields.
func (r *Renderer) Validate(name TemplateName, data map[string]any) error {
	_, err := r.lookup(name, data)
	return err
}

// Render produces the HTML and text bodies for name with data. Declared fields
// missing from data render as empty; undeclared keys are an error.
func (r *Renderer) Render(name TemplateName, data map[string]any) (*Output, error) {
	prog, err := r.lookup(name, data)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	for _, n := range prog.nodes {
		writeNode(&buf, n, data)
	}

	out := buf.String()
	return &Output{HTML: out, Text: toText(out)}, nil
}

func (r *Renderer) lookup(name TemplateName, data map[string]any) (*program, error) {
	prog, ok := r.programs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}

	var unknown []string
	for key := range data {
		if !prog.fields[key] {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: %s does not declare %s", ErrUnknownField, name, strings.Join(unknown, ", "))
	}
	return prog, nil
}

func writeNode(buf *bytes.Buffer, n node, data map[string]any) {
	switch n.kind {
	case textNode:
		buf.WriteString(n.text)
	case fieldNode:
		v := format(data[n.key])
		if !n.raw {
			v = html.EscapeString(v)
		}
		buf.WriteString(v)
	case ifNode:
		if truthy(data[n.key]) {
			for _, c := range n.children {
				writeNode(buf, c, data)
			}
		}
	}
}

// format renders a template value as text. Integral floats, as produced by
// JSON decoding, print without a fraction.
func format(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// truthy follows the usual template conventions: nil, false, zero numbers and
// empty strings, slices and maps are false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// toText extracts the visible text of an HTML document and collapses whitespace.
func toText(doc string) string {
	z := nethtml.NewTokenizer(strings.NewReader(doc))
	var words []string
	skip := 0

	for {
		switch z.Next() {
		case nethtml.ErrorToken:
			return strings.Join(words, " ")
		case nethtml.StartTagToken:
			if hidden(z) {
				skip++
			}
		case nethtml.EndTagToken:
			if hidden(z) && skip > 0 {
				skip--
			}
		case nethtml.TextToken:
			if skip == 0 {
				words = append(words, strings.Fields(string(z.Text()))...)
			}
		}
	}
}

func hidden(z *nethtml.Tokenizer) bool {
	name, _ := z.TagName()
	switch string(name) {
	case "style", "script", "head":
		return true
	}
	return false
}
