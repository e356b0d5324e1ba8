package render

import (
	"fmt"
	"strings"
)

type nodeKind int

const (
	textNode nodeKind = iota
	fieldNode
	ifNode
)

// node is one compiled template element. ifNode holds its body in children;
// blocks do not nest.
type node struct {
	kind     nodeKind
	text     string
	key      string
	raw      bool
	children []node
}

// program is a compiled template.
type program struct {
	name   TemplateName
	nodes  []node
	fields map[string]bool
}

// compile parses src and checks every referenced key against the declared fields.
func compile(name TemplateName, src string, declared []string) (*program, error) {
	fields := make(map[string]bool, len(declared))
	for _, f := range declared {
		fields[f] = true
	}

	var top []node
	var block *node
	blockAt := 0

	emit := func(n node) {
		if block != nil {
			block.children = append(block.children, n)
		} else {
			top = append(top, n)
		}
	}
	lineOf := func(pos int) int { return strings.Count(src[:pos], "\n") + 1 }

	rest := src
	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			if rest != "" {
				emit(node{kind: textNode, text: rest})
			}
			break
		}
		if open > 0 {
			emit(node{kind: textNode, text: rest[:open]})
		}

		closeIdx := strings.Index(rest[open:], "}}")
		pos := len(src) - len(rest) + open
		if closeIdx < 0 {
			return nil, fmt.Errorf("%w: %s line %d: unterminated tag", ErrCompile, name, lineOf(pos))
		}
		tag := strings.TrimSpace(rest[open+2 : open+closeIdx])
		rest = rest[open+closeIdx+2:]

		switch {
		case strings.HasPrefix(tag, "#if "):
			key := strings.TrimSpace(strings.TrimPrefix(tag, "#if "))
			if block != nil {
				return nil, fmt.Errorf("%w: %s line %d: nested {{#if}} blocks are not supported",
					ErrCompile, name, lineOf(pos))
			}
			if !fields[key] {
				return nil, fmt.Errorf("%w: %s line %d: %q", ErrUnknownField, name, lineOf(pos), key)
			}
			block = &node{kind: ifNode, key: key}
			blockAt = pos
		case tag == "/if":
			if block == nil {
				return nil, fmt.Errorf("%w: %s line %d: {{/if}} without {{#if}}", ErrCompile, name, lineOf(pos))
			}
			top = append(top, *block)
			block = nil
		case tag == "else" || strings.HasPrefix(tag, "else "):
			return nil, fmt.Errorf("%w: %s line %d: {{%s}} is not supported", ErrCompile, name, lineOf(pos), tag)
		case isIdentifier(tag):
			if !fields[tag] {
				return nil, fmt.Errorf("%w: %s line %d: %q", ErrUnknownField, name, lineOf(pos), tag)
			}
			emit(node{kind: fieldNode, key: tag, raw: rawFields[tag]})
		default:
			return nil, fmt.Errorf("%w: %s line %d: unsupported tag {{%s}}", ErrCompile, name, lineOf(pos), tag)
		}
	}

	if block != nil {
		return nil, fmt.Errorf("%w: %s line %d: unclosed {{#if %s}}", ErrCompile, name, lineOf(blockAt), block.key)
	}

	return &program{name: name, nodes: top, fields: fields}, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
