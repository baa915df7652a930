package document

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	pointerUnescaper = strings.NewReplacer("~1", "/", "~0", "~")
	pointerEscaper   = strings.NewReplacer("~", "~0", "/", "~1")
)

// ParsePointer splits an RFC 6901 JSON pointer into its unescaped reference
// tokens. The empty pointer refers to the whole document and yields no
// tokens.
func ParsePointer(pointer string) ([]string, error) {
	if pointer == "" {
		return nil, nil
	}
	if !strings.HasPrefix(pointer, "/") {
		return nil, fmt.Errorf("invalid JSON pointer %q: must start with /", pointer)
	}
	parts := strings.Split(pointer[1:], "/")
	for i, part := range parts {
		parts[i] = pointerUnescaper.Replace(part)
	}
	return parts, nil
}

// FormatPointer joins reference tokens into a JSON pointer.
func FormatPointer(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, token := range tokens {
		sb.WriteByte('/')
		sb.WriteString(pointerEscaper.Replace(token))
	}
	return sb.String()
}

// AppendPointer returns pointer extended by a single reference token.
func AppendPointer(pointer, token string) string {
	return pointer + "/" + pointerEscaper.Replace(token)
}

// HasPointerPrefix reports whether the pointer identified by tokens equals
// prefix or lies below it.
func HasPointerPrefix(tokens, prefix []string) bool {
	if len(prefix) > len(tokens) {
		return false
	}
	for i := range prefix {
		if tokens[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Get returns the node a JSON pointer refers to.
func Get(n *Node, pointer string) (*Node, bool) {
	tokens, err := ParsePointer(pointer)
	if err != nil {
		return nil, false
	}
	cur := resolve(n)
	for _, token := range tokens {
		if cur == nil {
			return nil, false
		}
		switch cur.Kind {
		case yaml.MappingNode:
			i := keyIndex(cur, token)
			if i < 0 {
				return nil, false
			}
			cur = resolve(cur.Content[i+1])
		case yaml.SequenceNode:
			idx, err := strconv.Atoi(token)
			if err != nil || idx < 0 || idx >= len(cur.Content) {
				return nil, false
			}
			cur = resolve(cur.Content[idx])
		default:
			return nil, false
		}
	}
	return cur, cur != nil
}

func isIndexToken(token string) bool {
	if token == "-" {
		return true
	}
	if token == "" {
		return false
	}
	for _, r := range token {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
