package parse

import "strings"

func skipSpaces(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}

	return i
}

func isIdentChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '-' || c == '$' || c == '.' || c == '_'
}

func skipIdent(s string, i int) int {
	for i < len(s) && isIdentChar(s[i]) {
		i++
	}

	return i
}

// skipString skips a quoted string starting at s[i] == '"'.
// It returns len(s) if the string is not terminated.
func skipString(s string, i int) int {
	j := strings.IndexByte(s[i+1:], '"')
	if j < 0 {
		return len(s)
	}

	return i + 1 + j + 1
}

func isOpen(c byte) bool  { return c == '(' || c == '[' || c == '{' || c == '<' }
func isClose(c byte) bool { return c == ')' || c == ']' || c == '}' || c == '>' }

// skipGroup skips a bracketed group starting at an opening bracket s[i].
func skipGroup(s string, i int) int {
	d := 0

	for i < len(s) {
		switch c := s[i]; {
		case c == '"':
			i = skipString(s, i)
			continue
		case isOpen(c):
			d++
		case isClose(c):
			d--
		}

		i++

		if d == 0 {
			break
		}
	}

	return i
}

// depth returns bracket nesting depth at the end of s.
func depth(s string) (d int) {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"':
			i = skipString(s, i) - 1
		case c == ';':
			return d
		case isOpen(c):
			d++
		case isClose(c):
			d--
		}
	}

	return d
}

// name reads a global or local name at s[i] == '@' or '%'.
// The result excludes the sigil and keeps quotes of quoted names.
func name(s string, i int) (n string, end int) {
	st := i + 1

	if st < len(s) && s[st] == '"' {
		end = skipString(s, st)
	} else {
		end = skipIdent(s, st)
	}

	return s[st:end], end
}

func word(s string, i int) (w string, end int) {
	i = skipSpaces(s, i)
	end = skipIdent(s, i)

	return s[i:end], end
}

func stripComment(s string) string {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			i = skipString(s, i) - 1
		case ';':
			return strings.TrimRight(s[:i], " \t")
		}
	}

	return strings.TrimRight(s, " \t")
}

// label parses a block label definition line: "name:" or "\"name\":".
func label(s string) (n string, ok bool) {
	var end int

	switch {
	case s == "":
		return "", false
	case s[0] == '"':
		end = skipString(s, 0)
	default:
		end = skipIdent(s, 0)
	}

	if end == 0 || end >= len(s) || s[end] != ':' {
		return "", false
	}

	if rest := stripComment(s[end+1:]); strings.TrimSpace(rest) != "" {
		return "", false
	}

	return s[:end], true
}

type blockAddr struct {
	fn, label string
}

// refs collects @names, "label %name" and blockaddress(@f, %name) references in opaque text.
func refs(s string) (globals, labels []string, addrs []blockAddr) {
	for i := 0; i < len(s); {
		switch c := s[i]; {
		case c == '"':
			i = skipString(s, i)
		case c == ';':
			return
		case c == '@':
			var n string
			n, i = name(s, i)

			globals = append(globals, n)
		case isIdentChar(c):
			var w string
			w, i = word(s, i)

			if w == "blockaddress" {
				if a, ok := blockAddress(s, i); ok {
					addrs = append(addrs, a)
				}

				continue
			}

			if w != "label" {
				continue
			}

			j := skipSpaces(s, i)
			if j < len(s) && s[j] == '%' {
				var n string
				n, i = name(s, j)

				labels = append(labels, n)
			}
		default:
			i++
		}
	}

	return
}

// blockAddress parses "(@f, %bb)" at s[i:].
func blockAddress(s string, i int) (a blockAddr, ok bool) {
	i = skipSpaces(s, i)
	if i == len(s) || s[i] != '(' {
		return a, false
	}

	i = skipSpaces(s, i+1)
	if i == len(s) || s[i] != '@' {
		return a, false
	}

	a.fn, i = name(s, i)

	i = skipSpaces(s, i)
	if i == len(s) || s[i] != ',' {
		return a, false
	}

	i = skipSpaces(s, i+1)
	if i == len(s) || s[i] != '%' {
		return a, false
	}

	a.label, _ = name(s, i)

	return a, true
}
