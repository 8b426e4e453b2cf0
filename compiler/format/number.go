package format

import (
	"strconv"
	"strings"

	"github.com/slowlang/lltrim/compiler/ir"
)

// numbering reassigns unnamed local slots (%0, %1, ...) in definition order,
// so the numbers stay dense after blocks were removed.
type numbering struct {
	slots map[string]string // nil if nothing moves

	entry string // slot of the unlabeled entry block
}

func numberFunc(f *ir.Func) (n numbering) {
	slots := map[string]string{}
	next := 0
	moved := false

	def := func(old string) {
		s := strconv.Itoa(next)
		next++

		slots[old] = s
		moved = moved || s != old
	}

	for _, x := range locals(f.Post) {
		if isNumber(x) {
			def(x)
		}
	}

	for _, b := range f.Blocks {
		switch {
		case b.Name == "":
			n.entry = strconv.Itoa(next)
			next++
		case isNumber(b.Name):
			def(b.Name)
		}

		for _, in := range b.Insts {
			if r, ok := result(in); ok && isNumber(r) {
				def(r)
			}
		}
	}

	if moved {
		n.slots = slots
	}

	return n
}

func (n numbering) name(x string) string {
	if s, ok := n.slots[x]; ok {
		return s
	}

	return x
}

func (n numbering) label(b *ir.Block) string {
	switch {
	case b.Name != "":
		return "%" + n.name(b.Name)
	case n.entry != "":
		return "%" + n.entry
	default:
		return b.Label()
	}
}

// rewrite replaces numbered locals in instruction text.
func (n numbering) rewrite(s string) string {
	if n.slots == nil || strings.IndexByte(s, '%') < 0 {
		return s
	}

	var b strings.Builder

	last := 0

	for i := 0; i < len(s); {
		switch s[i] {
		case '"':
			i = skipString(s, i)
			continue
		case '%':
		default:
			i++
			continue
		}

		j := i + 1
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}

		if j == i+1 || j < len(s) && isIdentChar(s[j]) {
			i = j
			continue
		}

		if to, ok := n.slots[s[i+1:j]]; ok {
			b.WriteString(s[last : i+1])
			b.WriteString(to)
			last = j
		}

		i = j
	}

	if last == 0 {
		return s
	}

	b.WriteString(s[last:])

	return b.String()
}

// result returns the name assigned by the instruction, if any.
func result(in ir.Inst) (string, bool) {
	var t string

	switch in := in.(type) {
	case *ir.Call:
		t = in.Pre
	case *ir.Other:
		t = in.Text
	default:
		return "", false
	}

	if !strings.HasPrefix(t, "%") {
		return "", false
	}

	end := 1
	if end < len(t) && t[end] == '"' {
		end = skipString(t, end)
	} else {
		for end < len(t) && isIdentChar(t[end]) {
			end++
		}
	}

	if rest := strings.TrimLeft(t[end:], " \t"); !strings.HasPrefix(rest, "=") {
		return "", false
	}

	return t[1:end], true
}

// locals lists %names in s in order.
func locals(s string) (r []string) {
	for i := 0; i < len(s); {
		switch s[i] {
		case '"':
			i = skipString(s, i)
			continue
		case '%':
		default:
			i++
			continue
		}

		j := i + 1
		for j < len(s) && isIdentChar(s[j]) {
			j++
		}

		r = append(r, s[i+1:j])
		i = j
	}

	return r
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}

	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}

func isIdentChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '-' || c == '$' || c == '.' || c == '_'
}

func skipString(s string, i int) int {
	j := strings.IndexByte(s[i+1:], '"')
	if j < 0 {
		return len(s)
	}

	return i + 1 + j + 1
}
