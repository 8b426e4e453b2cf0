package parse

import (
	"strings"

	"tlog.app/go/errors"

	"github.com/slowlang/lltrim/compiler/ir"
)

func (p *Parser) inst(t string, blocks map[string]*ir.Block) (ir.Inst, error) {
	op, i := opcode(t)

	switch op {
	case "call":
		return p.call(t, i), nil
	case "br":
		return p.br(t, i, blocks)
	case "ret":
		return &ir.Ret{Text: t, Refs: p.globalRefs(t)}, nil
	case "unreachable":
		return &ir.Unreachable{Suffix: t[i:]}, nil
	case "":
		return nil, errors.New("instruction expected: %q", t)
	}

	return &ir.Other{Op: op, Text: t, Refs: p.refs(t, blocks)}, nil
}

// opcode returns instruction opcode skipping result assignment.
// tail, musttail and notail call markers are folded into "call".
func opcode(t string) (op string, i int) {
	if strings.HasPrefix(t, "%") {
		_, i = name(t, 0)
		i = skipSpaces(t, i)

		if i == len(t) || t[i] != '=' {
			return "", i
		}

		i++
	}

	op, i = word(t, i)

	switch op {
	case "tail", "musttail", "notail":
		if w, j := word(t, i); w == "call" {
			return w, j
		}
	}

	return op, i
}

func (p *Parser) call(t string, i int) *ir.Call {
	st, end, asm, ok := callee(t, i)

	switch {
	case asm:
		return &ir.Call{Kind: ir.CallAsm, Pre: t, Refs: p.globalRefs(t)}
	case !ok || t[st] != '@':
		return &ir.Call{Kind: ir.CallIndirect, Pre: t, Refs: p.globalRefs(t)}
	}

	f, ok := p.funcs[t[st+1:end]]
	if !ok {
		return &ir.Call{Kind: ir.CallIndirect, Pre: t, Refs: p.globalRefs(t)}
	}

	return &ir.Call{
		Kind:   ir.CallDirect,
		Callee: f,
		Pre:    t[:st],
		Post:   t[end:],
		Refs:   p.globalRefs(t[end:]),
	}
}

func (p *Parser) br(t string, i int, blocks map[string]*ir.Block) (_ ir.Inst, err error) {
	s := strings.TrimSpace(t[i:])

	if w, j := word(s, 0); w == "label" {
		var dest *ir.Block

		dest, j, err = target(s, j, blocks)
		if err != nil {
			return nil, err
		}

		return &ir.Br{Dest: dest, Suffix: s[j:]}, nil
	}

	c := strings.Index(s, ", label ")
	if c < 0 {
		return nil, errors.New("br: label expected: %q", t)
	}

	br := &ir.CondBr{Cond: s[:c]}

	_, j := word(s, c+1)

	br.Then, j, err = target(s, j, blocks)
	if err != nil {
		return nil, errors.Wrap(err, "true target")
	}

	j = skipSpaces(s, j)
	if j == len(s) || s[j] != ',' {
		return nil, errors.New("br: second label expected: %q", t)
	}

	w, k := word(s, j+1)
	if w != "label" {
		return nil, errors.New("br: second label expected: %q", t)
	}

	br.Else, j, err = target(s, k, blocks)
	if err != nil {
		return nil, errors.Wrap(err, "false target")
	}

	br.Suffix = s[j:]

	return br, nil
}

func target(s string, i int, blocks map[string]*ir.Block) (b *ir.Block, end int, err error) {
	i = skipSpaces(s, i)

	if i == len(s) || s[i] != '%' {
		return nil, i, errors.New("label expected")
	}

	n, end := name(s, i)

	b, ok := blocks[n]
	if !ok {
		return nil, end, errors.New("undefined label %%%v", n)
	}

	return b, end, nil
}

// callee finds the called value: the first @name or %name followed by an argument list.
// Types, function types and attributes before it are skipped.
func callee(s string, i int) (st, end int, asm, ok bool) {
	for i < len(s) {
		switch c := s[i]; {
		case c == '"':
			i = skipString(s, i)
		case isOpen(c):
			i = skipGroup(s, i)
		case c == '@' || c == '%':
			st = i
			_, end = name(s, i)

			if end < len(s) && s[end] == '(' {
				return st, end, false, true
			}

			i = end
		case isIdentChar(c):
			var w string
			w, i = word(s, i)

			if w == "asm" {
				return 0, 0, true, false
			}
		default:
			i++
		}
	}

	return 0, 0, false, false
}
