package parse

import (
	"context"
	"os"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/lltrim/compiler/ir"
)

type (
	// Parser reads the textual IR subset the passes operate on.
	// Anything it doesn't model is kept as opaque text.
	Parser struct {
		name string

		items  []any // *rawFunc or *rawLine
		funcs  map[string]*ir.Func
		blocks map[string]map[string]*ir.Block // by function, for blockaddress
	}

	rawFunc struct {
		f    *ir.Func
		line int

		blocks []*rawBlock
	}

	rawBlock struct {
		b    *ir.Block
		line int

		insts []rawLine
	}

	rawLine struct {
		text string
		line int
	}

	lines struct {
		l []string
		i int
	}
)

func ParseFile(ctx context.Context, name string) (*ir.Module, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	return Parse(ctx, name, text)
}

func Parse(ctx context.Context, name string, text []byte) (m *ir.Module, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "parse", "name", name, "size", len(text))
	defer tr.Finish("err", &err)

	p := &Parser{
		name:   name,
		funcs:  make(map[string]*ir.Func),
		blocks: make(map[string]map[string]*ir.Block),
	}

	err = p.split(ctx, string(text))
	if err != nil {
		return nil, err
	}

	m, err = p.link(ctx)
	if err != nil {
		return nil, err
	}

	tr.Printw("module parsed", "items", len(m.Items), "funcs", len(p.funcs))

	return m, nil
}

// split groups lines into functions, blocks and top-level text.
func (p *Parser) split(ctx context.Context, text string) (err error) {
	ls := &lines{l: strings.Split(text, "\n")}

	if n := len(ls.l); n != 0 && ls.l[n-1] == "" {
		ls.l = ls.l[:n-1]
	}

	for ls.i < len(ls.l) {
		line := ls.i + 1
		s := strings.TrimRight(ls.l[ls.i], " \t\r")
		ls.i++

		t := strings.TrimSpace(s)

		switch {
		case strings.HasPrefix(t, "define") && !isIdentChar(at(t, 6)):
			doc := p.doc()

			var f *rawFunc

			f, err = p.function(ctx, ls, t, line)
			if err != nil {
				return err
			}

			f.f.Doc = doc

			p.items = append(p.items, f)
		case strings.HasPrefix(t, "declare") && !isIdentChar(at(t, 7)):
			doc := p.doc()

			f, err := p.header(stripComment(t[len("declare"):]), line)
			if err != nil {
				return err
			}

			f.Doc = doc

			p.items = append(p.items, &rawFunc{f: f, line: line})
		default:
			p.items = append(p.items, &rawLine{text: s, line: line})
		}
	}

	return nil
}

// doc takes comment lines directly above a function header,
// so they go away together with the function.
func (p *Parser) doc() (doc []string) {
	i := len(p.items)

	for i > 0 {
		l, ok := p.items[i-1].(*rawLine)
		if !ok || !strings.HasPrefix(l.text, ";") || strings.HasPrefix(l.text, "; ModuleID") {
			break
		}

		i--
	}

	for _, it := range p.items[i:] {
		doc = append(doc, it.(*rawLine).text)
	}

	p.items = p.items[:i]

	return doc
}

func (p *Parser) function(ctx context.Context, ls *lines, t string, line int) (rf *rawFunc, err error) {
	h := stripComment(t)

	for !strings.HasSuffix(h, "{") {
		if ls.i == len(ls.l) {
			return nil, p.errorf(line, "function header: '{' expected")
		}

		h += " " + stripComment(strings.TrimSpace(ls.l[ls.i]))
		ls.i++
	}

	h = strings.TrimSpace(strings.TrimSuffix(h, "{"))

	f, err := p.header(h[len("define"):], line)
	if err != nil {
		return nil, err
	}

	rf = &rawFunc{f: f, line: line}

	var cur *rawBlock

	for ls.i < len(ls.l) {
		line := ls.i + 1
		t := stripComment(strings.TrimSpace(ls.l[ls.i]))
		ls.i++

		if t == "" {
			continue
		}

		if t == "}" {
			if len(rf.blocks) == 0 {
				return nil, p.errorf(line, "function @%v: empty body", f.Name)
			}

			return rf, nil
		}

		if n, ok := label(t); ok {
			cur = &rawBlock{b: ir.NewBlock(n), line: line}
			rf.blocks = append(rf.blocks, cur)

			continue
		}

		for d := depth(t); d > 0 && ls.i < len(ls.l); d = depth(t) {
			t += "\n" + strings.TrimRight(stripComment(ls.l[ls.i]), " \t\r")
			ls.i++
		}

		if cur == nil {
			cur = &rawBlock{b: ir.NewBlock(""), line: line}
			rf.blocks = append(rf.blocks, cur)
		}

		cur.insts = append(cur.insts, rawLine{text: t, line: line})
	}

	return nil, p.errorf(rf.line, "function @%v: '}' expected", f.Name)
}

// header parses the part of define/declare after the keyword.
func (p *Parser) header(h string, line int) (*ir.Func, error) {
	st, end, _, ok := callee(h, 0)
	if !ok || h[st] != '@' {
		return nil, p.errorf(line, "function name expected")
	}

	n := h[st+1 : end]

	if _, dup := p.funcs[n]; dup {
		return nil, p.errorf(line, "function @%v redefined", n)
	}

	f := ir.NewFunc(n)
	f.Pre = h[:st]
	f.Post = h[end:]

	pre := strings.Fields(f.Pre)
	f.Void = len(pre) != 0 && pre[len(pre)-1] == "void"

	p.funcs[n] = f

	return f, nil
}

// link resolves names and builds the module.
func (p *Parser) link(ctx context.Context) (m *ir.Module, err error) {
	m = ir.NewModule(p.name)

	for _, it := range p.items {
		if rf, ok := it.(*rawFunc); ok {
			bs := make(map[string]*ir.Block, len(rf.blocks))

			for _, rb := range rf.blocks {
				bs[rb.b.Name] = rb.b
			}

			p.blocks[rf.f.Name] = bs
		}
	}

	for _, it := range p.items {
		switch it := it.(type) {
		case *rawLine:
			g := &ir.Global{Text: it.text}
			g.Refs = p.globalRefs(it.text)

			m.AppendGlobal(g)
		case *rawFunc:
			err = p.linkFunc(ctx, m, it)
			if err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}

func (p *Parser) linkFunc(ctx context.Context, m *ir.Module, rf *rawFunc) (err error) {
	f := rf.f

	f.Refs = p.globalRefs(f.Post)

	blocks := make(map[string]*ir.Block, len(rf.blocks))

	for _, rb := range rf.blocks {
		if _, dup := blocks[rb.b.Name]; dup {
			return p.errorf(rb.line, "function @%v: label %%%v redefined", f.Name, rb.b.Name)
		}

		blocks[rb.b.Name] = rb.b
		f.AppendBlock(rb.b)
	}

	m.AppendFunc(f)

	for _, rb := range rf.blocks {
		if len(rb.insts) == 0 {
			return p.errorf(rb.line, "block %v: no instructions", rb.b.Label())
		}

		for i, l := range rb.insts {
			in, err := p.inst(l.text, blocks)
			if err != nil {
				return p.wrapf(err, l.line, "function @%v", f.Name)
			}

			if ir.IsTerm(in) && i != len(rb.insts)-1 {
				return p.errorf(l.line, "block %v: terminator in the middle", rb.b.Label())
			}

			rb.b.Append(in)
		}

		if !ir.IsTerm(rb.b.Term()) {
			return p.errorf(rb.line, "block %v: terminator expected at the end", rb.b.Label())
		}
	}

	return nil
}

func (p *Parser) globalRefs(s string) []ir.Value {
	return p.refs(s, nil)
}

// refs resolves functions, labels of the current function and blockaddress operands named in s.
func (p *Parser) refs(s string, blocks map[string]*ir.Block) (r []ir.Value) {
	gs, ls, as := refs(s)

	for _, n := range gs {
		if f, ok := p.funcs[n]; ok {
			r = append(r, f)
		}
	}

	for _, n := range ls {
		if b, ok := blocks[n]; ok {
			r = append(r, b)
		}
	}

	for _, a := range as {
		if b, ok := p.blocks[a.fn][a.label]; ok {
			r = append(r, b)
		}
	}

	return r
}

func (p *Parser) errorf(line int, format string, args ...any) error {
	return errors.New("%v:%d: "+format, append([]any{p.name, line}, args...)...)
}

func (p *Parser) wrapf(err error, line int, format string, args ...any) error {
	return errors.Wrap(err, "%v:%d: "+format, append([]any{p.name, line}, args...)...)
}

func at(s string, i int) byte {
	if i < len(s) {
		return s[i]
	}

	return ' '
}
