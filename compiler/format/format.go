package format

import (
	"context"
	"slices"
	"strings"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/slowlang/lltrim/compiler/ir"
)

// predsColumn is where LLVM puts "; preds" comments after block labels.
const predsColumn = 50

// Format appends module text to b.
// Runs of empty top-level lines, as left by removed functions, are printed as one.
func Format(ctx context.Context, b []byte, m *ir.Module) (_ []byte, err error) {
	blank := false

	for _, it := range m.Items {
		switch it := it.(type) {
		case *ir.Global:
			if it.Text == "" && blank {
				continue
			}

			blank = it.Text == ""

			b = append(b, it.Text...)
			b = append(b, '\n')
		case *ir.Func:
			blank = false

			b, err = formatFunc(ctx, b, it)
			if err != nil {
				return nil, errors.Wrap(err, "func @%v", it.Name)
			}
		default:
			return nil, errors.New("unsupported item: %T", it)
		}
	}

	return b, nil
}

func formatFunc(ctx context.Context, b []byte, f *ir.Func) (_ []byte, err error) {
	for _, l := range f.Doc {
		b = append(b, l...)
		b = append(b, '\n')
	}

	if f.Decl {
		return app(b, "declare%s@%s%s\n", f.Pre, f.Name, f.Post), nil
	}

	n := numberFunc(f)

	b = app(b, "define%s@%s%s {\n", f.Pre, f.Name, n.rewrite(f.Post))

	for i, bl := range f.Blocks {
		if i != 0 {
			b = append(b, '\n')
		}

		b = formatLabel(b, bl, n)

		for _, in := range bl.Insts {
			b = append(b, "  "...)

			b, err = appendInst(b, in, n)
			if err != nil {
				return nil, errors.Wrap(err, "block %v", bl.Label())
			}

			b = append(b, '\n')
		}
	}

	b = append(b, "}\n"...)

	return b, nil
}

func formatLabel(b []byte, bl *ir.Block, n numbering) []byte {
	if bl.Name == "" {
		return b
	}

	var preds []string

	for _, u := range bl.Users() {
		in, ok := u.(ir.Inst)
		if !ok || in.Block() == nil || !ir.IsTerm(in) {
			continue
		}

		l := n.label(in.Block())

		if !slices.Contains(preds, l) {
			preds = append(preds, l)
		}
	}

	st := len(b)

	b = app(b, "%s:", n.name(bl.Name))

	if len(preds) != 0 {
		if pad := predsColumn - (len(b) - st); pad > 0 {
			b = append(b, strings.Repeat(" ", pad)...)
		} else {
			b = append(b, ' ')
		}

		b = app(b, "; preds = %s", strings.Join(preds, ", "))
	}

	return append(b, '\n')
}

// AppendInst appends instruction text without indentation and newline.
func AppendInst(b []byte, in ir.Inst) ([]byte, error) {
	return appendInst(b, in, numbering{})
}

func appendInst(b []byte, in ir.Inst, n numbering) ([]byte, error) {
	switch in := in.(type) {
	case *ir.Call:
		if in.Callee == nil {
			return append(b, n.rewrite(in.Pre)...), nil
		}

		return app(b, "%s@%s%s", n.rewrite(in.Pre), in.Callee.Name, n.rewrite(in.Post)), nil
	case *ir.CondBr:
		return app(b, "br %s, label %s, label %s%s", n.rewrite(in.Cond), n.label(in.Then), n.label(in.Else), in.Suffix), nil
	case *ir.Br:
		return app(b, "br label %s%s", n.label(in.Dest), in.Suffix), nil
	case *ir.Ret:
		return append(b, n.rewrite(in.Text)...), nil
	case *ir.Unreachable:
		return app(b, "unreachable%s", in.Suffix), nil
	case *ir.Other:
		return append(b, n.rewrite(in.Text)...), nil
	default:
		return nil, errors.New("unsupported instruction: %T", in)
	}
}

func app(b []byte, f string, args ...any) []byte {
	return hfmt.Appendf(b, f, args...)
}
