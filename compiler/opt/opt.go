package opt

import (
	"context"

	"tlog.app/go/tlog"
	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/lltrim/compiler/ir"
)

type (
	Options struct {
		Collapse bool
		Simplify bool

		// Keep names dispatchers which are never deleted, even with no callers left.
		Keep []string
	}

	Stats struct {
		Collapse CollapseStats
		Simplify SimplifyStats
	}

	CollapseStats struct {
		Resolved   int
		Retargeted int
		Removed    int
	}

	SimplifyStats struct {
		Converted int
		Removed   int
		Kept      int
	}
)

func DefaultOptions() Options {
	return Options{
		Collapse: true,
		Simplify: true,
		Keep:     []string{"main"},
	}
}

// Run collapses dispatch chains and then simplifies branches to unreachable blocks.
// The order matters: removed dispatchers must not be scanned for unreachable blocks.
func Run(ctx context.Context, m *ir.Module, opts Options) (st Stats) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "opt", "module", m.Name)
	defer tr.Finish()

	if opts.Collapse {
		st.Collapse = Collapse(ctx, m, opts.Keep)
	}

	if opts.Simplify {
		st.Simplify = SimplifyUnreachable(ctx, m)
	}

	tr.Printw("module optimized", "collapse", st.Collapse, "simplify", st.Simplify)

	return st
}

func (s CollapseStats) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 3)
	b = e.AppendKeyInt(b, "resolved", s.Resolved)
	b = e.AppendKeyInt(b, "retargeted", s.Retargeted)
	b = e.AppendKeyInt(b, "removed", s.Removed)

	return b
}

func (s SimplifyStats) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 3)
	b = e.AppendKeyInt(b, "converted", s.Converted)
	b = e.AppendKeyInt(b, "removed", s.Removed)
	b = e.AppendKeyInt(b, "kept", s.Kept)

	return b
}
