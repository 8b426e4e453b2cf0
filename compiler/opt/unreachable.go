package opt

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/slowlang/lltrim/compiler/ir"
)

// SimplifyUnreachable turns conditional branches to unreachable blocks
// into unconditional branches to the other successor.
// Blocks which lost all their users this way are removed.
func SimplifyUnreachable(ctx context.Context, m *ir.Module) (st SimplifyStats) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "simplify unreachable predecessors")
	defer tr.Finish()

	var marked []*ir.Block

	for _, f := range m.Funcs() {
		if f.Decl {
			continue
		}

		for _, b := range f.Blocks {
			if _, ok := b.Term().(*ir.Unreachable); !ok {
				continue
			}

			n := simplifyUsers(ctx, b)
			if n == 0 {
				continue
			}

			st.Converted += n
			marked = append(marked, b)
		}
	}

	for _, b := range marked {
		if n := b.NUsers(); n != 0 {
			tr.Printw("unreachable block kept", "func", b.Func, "block", b, "users", n)

			st.Kept++
			continue
		}

		b.Func.RemoveBlock(b)
		st.Removed++
	}

	tr.Printw("unreachable predecessors simplified", "stats", st)

	return st
}

func simplifyUsers(ctx context.Context, b *ir.Block) (n int) {
	tr := tlog.SpanFromContext(ctx)

	for _, u := range b.Users() {
		switch u := u.(type) {
		case *ir.CondBr:
			at := u.Block()
			if at == nil { // both successors are b, already converted
				continue
			}

			succ := u.Then
			if succ == b {
				succ = u.Else
			}

			tr.V("unreachable_br").Printw("convert branch", "func", at.Func, "block", at, "unreachable", b, "succ", succ)

			at.InsertAfter(u, ir.NewBr(succ))
			at.Erase(u)

			n++
		default:
		}
	}

	return n
}
