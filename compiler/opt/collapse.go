package opt

import (
	"context"
	"slices"

	"nikand.dev/go/heap"
	"tlog.app/go/tlog"

	"github.com/slowlang/lltrim/compiler/ir"
)

type (
	// Resolution maps a dispatcher to the function its call chain ends in.
	Resolution map[*ir.Func]*ir.Func

	resolver struct {
		res Resolution

		// functions being resolved down the stack
		active map[*ir.Func]bool
	}

	rewrite struct {
		d     *ir.Func
		final *ir.Func
		pos   int
	}
)

// Collapse redirects calls of dispatchers to the end of their chains
// and deletes dispatchers which are no longer used.
func Collapse(ctx context.Context, m *ir.Module, keep []string) (st CollapseStats) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "collapse dispatch chains")
	defer tr.Finish()

	res := Resolve(ctx, m)
	st.Resolved = len(res)

	pos := make(map[*ir.Func]int)

	for i, f := range m.Funcs() {
		pos[f] = i
	}

	q := heap.Heap[rewrite]{Less: rewriteLess}

	for d, final := range res {
		q.Push(rewrite{d: d, final: final, pos: pos[d]})
	}

	for q.Len() != 0 {
		rw := q.Pop()

		for _, u := range rw.d.Users() {
			c, ok := u.(*ir.Call)
			if !ok || c.Callee != rw.d {
				continue
			}

			tr.V("collapse_retarget").Printw("retarget call", "in", c.Block().Func, "block", c.Block(), "from", rw.d, "to", rw.final)

			c.SetCallee(rw.final)
			st.Retargeted++
		}

		if n := rw.d.NUsers(); n != 0 || slices.Contains(keep, rw.d.Name) {
			tr.Printw("dispatcher kept", "func", rw.d, "users", n)
			continue
		}

		m.RemoveFunc(rw.d)
		st.Removed++
	}

	tr.Printw("dispatch chains collapsed", "stats", st)

	return st
}

// Resolve finds the final function of every dispatcher chain in the module.
// Cyclic chains are not resolved.
func Resolve(ctx context.Context, m *ir.Module) Resolution {
	r := &resolver{
		res:    make(Resolution),
		active: make(map[*ir.Func]bool),
	}

	for _, f := range m.Funcs() {
		if _, ok := r.res[f]; ok {
			continue
		}

		r.resolve(nil, f)
	}

	if tr := tlog.SpanFromContext(ctx); tr.If("collapse_dump") {
		for _, f := range m.Funcs() {
			if final, ok := r.res[f]; ok {
				tr.Printw("dispatcher", "func", f, "final", final)
			}
		}
	}

	return r.res
}

// resolve returns the function f forwards to.
// For a callee which is not a dispatcher it's the callee itself,
// for a top-level request it's nil.
func (r *resolver) resolve(caller, f *ir.Func) *ir.Func {
	if final, ok := r.res[f]; ok {
		return final
	}

	if r.active[f] {
		return nil
	}

	if IsDispatcher(f) {
		r.active[f] = true
		defer delete(r.active, f)

		var final *ir.Func
		calls := false

		for _, in := range f.Blocks[0].Insts {
			c, ok := in.(*ir.Call)
			if !ok || c.Kind != ir.CallDirect {
				continue
			}

			calls = true
			final = r.resolve(f, c.Callee)
		}

		if final != nil && final != f {
			r.res[f] = final
			return final
		}

		if calls {
			return nil
		}
	}

	if caller != nil {
		return f
	}

	return nil
}

// IsDispatcher reports whether f has the shape of a dispatcher:
// void function of one block holding calls and a final ret, two instructions at most.
func IsDispatcher(f *ir.Func) bool {
	if f.Decl || !f.Void || len(f.Blocks) != 1 {
		return false
	}

	insts := f.Blocks[0].Insts

	if len(insts) > 2 {
		return false
	}

	for i, in := range insts {
		switch in.(type) {
		case *ir.Call:
		case *ir.Ret:
			if i != len(insts)-1 {
				return false
			}
		default:
			return false
		}
	}

	return true
}

func rewriteLess(d []rewrite, i, j int) bool {
	return d[i].pos < d[j].pos
}
