package ir

import (
	"tlog.app/go/loc"
	"tlog.app/go/tlog"
)

func (m *Module) AppendFunc(f *Func) {
	link(f)
	f.Module = m
	m.Items = append(m.Items, f)
}

func (m *Module) AppendGlobal(g *Global) {
	link(g)
	m.Items = append(m.Items, g)
}

// Funcs returns module functions in order.
// The slice is a copy and may be iterated while functions are removed.
func (m *Module) Funcs() (fs []*Func) {
	for _, it := range m.Items {
		if f, ok := it.(*Func); ok {
			fs = append(fs, f)
		}
	}

	return fs
}

func (m *Module) Func(name string) *Func {
	for _, it := range m.Items {
		if f, ok := it.(*Func); ok && f.Name == name {
			return f
		}
	}

	return nil
}

// RemoveFunc deletes the function and drops references made from its body.
// The function must have no users.
func (m *Module) RemoveFunc(f *Func) {
	if f.Module != m {
		panic("function is not in the module")
	}

	if f.NUsers() != 0 {
		panic("remove function with users: @" + f.Name)
	}

	tlog.V("ir_edit").Printw("remove func", "func", f, "from", loc.Caller(1))

	for _, b := range f.Blocks {
		for _, in := range b.Insts {
			unlink(in)
		}
	}

	unlink(f)

	for i, it := range m.Items {
		if it == Item(f) {
			m.Items = append(m.Items[:i], m.Items[i+1:]...)
			break
		}
	}

	f.Module = nil
}

func (f *Func) AppendBlock(b *Block) {
	b.Func = f
	f.Blocks = append(f.Blocks, b)
	f.Decl = false
}

func (f *Func) Block(name string) *Block {
	for _, b := range f.Blocks {
		if b.Name == name {
			return b
		}
	}

	return nil
}

// RemoveBlock detaches the block from the function.
// References made by its instructions are dropped; the block must have no users.
func (f *Func) RemoveBlock(b *Block) {
	if b.Func != f {
		panic("block is not in the function")
	}

	if b.NUsers() != 0 {
		panic("remove block with users: %" + b.Name)
	}

	tlog.V("ir_edit").Printw("remove block", "block", b, "func", f, "from", loc.Caller(1))

	for _, in := range b.Insts {
		unlink(in)
	}

	for i, x := range f.Blocks {
		if x == b {
			f.Blocks = append(f.Blocks[:i], f.Blocks[i+1:]...)
			break
		}
	}

	b.Func = nil
}

func (b *Block) Append(in Inst) {
	in.setBlock(b)
	b.Insts = append(b.Insts, in)
	link(in)
}

// InsertAfter inserts in right after at, which must be in the block.
func (b *Block) InsertAfter(at, in Inst) {
	i := b.index(at)

	tlog.V("ir_edit").Printw("insert inst", "block", b, "at", i+1, "from", loc.Caller(1))

	b.Insts = append(b.Insts, nil)
	copy(b.Insts[i+2:], b.Insts[i+1:])
	b.Insts[i+1] = in

	in.setBlock(b)
	link(in)
}

// Erase removes the instruction from the block and drops its references.
func (b *Block) Erase(in Inst) {
	i := b.index(in)

	tlog.V("ir_edit").Printw("erase inst", "block", b, "at", i, "from", loc.Caller(1))

	b.Insts = append(b.Insts[:i], b.Insts[i+1:]...)

	unlink(in)
	in.setBlock(nil)
}

// Term returns the last instruction of the block.
func (b *Block) Term() Inst {
	if len(b.Insts) == 0 {
		return nil
	}

	return b.Insts[len(b.Insts)-1]
}

func (b *Block) index(in Inst) int {
	for i, x := range b.Insts {
		if x == in {
			return i
		}
	}

	panic("instruction is not in the block")
}

// SetCallee retargets a direct call to f.
func (c *Call) SetCallee(f *Func) {
	if c.Kind != CallDirect {
		panic("set callee of " + c.Kind.String() + " call")
	}

	if c.Callee == f {
		return
	}

	tlog.V("ir_edit").Printw("set callee", "block", c.block, "old", c.Callee, "new", f, "from", loc.Caller(1))

	if c.block != nil {
		c.Callee.removeUser(c)
	}

	c.Callee = f

	if c.block != nil {
		f.addUser(c)
	}
}

func link(u User) {
	for _, v := range u.Operands() {
		v.addUser(u)
	}
}

func unlink(u User) {
	for _, v := range u.Operands() {
		v.removeUser(u)
	}
}
