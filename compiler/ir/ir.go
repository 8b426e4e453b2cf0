package ir

type (
	// Value is anything instructions can refer to: functions and blocks.
	Value interface {
		Users() []User
		NUsers() int

		addUser(u User)
		removeUser(u User)
	}

	// User refers to values. The same value is listed once per reference.
	User interface {
		Operands() []Value
	}

	Inst interface {
		User

		Block() *Block

		setBlock(b *Block)
	}

	Module struct {
		Name string

		Items []Item
	}

	// Item is a top-level entity: *Func or *Global.
	Item interface {
		item()
	}

	// Global is opaque top-level text: globals, attribute groups, metadata, comments.
	Global struct {
		Text string
		Refs []Value
	}

	Func struct {
		Name string

		// Signature text around @Name.
		Pre  string
		Post string

		Void bool
		Decl bool

		Doc []string // comment lines right above the function

		Blocks []*Block

		Refs []Value // functions named in the signature, like a personality

		Module *Module

		uses
	}

	Block struct {
		Name string // empty for unlabeled entry block

		Insts []Inst

		Func *Func

		uses
	}

	CallKind int

	Call struct {
		inst

		Kind   CallKind
		Callee *Func // nil unless Kind == CallDirect

		// Text before and after the callee.
		// For indirect and asm calls the callee text is part of Pre.
		Pre  string
		Post string

		Refs []Value
	}

	CondBr struct {
		inst

		Cond string // type and value, "i1 %c"

		Then *Block
		Else *Block

		Suffix string
	}

	Br struct {
		inst

		Dest *Block

		Suffix string
	}

	Ret struct {
		inst

		Text string
		Refs []Value
	}

	Unreachable struct {
		inst

		Suffix string
	}

	// Other is an instruction the passes don't look into.
	Other struct {
		inst

		Op   string
		Text string
		Refs []Value
	}

	inst struct {
		block *Block
	}

	uses struct {
		users []User
	}
)

const (
	CallDirect CallKind = iota
	CallIndirect
	CallAsm
)

func NewModule(name string) *Module {
	return &Module{Name: name}
}

func NewFunc(name string) *Func {
	return &Func{Name: name, Decl: true}
}

func NewBlock(name string) *Block {
	return &Block{Name: name}
}

func NewBr(dest *Block) *Br {
	return &Br{Dest: dest}
}

func (*Func) item()   {}
func (*Global) item() {}

func (in *inst) Block() *Block     { return in.block }
func (in *inst) setBlock(b *Block) { in.block = b }

func (u *uses) Users() []User {
	return append([]User(nil), u.users...)
}

func (u *uses) NUsers() int { return len(u.users) }

func (u *uses) addUser(x User) {
	u.users = append(u.users, x)
}

func (u *uses) removeUser(x User) {
	for i, y := range u.users {
		if y != x {
			continue
		}

		copy(u.users[i:], u.users[i+1:])
		u.users[len(u.users)-1] = nil
		u.users = u.users[:len(u.users)-1]

		return
	}

	panic("user not found")
}

func (g *Global) Operands() []Value { return g.Refs }
func (f *Func) Operands() []Value   { return f.Refs }

func (c *Call) Operands() []Value {
	if c.Callee == nil {
		return c.Refs
	}

	return append([]Value{c.Callee}, c.Refs...)
}

func (br *CondBr) Operands() []Value   { return []Value{br.Then, br.Else} }
func (br *Br) Operands() []Value       { return []Value{br.Dest} }
func (r *Ret) Operands() []Value       { return r.Refs }
func (*Unreachable) Operands() []Value { return nil }
func (o *Other) Operands() []Value     { return o.Refs }

// Label is the name used to refer to the block.
func (bl *Block) Label() string {
	if bl.Name == "" {
		return "<entry>"
	}

	return "%" + bl.Name
}

// Succs returns successor blocks of a terminator.
func Succs(term Inst) []*Block {
	switch term := term.(type) {
	case *Br:
		return []*Block{term.Dest}
	case *CondBr:
		return []*Block{term.Then, term.Else}
	default:
		return nil
	}
}

func (k CallKind) String() string {
	switch k {
	case CallDirect:
		return "direct"
	case CallIndirect:
		return "indirect"
	case CallAsm:
		return "asm"
	default:
		return "unknown"
	}
}

// IsTerm reports whether the instruction ends a block.
func IsTerm(in Inst) bool {
	switch in := in.(type) {
	case *Br, *CondBr, *Ret, *Unreachable:
		return true
	case *Other:
		return termOps[in.Op]
	default:
		return false
	}
}

var termOps = map[string]bool{
	"switch":      true,
	"indirectbr":  true,
	"invoke":      true,
	"callbr":      true,
	"resume":      true,
	"catchswitch": true,
	"catchret":    true,
	"cleanupret":  true,
}
