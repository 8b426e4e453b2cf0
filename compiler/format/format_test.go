package format

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/lltrim/compiler/ir"
	"github.com/slowlang/lltrim/compiler/parse"
)

func preds(l string, p ...string) string {
	return l + strings.Repeat(" ", predsColumn-len(l)) + "; preds = " + strings.Join(p, ", ")
}

func TestFormatRoundTrip(t *testing.T) {
	ctx := context.Background()

	src := `; ModuleID = 'test.c'
source_filename = "test.c"

@fp = global ptr @ext

declare void @ext(i32)

define i32 @main(i32 %argc) #0 {
entry:
  %c = icmp eq i32 %argc, 0
  br i1 %c, label %yes, label %no, !prof !0

` + preds("yes:", "%entry") + `
  call void @ext(i32 1)
  switch i32 %argc, label %no [
    i32 1, label %no
  ]

` + preds("no:", "%entry", "%yes") + `
  ret i32 0
}

define void @noentry() {
  tail call void asm sideeffect "", ""()
  unreachable
}

attributes #0 = { nounwind }
!0 = !{!"branch_weights", i32 1, i32 2}
`

	m, err := parse.Parse(ctx, "test.ll", []byte(src))
	require.NoError(t, err)

	b, err := Format(ctx, nil, m)
	require.NoError(t, err)
	assert.Equal(t, src, string(b))

	m, err = parse.Parse(ctx, "test.ll", b)
	require.NoError(t, err)

	b2, err := Format(ctx, nil, m)
	require.NoError(t, err)
	assert.Equal(t, string(b), string(b2))
}

func TestFormatNormalizes(t *testing.T) {
	ctx := context.Background()

	m, err := parse.Parse(ctx, "test.ll", []byte(`define void @f(i1 %c) { ; comment
entry:   ; stale preds comment
	br   i1 %c, label %a, label %b

a:
	br label %b
b:
	ret void
}



declare void @g()
`))
	require.NoError(t, err)

	b, err := Format(ctx, nil, m)
	require.NoError(t, err)

	assert.Equal(t, `define void @f(i1 %c) {
entry:
  br i1 %c, label %a, label %b

`+preds("a:", "%entry")+`
  br label %b

`+preds("b:", "%entry", "%a")+`
  ret void
}

declare void @g()
`, string(b))
}

func TestFormatRenumbers(t *testing.T) {
	ctx := context.Background()

	m, err := parse.Parse(ctx, "test.ll", []byte(`define i32 @f(i32 noundef %0) {
  %2 = icmp eq i32 %0, 0
  br i1 %2, label %3, label %5

3:
  %4 = call i32 @g(i32 %0)
  unreachable

5:
  %6 = phi i32 [ 1, %1 ]
  %7 = add i32 %6, %0
  ret i32 %7
}

declare i32 @g(i32)
`))
	require.NoError(t, err)

	f := m.Func("f")
	entry := f.Blocks[0]

	br := entry.Term().(*ir.CondBr)
	entry.InsertAfter(br, ir.NewBr(br.Else))
	entry.Erase(br)
	f.RemoveBlock(f.Block("3"))

	b, err := Format(ctx, nil, m)
	require.NoError(t, err)

	assert.Equal(t, `define i32 @f(i32 noundef %0) {
  %2 = icmp eq i32 %0, 0
  br label %3

`+preds("3:", "%1")+`
  %4 = phi i32 [ 1, %1 ]
  %5 = add i32 %4, %0
  ret i32 %5
}

declare i32 @g(i32)
`, string(b))

	m, err = parse.Parse(ctx, "test.ll", b)
	require.NoError(t, err)

	b2, err := Format(ctx, nil, m)
	require.NoError(t, err)
	assert.Equal(t, string(b), string(b2))
}

func TestFormatEntryPreds(t *testing.T) {
	ctx := context.Background()

	m, err := parse.Parse(ctx, "test.ll", []byte(`define void @f(i32 %0, i1 %c) {
  br i1 %c, label %a, label %b

a:
  ret void

b:
  ret void
}
`))
	require.NoError(t, err)

	b, err := Format(ctx, nil, m)
	require.NoError(t, err)

	assert.Equal(t, `define void @f(i32 %0, i1 %c) {
  br i1 %c, label %a, label %b

`+preds("a:", "%1")+`
  ret void

`+preds("b:", "%1")+`
  ret void
}
`, string(b))
}

func TestRewriteSlots(t *testing.T) {
	n := numbering{slots: map[string]string{"5": "3", "7": "4"}}

	assert.Equal(t,
		`%3 = call i32 (ptr, ...) @printf(ptr @s, i32 %4, i32 %50, ptr %"5", ptr %x5, [4 x i8] c"%5\00")`,
		n.rewrite(`%5 = call i32 (ptr, ...) @printf(ptr @s, i32 %7, i32 %50, ptr %"5", ptr %x5, [4 x i8] c"%5\00")`))

	assert.Equal(t, "ret void", n.rewrite("ret void"))
	assert.Equal(t, "%5", numbering{}.rewrite("%5"))
}

func TestFormatDoc(t *testing.T) {
	ctx := context.Background()

	src := `; Function Attrs: noinline
define void @f() {
  ret void
}
`

	m, err := parse.Parse(ctx, "test.ll", []byte(src))
	require.NoError(t, err)

	b, err := Format(ctx, nil, m)
	require.NoError(t, err)
	assert.Equal(t, src, string(b))
}

func TestFormatLongLabel(t *testing.T) {
	f := ir.NewFunc("f")

	name := strings.Repeat("x", predsColumn)

	entry := ir.NewBlock("entry")
	long := ir.NewBlock(name)

	f.AppendBlock(entry)
	f.AppendBlock(long)

	entry.Append(ir.NewBr(long))
	long.Append(&ir.Ret{Text: "ret void"})

	b := formatLabel(nil, long, numberFunc(f))
	assert.Equal(t, name+": ; preds = %entry\n", string(b))

	b = formatLabel(nil, entry, numberFunc(f))
	assert.Equal(t, "entry:\n", string(b))
}

func TestAppendInst(t *testing.T) {
	f := ir.NewFunc("callee")

	a := ir.NewBlock("a")
	b := ir.NewBlock("")

	for _, tc := range []struct {
		in ir.Inst
		s  string
	}{
		{in: &ir.Call{Kind: ir.CallDirect, Callee: f, Pre: "%r = call i32 ", Post: "(i32 1) #2"}, s: "%r = call i32 @callee(i32 1) #2"},
		{in: &ir.Call{Kind: ir.CallIndirect, Pre: "call void %p()"}, s: "call void %p()"},
		{in: &ir.CondBr{Cond: "i1 %c", Then: a, Else: b, Suffix: ", !prof !1"}, s: "br i1 %c, label %a, label <entry>, !prof !1"},
		{in: ir.NewBr(a), s: "br label %a"},
		{in: &ir.Br{Dest: a, Suffix: ", !llvm.loop !3"}, s: "br label %a, !llvm.loop !3"},
		{in: &ir.Ret{Text: "ret i32 0"}, s: "ret i32 0"},
		{in: &ir.Unreachable{}, s: "unreachable"},
		{in: &ir.Other{Op: "add", Text: "%x = add i32 1, 2"}, s: "%x = add i32 1, 2"},
	} {
		s, err := AppendInst(nil, tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.s, string(s))
	}
}
