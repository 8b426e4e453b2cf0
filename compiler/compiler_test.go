package compiler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/lltrim/compiler/opt"
)

const testModule = `define void @target(i32 %x) {
  ret void
}

define void @dispatch2() {
  call void @target()
  ret void
}

define void @dispatch1() {
  call void @dispatch2()
  ret void
}

define i32 @main() {
  call void @dispatch1()
  ret i32 0
}

define i32 @check(i1 %c) {
entry:
  br i1 %c, label %bb_unreach, label %bb_ok

bb_unreach:
  unreachable

bb_ok:
  ret i32 1
}
`

func TestTransform(t *testing.T) {
	ctx := context.Background()

	out, err := Transform(ctx, "test.ll", []byte(testModule), opt.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, `define void @target(i32 %x) {
  ret void
}

define i32 @main() {
  call void @target()
  ret i32 0
}

define i32 @check(i1 %c) {
entry:
  br label %bb_ok

bb_ok:`+strings.Repeat(" ", 44)+`; preds = %entry
  ret i32 1
}
`, string(out))

	again, err := Transform(ctx, "test.ll", out, opt.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, string(out), string(again))
}

func TestTransformNumberedLabels(t *testing.T) {
	ctx := context.Background()

	out, err := Transform(ctx, "test.ll", []byte(`; Function Attrs: noinline nounwind
define dso_local i32 @f(i32 noundef %0) #0 {
  %2 = icmp eq i32 %0, 0
  br i1 %2, label %3, label %4

3:                                                ; preds = %1
  unreachable

4:                                                ; preds = %1
  %5 = add nsw i32 %0, 1
  ret i32 %5
}
`), opt.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, `; Function Attrs: noinline nounwind
define dso_local i32 @f(i32 noundef %0) #0 {
  %2 = icmp eq i32 %0, 0
  br label %3

3:`+strings.Repeat(" ", 48)+`; preds = %1
  %4 = add nsw i32 %0, 1
  ret i32 %4
}
`, string(out))

	again, err := Transform(ctx, "test.ll", out, opt.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, string(out), string(again))
}

func TestTransformDropsDispatcherComments(t *testing.T) {
	ctx := context.Background()

	out, err := Transform(ctx, "test.ll", []byte(`; ModuleID = 'test.c'

; Function Attrs: noinline
define void @target() {
  ret void
}

; Function Attrs: noinline
define void @dispatch() {
  call void @target()
  ret void
}

; Function Attrs: noinline
define i32 @main() {
  call void @dispatch()
  ret i32 0
}
`), opt.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, `; ModuleID = 'test.c'

; Function Attrs: noinline
define void @target() {
  ret void
}

; Function Attrs: noinline
define i32 @main() {
  call void @target()
  ret i32 0
}
`, string(out))
}

func TestTransformPassesDisabled(t *testing.T) {
	ctx := context.Background()

	out, err := Transform(ctx, "test.ll", []byte(testModule), opt.Options{})
	require.NoError(t, err)

	assert.Contains(t, string(out), "define void @dispatch1()")
	assert.Contains(t, string(out), "  call void @dispatch1()\n")
	assert.Contains(t, string(out), "bb_unreach:"+strings.Repeat(" ", 39)+"; preds = %entry\n  unreachable\n")
}

func TestTransformFile(t *testing.T) {
	ctx := context.Background()

	name := filepath.Join(t.TempDir(), "test.ll")

	err := os.WriteFile(name, []byte(testModule), 0o644)
	require.NoError(t, err)

	out, err := TransformFile(ctx, name, opt.DefaultOptions())
	require.NoError(t, err)
	assert.NotContains(t, string(out), "dispatch")
	assert.NotContains(t, string(out), "unreachable")

	_, err = TransformFile(ctx, filepath.Join(t.TempDir(), "missing.ll"), opt.DefaultOptions())
	assert.Error(t, err)
}

func TestTransformMalformed(t *testing.T) {
	out, err := Transform(context.Background(), "bad.ll", []byte("define void @f() {\n  br label %nowhere\n}\n"), opt.DefaultOptions())
	assert.Nil(t, out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.ll:2:")
}
