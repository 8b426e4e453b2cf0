package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/lltrim/compiler/format"
	"github.com/slowlang/lltrim/compiler/opt"
	"github.com/slowlang/lltrim/compiler/parse"
)

func TransformFile(ctx context.Context, name string, opts opt.Options) (out []byte, err error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Transform(ctx, name, text, opts)
}

// Transform loads the module, runs the passes and prints the result.
// Nothing is transformed if the module fails to load.
func Transform(ctx context.Context, name string, text []byte, opts opt.Options) (out []byte, err error) {
	m, err := parse.Parse(ctx, name, text)
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}

	opt.Run(ctx, m, opts)

	out, err = format.Format(ctx, nil, m)
	if err != nil {
		return nil, errors.Wrap(err, "format")
	}

	return out, nil
}
