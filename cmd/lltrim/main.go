package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/lltrim/compiler"
	"github.com/slowlang/lltrim/compiler/format"
	"github.com/slowlang/lltrim/compiler/opt"
	"github.com/slowlang/lltrim/compiler/parse"
)

func main() {
	runCmd := &cli.Command{
		Name:        "run",
		Description: "collapse dispatch chains and simplify branches to unreachable blocks",
		Action:      runAct,
		Flags: []*cli.Flag{
			cli.NewFlag("input,i", "test.ll", "input module"),
			cli.NewFlag("output,o", "out.ll", "output module (- for stdout)"),
			cli.NewFlag("no-collapse", false, "don't collapse dispatch chains"),
			cli.NewFlag("no-simplify", false, "don't simplify branches to unreachable blocks"),
			cli.NewFlag("keep", "main", "comma separated functions never deleted"),
		},
	}

	fmtCmd := &cli.Command{
		Name:        "fmt",
		Description: "load and print modules without changes",
		Action:      fmtAct,
		Args:        cli.Args{},
	}

	chainsCmd := &cli.Command{
		Name:        "chains",
		Description: "print dispatch chains resolution",
		Action:      chainsAct,
		Args:        cli.Args{},
	}

	app := &cli.Command{
		Name:        "lltrim",
		Description: "lltrim collapses dispatch chains and branches to unreachable blocks in LLVM IR",
		Before:      before,
		After:       after,
		Flags: []*cli.Flag{
			cli.NewFlag("log", "stderr", "log output file (stderr, stdout or path)"),
			cli.NewFlag("verbosity,v", "", "logger verbosity topics"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			runCmd,
			fmtCmd,
			chainsCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

var logFile io.Closer

func before(c *cli.Command) (err error) {
	var w io.Writer

	w, logFile, err = openLog(c.String("log"))
	if err != nil {
		return errors.Wrap(err, "open log file")
	}

	tlog.DefaultLogger = tlog.New(tlog.NewConsoleWriter(w, tlog.LstdFlags))

	tlog.SetVerbosity(c.String("verbosity"))

	return nil
}

func after(c *cli.Command) (err error) {
	if logFile == nil {
		return nil
	}

	err = logFile.Close()
	logFile = nil

	if err != nil {
		return errors.Wrap(err, "close log file")
	}

	return nil
}

// openLog returns the log destination and a closer if it's a file we opened.
func openLog(q string) (io.Writer, io.Closer, error) {
	switch q {
	case "", "stderr":
		return os.Stderr, nil, nil
	case "stdout":
		return os.Stdout, nil, nil
	}

	f, err := os.Create(q)
	if err != nil {
		return nil, nil, err
	}

	return f, f, nil
}

func runAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	opts := opt.DefaultOptions()
	opts.Collapse = !c.Bool("no-collapse")
	opts.Simplify = !c.Bool("no-simplify")
	opts.Keep = splitList(c.String("keep"))

	in := c.String("input")

	obj, err := compiler.TransformFile(ctx, in, opts)
	if err != nil {
		return errors.Wrap(err, "transform %v", in)
	}

	out := c.String("output")

	if out == "-" {
		_, err = os.Stdout.Write(obj)
	} else {
		err = os.WriteFile(out, obj, 0o644)
	}
	if err != nil {
		return errors.Wrap(err, "write %v", out)
	}

	return nil
}

func fmtAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		m, err := parse.ParseFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "parse %v", a)
		}

		obj, err := format.Format(ctx, nil, m)
		if err != nil {
			return errors.Wrap(err, "format %v", a)
		}

		fmt.Printf("%s", obj)
	}

	return nil
}

func chainsAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		m, err := parse.ParseFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "parse %v", a)
		}

		res := opt.Resolve(ctx, m)

		for _, f := range m.Funcs() {
			if final, ok := res[f]; ok {
				fmt.Printf("@%s -> @%s\n", f.Name, final.Name)
			}
		}
	}

	return nil
}

func splitList(s string) (l []string) {
	for _, x := range strings.Split(s, ",") {
		if x = strings.TrimSpace(x); x != "" {
			l = append(l, x)
		}
	}

	return l
}
