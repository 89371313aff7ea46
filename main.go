package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/phi-lang/phi/backend"
	"github.com/phi-lang/phi/compiler"
	"github.com/phi-lang/phi/config"
	"github.com/phi-lang/phi/lexer"
	"github.com/phi-lang/phi/parser"
	"tinygo.org/x/go-llvm"
)

const STDIN_NAME = "-"

const usageText = `usage: phi [flags] [file ...]

Compiles each file into one module. With no files, or "-", the program is
read from standard input; a terminal on standard input starts a REPL.

flags:
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("phi", flag.ContinueOnError)
	fs.SetOutput(stderr)
	showVersion := fs.Bool("v", false, "print version and exit")
	configPath := fs.String("config", "", "path to phi.yaml (default: search from the working directory)")
	emit := fs.String("emit", "", "output kind: ir, object or asm")
	output := fs.String("o", "", "output file (default: stdout for text, output.o for objects)")
	optimize := fs.Bool("O", false, "run the optimisation pipeline before emitting")
	fs.Usage = func() {
		fmt.Fprint(stderr, usageText)
		fs.PrintDefaults()
		fmt.Fprintln(stderr)
		printVersion(stderr)
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *showVersion {
		printVersion(stdout)
		return 0
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "emit":
			cfg.Emit = *emit
		case "o":
			cfg.Output = *output
		case "O":
			cfg.Optimize = *optimize
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	files := fs.Args()
	if len(files) == 0 && isTerminal(stdin) {
		return repl(cfg, stdout, stderr)
	}
	if len(files) == 0 {
		files = []string{STDIN_NAME}
	}
	return compileFiles(cfg, files, stdin, stdout, stderr)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadFrom(".")
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func readSource(name string, stdin io.Reader) (string, error) {
	if name == STDIN_NAME {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	data, err := os.ReadFile(name)
	return string(data), err
}

// compileFiles lowers every file into one module and emits it. Files with
// errors still contribute their good definitions; the exit status reports
// the failure.
func compileFiles(cfg *config.Config, files []string, stdin io.Reader, stdout, stderr io.Writer) int {
	ctx := llvm.NewContext()
	defer ctx.Dispose()
	c := compiler.NewCompiler(ctx, cfg.Module)
	defer c.Dispose()
	c.Diag = stderr

	failed := false
	for _, name := range files {
		source, err := readSource(name, stdin)
		if err != nil {
			fmt.Fprintf(stderr, "Error reading %s: %v\n", name, err)
			failed = true
			continue
		}

		displayName := name
		if name == STDIN_NAME {
			displayName = "<stdin>"
		}
		p := parser.New(lexer.New(displayName, source))
		program := p.ParseProgram()
		for _, e := range p.Errors() {
			fmt.Fprintln(stderr, e)
		}
		if len(p.Errors()) > 0 {
			failed = true
		}
		if len(c.Compile(program)) > 0 {
			failed = true
		}
	}

	if err := emitModule(c.Module, cfg, stdout); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if failed {
		return 1
	}
	return 0
}

// emitModule verifies mod, optionally optimises it and writes the configured
// output.
func emitModule(mod llvm.Module, cfg *config.Config, stdout io.Writer) error {
	if err := backend.Verify(mod); err != nil {
		return err
	}

	var data []byte
	if cfg.Emit == config.EmitIR && !cfg.Optimize {
		data = []byte(mod.String())
	} else {
		target, err := backend.NewTarget(cfg.Target.Triple, cfg.Target.CPU, cfg.Target.Features, cfg.Optimize)
		if err != nil {
			return err
		}
		defer target.Dispose()
		target.Configure(mod)

		if cfg.Optimize {
			if err := target.Optimize(mod, cfg.Passes); err != nil {
				return err
			}
		}
		switch cfg.Emit {
		case config.EmitObject:
			data, err = target.EmitObject(mod)
		case config.EmitAsm:
			data, err = target.EmitAssembly(mod)
		default:
			data = []byte(mod.String())
		}
		if err != nil {
			return err
		}
	}

	out := cfg.OutputPath()
	if out == "" {
		_, err := stdout.Write(data)
		return err
	}
	return backend.WriteFile(out, data)
}
