package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/phi-lang/phi/compiler"
	"github.com/phi-lang/phi/config"
	"github.com/phi-lang/phi/lexer"
	"github.com/phi-lang/phi/parser"
	"tinygo.org/x/go-llvm"
)

const (
	historyFile = ".phi_history"
	promptMain  = "phi> "
	promptCont  = "...> "
	replName    = "<repl>"
)

func repl(cfg *config.Config, stdout, stderr io.Writer) int {
	printVersion(stdout)
	fmt.Fprintln(stdout, "Type :ir to print the module, :quit to exit.")

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	ctx := llvm.NewContext()
	defer ctx.Dispose()
	c := compiler.NewCompiler(ctx, cfg.Module)
	defer c.Dispose()
	c.Diag = stderr

	for {
		code, ok := readByParseProbe(ln, promptMain, promptCont)
		if !ok {
			fmt.Fprintln(stdout)
			break
		}

		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			switch strings.ToLower(trimmed) {
			case ":quit":
				return finishRepl(c, cfg, stdout, stderr)
			case ":ir":
				fmt.Fprint(stdout, c.GenerateIR())
			default:
				fmt.Fprintln(stdout, "unknown command. Type :quit to exit.")
			}
			continue
		}

		evalChunk(c, code, stdout, stderr)
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
	}

	return finishRepl(c, cfg, stdout, stderr)
}

// evalChunk lowers each top-level item of code as soon as it parses and
// prints the function it produced.
func evalChunk(c *compiler.Compiler, code string, stdout, stderr io.Writer) {
	p := parser.New(lexer.New(replName, code))
	for !p.Done() {
		e, perr := p.ParseTopLevel()
		if perr != nil {
			fmt.Fprintln(stderr, perr)
			p.Synchronize()
			continue
		}
		if e == nil {
			continue
		}
		fn, err := c.CompileTopLevel(e)
		if err != nil || fn.IsNil() {
			continue
		}
		fmt.Fprint(stdout, fn.String())
	}
}

// finishRepl emits the session's module when an output file is configured.
func finishRepl(c *compiler.Compiler, cfg *config.Config, stdout, stderr io.Writer) int {
	if cfg.OutputPath() == "" {
		return 0
	}
	if err := emitModule(c.Module, cfg, stdout); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func readByParseProbe(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return "", false
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") || !needsMore(src) {
			return src, true
		}
	}
}

// needsMore reports whether src stops in the middle of a construct.
func needsMore(src string) bool {
	p := parser.New(lexer.New(replName, src))
	p.ParseProgram()
	return parser.IsIncomplete(p.Errors())
}
