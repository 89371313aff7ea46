// Package backend turns a finished module into IR text, assembly or an
// object file for a target machine.
package backend

import (
	"fmt"
	"os"
	"sync"

	"github.com/gofrs/flock"
	"tinygo.org/x/go-llvm"
)

var initTargets sync.Once

func initializeTargets() {
	initTargets.Do(func() {
		llvm.InitializeAllTargetInfos()
		llvm.InitializeAllTargets()
		llvm.InitializeAllTargetMCs()
		llvm.InitializeAllAsmPrinters()
	})
}

// Target wraps an LLVM target machine.
type Target struct {
	Triple  string
	machine llvm.TargetMachine
}

// NewTarget creates a machine for triple, or for the host when triple is
// empty. With optimize unset code generation runs without optimisation.
func NewTarget(triple, cpu, features string, optimize bool) (*Target, error) {
	initializeTargets()
	if triple == "" {
		triple = llvm.DefaultTargetTriple()
	}
	if cpu == "" {
		cpu = "generic"
	}

	t, err := llvm.GetTargetFromTriple(triple)
	if err != nil {
		return nil, fmt.Errorf("target %q: %w", triple, err)
	}
	level := llvm.CodeGenLevelNone
	if optimize {
		level = llvm.CodeGenLevelDefault
	}
	tm := t.CreateTargetMachine(triple, cpu, features, level, llvm.RelocPIC, llvm.CodeModelDefault)
	return &Target{Triple: triple, machine: tm}, nil
}

// Configure stamps the module with the target triple and data layout.
func (t *Target) Configure(mod llvm.Module) {
	td := t.machine.CreateTargetData()
	defer td.Dispose()
	mod.SetTarget(t.Triple)
	mod.SetDataLayout(td.String())
}

// Optimize runs a new pass manager pipeline such as "default<O2>" over mod.
func (t *Target) Optimize(mod llvm.Module, passes string) error {
	pbo := llvm.NewPassBuilderOptions()
	defer pbo.Dispose()
	if err := mod.RunPasses(passes, t.machine, pbo); err != nil {
		return fmt.Errorf("running passes %q: %w", passes, err)
	}
	return nil
}

func (t *Target) EmitObject(mod llvm.Module) ([]byte, error) {
	return t.emit(mod, llvm.ObjectFile)
}

func (t *Target) EmitAssembly(mod llvm.Module) ([]byte, error) {
	return t.emit(mod, llvm.AssemblyFile)
}

func (t *Target) emit(mod llvm.Module, ft llvm.CodeGenFileType) ([]byte, error) {
	buf, err := t.machine.EmitToMemoryBuffer(mod, ft)
	if err != nil {
		return nil, fmt.Errorf("emitting for %s: %w", t.Triple, err)
	}
	defer buf.Dispose()
	// Bytes aliases the buffer.
	return append([]byte(nil), buf.Bytes()...), nil
}

func (t *Target) Dispose() {
	t.machine.Dispose()
}

// Verify checks the whole module before anything is emitted.
func Verify(mod llvm.Module) error {
	if err := llvm.VerifyModule(mod, llvm.ReturnStatusAction); err != nil {
		return fmt.Errorf("module failed verification: %w", err)
	}
	return nil
}

// WriteFile writes data to path while holding an exclusive lock on
// path+".lock", so concurrent runs sharing an output do not interleave.
func WriteFile(path string, data []byte) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("acquire output lock: %w", err)
	}
	defer lock.Unlock()

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
