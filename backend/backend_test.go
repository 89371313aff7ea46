package backend

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/go-llvm"
)

// answerModule defines `i32 answer()` returning 42.
func answerModule(ctx llvm.Context) llvm.Module {
	mod := ctx.NewModule("backend_test")
	fn := llvm.AddFunction(mod, "answer", llvm.FunctionType(ctx.Int32Type(), nil, false))
	b := ctx.NewBuilder()
	defer b.Dispose()
	b.SetInsertPointAtEnd(ctx.AddBasicBlock(fn, "entry"))
	b.CreateRet(llvm.ConstInt(ctx.Int32Type(), 42, false))
	return mod
}

func TestVerify(t *testing.T) {
	ctx := llvm.NewContext()
	defer ctx.Dispose()

	require.NoError(t, Verify(answerModule(ctx)))

	broken := ctx.NewModule("broken")
	fn := llvm.AddFunction(broken, "noterm", llvm.FunctionType(ctx.VoidType(), nil, false))
	ctx.AddBasicBlock(fn, "entry")
	err := Verify(broken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed verification")
}

func TestEmitHostObject(t *testing.T) {
	ctx := llvm.NewContext()
	defer ctx.Dispose()
	mod := answerModule(ctx)

	target, err := NewTarget("", "", "", false)
	require.NoError(t, err)
	defer target.Dispose()

	target.Configure(mod)
	assert.Equal(t, target.Triple, mod.Target())
	assert.NotEmpty(t, mod.DataLayout())

	obj, err := target.EmitObject(mod)
	require.NoError(t, err)
	assert.NotEmpty(t, obj)

	asm, err := target.EmitAssembly(mod)
	require.NoError(t, err)
	assert.Contains(t, string(asm), "answer")
}

func TestOptimize(t *testing.T) {
	ctx := llvm.NewContext()
	defer ctx.Dispose()
	mod := answerModule(ctx)

	target, err := NewTarget("", "", "", true)
	require.NoError(t, err)
	defer target.Dispose()
	target.Configure(mod)

	require.NoError(t, target.Optimize(mod, "default<O2>"))
	require.NoError(t, Verify(mod))
	assert.True(t, strings.Contains(mod.String(), "ret i32 42"))

	err = target.Optimize(mod, "no-such-pass")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-pass")
}

func TestUnknownTriple(t *testing.T) {
	_, err := NewTarget("nosucharch-unknown-none", "", "", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nosucharch")
}

func TestWriteFileConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ll")
	payloads := make([][]byte, 8)
	for i := range payloads {
		payloads[i] = bytes.Repeat([]byte{byte('a' + i)}, 64<<10)
	}

	var wg sync.WaitGroup
	for _, p := range payloads {
		wg.Add(1)
		go func(p []byte) {
			defer wg.Done()
			assert.NoError(t, WriteFile(path, p))
		}(p)
	}
	wg.Wait()

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, payloads, got)
}

func TestWriteFileMissingDir(t *testing.T) {
	err := WriteFile(filepath.Join(t.TempDir(), "missing", "out.o"), []byte("x"))
	require.Error(t, err)
}
