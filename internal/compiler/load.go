package compiler

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/borrowck/internal/ir"
)

// programPath is where a trace file declares its program struct.
var programPath = cue.ParsePath("program")

// LoadFile compiles a single .cue trace file into a program.
func LoadFile(path string) (*ir.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trace file: %w", err)
	}
	return LoadBytes(data, path)
}

// LoadDir compiles every .cue trace file under dir, recursing into
// subdirectories. Loading is fail-fast: the first file that does not compile
// aborts the walk, and the error names the file. Programs come back in
// lexical walk order, so the result is deterministic.
func LoadDir(dir string) ([]*ir.Program, error) {
	var progs []*ir.Program

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".cue" {
			return nil
		}
		prog, err := LoadFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		progs = append(progs, prog)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(progs) == 0 {
		return nil, fmt.Errorf("no .cue trace files in %s", dir)
	}
	return progs, nil
}

// LoadBytes compiles CUE source into a program. The filename is used only
// for error positions.
func LoadBytes(data []byte, filename string) (*ir.Program, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	progVal := v.LookupPath(programPath)
	if !progVal.Exists() {
		return nil, &CompileError{
			Field:   "program",
			Message: "trace file must declare a top-level program struct",
			Pos:     v.Pos(),
		}
	}
	return CompileProgram(progVal)
}
