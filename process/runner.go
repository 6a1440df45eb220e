package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sarchlab/pagingsim/sim"
)

// Hook positions of a process.
var (
	// HookPosInstruction reports an executed instruction. The item is an
	// InstructionResult.
	HookPosInstruction = &sim.HookPos{Name: "ProcInstruction"}

	// HookPosExit is invoked when the program ends, before the memory of
	// the process is reclaimed. The item is the process.
	HookPosExit = &sim.HookPos{Name: "ProcExit"}
)

// An InstructionResult is the outcome of one instruction.
type InstructionResult struct {
	Process string
	Inst    Instruction
	Value   byte
	Addr    uint64
	Err     error
}

// LogValue renders the result for structured logging.
func (r InstructionResult) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("process", r.Process),
		slog.Int("line", r.Inst.Line),
		slog.String("inst", r.Inst.String()),
	}

	switch r.Inst.Op {
	case OpRead:
		attrs = append(attrs, slog.Int("value", int(r.Value)))
	case OpAlloc:
		attrs = append(attrs, slog.Uint64("addr", r.Addr))
	}

	if r.Err != nil {
		attrs = append(attrs, slog.String("err", r.Err.Error()))
	}

	return slog.GroupValue(attrs...)
}

// Exec runs one instruction.
func (p *Process) Exec(inst Instruction) InstructionResult {
	result := InstructionResult{Process: p.name, Inst: inst}

	switch inst.Op {
	case OpAlloc:
		result.Addr, result.Err = p.Alloc(inst.Size, inst.Region)
	case OpFree:
		result.Err = p.Free(inst.Region)
	case OpRead:
		result.Value, result.Err = p.Read(inst.Region, inst.Offset)
	case OpWrite:
		result.Err = p.Write(inst.Value, inst.Region, inst.Offset)
	}

	p.InvokeHook(sim.HookCtx{
		Domain: p,
		Pos:    HookPosInstruction,
		Item:   result,
	})

	return result
}

// Run executes the program of the process. A failed instruction does not
// stop the program; all the failures are returned together. Run stops
// between instructions once ctx is done.
func (p *Process) Run(ctx context.Context) error {
	if p.Program == nil {
		return nil
	}

	var errs []error

	for _, inst := range p.Program.Instructions {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		result := p.Exec(inst)
		if result.Err != nil {
			errs = append(errs, fmt.Errorf("%s:%d: %s: %w",
				p.name, inst.Line, inst, result.Err))
		}
	}

	return errors.Join(errs...)
}

// RunAll runs every process on its own goroutine and reclaims the memory
// of each process when its program ends. It waits for all of them and
// returns their failures joined.
func RunAll(ctx context.Context, procs []*Process) error {
	var wg sync.WaitGroup

	errs := make([]error, len(procs))

	for i, p := range procs {
		wg.Add(1)

		go func() {
			defer wg.Done()

			errs[i] = p.Run(ctx)

			p.InvokeHook(sim.HookCtx{
				Domain: p,
				Pos:    HookPosExit,
				Item:   p,
			})

			p.Reclaim()
		}()
	}

	wg.Wait()

	return errors.Join(errs...)
}
