package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/browser"
	"github.com/sarchlab/pagingsim/datarecording"
	"github.com/sarchlab/pagingsim/mem/physmem"
	"github.com/sarchlab/pagingsim/mem/vm"
	"github.com/sarchlab/pagingsim/mem/vm/mmu"
	"github.com/sarchlab/pagingsim/monitoring"
	"github.com/sarchlab/pagingsim/process"
	"github.com/sarchlab/pagingsim/sim"
	"github.com/sarchlab/pagingsim/tracing"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] PROGRAM...",
	Short: "Run programs as concurrent processes.",
	Long: "`run` creates one process per program file and runs them " +
		"concurrently. Each line of a program is one of `alloc SIZE REG`, " +
		"`free REG`, `read REG OFFSET`, `write VALUE REG OFFSET` or `calc`.",
	Args: cobra.MinimumNArgs(1),
	RunE: runPrograms,
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.String("env-file", ".env", "File to read PAGINGSIM_* defaults from")
	f.Uint64("ram-size", 0, "RAM size in bytes")
	f.Uint64Slice("swap-size", nil, "Size in bytes of each swap store")
	f.Uint64("log2-page-size", 0, "Log2 of the page size")
	f.Uint64("bus-width", 0, "Number of bits in a virtual address")
	f.Int("symtbl-size", 0, "Number of regions a process can name")
	f.Bool("coalesce", false, "Merge adjacent free regions")
	f.Bool("private-ram", false, "Give each process its own RAM")
	f.Bool("dump", false, "Dump page tables and RAM when a process ends")
	f.String("record", "", "Record memory events into this SQLite file")
	f.Int("monitor-port", -1, "Serve the monitor on this port, 0 for any")
	f.Bool("open-monitor", false, "Open the monitor in a browser")
	f.Bool("monitor-wait", false, "Keep serving the monitor until interrupted")
	f.BoolP("verbose", "v", false, "Log every memory event")
}

func configFromFlags(cmd *cobra.Command) (config, error) {
	f := cmd.Flags()

	envFile, _ := f.GetString("env-file")

	cfg, err := loadConfig(envFile)
	if err != nil {
		return cfg, err
	}

	if f.Changed("ram-size") {
		cfg.RAMSize, _ = f.GetUint64("ram-size")
	}

	if f.Changed("swap-size") {
		cfg.SwapSizes, _ = f.GetUint64Slice("swap-size")
	}

	if f.Changed("log2-page-size") {
		cfg.Log2PageSize, _ = f.GetUint64("log2-page-size")
	}

	if f.Changed("bus-width") {
		cfg.BusWidth, _ = f.GetUint64("bus-width")
	}

	if f.Changed("symtbl-size") {
		cfg.SymbolTableSize, _ = f.GetInt("symtbl-size")
	}

	return cfg, nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func loadPrograms(paths []string) ([]*process.Program, error) {
	programs := make([]*process.Program, 0, len(paths))

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}

		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		p, err := process.ParseProgram(name, f)
		f.Close()

		if err != nil {
			return nil, err
		}

		programs = append(programs, p)
	}

	return programs, nil
}

// A machine is the set of processes of a run and the stores they share.
type machine struct {
	pageSize  uint64
	sharedRAM *physmem.Storage
	procs     []*process.Process
}

func buildMachine(
	cfg config,
	programs []*process.Program,
	privateRAM, coalesce bool,
	hooks []sim.Hook,
) (*machine, error) {
	spec := vm.AddressSpec{BusWidth: cfg.BusWidth, Log2PageSize: cfg.Log2PageSize}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	m := &machine{pageSize: spec.PageSize()}

	sizes := append([]uint64{cfg.RAMSize}, cfg.SwapSizes...)
	for _, size := range sizes {
		if size == 0 || size%m.pageSize != 0 {
			return nil, fmt.Errorf(
				"store size %d is not a positive multiple of the page size %d",
				size, m.pageSize)
		}
	}

	if cfg.RAMSize/m.pageSize > vm.MaxFrames {
		return nil, fmt.Errorf("RAM of %d bytes has more than %d frames",
			cfg.RAMSize, vm.MaxFrames)
	}

	if len(cfg.SwapSizes) > vm.MaxSwapTypes {
		return nil, fmt.Errorf("at most %d swap stores are supported",
			vm.MaxSwapTypes)
	}

	for _, size := range cfg.SwapSizes {
		if size/m.pageSize > vm.MaxSwapOffsets {
			return nil, fmt.Errorf("swap of %d bytes has more than %d frames",
				size, vm.MaxSwapOffsets)
		}
	}

	if !privateRAM {
		m.sharedRAM = physmem.NewStorage("RAM", cfg.RAMSize, m.pageSize)
	}

	mmuBuilder := mmu.MakeBuilder().
		WithAddressSpec(spec).
		WithSymbolTableSize(cfg.SymbolTableSize).
		WithFreeRegionCoalescing(coalesce)

	for i, prog := range programs {
		name := fmt.Sprintf("P%d.%s", i+1, prog.Name)

		ram := m.sharedRAM
		if ram == nil {
			ram = physmem.NewStorage(name+".RAM", cfg.RAMSize, m.pageSize)
		}

		b := process.MakeBuilder().
			WithPID(vm.PID(i + 1)).
			WithMMUBuilder(mmuBuilder).
			WithRAM(ram).
			WithProgram(prog)

		for j, size := range cfg.SwapSizes {
			b = b.WithSwap(physmem.NewStorage(
				fmt.Sprintf("%s.Swap%d", name, j), size, m.pageSize))
		}

		for _, h := range hooks {
			b = b.WithMMUHook(h)
		}

		m.procs = append(m.procs, b.Build(name))
	}

	return m, nil
}

// dumpHook writes the memory state of a process when it exits.
type dumpHook struct {
	lock   *sync.Mutex
	w      io.Writer
	logger *slog.Logger
}

func (h dumpHook) Func(ctx sim.HookCtx) {
	if ctx.Pos != process.HookPosExit {
		return
	}

	p := ctx.Item.(*process.Process)

	h.lock.Lock()
	defer h.lock.Unlock()

	h.logOnErr(p, p.MM.DumpRegions(h.w))
	h.logOnErr(p, p.MM.DumpPageTable(h.w, 0, 0))
	h.logOnErr(p, p.RAM.Dump(h.w))
}

func (h dumpHook) logOnErr(p *process.Process, err error) {
	if err != nil {
		h.logger.Error("dump failed", "process", p.Name(), "err", err)
	}
}

func runPrograms(cmd *cobra.Command, args []string) error {
	cfg, err := configFromFlags(cmd)
	if err != nil {
		return err
	}

	f := cmd.Flags()
	verbose, _ := f.GetBool("verbose")
	privateRAM, _ := f.GetBool("private-ram")
	coalesce, _ := f.GetBool("coalesce")
	dump, _ := f.GetBool("dump")
	record, _ := f.GetString("record")
	monitorPort, _ := f.GetInt("monitor-port")
	openMonitor, _ := f.GetBool("open-monitor")
	monitorWait, _ := f.GetBool("monitor-wait")

	logger := newLogger(cmd.ErrOrStderr(), verbose)
	out := cmd.OutOrStdout()

	recordPath := strings.TrimSuffix(record, ".sqlite3")
	if record != "" {
		_, err = os.Stat(recordPath + ".sqlite3")
		if err == nil {
			return fmt.Errorf("record file %s.sqlite3 already exists",
				recordPath)
		}
	}

	programs, err := loadPrograms(args)
	if err != nil {
		return err
	}

	counter := tracing.NewEventCounter()
	hooks := []sim.Hook{
		sim.NewLogHook(logger, slog.LevelDebug),
		tracing.NewMemEventHook(counter),
	}

	var dbTracer *tracing.DBTracer
	if record != "" {
		recorder := datarecording.New(recordPath)
		defer recorder.Close()

		dbTracer = tracing.NewDBTracer(recorder, sim.NewXIDGenerator())
		defer dbTracer.Terminate()

		hooks = append(hooks, tracing.NewMemEventHook(dbTracer))
	}

	m, err := buildMachine(cfg, programs, privateRAM, coalesce, hooks)
	if err != nil {
		return err
	}

	outLock := &sync.Mutex{}
	for _, p := range m.procs {
		p.AcceptHook(sim.NewLogHook(logger, slog.LevelDebug))

		if dump {
			p.AcceptHook(dumpHook{lock: outLock, w: out, logger: logger})
		}
	}

	if monitorPort >= 0 || openMonitor {
		err = startMonitor(m, counter, monitorPort, openMonitor)
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runErr := process.RunAll(ctx, m.procs)

	if err := counter.Report(out); err != nil {
		return err
	}

	if monitorWait {
		logger.Info("simulation finished, monitor is still serving")
		<-ctx.Done()
	}

	return runErr
}

func startMonitor(
	m *machine,
	counter *tracing.EventCounter,
	port int,
	open bool,
) error {
	if port < 0 {
		port = 0
	}

	monitor := monitoring.NewMonitor().WithPortNumber(port)
	monitor.RegisterEventCounter(counter)

	for _, p := range m.procs {
		monitor.RegisterProcess(p)
	}

	url, err := monitor.StartServer()
	if err != nil {
		return err
	}

	if open {
		return browser.OpenURL(url)
	}

	return nil
}
