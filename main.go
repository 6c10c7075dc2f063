// main.go - CLI entry point: flag parsing, ROM loading, and lifecycle
// supervision of the debugger/signal-handling goroutines around the
// execution loop.
//
// Grounded on original_source/src/main.rs's top-level flow (load ROM,
// build a Machine, run until the window closes) and on the teacher's
// cmd/ie32to64/main.go for the stdlib flag-parsing shape. ebiten's
// RunGame must be called from the main goroutine directly (it pins an
// OS thread on several platforms), so it is never wrapped in
// errgroup.Go; errgroup instead supervises the signal-watcher goroutine
// that asks the debugger to shut down cleanly on interrupt.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

func main() {
	headless := flag.Bool("headless", false, "run without a graphical window, using stdin/stdout")
	debug := flag.Bool("debug", false, "start the debugger TCP interface on 127.0.0.1:57017")
	exitOnHalt := flag.Bool("exit-on-halt", false, "exit the process when halt-and-catch-fire executes")
	dumpDir := flag.String("dump-dir", "./dumps", "directory dump-registers/dump-memory write to (disabled if empty)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bss2k [options] rom-file\n\nRuns a backseat safe system 2000 ROM.\n\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	// Host-backed periphery: timer and cursor read the wall clock; each
	// host installs its own keyboard adapter.
	nowMillis := func() uint64 { return uint64(time.Now().UnixMilli()) }
	opts := []MachineOption{WithPeriphery(NewPeriphery(
		NewTimer(nowMillis),
		NewKeyboard(func(Word) KeyState { return KeyUp }),
		NewDisplay(),
		NewCursor(nowMillis),
	))}
	if *debug {
		opts = append(opts, WithDebugger())
	}
	if *exitOnHalt {
		opts = append(opts, WithExitOnHalt())
	}
	if *dumpDir != "" {
		opts = append(opts, WithDumper(NewDumper(*dumpDir)))
	}

	machine := NewMachine(opts...)
	if err := machine.LoadROM(flag.Arg(0)); err != nil {
		log.Fatalf("bss2k: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return watchSignals(ctx, machine)
	})

	var runErr error
	if *headless {
		runErr = RunHeadless(machine)
	} else {
		runErr = RunEbitenHost(machine)
	}
	cancel()

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Printf("bss2k: %v", err)
	}
	if runErr != nil {
		log.Fatalf("bss2k: %v", runErr)
	}
}

// watchSignals asks the debugger worker to shut down cleanly when the
// process receives an interrupt, and otherwise exits once ctx is
// cancelled by the main execution loop finishing.
func watchSignals(ctx context.Context, machine *Machine) error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	select {
	case <-signals:
		machine.Debug.Stop()
		return fmt.Errorf("bss2k: interrupted")
	case <-ctx.Done():
		return ctx.Err()
	}
}
