package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/vanderheijden86/smolder/pkg/config"
	"github.com/vanderheijden86/smolder/pkg/heat"
	"github.com/vanderheijden86/smolder/pkg/tree"
	"github.com/vanderheijden86/smolder/pkg/ui"
	"github.com/vanderheijden86/smolder/pkg/vcs"
	"github.com/vanderheijden86/smolder/pkg/version"
	"github.com/vanderheijden86/smolder/pkg/watcher"
)

// ignoreFlag collects repeatable --ignore globs.
type ignoreFlag []string

func (i *ignoreFlag) String() string {
	return strings.Join(*i, ",")
}

func (i *ignoreFlag) Set(v string) error {
	*i = append(*i, v)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("smolder", flag.ContinueOnError)

	var ignores ignoreFlag
	history := fs.Int("history", config.DefaultHistoryLimit, "Rolling history size")
	fs.IntVar(history, "n", config.DefaultHistoryLimit, "Rolling history size (shorthand)")
	interval := fs.Int("interval", config.DefaultIntervalMS, "Debounce interval in ms")
	ghostSteps := fs.Int("ghost-steps", config.DefaultGhostSteps, "Fade ticks before a deleted entry disappears")
	breathe := fs.Int("breathe", config.DefaultBreatheMS, "Breath redraw period in ms")
	fs.IntVar(breathe, "b", config.DefaultBreatheMS, "Breath redraw period in ms (shorthand)")
	noGit := fs.Bool("no-git", false, "Disable git status integration")
	fs.Var(&ignores, "ignore", "Glob to ignore (repeatable)")
	fs.Var(&ignores, "i", "Glob to ignore (repeatable, shorthand)")
	robotSnapshot := fs.Bool("robot-snapshot", false, "Print one layout pass as JSON and exit")
	versionFlag := fs.Bool("version", false, "Show version")
	help := fs.Bool("help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help (shorthand)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: smolder [options] [directory]")
		fmt.Fprintln(os.Stderr, "\nA live, self-sorting activity monitor for a directory tree.")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	if *help {
		fs.Usage()
		return 0
	}
	if *versionFlag {
		fmt.Printf("smolder %s\n", version.Version)
		return 0
	}

	// Config file first, flags on top.
	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		// Non-fatal: continue with defaults.
		cfg = config.DefaultConfig()
	}
	applyFlags(&cfg, fs, *history, *interval, *ghostSteps, *breathe, *noGit, ignores)

	dir := "."
	if fs.NArg() > 0 {
		dir = fs.Arg(0)
	}

	w, err := watcher.New(dir,
		watcher.WithDebounceDuration(cfg.Interval()),
		watcher.WithIgnoreGlobs(cfg.Ignore),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot watch %s: %v\n", dir, err)
		return 1
	}

	// Seed the tree from the initial inventory, then wipe the event
	// stamps so pre-existing files don't read as activity.
	st := tree.NewState(w.Root(),
		tree.WithHistoryLimit(cfg.HistoryLimit),
		tree.WithGhostSteps(cfg.GhostSteps),
		tree.WithWeights(cfg.EventWeights),
	)
	inventory, err := w.Scan()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot scan %s: %v\n", dir, err)
		return 1
	}
	for _, e := range inventory {
		kind := tree.File
		if e.IsDir {
			kind = tree.Dir
		}
		st.SetNode(e.Path, kind, heat.EventNone)
	}
	st.ClearActivity()

	src := vcs.NewSource(w.Root(), cfg.NoGit)

	if *robotSnapshot {
		return runRobotSnapshot(st, src, cfg)
	}

	if err := w.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot start watcher: %v\n", err)
		return 1
	}

	m := ui.NewModel(st, w, src, cfg)
	defer m.Stop()

	if err := runTUIProgram(m); err != nil {
		fmt.Fprintf(os.Stderr, "Error running smolder: %v\n", err)
		return 1
	}
	return 0
}

// applyFlags copies explicitly set flags over the file config.
func applyFlags(cfg *config.Config, fs *flag.FlagSet, history, interval, ghostSteps, breathe int, noGit bool, ignores ignoreFlag) {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["history"] || set["n"] {
		cfg.HistoryLimit = history
	}
	if set["interval"] {
		cfg.IntervalMS = interval
	}
	if set["ghost-steps"] {
		cfg.GhostSteps = ghostSteps
	}
	if set["breathe"] || set["b"] {
		cfg.BreatheMS = breathe
	}
	if set["no-git"] {
		cfg.NoGit = noGit
	}
	if len(ignores) > 0 {
		cfg.Ignore = ignores
	}
}

// runRobotSnapshot prints one layout pass as JSON for scripts and tests.
func runRobotSnapshot(st *tree.State, src *vcs.Source, cfg config.Config) int {
	rows := 24
	if _, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil && h > 0 {
		rows = h
	}

	snap := src.Refresh(context.Background())
	out, err := ui.RobotSnapshot(st, snap, cfg, rows, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Println(string(out))
	return 0
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set SMOLDER_AUTOCLOSE_MS.
	if v := os.Getenv("SMOLDER_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()

				select {
				case <-runDone:
					return
				case <-time.After(2 * time.Second):
				}

				p.Kill()
			}()
		}
	}

	_, err := p.Run()
	if err != nil && (errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted)) {
		return nil
	}
	return err
}
