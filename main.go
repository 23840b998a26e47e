package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
)

type intFlag struct {
	value int
	set   bool
}

func (i *intFlag) String() string { return fmt.Sprintf("%d", i.value) }
func (i *intFlag) Set(val string) error {
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return err
	}
	i.value = parsed
	i.set = true
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var maxDepth intFlag
	var configPath string
	var logPath string
	var noConfirm bool

	flag.Var(&maxDepth, "depth", "Maximum directory depth to scan (0 = unlimited)")
	flag.StringVar(&configPath, "config", "", "Path to a JSON config file")
	flag.StringVar(&logPath, "log", "", "Write a debug log to this file")
	flag.BoolVar(&noConfirm, "no-confirm", false, "Delete without confirmation prompts")
	flag.Parse()

	root := "."
	if flag.NArg() > 0 {
		root = flag.Arg(0)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error resolving path:", err)
		os.Exit(1)
	}

	rootHandle, err := os.OpenRoot(absRoot)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error opening root:", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := rootHandle.Close(); closeErr != nil {
			fmt.Fprintln(os.Stderr, "Error closing root:", closeErr)
		}
	}()

	config := Config{}
	if path, ok, err := resolveConfigPath(absRoot, configPath); err != nil {
		fmt.Fprintln(os.Stderr, "Error resolving config:", err)
		os.Exit(1)
	} else if ok {
		cfg, err := loadConfig(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error loading config:", err)
			os.Exit(1)
		}
		normalized, err := normalizeConfig(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error in config:", err)
			os.Exit(1)
		}
		config = normalized
	}

	depth := config.Depth
	confirmDeletes := true
	if config.Confirm != nil {
		confirmDeletes = *config.Confirm
	}
	if noConfirm {
		confirmDeletes = false
	}
	if maxDepth.set {
		depth = maxDepth.value
	}

	logger, logCleanup, err := newLogger(logPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error opening log:", err)
		os.Exit(1)
	}
	defer logCleanup()

	opts := ScanOptions{
		Root:       absRoot,
		RootHandle: rootHandle,
		MaxDepth:   depth,
		SkipDirs:   mergeSkipDirs(defaultSkipDirs(), config.Skip),
		Log:        logger,
	}

	m := NewModel(ctx, opts, confirmDeletes, logger)
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		os.Exit(1)
	}
	if result, ok := final.(model); ok && result.emptyResult {
		fmt.Printf("No %s folders with %s archives found under %s\n", backupDirName, backupExt, absRoot)
	}
}
