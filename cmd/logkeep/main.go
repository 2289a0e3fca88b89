package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	charmlog "github.com/charmbracelet/log"
	"github.com/clarabennett2626/logkeep/internal/config"
	"github.com/clarabennett2626/logkeep/internal/logs"
	"github.com/clarabennett2626/logkeep/internal/source"
	"github.com/clarabennett2626/logkeep/internal/tui"
	"github.com/joho/godotenv"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	newestStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
)

// errUsage marks command line mistakes; they exit with status 2.
var errUsage = errors.New("usage error")

const usage = `Usage: logkeep [--config file] [--debug] <command> [flags] <name>

Commands:
  path  <name>           Print the absolute log path, creating its directory
  clear <name>           Truncate the log file
  tail  [-n N] [-f] <name>
                         Print the last N lines of the newest rotated log
  ls    <name>           List the rotation family, newest last
  view  [-n N] <name>    Follow the log in an interactive viewer
  init  [-force]         Write a default config file
`

func main() {
	for _, path := range []string{".env", "../.env"} {
		_ = godotenv.Load(path)
	}
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// app carries what every command needs.
type app struct {
	cfg     *config.Config
	cfgPath string
	acc     *logs.Accessor
	log     *charmlog.Logger
	stdout  io.Writer
	stderr  io.Writer
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 && args[0] == "--version" {
		fmt.Fprintf(stdout, "logkeep %s (%s) built %s\n", version, commit, date)
		return 0
	}

	global := flag.NewFlagSet("logkeep", flag.ContinueOnError)
	global.SetOutput(io.Discard)
	configPath := global.String("config", "", "Config file (default: user config dir)")
	debug := global.Bool("debug", false, "Enable debug logging")
	if err := global.Parse(args); err != nil || global.NArg() == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	logger := charmlog.NewWithOptions(stderr, charmlog.Options{Prefix: "logkeep"})
	if *debug {
		logger.SetLevel(charmlog.DebugLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, errorStyle.Render("Error:"), err)
		return 1
	}
	logger.Debug("loaded config", "log_dir", cfg.LogDir(), "lines", cfg.Logs.Lines)

	a := &app{
		cfg:     cfg,
		cfgPath: *configPath,
		acc:     logs.New(cfg.LogDir()),
		log:     logger,
		stdout:  stdout,
		stderr:  stderr,
	}

	cmd, rest := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "path":
		err = a.path(rest)
	case "clear":
		err = a.clear(rest)
	case "tail":
		err = a.tail(rest)
	case "ls":
		err = a.list(rest)
	case "view":
		err = a.view(rest)
	case "init":
		err = a.initConfig(rest)
	default:
		err = fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintln(stderr, errorStyle.Render("Error:"), err)
		fmt.Fprint(stderr, usage)
		return 2
	default:
		fmt.Fprintln(stderr, errorStyle.Render("Error:"), err)
		return 1
	}
}

// parse parses a subcommand's flags and returns its single log name,
// resolved and with its directory created.
func (a *app) parse(fs *flag.FlagSet, args []string) (string, error) {
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return "", fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		return "", fmt.Errorf("%w: %s expects exactly one log name", errUsage, fs.Name())
	}
	path, err := a.acc.ResolvePath(fs.Arg(0))
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", fs.Arg(0), err)
	}
	a.log.Debug("resolved log path", "name", fs.Arg(0), "path", path)
	return path, nil
}

func (a *app) path(args []string) error {
	path, err := a.parse(flag.NewFlagSet("path", flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, path)
	return nil
}

func (a *app) clear(args []string) error {
	path, err := a.parse(flag.NewFlagSet("clear", flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	if err := a.acc.Clear(path); err != nil {
		return fmt.Errorf("clearing %s: %w", path, err)
	}
	a.log.Debug("cleared log", "path", path)
	return nil
}

func (a *app) tail(args []string) error {
	fs := flag.NewFlagSet("tail", flag.ContinueOnError)
	n := fs.Int("n", a.cfg.Logs.Lines, "Number of lines to show")
	follow := fs.Bool("f", false, "Keep printing lines as they are appended")
	path, err := a.parse(fs, args)
	if err != nil {
		return err
	}

	if *follow {
		return a.follow(path, *n)
	}

	for chunk, err := range a.acc.Tail(path, *n) {
		if err != nil {
			return fmt.Errorf("tailing %s: %w", path, err)
		}
		if _, err := io.WriteString(a.stdout, chunk); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}
	return nil
}

func (a *app) follow(path string, n int) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src := source.NewFollower(a.acc, source.FollowConfig{
		Prefix:       path,
		TailLines:    n,
		PollInterval: a.cfg.PollInterval(),
		Logger:       a.log,
	})
	if err := src.Start(ctx); err != nil {
		return fmt.Errorf("following %s: %w", path, err)
	}
	defer src.Stop()

	go func() {
		for err := range src.Errors() {
			a.log.Error("follow", "err", err)
		}
	}()

	for e := range src.Lines() {
		if e.Empty() {
			continue
		}
		fmt.Fprintln(a.stdout, e.Line)
	}
	return nil
}

func (a *app) list(args []string) error {
	path, err := a.parse(flag.NewFlagSet("ls", flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	family, err := a.acc.Family(path)
	if err != nil {
		return fmt.Errorf("listing %s: %w", path, err)
	}
	for i, p := range family {
		if i == len(family)-1 {
			fmt.Fprintln(a.stdout, newestStyle.Render(p), "(newest)")
			continue
		}
		fmt.Fprintln(a.stdout, p)
	}
	return nil
}

// initConfig writes the default configuration to the config path. An existing
// file is only replaced with -force.
func (a *app) initConfig(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	force := fs.Bool("force", false, "Overwrite an existing config file")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 0 {
		return fmt.Errorf("%w: init takes no arguments", errUsage)
	}

	path := a.cfgPath
	if path == "" {
		path = config.DefaultPath()
	}
	if path == "" {
		return errors.New("no user config directory; pass --config")
	}
	if _, err := os.Stat(path); err == nil && !*force {
		return fmt.Errorf("config %s already exists; use -force to overwrite", path)
	}
	if err := config.Save(config.DefaultConfig(), path); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	fmt.Fprintln(a.stdout, path)
	return nil
}

func (a *app) view(args []string) error {
	fs := flag.NewFlagSet("view", flag.ContinueOnError)
	n := fs.Int("n", a.cfg.Logs.Lines, "Number of existing lines to load")
	path, err := a.parse(fs, args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := source.NewFollower(a.acc, source.FollowConfig{
		Prefix:       path,
		TailLines:    *n,
		PollInterval: a.cfg.PollInterval(),
		Logger:       a.log,
	})
	if err := src.Start(ctx); err != nil {
		return fmt.Errorf("following %s: %w", path, err)
	}
	defer src.Stop()

	model := tui.NewModelWithOptions(tui.ModelOptions{
		Accessor:  a.acc,
		Prefix:    filepath.Base(path),
		Following: true,
		Theme:     tui.ParseTheme(a.cfg.Display.Theme),
	})
	var opts []tea.ProgramOption
	if a.cfg.Display.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	p := tea.NewProgram(model, opts...)
	tui.ListenForLines(src, p)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running viewer: %w", err)
	}
	return nil
}
