package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"sort"
	"syscall"
)

// Run is the CLI entrypoint used by cmd/verzek.
// It returns an error instead of calling os.Exit to keep defers effective.
func Run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage(stderr)
		if len(args) == 0 {
			return ErrUsage
		}
		return nil
	}
	cmd, ok := commands()[args[0]]
	if !ok {
		printUsage(stderr)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}

	cfg := LoadConfig()
	log := NewLogger(cfg.LogLevel, cfg.LogFormat, cfg.LogSource, stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("app.close.fail", "err", err)
		}
	}()

	return execute(ctx, a, cmd, args[1:], stdout, stderr)
}

// execute bootstraps the session and runs one command.
func execute(ctx context.Context, a *App, cmd command, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet(cmd.name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "usage: verzek %s %s\n", cmd.name, cmd.usage)
		fs.PrintDefaults()
	}

	c := &cli{app: a, out: stdout, fs: fs}
	bind := cmd.run(c)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	a.Session.Initialize(ctx)
	if cmd.auth && !a.Session.Snapshot().IsAuthenticated() {
		return ErrNotLoggedIn
	}
	return bind(ctx)
}

func printUsage(w io.Writer) {
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)

	_, _ = fmt.Fprintln(w, "usage: verzek <command> [flags]")
	_, _ = fmt.Fprintln(w, "\ncommands:")
	for _, name := range names {
		_, _ = fmt.Fprintf(w, "  %-20s %s\n", name, cmds[name].summary)
	}
}

// cli is the per-invocation command context.
type cli struct {
	app *App
	out io.Writer
	fs  *flag.FlagSet
}

func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// message prints a backend acknowledgement.
func (c *cli) message(msg string, err error) error {
	if err != nil {
		return err
	}
	return c.print(map[string]any{"ok": true, "message": msg})
}

// set reports whether the named flag was given on the command line.
func (c *cli) set(name string) bool {
	found := false
	c.fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
