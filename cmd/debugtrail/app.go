package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"debugtrail/internal/command"
	"debugtrail/internal/config"
	"debugtrail/internal/debug"
	"debugtrail/internal/domain"
	appErrors "debugtrail/internal/errors"
	"debugtrail/internal/session"
	"debugtrail/internal/storage"
)

const progressDelay = 300 * time.Millisecond

// app carries the collaborators shared by every subcommand. Tests replace the
// function fields.
type app struct {
	out    io.Writer
	errOut io.Writer

	runner    command.Runner
	openStore func(context.Context, config.Storage) (storage.Store, error)
	confirm   func(title string) (bool, error)
	copyText  func(string) error
	isTTY     func() bool

	flags   globalFlags
	manager *session.Manager
}

type globalFlags struct {
	debug   bool
	backend string
	path    string
	codec   string
	strict  bool
}

func newApp() *app {
	return &app{
		out:       os.Stdout,
		errOut:    os.Stderr,
		runner:    command.NewExecRunner(),
		openStore: storage.Open,
		confirm:   confirmPrompt,
		copyText:  clipboard.WriteAll,
		isTTY: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stderr.Fd()))
		},
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "debugtrail",
		Short:         "Record what you tried while debugging, and what changed",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			debug.Close()
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	pf := root.PersistentFlags()
	pf.BoolVar(&a.flags.debug, "debug", false, "Write a debug log to ~/.debugtrail/debug.log")
	pf.StringVar(&a.flags.backend, "storage-backend", config.BackendFile, "Storage backend (file, sqlite)")
	pf.StringVar(&a.flags.path, "storage-path", "", "Storage directory or database file")
	pf.StringVar(&a.flags.codec, "storage-codec", config.CodecJSON, "Serialization for stored sessions (json, msgpack)")
	pf.BoolVar(&a.flags.strict, "strict", false, "Reject completing or abandoning a session that already ended")

	root.AddCommand(
		newSessionCmd(a),
		newDiagCmd(a),
		newFixCmd(a),
		newTimelineCmd(a),
		newVersionCmd(a),
	)
	return root
}

// setup resolves configuration, opens the store and builds the manager.
// Flags override configuration only when given explicitly.
func (a *app) setup(cmd *cobra.Command) error {
	if err := config.Initialize(); err != nil {
		return fmt.Errorf("initialize config: %w", err)
	}
	flags := cmd.Flags()
	overrides := map[string]any{}
	if flags.Changed("debug") {
		overrides[config.KeyDebug] = a.flags.debug
	}
	if flags.Changed("storage-backend") {
		overrides[config.KeyStorageBackend] = a.flags.backend
	}
	if flags.Changed("storage-path") {
		overrides[config.KeyStoragePath] = a.flags.path
	}
	if flags.Changed("storage-codec") {
		overrides[config.KeyStorageCodec] = a.flags.codec
	}
	if flags.Changed("strict") {
		overrides[config.KeyStrictTransitions] = a.flags.strict
	}
	if err := config.ApplyOverrides(overrides); err != nil {
		return fmt.Errorf("apply flags: %w", err)
	}

	if err := debug.Init(config.GetBool(config.KeyDebug)); err != nil {
		fmt.Fprintf(a.errOut, "Warning: debug log unavailable: %v\n", err)
	}

	settings, err := config.StorageSettings()
	if err != nil {
		return err
	}
	store, err := a.openStore(cmd.Context(), settings)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	debug.Logf("storage: %s at %s (%s)", settings.Backend, settings.Path, settings.Codec)

	runner := a.runner
	if a.isTTY() {
		runner = progressRunner{inner: a.runner, w: a.errOut, delay: progressDelay}
	}
	a.manager = session.NewManager(store,
		session.WithRunner(runner),
		session.WithStrictTransitions(config.GetBool(config.KeyStrictTransitions)),
	)
	return nil
}

// loadSession resolves id, which may be a unique prefix of a session id.
func (a *app) loadSession(ctx context.Context, id string) (*domain.DebugSession, error) {
	id = strings.TrimSpace(id)
	s, err := a.manager.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s != nil {
		return s, nil
	}
	all, err := a.manager.AllSessions(ctx)
	if err != nil {
		return nil, err
	}
	var match *domain.DebugSession
	for _, candidate := range all {
		if id == "" || !strings.HasPrefix(candidate.ID, id) {
			continue
		}
		if match != nil {
			return nil, appErrors.New(appErrors.CodeNotFound, fmt.Sprintf("session prefix %q is ambiguous", id), nil)
		}
		match = candidate
	}
	if match == nil {
		return nil, sessionNotFound(id)
	}
	return match, nil
}

func sessionNotFound(id string) error {
	return appErrors.New(appErrors.CodeNotFound, fmt.Sprintf("session %s not found", id), nil)
}

// parseKeyValues turns repeated key=value flags into a map.
func parseKeyValues(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		out[key] = strings.TrimSpace(value)
	}
	return out, nil
}

// resolvePrefix returns the id in ids equal to want, or the only one it
// prefixes. It returns "" when nothing matches.
func resolvePrefix(kind, want string, ids []string) (string, error) {
	match := ""
	for _, id := range ids {
		if id == want {
			return id, nil
		}
		if want == "" || !strings.HasPrefix(id, want) {
			continue
		}
		if match != "" {
			return "", appErrors.New(appErrors.CodeNotFound, fmt.Sprintf("%s prefix %q is ambiguous", kind, want), nil)
		}
		match = id
	}
	return match, nil
}
