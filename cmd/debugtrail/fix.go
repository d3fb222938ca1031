package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"debugtrail/internal/config"
	"debugtrail/internal/domain"
	appErrors "debugtrail/internal/errors"
	"debugtrail/internal/session"
)

func newFixCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "fix",
		Aliases: []string{"f"},
		Short:   "Apply fix scripts, resolve issues and roll fixes back",
	}
	cmd.AddCommand(
		newFixApplyCmd(a),
		newFixResolveCmd(a),
		newFixRollbackCmd(a),
		newFixDiffCmd(a),
	)
	return cmd
}

func newFixApplyCmd(a *app) *cobra.Command {
	var script, target, snapshots string
	var files, resolves, params []string
	cmd := &cobra.Command{
		Use:   "apply ID [-- COMMAND ARGS...]",
		Short: "Record a fix, running COMMAND and capturing changes to --file paths",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			argv := args[1:]
			if script == "" && len(argv) > 0 {
				script = filepath.Base(argv[0])
			}
			if script == "" {
				return fmt.Errorf("--script is required when no command is given")
			}
			parameters, err := parseKeyValues(params)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("snapshots") {
				snapshots = config.GetString(config.KeySnapshotsDir)
			}
			s, err := a.loadSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fix, err := a.manager.ApplyFix(cmd.Context(), s.ID, session.FixRequest{
				Script:      script,
				Target:      target,
				Parameters:  parameters,
				Command:     argv,
				Files:       files,
				Resolves:    resolves,
				SnapshotDir: snapshots,
			})
			if err != nil {
				return err
			}
			if fix == nil {
				return sessionNotFound(s.ID)
			}
			result := "succeeded"
			if !fix.Successful {
				result = "failed"
			}
			fmt.Fprintf(a.out, "Fix %s %s: %d files changed, %d issues resolved\n",
				fix.ID, result, len(fix.Changes), len(fix.ResolvedIssues))
			for _, c := range fix.Changes {
				printChange(a, c)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&script, "script", "", "Fix script name (defaults to the command's base name)")
	f.StringVar(&target, "target", "", "File or component being fixed")
	f.StringArrayVar(&files, "file", nil, "File the script may change (repeatable)")
	f.StringSliceVar(&resolves, "resolves", nil, "Issue ids to mark resolved when the script succeeds")
	f.StringArrayVar(&params, "param", nil, "Fix parameter as key=value (repeatable)")
	f.StringVar(&snapshots, "snapshots", "", "Directory for before/after/diff snapshots")
	return cmd
}

func printChange(a *app, c *domain.FileChange) {
	sum := c.SummarizeChanges()
	line := fmt.Sprintf("  %s +%d -%d (%.2f%%)", c.FilePath, sum.LinesAdded, sum.LinesRemoved, sum.ChangePercentage)
	if funcs := c.ChangedFunctions(); len(funcs) > 0 {
		line += dimStyle.Render(fmt.Sprintf(" %v", funcs))
	}
	fmt.Fprintln(a.out, truncate(line, config.GetInt(config.KeyOutputWidth)))
}

func newFixResolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve ID FIX ISSUE...",
		Short: "Mark issues as resolved by a fix",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, fix, err := a.loadFix(cmd, args[0], args[1])
			if err != nil {
				return err
			}
			if _, err := a.manager.ResolveIssue(cmd.Context(), s.ID, fix.ID, args[2:]...); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Fix %s resolved %d issues\n", fix.ID, len(args[2:]))
			return nil
		},
	}
}

func newFixRollbackCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback ID FIX",
		Short: "Restore the files a fix changed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, fix, err := a.loadFix(cmd, args[0], args[1])
			if err != nil {
				return err
			}
			res, err := a.manager.RollbackFix(cmd.Context(), s.ID, fix.ID)
			if err != nil {
				return err
			}
			if res == nil {
				return sessionNotFound(s.ID)
			}
			fmt.Fprintf(a.out, "Restored %d of %d files\n", res.Restored, res.Total)
			if !res.OK {
				return fmt.Errorf("rollback of fix %s was incomplete", fix.ID)
			}
			return nil
		},
	}
}

func newFixDiffCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diff ID FIX",
		Short: "Print the unified diffs a fix recorded",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, fix, err := a.loadFix(cmd, args[0], args[1])
			if err != nil {
				return err
			}
			for _, c := range fix.Changes {
				fmt.Fprint(a.out, c.Diff)
			}
			return nil
		},
	}
}

func (a *app) loadFix(cmd *cobra.Command, sessionID, fixID string) (*domain.DebugSession, *domain.AppliedFix, error) {
	s, err := a.loadSession(cmd.Context(), sessionID)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]string, 0, len(s.Fixes))
	for _, f := range s.Fixes {
		ids = append(ids, f.ID)
	}
	id, err := resolvePrefix("fix", fixID, ids)
	if err != nil {
		return nil, nil, err
	}
	fix := s.FindFix(id)
	if fix == nil {
		return nil, nil, appErrors.New(appErrors.CodeNotFound, fmt.Sprintf("fix %s not found in session %s", fixID, s.ID), nil)
	}
	return s, fix, nil
}
