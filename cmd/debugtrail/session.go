package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"debugtrail/internal/config"
	"debugtrail/internal/domain"
)

func newSessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "session",
		Aliases: []string{"s"},
		Short:   "Create, inspect and finish debugging sessions",
	}
	cmd.AddCommand(
		newSessionCreateCmd(a),
		newSessionListCmd(a),
		newSessionShowCmd(a),
		newSessionCompleteCmd(a),
		newSessionAbandonCmd(a),
		newSessionDeleteCmd(a),
	)
	return cmd
}

func newSessionCreateCmd(a *app) *cobra.Command {
	var project string
	var meta []string
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Start a new debugging session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			extra, err := parseKeyValues(meta)
			if err != nil {
				return err
			}
			s, err := a.manager.Create(cmd.Context(), args[0], project, extra)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created session %s\n", s.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&project, "project", "p", "", "Project the session belongs to")
	cmd.Flags().StringArrayVar(&meta, "meta", nil, "Extra metadata as key=value (repeatable)")
	return cmd
}

func newSessionListCmd(a *app) *cobra.Command {
	var all bool
	var status string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List sessions (active only unless --all or --status)",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var (
				sessions []*domain.DebugSession
				err      error
			)
			switch {
			case status != "":
				st, perr := domain.ParseStatus(status)
				if perr != nil {
					return perr
				}
				sessions, err = a.manager.AllSessions(ctx)
				sessions = filterStatus(sessions, st)
			case all:
				sessions, err = a.manager.AllSessions(ctx)
			default:
				sessions, err = a.manager.ActiveSessions(ctx)
			}
			if err != nil {
				return err
			}
			printSessionList(a.out, sessions, config.GetInt(config.KeyOutputWidth))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include completed and abandoned sessions")
	cmd.Flags().StringVar(&status, "status", "", "Only sessions with this status")
	return cmd
}

func filterStatus(sessions []*domain.DebugSession, st domain.Status) []*domain.DebugSession {
	out := sessions[:0:0]
	for _, s := range sessions {
		if s.Status == st {
			out = append(out, s)
		}
	}
	return out
}

func newSessionShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a session with its diagnostics and fixes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printSessionDetail(a.out, s, config.GetInt(config.KeyOutputWidth))
			return nil
		},
	}
}

func newSessionCompleteCmd(a *app) *cobra.Command {
	var summary string
	cmd := &cobra.Command{
		Use:   "complete ID",
		Short: "Mark a session completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if s, err = a.manager.Complete(cmd.Context(), s.ID, summary); err != nil {
				return err
			}
			if s == nil {
				return sessionNotFound(args[0])
			}
			fmt.Fprintf(a.out, "Completed session %s after %s\n", s.ID, formatDuration(s.Duration()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&summary, "summary", "m", "", "What was found and fixed")
	return cmd
}

func newSessionAbandonCmd(a *app) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "abandon ID",
		Short: "Mark a session abandoned",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if s, err = a.manager.Abandon(cmd.Context(), s.ID, reason); err != nil {
				return err
			}
			if s == nil {
				return sessionNotFound(args[0])
			}
			fmt.Fprintf(a.out, "Abandoned session %s\n", s.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Why the session was abandoned")
	return cmd
}

func newSessionDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete a session permanently",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !yes {
				if !a.isTTY() {
					return fmt.Errorf("refusing to delete session %s without --yes", s.ID)
				}
				ok, err := a.confirm(fmt.Sprintf("Delete session %q (%s)?", s.Name, shortID(s.ID)))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(a.out, "Cancelled.")
					return nil
				}
			}
			deleted, err := a.manager.Delete(cmd.Context(), s.ID)
			if err != nil {
				return err
			}
			if !deleted {
				return sessionNotFound(s.ID)
			}
			fmt.Fprintf(a.out, "Deleted session %s\n", s.ID)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
