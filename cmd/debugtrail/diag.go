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

func newDiagCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "diag",
		Aliases: []string{"d"},
		Short:   "Run diagnostics and inspect the issues they found",
	}
	cmd.AddCommand(
		newDiagRunCmd(a),
		newDiagIssuesCmd(a),
		newDiagAddIssueCmd(a),
		newDiagFinishCmd(a),
	)
	return cmd
}

func newDiagRunCmd(a *app) *cobra.Command {
	var tool, target string
	var params []string
	cmd := &cobra.Command{
		Use:   "run ID [-- COMMAND ARGS...]",
		Short: "Record a diagnostic run, executing COMMAND when given",
		Long: `Record a diagnostic run in a session.

When a command follows "--" it is executed and its output parsed into issues
by the parser registered for the tool (pylint, flake8, or a generic
line-per-issue parser). Without a command the run stays open so issues can be
added by hand with "diag add-issue".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			argv := args[1:]
			if tool == "" && len(argv) > 0 {
				tool = filepath.Base(argv[0])
			}
			if tool == "" {
				return fmt.Errorf("--tool is required when no command is given")
			}
			parameters, err := parseKeyValues(params)
			if err != nil {
				return err
			}
			s, err := a.loadSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			run, err := a.manager.RunDiagnostic(cmd.Context(), s.ID, session.DiagnosticRequest{
				Tool:       tool,
				Target:     target,
				Parameters: parameters,
				Command:    argv,
			})
			if err != nil {
				return err
			}
			if run == nil {
				return sessionNotFound(s.ID)
			}
			fmt.Fprintf(a.out, "Diagnostic %s: %s\n", run.ID, severitySummary(run.CountIssuesBySeverity()))
			for _, issue := range run.IssuesFound {
				printIssueLine(a.out, issue, config.GetInt(config.KeyOutputWidth))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&tool, "tool", "t", "", "Tool name (defaults to the command's base name)")
	cmd.Flags().StringVar(&target, "target", "", "File or component being diagnosed")
	cmd.Flags().StringArrayVar(&params, "param", nil, "Run parameter as key=value (repeatable)")
	return cmd
}

func newDiagIssuesCmd(a *app) *cobra.Command {
	var unresolved bool
	cmd := &cobra.Command{
		Use:   "issues ID",
		Short: "List the issues found across a session's diagnostics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			issues := s.AllIssues()
			if unresolved {
				issues = s.UnresolvedIssues()
			}
			if len(issues) == 0 {
				fmt.Fprintln(a.out, dimStyle.Render("No issues."))
				return nil
			}
			width := config.GetInt(config.KeyOutputWidth)
			for _, issue := range issues {
				printIssueLine(a.out, issue, width)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&unresolved, "unresolved", "u", false, "Only issues no fix has resolved")
	return cmd
}

func newDiagAddIssueCmd(a *app) *cobra.Command {
	var issueType, severity, location, description string
	cmd := &cobra.Command{
		Use:   "add-issue ID RUN",
		Short: "Add an issue by hand to an open diagnostic run",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sev, ok := domain.ParseSeverity(severity)
			if !ok {
				return fmt.Errorf("unknown severity %q", severity)
			}
			s, run, err := a.loadRun(cmd, args[0], args[1])
			if err != nil {
				return err
			}
			issue, err := run.AddIssue(issueType, sev, location, description)
			if err != nil {
				return err
			}
			if err := a.manager.Update(cmd.Context(), s); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Added issue %s\n", issue.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&issueType, "type", "manual", "Issue type")
	cmd.Flags().StringVarP(&severity, "severity", "s", string(domain.SeverityMedium), "critical, high, medium or low")
	cmd.Flags().StringVarP(&location, "location", "l", "", "Where the issue is (file:line)")
	cmd.Flags().StringVarP(&description, "description", "m", "", "What is wrong")
	return cmd
}

func newDiagFinishCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "finish ID RUN",
		Short: "Close an open diagnostic run",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, run, err := a.loadRun(cmd, args[0], args[1])
			if err != nil {
				return err
			}
			if run.Finished() {
				fmt.Fprintf(a.out, "Diagnostic %s already finished\n", run.ID)
				return nil
			}
			run.Complete()
			if err := a.manager.Update(cmd.Context(), s); err != nil {
				return err
			}
			d, _ := run.Duration()
			fmt.Fprintf(a.out, "Diagnostic %s finished after %.2fs\n", run.ID, d)
			return nil
		},
	}
}

func (a *app) loadRun(cmd *cobra.Command, sessionID, runID string) (*domain.DebugSession, *domain.DiagnosticRun, error) {
	s, err := a.loadSession(cmd.Context(), sessionID)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]string, 0, len(s.Diagnostics))
	for _, r := range s.Diagnostics {
		ids = append(ids, r.ID)
	}
	id, err := resolvePrefix("diagnostic", runID, ids)
	if err != nil {
		return nil, nil, err
	}
	run := s.FindDiagnostic(id)
	if run == nil {
		return nil, nil, appErrors.New(appErrors.CodeNotFound, fmt.Sprintf("diagnostic %s not found in session %s", runID, s.ID), nil)
	}
	return s, run, nil
}
