package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"debugtrail/internal/config"
	"debugtrail/internal/report"
	"debugtrail/internal/timeline"
)

func newTimelineCmd(a *app) *cobra.Command {
	var format, output, style string
	var width int
	var copyOut bool
	cmd := &cobra.Command{
		Use:     "timeline ID",
		Aliases: []string{"tl", "report"},
		Short:   "Render a session's timeline as json, yaml, markdown, html or terminal",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("format") {
				format = config.GetString(config.KeyOutputFormat)
			}
			if !cmd.Flags().Changed("width") {
				width = config.GetInt(config.KeyOutputWidth)
			}
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			s, err := a.loadSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			doc := timeline.Build(s).Document()

			var buf bytes.Buffer
			if err := report.Render(&buf, doc, f, report.Options{Style: style, Width: width}); err != nil {
				return err
			}
			if copyOut {
				if err := a.copyText(buf.String()); err != nil {
					return fmt.Errorf("copy to clipboard: %w", err)
				}
				fmt.Fprintf(a.errOut, "Copied %s timeline to clipboard\n", f)
			}
			if output != "" {
				if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
				fmt.Fprintf(a.errOut, "Wrote %s\n", output)
				return nil
			}
			if copyOut {
				return nil
			}
			_, err = a.out.Write(buf.Bytes())
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&format, "format", "f", "markdown", "Output format (json, yaml, markdown, html, terminal)")
	f.StringVarP(&output, "output", "o", "", "Write to FILE instead of stdout")
	f.BoolVarP(&copyOut, "copy", "c", false, "Copy the rendered timeline to the clipboard")
	f.IntVarP(&width, "width", "w", config.DefaultOutputWidth, "Wrap width for terminal output")
	f.StringVar(&style, "style", "auto", "Terminal style (auto, dark, light, notty, plain)")
	return cmd
}
