package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stembed/internal/formatter"
	"stembed/internal/replay"
	"stembed/internal/translator"
)

func newReplayCmd(a *app) *cobra.Command {
	var noDict bool
	cmd := &cobra.Command{
		Use:   "replay <script>...",
		Short: "Run replay scripts",
		Long: `Translate the strokes of each JSON replay script and compare the text
with its "expect" field. Script entries are layered over the configured
dictionary; --no-dict runs with the script entries alone.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var dict translator.Dictionary
			if !noDict {
				d, err := a.openDictionary(cmd.Context(), a.cfg.Dictionary)
				if err != nil {
					return err
				}
				defer d.Close()
				dict = d
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				s, err := replay.Load(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				name := s.Name
				if name == "" {
					name = path
				}

				res, err := replay.Run(cmd.Context(), s, dict,
					translator.WithLogger(a.logger.Logger),
					translator.WithFormatterOptions(
						formatter.WithDelimiter(a.cfg.Formatter.DelimiterRune()),
					),
				)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}

				switch {
				case s.Expect == nil:
					fmt.Fprintf(out, "RAN   %s: %q\n", name, res.Output)
				case res.Passed(s):
					fmt.Fprintf(out, "PASS  %s\n", name)
				default:
					failed++
					fmt.Fprintf(out, "FAIL  %s: got %q, want %q\n", name, res.Output, *s.Expect)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d scripts failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noDict, "no-dict", false, "Use only the entries in each script")
	return cmd
}
