package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"gramfix/internal/app"
	"gramfix/internal/corrector"
	perr "gramfix/internal/platform/errors"
)

var checkJSON bool

var checkCmd = &cobra.Command{
	Use:   "check [text...]",
	Short: "Correct text once and print the result",
	Long: `Correct the given text, or standard input when no arguments are given,
with the configured pipeline and print the corrected text.

Examples:
  gramfix check "she go school every day"
  echo "I went too the stor" | gramfix check
  GRAMFIX_GENERATOR_BACKEND=echo gramfix check --json "teh cat"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		if len(args) == 0 {
			b, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			text = string(b)
		}

		c := *cfg
		c.Metrics.Enabled = false
		c.Server.SmokeCheck = false
		a, err := app.New(cmd.Context(), &c)
		if err != nil {
			return err
		}
		defer a.Shutdown(cmd.Context())

		res, err := a.Pipeline().Correct(cmd.Context(), text)
		if perr.IsCode(err, perr.ErrorCodeEmptyInput) {
			return fmt.Errorf("nothing to check: %w", err)
		}
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if checkJSON {
			return json.NewEncoder(out).Encode(res)
		}
		_, err = fmt.Fprintln(out, res.CorrectedText)
		return err
	},
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <word>...",
	Short: "List dictionary suggestions for single words",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := corrector.NewSpellCorrector(cmd.Context(), cfg.Dictionary.Corrector(), cfg.Dictionary.Path, nil)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, w := range args {
			items := sc.Lookup(w)
			if len(items) == 0 {
				fmt.Fprintf(out, "%s: no suggestion\n", w)
				continue
			}
			for _, it := range items {
				fmt.Fprintf(out, "%s: %s (distance %d, count %d)\n", w, it.Term, it.Distance, it.Count)
			}
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, `print {"correctedText": ...} instead of plain text`)
}
