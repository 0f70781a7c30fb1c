package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gramfix/internal/customdict"
)

var wordsCmd = &cobra.Command{
	Use:   "words",
	Short: "Manage custom dictionary words",
	Long: `Custom words live in a Redis set and are merged into the dictionary with a
very high frequency when the service starts. Changes apply on the next start.`,
}

func openWords(cmd *cobra.Command) (*customdict.CustomDict, error) {
	return customdict.Open(cmd.Context(), cfg.CustomWords.Options())
}

var wordsAddCmd = &cobra.Command{
	Use:   "add <word>...",
	Short: "Add words",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cd, err := openWords(cmd)
		if err != nil {
			return err
		}
		defer cd.Close()
		n, err := cd.Add(cmd.Context(), args...)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %d word(s) to %s\n", n, cd.Key())
		return nil
	},
}

var wordsRemoveCmd = &cobra.Command{
	Use:     "remove <word>...",
	Aliases: []string{"rm"},
	Short:   "Remove words",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cd, err := openWords(cmd)
		if err != nil {
			return err
		}
		defer cd.Close()
		n, err := cd.Remove(cmd.Context(), args...)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d word(s) from %s\n", n, cd.Key())
		return nil
	},
}

var wordsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List words",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cd, err := openWords(cmd)
		if err != nil {
			return err
		}
		defer cd.Close()
		words, err := cd.All(cmd.Context())
		if err != nil {
			return err
		}
		for _, w := range words {
			fmt.Fprintln(cmd.OutOrStdout(), w)
		}
		return nil
	},
}

func init() {
	wordsCmd.AddCommand(wordsAddCmd, wordsRemoveCmd, wordsListCmd)
}
