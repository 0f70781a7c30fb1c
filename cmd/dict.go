package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gramfix/internal/dictfile"
)

var dictForce bool

var dictCmd = &cobra.Command{
	Use:   "dict",
	Short: "Manage the frequency dictionary file",
}

var dictFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the frequency dictionary (and bigrams, when configured)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		d := dictfile.NewDownloader()
		files := [][2]string{{cfg.Dictionary.Path, cfg.Dictionary.URL}}
		if cfg.Dictionary.BigramPath != "" && cfg.Dictionary.BigramURL != "" {
			files = append(files, [2]string{cfg.Dictionary.BigramPath, cfg.Dictionary.BigramURL})
		}
		for _, f := range files {
			if dictForce {
				if err := d.Fetch(cmd.Context(), f[0], f[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "downloaded %s\n", f[0])
				continue
			}
			fetched, err := d.Ensure(cmd.Context(), f[0], f[1])
			if err != nil {
				return err
			}
			if fetched {
				fmt.Fprintf(cmd.OutOrStdout(), "downloaded %s\n", f[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already present\n", f[0])
			}
		}
		return nil
	},
}

func init() {
	dictFetchCmd.Flags().BoolVar(&dictForce, "force", false, "download even when the file exists")
	dictCmd.AddCommand(dictFetchCmd)
}
