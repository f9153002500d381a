package main

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/hrtaj/hrtaj-cli/internal/headers"
)

var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Print the header alias table as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return writeMapping(cmd.OutOrStdout(), headers.Default())
	},
}

func writeMapping(out io.Writer, t *headers.Table) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(map[string]any{"headers": t}), "write mapping")
}

func init() {
	rootCmd.AddCommand(mappingCmd)
}
