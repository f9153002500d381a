package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hrtaj/hrtaj-cli/internal/importer"
	"github.com/hrtaj/hrtaj-cli/internal/table"
)

var (
	templateKind string
	templateOut  string
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Write a sample upload file",
	Long:  "Writes the header row of a resale (Arabic headers) or project (canonical headers) upload file. The output format follows the --out extension; without --out, CSV goes to stdout.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if templateKind != importer.KindResale && templateKind != importer.KindProject {
			return eris.Errorf("unknown template kind %q: use resale or project", templateKind)
		}
		header := importer.TemplateHeaders(templateKind)

		if templateOut == "" {
			return table.WriteCSV(cmd.OutOrStdout(), header)
		}

		f, err := os.Create(templateOut)
		if err != nil {
			return eris.Wrapf(err, "create %s", templateOut)
		}
		if err := writeTemplate(f, templateOut, templateKind, header); err != nil {
			f.Close() //nolint:errcheck
			return err
		}
		if err := f.Close(); err != nil {
			return eris.Wrapf(err, "close %s", templateOut)
		}

		zap.L().Info("template written", zap.String("kind", templateKind), zap.String("path", templateOut))
		return nil
	},
}

func writeTemplate(w io.Writer, path, kind string, header []string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return table.WriteXLSX(w, kind, header)
	case ".csv", "":
		return table.WriteCSV(w, header)
	default:
		return eris.Errorf("unsupported template extension %q: use .csv or .xlsx", filepath.Ext(path))
	}
}

func init() {
	templateCmd.Flags().StringVar(&templateKind, "kind", importer.KindResale, "template kind: resale or project")
	templateCmd.Flags().StringVar(&templateOut, "out", "", "output file (.csv or .xlsx)")
	rootCmd.AddCommand(templateCmd)
}
