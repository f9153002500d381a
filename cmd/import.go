package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/hrtaj/hrtaj-cli/internal/importer"
	"github.com/hrtaj/hrtaj-cli/internal/importlog"
	"github.com/hrtaj/hrtaj-cli/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import listings from CSV or Excel files",
}

var (
	importFile           string
	importDryRun         bool
	importOwnerUserID    string
	importHROwnerUserID  string
	importDefaultCity    string
	importDefaultPurpose string
	importDeveloperID    string
)

var importResaleCmd = &cobra.Command{
	Use:   "resale",
	Short: "Import resale units (Arabic or English headers)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		data, err := os.ReadFile(importFile)
		if err != nil {
			return eris.Wrapf(err, "read %s", importFile)
		}

		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		opts := importer.ResaleOptions{
			OwnerUserID:    importOwnerUserID,
			HROwnerUserID:  importHROwnerUserID,
			DefaultCity:    importDefaultCity,
			DefaultPurpose: importDefaultPurpose,
			DryRun:         importDryRun,
			Defaults:       cfg.ImportDefaults(),
		}
		name := filepath.Base(importFile)
		im := importer.New(st)
		report, err := runImport(ctx, st, "resale", name, importDryRun, func(ctx context.Context) (*importer.Report, error) {
			return im.ImportResale(ctx, data, name, opts)
		})
		if err != nil {
			return eris.Wrap(err, "import resale")
		}
		return writeReport(cmd.OutOrStdout(), report)
	},
}

var importProjectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Import developer project units",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if importDeveloperID == "" {
			return importer.ErrDeveloperRequired
		}
		if importOwnerUserID == "" {
			return importer.ErrOwnerRequired
		}
		data, err := os.ReadFile(importFile)
		if err != nil {
			return eris.Wrapf(err, "read %s", importFile)
		}

		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		opts := importer.ProjectOptions{
			DeveloperID: importDeveloperID,
			OwnerUserID: importOwnerUserID,
			DryRun:      importDryRun,
			Defaults:    cfg.ImportDefaults(),
		}
		name := filepath.Base(importFile)
		im := importer.New(st)
		report, err := runImport(ctx, st, "projects", name, importDryRun, func(ctx context.Context) (*importer.Report, error) {
			return im.ImportProjects(ctx, data, name, opts)
		})
		if err != nil {
			return eris.Wrap(err, "import projects")
		}
		return writeReport(cmd.OutOrStdout(), report)
	},
}

// runImport records non-dry runs in the import log.
func runImport(ctx context.Context, st store.Store, kind, filename string, dryRun bool, fn func(context.Context) (*importer.Report, error)) (*importer.Report, error) {
	if dryRun {
		return fn(ctx)
	}
	return importlog.New(st).Track(ctx, kind, filename, fn)
}

func writeReport(out io.Writer, report *importer.Report) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(report), "write report")
}

func init() {
	importCmd.PersistentFlags().StringVar(&importFile, "file", "", "path to a .csv, .xlsx or .xls file (required)")
	importCmd.PersistentFlags().BoolVar(&importDryRun, "dry-run", false, "validate and resolve without writing")
	importCmd.PersistentFlags().StringVar(&importOwnerUserID, "owner-user-id", "", "listing owner (resale default: staff owner from config)")
	_ = importCmd.MarkPersistentFlagRequired("file")

	importResaleCmd.Flags().StringVar(&importHROwnerUserID, "hr-owner-user-id", "", "HR staff owner recorded on listings")
	importResaleCmd.Flags().StringVar(&importDefaultCity, "default-city", "", "city for rows without one")
	importResaleCmd.Flags().StringVar(&importDefaultPurpose, "default-purpose", "", "purpose for rows without one (default from config)")

	importProjectsCmd.Flags().StringVar(&importDeveloperID, "developer-id", "", "developer owning the projects (required)")
	_ = importProjectsCmd.MarkFlagRequired("developer-id")

	importCmd.AddCommand(importResaleCmd, importProjectsCmd)
	rootCmd.AddCommand(importCmd)
}
