package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"freakfest/internal/fsx"
	"freakfest/internal/subscribers"
	"freakfest/pkg/database"
)

var (
	subscribersOut string
	subscribersIn  string
)

var subscribersCmd = &cobra.Command{
	Use:   "subscribers",
	Short: "Export or import newsletter subscribers as CSV",
}

var subscribersExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every subscriber to a CSV file",
	RunE:  runSubscribersExport,
}

var subscribersImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Merge subscribers from a CSV file, keyed by email",
	RunE:  runSubscribersImport,
}

func init() {
	subscribersExportCmd.Flags().StringVar(&subscribersOut, "out", "data/subscribers.csv", "output CSV path")
	subscribersImportCmd.Flags().StringVar(&subscribersIn, "in", "data/subscribers.csv", "input CSV path")
	subscribersCmd.AddCommand(subscribersExportCmd)
	subscribersCmd.AddCommand(subscribersImportCmd)
}

func openSubscribers() (*subscribers.Repo, func(), error) {
	db, err := database.OpenAndMigrate(database.Config{Path: cfg.DBPath})
	if err != nil {
		return nil, nil, err
	}
	return subscribers.NewRepo(db), func() { _ = db.Close() }, nil
}

func runSubscribersExport(cmd *cobra.Command, args []string) error {
	repo, closeDB, err := openSubscribers()
	if err != nil {
		return err
	}
	defer closeDB()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	var buf bytes.Buffer
	n, err := repo.ExportCSV(ctx, &buf)
	if err != nil {
		return fmt.Errorf("export subscribers: %w", err)
	}
	dir, name := filepath.Split(subscribersOut)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := fsx.WriteFileAtomic(dir, name, buf.Bytes()); err != nil {
		return err
	}

	logger.Info("exported subscribers", zap.Int("count", n), zap.String("path", subscribersOut))
	return nil
}

func runSubscribersImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(subscribersIn)
	if err != nil {
		return err
	}
	defer f.Close()

	repo, closeDB, err := openSubscribers()
	if err != nil {
		return err
	}
	defer closeDB()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	imported, skipped, err := repo.ImportCSV(ctx, f)
	if err != nil {
		return fmt.Errorf("import subscribers: %w", err)
	}
	logger.Info("imported subscribers",
		zap.Int("imported", imported), zap.Int("skipped", skipped), zap.String("path", subscribersIn))
	return nil
}
