package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ImportAll walks the export base directory and dispatches each folder to
// the matching importer by its name prefix, mirroring the layout of the
// account data export archive.
func (im *Importer) ImportAll(ctx context.Context, baseDir string) error {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return fmt.Errorf("failed to read base directory %s: %w", baseDir, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		dir := filepath.Join(baseDir, name)

		switch {
		case strings.HasPrefix(name, "Digital-Ordering"):
			if err := im.importDigitalOrderingDir(ctx, dir); err != nil {
				return err
			}
		case strings.HasPrefix(name, "Digital.Borrows"):
			if err := im.importNamedCSV(ctx, dir, name, im.ImportDigitalBorrows); err != nil {
				return err
			}
		case strings.HasPrefix(name, "Retail.OrderHistory"):
			if err := im.importNamedCSV(ctx, dir, name, im.ImportRetailOrders); err != nil {
				return err
			}
		case strings.HasPrefix(name, "Retail.OrdersReturned"):
			if err := im.importNamedCSV(ctx, dir, name, im.ImportReturns); err != nil {
				return err
			}
		default:
			im.logger.Debug("skipping unrecognized folder", zap.String("dir", name))
		}
	}

	im.logger.Info("data import completed")
	return nil
}

// importNamedCSV imports <dir>/<dirname>.csv, the convention used for the
// single-file export folders.
func (im *Importer) importNamedCSV(ctx context.Context, dir, name string, importFn func(context.Context, string) error) error {
	path := filepath.Join(dir, name+".csv")
	if _, err := os.Stat(path); err != nil {
		im.logger.Warn("export file missing", zap.String("path", path))
		return nil
	}
	return importFn(ctx, path)
}

func (im *Importer) importDigitalOrderingDir(ctx context.Context, dir string) error {
	ordersPath := filepath.Join(dir, "Digital Orders.csv")
	itemsPath := filepath.Join(dir, "Digital Items.csv")
	paymentsPath := filepath.Join(dir, "Digital Orders Monetary.csv")

	for _, path := range []string{ordersPath, itemsPath, paymentsPath} {
		if _, err := os.Stat(path); err != nil {
			im.logger.Warn("digital ordering files incomplete", zap.String("dir", dir))
			return nil
		}
	}
	return im.ImportDigitalOrders(ctx, ordersPath, itemsPath, paymentsPath)
}
