package catalog

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// backupTimeFormat produces names like items_database_src_backup_20260901_153045.zip
const backupTimeFormat = "20060102_150405"

// writeBackup archives the current catalog file into a timestamped zip in
// backupDir and returns the archive path. The source file must exist; the
// caller only backs up non-empty catalogs.
func writeBackup(srcPath, backupDir string, now time.Time) (string, error) {
	if backupDir == "" {
		backupDir = filepath.Dir(srcPath)
	}
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := fmt.Sprintf("items_database_src_backup_%s.zip", now.Format(backupTimeFormat))
	dstPath := filepath.Join(backupDir, name)

	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("failed to open catalog for backup: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("failed to create backup archive: %w", err)
	}
	defer dst.Close()

	zw := zip.NewWriter(dst)
	entry, err := zw.Create(filepath.Base(srcPath))
	if err != nil {
		zw.Close()
		return "", fmt.Errorf("failed to create archive entry: %w", err)
	}
	if _, err := io.Copy(entry, src); err != nil {
		zw.Close()
		return "", fmt.Errorf("failed to write archive entry: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize backup archive: %w", err)
	}

	return dstPath, nil
}
