package xlsx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	SheetName = "LinkedIn Resumes"
	FileName  = "LinkedIn_Resumes.xlsx"
)

// ErrRaggedRows is returned when a row's width differs from the header's.
var ErrRaggedRows = errors.New("row length does not match header length")

// Exporter writes a single-sheet workbook into a fixed directory.
type Exporter struct {
	dir    string
	logger *zap.Logger
}

func NewExporter(dir string, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{dir: dir, logger: logger}
}

// Build lays out the header row followed by the value rows.
func Build(headers []string, rows [][]string) (*excelize.File, error) {
	for i, row := range rows {
		if len(row) != len(headers) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrRaggedRows, i+1, len(row), len(headers))
		}
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	write := func(line int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, line)
		if err != nil {
			return err
		}
		return f.SetSheetRow(SheetName, cell, &values)
	}

	if err := write(1, headers); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range rows {
		if err := write(i+2, row); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	return f, nil
}

// Export builds the workbook and saves it as <dir>/LinkedIn_Resumes.xlsx,
// replacing an earlier export. Nothing is left behind on failure.
func (e *Exporter) Export(ctx context.Context, headers []string, rows [][]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := Build(headers, rows)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	tmp, err := os.CreateTemp(e.dir, ".export-*.xlsx")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := f.Write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to close workbook: %w", err)
	}

	path := filepath.Join(e.dir, FileName)
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to move workbook into place: %w", err)
	}

	e.logger.Info("exported applicants", zap.String("path", path), zap.Int("rows", len(rows)))
	return path, nil
}
