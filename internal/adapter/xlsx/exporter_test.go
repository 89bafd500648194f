package xlsx

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/user/applicant-harvester/internal/entity"
)

var sampleRows = [][]string{
	{"1", "Ada", "Berlin", "2d ago", "https://files.example.test/a", "4.0", "Engineer", "Acme", "Engineer at Acme (2020 – Present)"},
	{"2", "Ben", "Unknown Location", "Unknown Time", entity.ResumeUnavailable, "0", "Not currently employed", "Not currently employed", "No experience listed"},
}

func sheetRows(t *testing.T, f *excelize.File) [][]string {
	t.Helper()
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	return rows
}

func TestBuild_HeaderThenRows(t *testing.T) {
	f, err := Build(entity.ExportHeaders, sampleRows)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows := sheetRows(t, f)
	require.Len(t, rows, 3)
	assert.Equal(t, entity.ExportHeaders, rows[0])
	assert.Equal(t, sampleRows[0], rows[1])
	assert.Equal(t, sampleRows[1], rows[2])
}

func TestBuild_Idempotent(t *testing.T) {
	a, err := Build(entity.ExportHeaders, sampleRows)
	require.NoError(t, err)
	defer a.Close()
	b, err := Build(entity.ExportHeaders, sampleRows)
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, sheetRows(t, a), sheetRows(t, b))
}

func TestBuild_RaggedRows(t *testing.T) {
	_, err := Build([]string{"a", "b"}, [][]string{{"1", "2"}, {"3"}})
	assert.ErrorIs(t, err, ErrRaggedRows)
}

func TestExport_WritesFixedFileName(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	e := NewExporter(dir, nil)

	path, err := e.Export(context.Background(), entity.ExportHeaders, sampleRows)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, sheetRows(t, f), 3)

	// A second export replaces the first.
	_, err = e.Export(context.Background(), entity.ExportHeaders, sampleRows[:1])
	require.NoError(t, err)
	f2, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f2.Close()
	assert.Len(t, sheetRows(t, f2), 2)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestExport_RaggedLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	_, err := NewExporter(dir, nil).Export(context.Background(), []string{"a"}, [][]string{{"1", "2"}})
	require.ErrorIs(t, err, ErrRaggedRows)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
