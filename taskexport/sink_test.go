package taskexport

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.csv")
	header := []string{"Task counter", "Task name"}
	rows := [][]string{{"1", "Load sales"}, {"2", "name, with comma"}}

	require.NoError(t, WriteCSVFile(path, header, rows))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	got, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, header, got[0])
	assert.Equal(t, rows[1], got[2])
}

func TestWriteExcelFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.xlsx")
	header := []string{"Task counter", "Task name"}
	rows := [][]string{{"1", "Load sales"}}

	require.NoError(t, WriteExcelFile(path, "Tasks", header, rows))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	got, err := f.GetRows("Tasks")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, header, got[0])
	assert.Equal(t, rows[0], got[1])
}

func TestWriteJSONFileOmitsEmptyCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	header := []string{"Task counter", "Task name", "Tags"}
	rows := [][]string{{"1", "Load sales", ""}}

	require.NoError(t, WriteJSONFile(path, header, rows))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []map[string]string
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got, 1)
	assert.Equal(t, map[string]string{"Task counter": "1", "Task name": "Load sales"}, got[0])
}
