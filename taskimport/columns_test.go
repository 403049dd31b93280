package taskimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptarmiganlabs/ctrlq/errors"
)

func TestParseRefMode(t *testing.T) {
	mode, err := ParseRefMode("name")
	require.NoError(t, err)
	assert.Equal(t, RefByName, mode)

	mode, err = ParseRefMode("position")
	require.NoError(t, err)
	assert.Equal(t, RefByPosition, mode)

	_, err = ParseRefMode("header")
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestColumnResolverByNameIgnoresOrder(t *testing.T) {
	// Mandatory columns in scrambled order, with an unknown column mixed in
	header := []string{
		"Task name", "Task counter", "Extra column", "Task type", "Task id",
		"Task enabled", "Task timeout", "Task retries", "App id",
		"Partial reload", "Manually triggered", "Tags", "Custom properties",
	}
	r, err := NewColumnResolver(header, RefByName)
	require.NoError(t, err)

	row := make([]string, len(header))
	row[0] = "Load sales"
	row[1] = "1"

	got, ok := r.Get(row, ColTaskName)
	require.True(t, ok)
	assert.Equal(t, "Load sales", got)

	got, ok = r.Get(row, ColTaskCounter)
	require.True(t, ok)
	assert.Equal(t, "1", got)

	// Optional columns absent from the header report as missing
	_, ok = r.Get(row, ColEventType)
	assert.False(t, ok)
}

func TestColumnResolverByNameMissingMandatory(t *testing.T) {
	header := []string{"Task counter", "Task type", "Task name"}
	_, err := NewColumnResolver(header, RefByName)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
	assert.Contains(t, err.Error(), "Task id")
}

func TestColumnResolverByPositionUsesCanonicalOrder(t *testing.T) {
	// Header text is irrelevant in position mode, only the width counts
	header := make([]string, int(columnCount))
	for i := range header {
		header[i] = "whatever"
	}
	r, err := NewColumnResolver(header, RefByPosition)
	require.NoError(t, err)

	row := make([]string, int(columnCount))
	row[ColTaskName] = "  Load sales  "
	row[ColRuleTaskID] = "abc"

	got, ok := r.Get(row, ColTaskName)
	require.True(t, ok)
	assert.Equal(t, "Load sales", got) // trimmed

	got, ok = r.Get(row, ColRuleTaskID)
	require.True(t, ok)
	assert.Equal(t, "abc", got)
}

func TestColumnResolverByPositionNarrowHeader(t *testing.T) {
	header := make([]string, 5)
	_, err := NewColumnResolver(header, RefByPosition)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestColumnResolverShortRows(t *testing.T) {
	header := make([]string, int(columnCount))
	r, err := NewColumnResolver(header, RefByPosition)
	require.NoError(t, err)

	// Rows shorter than the header are common in hand-edited CSVs
	row := []string{"1", "Reload", "Load sales"}
	got, ok := r.Get(row, ColTaskName)
	require.True(t, ok)
	assert.Equal(t, "Load sales", got)

	_, ok = r.Get(row, ColTags)
	assert.False(t, ok)
}
