package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesSentinel(t *testing.T) {
	err := Wrap(ErrValidation, "row 3, column 'Task timeout'")
	require.NotNil(t, err)
	assert.True(t, Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "Task timeout")
}

func TestValidationErrorf(t *testing.T) {
	err := ValidationErrorf("unknown tag %q on task counter %d", "Finance", 2)
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "Finance")
	assert.Contains(t, err.Error(), "task counter 2")
}

func TestServerErrorfCarriesStatus(t *testing.T) {
	err := ServerErrorf(409, "reload task %q already exists", "T1")
	assert.True(t, Is(err, ErrServer))
	assert.Contains(t, err.Error(), "HTTP 409")
	assert.False(t, IsValidationError(err))
}

func TestSentinelsAreDistinct(t *testing.T) {
	kinds := []error{ErrConfiguration, ErrValidation, ErrTransport, ErrServer, ErrNotFound}
	for i, a := range kinds {
		for j, b := range kinds {
			if i == j {
				continue
			}
			assert.False(t, Is(a, b), "sentinel %v should not match %v", a, b)
		}
	}
}

func TestIsNotFoundError(t *testing.T) {
	assert.False(t, IsNotFoundError(nil))
	assert.False(t, IsNotFoundError(New("plain")))
	assert.True(t, IsNotFoundError(Wrap(ErrNotFound, "stream \"Everyone\"")))
}
