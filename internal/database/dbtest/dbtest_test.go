package dbtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portify/internal/database"
)

func TestOpen_IsolatedPerCall(t *testing.T) {
	first := Open(t)
	second := Open(t)

	SeedTemplate(t, first, "Clean", true, true)
	SeedTemplate(t, second, "Clean", true, true)

	var count int64
	require.NoError(t, second.Model(&database.Template{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
