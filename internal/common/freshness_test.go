package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsFresh(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, IsFresh(time.Time{}, now, time.Hour), "never updated")
	assert.True(t, IsFresh(now.Add(-59*time.Minute), now, time.Hour))
	assert.False(t, IsFresh(now.Add(-time.Hour), now, time.Hour))
}
