package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUniqueSlug(t *testing.T) {
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, "swing-trading", uniqueSlug("swing-trading", false, now))

	// A duplicate name gets the current date as suffix, never the zero time
	assert.Equal(t, "swing-trading-20260201", uniqueSlug("swing-trading", true, now))
}
