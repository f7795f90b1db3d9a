package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimeframeDays(t *testing.T) {
	assert.Equal(t, 7, Timeframe7D.Days())
	assert.Equal(t, 30, Timeframe30D.Days())
	assert.Equal(t, 90, Timeframe90D.Days())
	assert.Equal(t, 0, Timeframe("1Y").Days())
}

func TestTimeframeIsValid(t *testing.T) {
	assert.True(t, Timeframe7D.IsValid())
	assert.False(t, Timeframe("").IsValid())
	assert.False(t, Timeframe("7d").IsValid(), "validation happens after uppercasing at the API boundary")
}
