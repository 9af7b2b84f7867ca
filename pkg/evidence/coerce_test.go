package evidence

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToFloat(t *testing.T) {
	assert.Equal(t, 12000.0, toFloat("RM 12,000"))
	assert.Equal(t, 12000.5, toFloat("RM12,000.50"))
	assert.Equal(t, 50000.0, toFloat(json.Number("50000")))
	assert.Equal(t, 3.5, toFloat(3.5))
	assert.Equal(t, 0.0, toFloat(nil))
	assert.Equal(t, 0.0, toFloat("n/a"))
	assert.Equal(t, 1.5, toFloat("1.5.7"), "parses the leading number")
}

func TestToInt(t *testing.T) {
	assert.Equal(t, 2, toInt(2.9))
	assert.Equal(t, 34, toInt("34 years"))
	assert.Equal(t, 0, toInt("none"))
	assert.Equal(t, 7, toInt(json.Number("7")))
}

func TestToBool(t *testing.T) {
	for _, v := range []any{true, "yes", "Y", "1", "TRUE", 1.0} {
		assert.True(t, toBool(v), "%v", v)
	}
	for _, v := range []any{false, "no", "", nil, 0.0, "present"} {
		assert.False(t, toBool(v), "%v", v)
	}
}

func TestToString(t *testing.T) {
	assert.Equal(t, "TAN AH KOW", toString("  TAN AH KOW "))
	assert.Equal(t, "880101121234", toString(json.Number("880101121234")))
	assert.Equal(t, "", toString(nil))
	assert.Equal(t, []string{"bumper", "bonnet"}, toStrings([]any{"bumper", nil, " ", "bonnet"}))
}
