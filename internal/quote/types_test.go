package quote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupplyLine_WithField(t *testing.T) {
	line := NewSupplyLine("u1")
	cases := []struct {
		field, value, want string
	}{
		{"label", "  Headlight ", "Headlight"},
		{"quantity", "2,5", "2.5"},
		{"unitPrice", "10", "10.00"},
		{"discountRate", "15", "15"},
		{"recovered", "yes", "yes"},
		{"recovered", "", "no"},
	}
	for _, tc := range cases {
		next, err := line.WithField(tc.field, tc.value)
		require.NoError(t, err, tc.field)
		assert.Equal(t, tc.want, next.Value(tc.field), tc.field)
		assert.Equal(t, "u1", next.RowUID())
	}

	_, err := line.WithField("quantity", "two")
	assert.EqualError(t, err, `invalid number "two"`)
	_, err = line.WithField("colour", "red")
	assert.Error(t, err)
}

func TestSupplyLine_Total(t *testing.T) {
	line := NewSupplyLine("u")
	line, _ = line.WithField("quantity", "3")
	line, _ = line.WithField("unitPrice", "19.99")
	line, _ = line.WithField("discountRate", "10")
	assert.Equal(t, "53.97", line.Total().StringFixed(2))
}

func TestWorkforceLine_WithField(t *testing.T) {
	line := NewWorkforceLine("u")
	line, err := line.WithField("category", " Paint ")
	require.NoError(t, err)
	assert.Equal(t, "paint", line.Category)

	line, err = line.WithField("hours", "1.5")
	require.NoError(t, err)
	line, err = line.WithField("hourlyRate", "60")
	require.NoError(t, err)
	assert.Equal(t, "90", line.Total().String())
}

func TestValidationMessages(t *testing.T) {
	v := newValidate()

	line := NewWorkforceLine("u")
	line.Label = "Strip"
	line.Category = "welding"
	line, _ = line.WithField("hours", "-1")
	err := v.Struct(line)
	require.Error(t, err)
	assert.Equal(t, "category: must be one of bodywork mechanics electrical paint; hours: must be at least 0",
		validationMessage(err))

	supply := NewSupplyLine("u")
	supply.Label = "Clip"
	supply, _ = supply.WithField("quantity", "0")
	assert.Equal(t, "quantity: must be greater than 0", validationMessage(v.Struct(supply)))

	ok := NewSupplyLine("u")
	ok.Label = "Clip"
	assert.NoError(t, v.Struct(ok))
}
