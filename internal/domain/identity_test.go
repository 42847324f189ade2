package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"john doe", "John Doe"},
		{"  jOHN   DOE ", "John Doe"},
		{"ana", "Ana"},
		{"", ""},
		{"   ", ""},
		{"josé da silva", "José Da Silva"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestIdentity_NormalizedAndValidate(t *testing.T) {
	id := Identity{Name: " maria  clara ", RegNo: " 001 "}.Normalized()
	assert.Equal(t, Identity{Name: "Maria Clara", RegNo: "001"}, id)
	assert.NoError(t, id.Validate())

	err := Identity{Name: "x"}.Validate()
	assert.True(t, errors.Is(err, ErrValidationFailed))

	err = Identity{RegNo: "1"}.Validate()
	assert.True(t, errors.Is(err, ErrValidationFailed))
}

func TestValidateClass(t *testing.T) {
	for _, ok := range []string{"10A", "class-x", "Grade 5"} {
		assert.NoError(t, ValidateClass(ok), ok)
	}
	for _, bad := range []string{"", ".", "..", "a/b", `a\b`} {
		assert.ErrorIs(t, ValidateClass(bad), ErrInvalidClass, bad)
	}
}

func TestValidateRegNo(t *testing.T) {
	assert.NoError(t, ValidateRegNo("2024-001"))
	assert.Error(t, ValidateRegNo("../x"))
	assert.Error(t, ValidateRegNo(""))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, 2024, d.Year())

	_, err = ParseDate("01/01/2024")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("absent")
	require.NoError(t, err)
	assert.Equal(t, StatusAbsent, st)

	st, err = ParseStatus(" Present ")
	require.NoError(t, err)
	assert.Equal(t, StatusPresent, st)

	_, err = ParseStatus("sleeping")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
