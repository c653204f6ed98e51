package dialogue

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	accepted := []string{"Anna", "Ivan", "Анна", "Пётр", "ЁЖИК", "Jo", strings.Repeat("a", 50)}
	for _, name := range accepted {
		assert.NoError(t, ValidateName(name), name)
	}

	rejected := []string{"", "A", "Ж", strings.Repeat("a", 51), "Anna1", "Anna Maria", "Anne-Marie", "José"}
	for _, name := range rejected {
		assert.ErrorIs(t, ValidateName(name), ErrInvalidName, name)
	}
}

func TestValidateBirthdate(t *testing.T) {
	assert.NoError(t, ValidateBirthdate("05.03.1990"))
	// no calendar check
	assert.NoError(t, ValidateBirthdate("31.02.2000"))

	for _, date := range []string{"5.3.1990", "2020.01.01", "05-03-1990", "05.03.90", " 05.03.1990", "05.03.1990x", ""} {
		assert.ErrorIs(t, ValidateBirthdate(date), ErrInvalidBirthdate, date)
	}
}

func TestBirthDay(t *testing.T) {
	day, err := BirthDay("23.01.1990")
	require.NoError(t, err)
	assert.Equal(t, 23, day)

	day, err = BirthDay("09.12.2001")
	require.NoError(t, err)
	assert.Equal(t, 9, day)

	_, err = BirthDay("9.12.2001")
	assert.ErrorIs(t, err, ErrInvalidBirthdate)
}
