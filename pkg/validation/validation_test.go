package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("asha@example.com"))
	assert.True(t, ValidateEmail("  asha@example.com  "))
	assert.False(t, ValidateEmail(""))
	assert.False(t, ValidateEmail("not-an-email"))
	assert.False(t, ValidateEmail("asha@"))
}

func TestValidatePhone(t *testing.T) {
	assert.True(t, ValidatePhone("+919876543210"))
	assert.True(t, ValidatePhone("9876543210"))
	assert.False(t, ValidatePhone(""))
	assert.False(t, ValidatePhone("0123"))
	assert.False(t, ValidatePhone("abc"))
}

func TestValidateCoordinates(t *testing.T) {
	assert.True(t, ValidateCoordinates(12.97, 77.59))
	assert.True(t, ValidateCoordinates(-90, 180))
	assert.False(t, ValidateCoordinates(90.1, 0))
	assert.False(t, ValidateCoordinates(0, -180.1))
}

func TestValidateCategory(t *testing.T) {
	for _, c := range Categories {
		assert.True(t, ValidateCategory(c), c)
	}
	assert.False(t, ValidateCategory("plumbing"))
	assert.False(t, ValidateCategory(""))
	assert.False(t, ValidateCategory("Medical"))
}

func TestValidateUrgency(t *testing.T) {
	for _, u := range Urgencies {
		assert.True(t, ValidateUrgency(u), u)
	}
	assert.False(t, ValidateUrgency("asap"))
}

func TestValidateRating(t *testing.T) {
	assert.False(t, ValidateRating(0))
	assert.True(t, ValidateRating(1))
	assert.True(t, ValidateRating(5))
	assert.False(t, ValidateRating(6))
}

func TestValidateSkills(t *testing.T) {
	assert.True(t, ValidateSkills(nil))
	assert.True(t, ValidateSkills([]string{"medical", "grocery"}))
	assert.False(t, ValidateSkills([]string{"medical", "cooking"}))
}
