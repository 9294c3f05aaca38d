package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamaqiyasov/vkinder/internal/vk"
)

func TestValidateName(t *testing.T) {
	name, err := validateName("  Ann ")
	require.NoError(t, err)
	assert.Equal(t, "Ann", name)

	_, err = validateName("A")
	assert.Error(t, err)
	_, err = validateName("42")
	assert.Error(t, err)
	_, err = validateName("   ")
	assert.Error(t, err)
}

func TestValidateAge(t *testing.T) {
	age, err := validateAge("29")
	require.NoError(t, err)
	assert.Equal(t, 29, age)

	// registration bounds, not search bounds
	age, err = validateAge("14")
	require.NoError(t, err)
	assert.Equal(t, 14, age)

	_, err = validateAge("13")
	assert.Error(t, err)
	_, err = validateAge("121")
	assert.Error(t, err)
	_, err = validateAge("old")
	assert.Error(t, err)
}

func TestParseSex(t *testing.T) {
	for _, in := range []string{"female", "F", "woman", "1"} {
		sex, err := parseSex(in, false)
		require.NoError(t, err, in)
		assert.Equal(t, vk.SexFemale, sex)
	}
	for _, in := range []string{"male", "m", "MAN", "2"} {
		sex, err := parseSex(in, false)
		require.NoError(t, err, in)
		assert.Equal(t, vk.SexMale, sex)
	}

	// "any" only exists for search preferences
	_, err := parseSex("any", false)
	assert.Error(t, err)

	sex, err := parseSex("any", true)
	require.NoError(t, err)
	assert.Equal(t, vk.SexAny, sex)
}

func TestParseAgeRange(t *testing.T) {
	from, to, err := parseAgeRange("25-30")
	require.NoError(t, err)
	assert.Equal(t, 25, from)
	assert.Equal(t, 30, to)

	// a single age expands
	from, to, err = parseAgeRange("27")
	require.NoError(t, err)
	assert.Equal(t, 24, from)
	assert.Equal(t, 30, to)

	// clamped to the preference bounds
	from, to, err = parseAgeRange("10-200")
	require.NoError(t, err)
	assert.Equal(t, 18, from)
	assert.Equal(t, 100, to)

	_, _, err = parseAgeRange("30-25")
	assert.Error(t, err)
	_, _, err = parseAgeRange("young")
	assert.Error(t, err)
}

func TestRegistrationPayload_MissingFieldOrder(t *testing.T) {
	p := registrationPayload{}
	assert.Equal(t, fieldName, p.nextMissingField())

	p.FirstName = "Ann"
	assert.Equal(t, fieldAge, p.nextMissingField())

	p.Age = 29
	assert.Equal(t, fieldSex, p.nextMissingField())

	p.Sex = 1
	assert.Equal(t, fieldCity, p.nextMissingField())

	p.City = "Springfield"
	assert.Equal(t, "", p.nextMissingField())
}

func TestRegistrationPayload_Roundtrip(t *testing.T) {
	p := registrationPayload{FirstName: "Ann", Age: 29, Sex: 1, City: "Springfield"}
	decoded := decodeRegistration(p.encode())
	assert.Equal(t, p, decoded)

	// garbage payload degrades to empty, not a crash
	assert.Equal(t, registrationPayload{}, decodeRegistration("not json"))
}
