package bot

import (
	"errors"
	"strconv"
	"strings"

	"github.com/kamaqiyasov/vkinder/internal/vk"
)

// Age bounds. Registration accepts anyone the platform does; search
// preferences stay inside the directory's queryable range.
const (
	regAgeMin = 14
	regAgeMax = 120

	prefAgeMin = 18
	prefAgeMax = 100
)

// Validator errors double as reprompt texts sent back to the user.
var (
	errBadName     = errors.New("That doesn't look like a name. Please enter at least 2 letters.")
	errBadAge      = errors.New("Please enter your age as a number between 14 and 120.")
	errBadSex      = errors.New("Please answer female or male.")
	errBadSexPref  = errors.New("Please answer female, male or any.")
	errBadCity     = errors.New("Please enter a city name (at least 2 letters, not a number).")
	errBadAgeRange = errors.New("Please enter an age range like 25-30, or a single age.")
)

func validateName(input string) (string, error) {
	name := strings.TrimSpace(input)
	if len([]rune(name)) < 2 {
		return "", errBadName
	}
	if _, err := strconv.Atoi(name); err == nil {
		return "", errBadName
	}
	return name, nil
}

func validateAge(input string) (int, error) {
	age, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || age < regAgeMin || age > regAgeMax {
		return 0, errBadAge
	}
	return age, nil
}

func validateCity(input string) (string, error) {
	city := strings.TrimSpace(input)
	if len([]rune(city)) < 2 {
		return "", errBadCity
	}
	if _, err := strconv.Atoi(city); err == nil {
		return "", errBadCity
	}
	return city, nil
}

// parseSex maps free-form input onto the canonical encoding. allowAny
// admits the "any" wildcard, which only makes sense for search preferences.
func parseSex(input string, allowAny bool) (vk.Sex, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "female", "f", "woman", "1":
		return vk.SexFemale, nil
	case "male", "m", "man", "2":
		return vk.SexMale, nil
	case "any", "all", "0":
		if allowAny {
			return vk.SexAny, nil
		}
	}
	if allowAny {
		return 0, errBadSexPref
	}
	return 0, errBadSex
}

// parseAgeRange accepts "25-30" or a single age "27" (expanded to ±3),
// clamped to the preference bounds.
func parseAgeRange(input string) (from, to int, err error) {
	s := strings.TrimSpace(input)
	if lo, hi, found := strings.Cut(s, "-"); found {
		from, err = strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return 0, 0, errBadAgeRange
		}
		to, err = strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return 0, 0, errBadAgeRange
		}
	} else {
		mid, convErr := strconv.Atoi(s)
		if convErr != nil {
			return 0, 0, errBadAgeRange
		}
		from, to = mid-3, mid+3
	}

	from = clampAge(from)
	to = clampAge(to)
	if from > to {
		return 0, 0, errBadAgeRange
	}
	return from, to, nil
}

func clampAge(age int) int {
	if age < prefAgeMin {
		return prefAgeMin
	}
	if age > prefAgeMax {
		return prefAgeMax
	}
	return age
}
