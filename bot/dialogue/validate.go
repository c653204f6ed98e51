package dialogue

import (
	"errors"
	"regexp"
	"strconv"
)

var (
	// ErrInvalidName marks a name that is not 2-50 Latin or Cyrillic letters.
	ErrInvalidName = errors.New("dialogue: invalid name")
	// ErrInvalidBirthdate marks a date not written as DD.MM.YYYY.
	ErrInvalidBirthdate = errors.New("dialogue: invalid birthdate")

	nameRe      = regexp.MustCompile(`^[A-Za-zА-Яа-яёЁ]{2,50}$`)
	birthdateRe = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)
)

// ValidateName accepts 2 to 50 Latin or Cyrillic letters, including ё/Ё.
func ValidateName(name string) error {
	if !nameRe.MatchString(name) {
		return ErrInvalidName
	}
	return nil
}

// ValidateBirthdate checks the literal DD.MM.YYYY shape; calendar validity is not checked.
func ValidateBirthdate(date string) error {
	if !birthdateRe.MatchString(date) {
		return ErrInvalidBirthdate
	}
	return nil
}

// BirthDay extracts the day field of a validated DD.MM.YYYY date.
func BirthDay(date string) (int, error) {
	if err := ValidateBirthdate(date); err != nil {
		return 0, err
	}
	return strconv.Atoi(date[:2])
}
