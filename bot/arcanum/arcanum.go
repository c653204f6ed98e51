// Package arcanum maps a birth day to one of the 22 major arcana and lists
// the document identifiers describing it.
package arcanum

import (
	"errors"
	"fmt"
)

// Max is the highest arcanum number.
const Max = 22

// DefaultDocument is the identifier used when no arcanum-specific document exists.
const DefaultDocument = "default"

// ErrInvalidDay is returned for days outside the resolver domain.
var ErrInvalidDay = errors.New("arcanum: day must be positive")

// Resolve reduces the birth day to an arcanum number in [1,22].
// Days above 22 are replaced by the sum of their digits until the value fits.
func Resolve(day int) (int, error) {
	if day < 1 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidDay, day)
	}
	n := day
	for n > Max {
		n = digitSum(n)
	}
	return n, nil
}

func digitSum(n int) int {
	sum := 0
	for n > 0 {
		sum += n % 10
		n /= 10
	}
	return sum
}

// Candidates returns document identifiers for the arcanum in lookup order:
// the gender-qualified one, the neutral one, then DefaultDocument.
func Candidates(number int, male bool) []string {
	prefix := "f_"
	if male {
		prefix = "m_"
	}
	return []string{
		fmt.Sprintf("%sarcanum_%d", prefix, number),
		fmt.Sprintf("arcanum_%d", number),
		DefaultDocument,
	}
}
