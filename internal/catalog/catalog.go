// Package catalog knows which AP courses exist and how many units each
// one has, and resolves topic sentinels ("all units", "unit range") to
// one concrete unit before the cache is consulted. The cache itself
// only ever sees a single resolved (subject, unit) key, so repeated
// "all units" requests spread entries across units instead of piling
// onto one.
package catalog

import (
	"fmt"
	"math/rand/v2"

	"github.com/prepdeck/backend/internal/apperr"
)

// unitCounts lists the supported courses and their unit counts.
var unitCounts = map[string]int{
	"AP Biology":               8,
	"AP Chemistry":             9,
	"AP Physics 1":             7,
	"AP Calculus AB":           8,
	"AP Calculus BC":           10,
	"AP Statistics":            9,
	"AP Computer Science A":    10,
	"AP Environmental Science": 9,
	"AP US History":            9,
	"AP World History":         9,
	"AP European History":      9,
	"AP Psychology":            9,
	"AP Human Geography":       7,
	"AP US Government":         5,
	"AP Macroeconomics":        6,
	"AP Microeconomics":        6,
	"AP English Literature":    9,
	"AP English Language":      9,
	"AP Art History":           10,
}

// Units returns the number of units for a subject, or 0 if unknown.
func Units(subject string) int {
	return unitCounts[subject]
}

// Known reports whether the subject is in the catalog.
func Known(subject string) bool {
	_, ok := unitCounts[subject]
	return ok
}

// Subjects returns the number of courses in the catalog.
func Subjects() int {
	return len(unitCounts)
}

// ResolveTopic turns the caller's topic selection into one concrete
// unit. An explicit topic passes through untouched. An empty topic
// picks a uniform-random unit across the whole course; unitFrom/unitTo
// (both > 0) pick a uniform-random unit within the clamped range. Both
// sentinels need the subject in the catalog to know the unit count.
func ResolveTopic(subject, topic string, unitFrom, unitTo int) (string, error) {
	if topic != "" {
		return topic, nil
	}

	n := Units(subject)
	if n == 0 {
		return "", &apperr.ValidationError{
			Field:  "subject",
			Reason: fmt.Sprintf("unknown subject %q requires an explicit topic", subject),
		}
	}

	lo, hi := 1, n
	if unitFrom > 0 || unitTo > 0 {
		if unitFrom > 0 {
			lo = unitFrom
		}
		if unitTo > 0 {
			hi = unitTo
		}
		if lo > hi {
			return "", &apperr.ValidationError{Field: "unit_from", Reason: "range is empty"}
		}
		if hi > n {
			hi = n
		}
		if lo > n {
			return "", &apperr.ValidationError{
				Field:  "unit_from",
				Reason: fmt.Sprintf("subject has only %d units", n),
			}
		}
	}

	unit := lo + rand.IntN(hi-lo+1)
	return fmt.Sprintf("Unit %d", unit), nil
}
