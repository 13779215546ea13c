// Package lasrra validates LASRRA resident identification numbers.
//
// Two formats are in circulation. Version 1 numbers start with "LA" and carry a
// checksum over the six-digit sequential block; version 2 numbers carry a
// weighted checksum over every preceding character.
package lasrra

import (
	"errors"
	"strconv"
)

const (
	v1Prefix        = "LA"
	valueToSubtract = 45
	modulo          = 28
	checksumChars   = "0123456789ABCEFGHJKMNPRTUVWXY"
)

var ErrInvalidID = errors.New("invalid lasrra id format")

// Version reports which checksum scheme applies to id.
func Version(id string) int {
	if len(id) >= 2 && id[:2] == v1Prefix {
		return 1
	}
	return 2
}

// Validate returns nil when the trailing checksum character of id matches.
func Validate(id string) error {
	runes := []rune(id)
	if len(runes) < 2 {
		return ErrInvalidID
	}

	var (
		expected rune
		ok       bool
	)
	if Version(id) == 1 {
		expected, ok = checksumV1(runes)
	} else {
		expected, ok = checksumV2(runes)
	}

	if !ok || expected != runes[len(runes)-1] {
		return ErrInvalidID
	}
	return nil
}

func IsValid(id string) bool {
	return Validate(id) == nil
}

func checksumV1(id []rune) (rune, bool) {
	if len(id) < 7 {
		return 0, false
	}

	total := 0
	for _, ch := range id[len(id)-7 : len(id)-1] {
		if ch < '0' || ch > '9' {
			return 0, false
		}
		total += int(ch - '0')
	}

	if total < 10 {
		return rune(checksumChars[total]), true
	}

	first := strconv.Itoa(total)[0] - '0'
	return rune(checksumChars[first]), true
}

func checksumV2(id []rune) (rune, bool) {
	total := 0
	for i, ch := range id[:len(id)-1] {
		weight := int(ch) - valueToSubtract
		if (i+1)%2 == 0 {
			weight *= 2
		}
		total += weight
	}

	rem := total % modulo
	if rem < 0 {
		rem += modulo
	}
	return rune(checksumChars[modulo-rem]), true
}
