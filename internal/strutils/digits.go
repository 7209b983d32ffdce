package strutils

import "strings"

const MAX_DIGITS_INPUT_LENGTH = 256

// Keeps only the ASCII digits 0-9 of the input, in order
//
// Other unicode digits (e.g. arabic-indic) are discarded as well, as the directory only stores ASCII.
func DigitsOnly(input string) string {
	var digits strings.Builder
	digits.Grow(min(len(input), MAX_DIGITS_INPUT_LENGTH))

	for _, char := range input {
		if char >= '0' && char <= '9' {
			digits.WriteRune(char)
		}
	}
	return digits.String()
}

func IsDigitsOnly(input string) bool {
	for _, char := range input {
		if char < '0' || char > '9' {
			return false
		}
	}
	return true
}
