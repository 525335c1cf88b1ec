/**
 * @description
 * This package generates and validates the fixed-length numeric identifiers
 * used throughout the service: 8-digit customer IDs and 10-digit account
 * numbers. The final digit of every identifier is a Luhn check digit computed
 * over the preceding digits, so transcription errors are caught before they
 * ever reach the database.
 *
 * @notes
 * - Generation makes no uniqueness guarantee. Primary-key collisions are
 *   astronomically rare but structurally possible; callers own the retry.
 * - Validation is a pure predicate: malformed input returns false, never an
 *   error, so it can back request validation directly.
 */
package luhn

import (
	"math/rand"
	"strconv"
)

// Supported identifier lengths, including the check digit.
const (
	CustomerIDLength    = 8
	AccountNumberLength = 10
)

var pow10 = [...]int64{1, 10, 100, 1000, 10000, 100000, 1000000, 10000000, 100000000, 1000000000, 10000000000}

// GenerateCustomerID returns a new 8-digit Luhn-valid customer ID.
func GenerateCustomerID() int64 {
	return generate(CustomerIDLength)
}

// GenerateAccountNumber returns a new 10-digit Luhn-valid account number.
func GenerateAccountNumber() int64 {
	return generate(AccountNumberLength)
}

// generate builds an identifier of the given total length: length-1 uniform
// random digits (first digit never zero, so the printed form always has
// exactly `length` digits) followed by the Luhn check digit.
func generate(length int) int64 {
	baseDigits := length - 1

	min := pow10[baseDigits-1]
	max := pow10[baseDigits] - 1
	base := min + rand.Int63n(max-min+1)

	return base*10 + int64(checkDigit(base, baseDigits))
}

// checkDigit computes the Luhn check digit for a base number of baseDigits
// digits. Digit positions are counted from the right of the base; every digit
// at an even position is doubled (the appended check digit shifts them to the
// odd positions the validator doubles).
func checkDigit(base int64, baseDigits int) int {
	sum := 0
	for i := 0; i < baseDigits; i++ {
		digit := int((base / pow10[i]) % 10)
		if i%2 == 0 {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
	}
	return (10 - sum%10) % 10
}

// ValidCustomerID reports whether n is a checksum-valid 8-digit customer ID.
func ValidCustomerID(n int64) bool {
	return validNumber(n, CustomerIDLength)
}

// ValidAccountNumber reports whether n is a checksum-valid 10-digit account
// number.
func ValidAccountNumber(n int64) bool {
	return validNumber(n, AccountNumberLength)
}

func validNumber(n int64, length int) bool {
	if n < pow10[length-1] || n >= pow10[length] {
		return false
	}
	return valid(strconv.FormatInt(n, 10))
}

// ParseCustomerID parses and checksum-validates a customer ID from its string
// form. The boolean result is false for any malformed or checksum-failing input.
func ParseCustomerID(s string) (int64, bool) {
	return parse(s, CustomerIDLength)
}

// ParseAccountNumber parses and checksum-validates an account number from its
// string form.
func ParseAccountNumber(s string) (int64, bool) {
	return parse(s, AccountNumberLength)
}

func parse(s string, length int) (int64, bool) {
	if len(s) != length || !valid(s) {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < pow10[length-1] {
		// A leading zero can pass the checksum but is not a well-formed
		// identifier; generated bases never start with zero.
		return 0, false
	}
	return n, true
}

// valid runs the Luhn check over an all-digit string of any length. Every
// second digit from the right is doubled; the total must be divisible by 10.
func valid(s string) bool {
	if s == "" {
		return false
	}

	sum := 0
	length := len(s)
	for i := 0; i < length; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		digit := int(c - '0')
		if (length-1-i)%2 == 1 {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
	}
	return sum%10 == 0
}
