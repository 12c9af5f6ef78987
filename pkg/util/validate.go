package util

import "regexp"

// mobilePattern matches the national mobile format 010-XXXX-XXXX with exactly
// four digits in each X group.
var mobilePattern = regexp.MustCompile(`^010-\d{4}-\d{4}$`)

// ValidMobile reports whether phone matches the 010-XXXX-XXXX mobile format.
func ValidMobile(phone string) bool {
	return mobilePattern.MatchString(phone)
}
