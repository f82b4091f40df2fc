// Package identifier extracts the relationship-manager code (NIP) from the
// composite "<digits> - <name>" text found in account exports.
package identifier

import "strings"

// Separator splits the code from the manager's name.
const Separator = " - "

// Extract returns the numeric code from text shaped like "00332299 - Rino".
//
// It reports false when text is missing, is the "-" placeholder, has no
// separator, or when the part before the first separator is not all ASCII
// digits. The code is returned as text so leading zeros survive.
func Extract(text string) (string, bool) {
	s := strings.TrimSpace(text)
	if s == "" || s == "-" {
		return "", false
	}
	code, _, ok := strings.Cut(s, Separator)
	if !ok {
		return "", false
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return "", false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return "", false
		}
	}
	return code, true
}
