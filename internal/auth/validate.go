package auth

import "regexp"

var (
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)
)

// IsValidEmail checks the local@domain.tld shape; full RFC validation is
// deliberately out of scope.
func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsValidUsername allows 3-20 characters of letters, digits, hyphen and
// underscore.
func IsValidUsername(username string) bool {
	return usernameRe.MatchString(username)
}
