// Package validation checks user-supplied input before it reaches the store.
package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinPasswordLength = 6
	// bcrypt ignores input past 72 bytes, so longer passwords are refused.
	MaxPasswordBytes  = 72
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MaxEmailLength    = 254
	MaxBioLength      = 500
	MaxLocationLength = 100
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9\-]+(\.[a-zA-Z0-9\-]+)*\.[a-zA-Z]{2,}$`)
)

// ValidatePassword checks length only. The original app accepted any
// password of six or more characters.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	}
	if len(password) > MaxPasswordBytes {
		return fmt.Errorf("password must not exceed %d bytes", MaxPasswordBytes)
	}
	return nil
}

// ValidateUsername checks username format
func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < MinUsernameLength {
		return fmt.Errorf("username must be at least %d characters long", MinUsernameLength)
	}
	if n > MaxUsernameLength {
		return fmt.Errorf("username must not exceed %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, dots, underscores, and hyphens")
	}

	first, last := username[0], username[len(username)-1]
	if strings.ContainsRune("_-.", rune(first)) || strings.ContainsRune("_-.", rune(last)) {
		return fmt.Errorf("username cannot start or end with a dot, underscore or hyphen")
	}
	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if len(email) > MaxEmailLength {
		return fmt.Errorf("email must not exceed %d characters", MaxEmailLength)
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidateMessageText requires non-blank text of at most maxLen characters.
func ValidateMessageText(text string, maxLen int) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("message text is required")
	}
	if n := utf8.RuneCountInString(text); n > maxLen {
		return fmt.Errorf("message must be at most %d characters (got %d)", maxLen, n)
	}
	return nil
}

// ValidateImageURL accepts an empty value, a site-relative path or an
// absolute http(s) URL.
func ValidateImageURL(raw string) error {
	if raw == "" || (strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//")) {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("image URL must be an http(s) URL or a site path")
	}
	return nil
}

// ValidateProfileText bounds the free-text profile fields.
func ValidateProfileText(bio, location string) error {
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return fmt.Errorf("bio must not exceed %d characters", MaxBioLength)
	}
	if utf8.RuneCountInString(location) > MaxLocationLength {
		return fmt.Errorf("location must not exceed %d characters", MaxLocationLength)
	}
	return nil
}
