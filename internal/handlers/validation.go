package handlers

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 64
	maxEmailLen    = 120
	maxAboutMeLen  = 256
	maxTitleLen    = 50
	maxTokenLen    = 64
)

// validationError reports a request field that failed validation.
type validationError struct {
	Field   string
	Message string
}

func (e *validationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &validationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func validateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < minUsernameLen || n > maxUsernameLen {
		return invalid("username", "length must be between %d and %d", minUsernameLen, maxUsernameLen)
	}
	if strings.ContainsAny(username, "/ \t\n") {
		return invalid("username", "must not contain whitespace or slashes")
	}
	return nil
}

// validateEmail accepts a bare address only; display names such as
// "Bob <bob@example.com>" are rejected.
func validateEmail(email string) error {
	if email == "" || len(email) > maxEmailLen {
		return invalid("email", "not a valid email address")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid("email", "not a valid email address")
	}
	return nil
}

func validateAboutMe(about string) error {
	if utf8.RuneCountInString(about) > maxAboutMeLen {
		return invalid("about_me", "length must be at most %d", maxAboutMeLen)
	}
	return nil
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return invalid("title", "missing data for required field")
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return invalid("title", "length must be at most %d", maxTitleLen)
	}
	return nil
}

func validateToken(field, value string) error {
	if len(value) > maxTokenLen {
		return invalid(field, "length must be at most %d", maxTokenLen)
	}
	return nil
}
