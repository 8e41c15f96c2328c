package service

import (
	"net/mail"
	"unicode/utf8"

	"github.com/capitalize-ai/localchat/internal/model"
)

const (
	maxContentBytes  = 100000
	maxTitleBytes    = 256
	maxNameBytes     = 256
	minPasswordBytes = 8
	maxPasswordBytes = 72 // bcrypt ignores anything longer
)

// ValidateMessageContent validates message content.
func ValidateMessageContent(content string) string {
	switch {
	case len(content) == 0:
		return "content cannot be empty"
	case len(content) > maxContentBytes:
		return "content exceeds maximum length"
	case !utf8.ValidString(content):
		return "content must be valid UTF-8"
	}
	return ""
}

// ValidateRole validates a message role.
func ValidateRole(role model.Role) string {
	switch {
	case role == "":
		return "role cannot be empty"
	case !role.Valid():
		return "role must be one of user, assistant, system"
	}
	return ""
}

// ValidateTitle validates an optional conversation title.
func ValidateTitle(title *string) string {
	if title == nil {
		return ""
	}
	if len(*title) > maxTitleBytes {
		return "title exceeds maximum length"
	}
	if !utf8.ValidString(*title) {
		return "title must be valid UTF-8"
	}
	return ""
}

// ValidateEmail validates an email address.
func ValidateEmail(email string) string {
	if email == "" {
		return "email is required"
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "email is invalid"
	}
	return ""
}

// ValidatePassword validates a new password.
func ValidatePassword(password string) string {
	switch {
	case password == "":
		return "password is required"
	case len(password) < minPasswordBytes:
		return "password must be at least 8 characters"
	case len(password) > maxPasswordBytes:
		return "password exceeds maximum length"
	}
	return ""
}

// ValidateName validates an optional display name.
func ValidateName(name string) string {
	if len(name) > maxNameBytes {
		return "name exceeds maximum length"
	}
	if !utf8.ValidString(name) {
		return "name must be valid UTF-8"
	}
	return ""
}

func required(value, field string) string {
	if value == "" {
		return field + " is required"
	}
	return ""
}
