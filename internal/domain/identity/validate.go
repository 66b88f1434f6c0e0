package identity

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// MinPasswordLength is the minimum number of characters of a new password.
const MinPasswordLength = 8

var phoneRe = regexp.MustCompile(`^[+]?[(]?[0-9]{3}[)]?[-\s.]?[0-9]{3}[-\s.]?[0-9]{4,6}$`)

// ValidationError maps field names to messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("validation failed:")
	for _, k := range keys {
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(e.Fields[k])
		b.WriteString(";")
	}
	return b.String()
}

func validationError(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// ValidateMetadata checks a profile update. The phone is optional.
func ValidateMetadata(m Metadata) error {
	fields := make(map[string]string)
	if m.Phone != "" && !phoneRe.MatchString(m.Phone) {
		fields["phone"] = "Format de téléphone invalide"
	}
	if strings.TrimSpace(m.Address) == "" {
		fields["address"] = "L'adresse est requise"
	}
	return validationError(fields)
}

// ValidatePassword checks a password change.
func ValidatePassword(p PasswordChange) error {
	fields := make(map[string]string)
	if p.Current == "" {
		fields["currentPassword"] = "Le mot de passe actuel est requis"
	}
	switch {
	case p.New == "":
		fields["newPassword"] = "Le nouveau mot de passe est requis"
	case utf8.RuneCountInString(p.New) < MinPasswordLength:
		fields["newPassword"] = "Le mot de passe doit contenir au moins 8 caractères"
	}
	switch {
	case p.Confirm == "":
		fields["confirmPassword"] = "La confirmation du mot de passe est requise"
	case p.Confirm != p.New:
		fields["confirmPassword"] = "Les mots de passe ne correspondent pas"
	}
	return validationError(fields)
}
