// Package validation содержит функции локальной проверки пользовательского ввода.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Kind определяет тип проверяемого поля.
type Kind string

const (
	KindEmail      Kind = "email"
	KindPassword   Kind = "password"
	KindUsername   Kind = "username"
	KindFirstName  Kind = "firstName"
	KindLastName   Kind = "lastName"
	KindBio        Kind = "bio"
	KindPostalCode Kind = "postalCode"
)

// MsgRequired возвращается для пустого значения любого поля.
const MsgRequired = "This field is required."

// MsgUsernameLetter возвращается, если в имени пользователя нет ни одной буквы.
const MsgUsernameLetter = "Username must contain at least one letter."

type rule struct {
	minLength int
	maxLength int
	regex     *regexp.Regexp
	message   string
}

var rules = map[Kind]rule{
	KindEmail: {
		maxLength: 100,
		regex:     regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`),
		message:   "Please enter a valid email address.",
	},
	KindPassword: {
		minLength: 8,
		maxLength: 254,
		regex:     regexp.MustCompile(`^[a-zA-Z0-9!@#$%^&*()_+\-=\[\]{};':"\\|,.<>/?]+$`),
		message:   "Password must be 8-72 characters and contain no spaces.",
	},
	KindUsername: {
		minLength: 3,
		maxLength: 20,
		regex:     regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`),
		message:   "Username can only contain letters, numbers, underscores, dots, and hyphens.",
	},
	KindFirstName: {
		minLength: 1,
		maxLength: 50,
		regex:     regexp.MustCompile(`^[a-zA-Z\s.-]+$`),
		message:   "First name can only contain letters, spaces, dots, and hyphens.",
	},
	KindLastName: {
		minLength: 1,
		maxLength: 50,
		regex:     regexp.MustCompile(`^[a-zA-Z\s.-]+$`),
		message:   "Last name can only contain letters, spaces, dots, and hyphens.",
	},
	KindBio: {
		maxLength: 160,
		regex:     regexp.MustCompile(`^[^<>"'\\]*$`),
		message:   "Bio contains restricted special characters.",
	},
	KindPostalCode: {
		regex:   regexp.MustCompile(`^\d{4}$`),
		message: "Postal code must be exactly 4 digits.",
	},
}

var hasLetter = regexp.MustCompile(`[a-zA-Z]`)

// FieldError описывает ошибку проверки конкретного поля.
type FieldError struct {
	Kind    Kind
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

// SanitizeInput удаляет из строки символы < > " ' \.
func SanitizeInput(val string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '"', '\'', '\\':
			return -1
		}
		return r
	}, val)
}

// ValidateField проверяет значение поля указанного типа и возвращает *FieldError либо nil.
// Пустое значение отклоняется до остальных правил, длина проверяется раньше регулярного выражения.
func ValidateField(kind Kind, value string) error {
	r, ok := rules[kind]
	if !ok {
		return fmt.Errorf("unknown field kind %q", kind)
	}

	if value == "" {
		return &FieldError{Kind: kind, Message: MsgRequired}
	}

	if kind == KindUsername && !hasLetter.MatchString(value) {
		return &FieldError{Kind: kind, Message: MsgUsernameLetter}
	}

	length := utf8.RuneCountInString(value)
	label := fieldLabel(kind)

	if r.minLength > 0 && length < r.minLength {
		return &FieldError{Kind: kind, Message: fmt.Sprintf("%s must be at least %d characters.", label, r.minLength)}
	}

	if r.maxLength > 0 && length > r.maxLength {
		return &FieldError{Kind: kind, Message: fmt.Sprintf("%s exceeds maximum length of %d.", label, r.maxLength)}
	}

	if !r.regex.MatchString(value) {
		return &FieldError{Kind: kind, Message: r.message}
	}

	return nil
}

// ValidateAll проверяет поля по порядку и возвращает первую ошибку.
func ValidateAll(fields ...Field) error {
	for _, f := range fields {
		if err := ValidateField(f.Kind, f.Value); err != nil {
			return err
		}
	}
	return nil
}

// Field связывает тип поля с его значением для ValidateAll.
type Field struct {
	Kind  Kind
	Value string
}

func fieldLabel(kind Kind) string {
	s := string(kind)
	return strings.ToUpper(s[:1]) + s[1:]
}
