// Package validation нормализует и проверяет пользовательский текст перед записью в журнал и споры.
package validation

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/pkg/apperror"
)

// Лимиты длины в символах.
const (
	MaxServiceTitleLength = 200
	MaxLocationLength     = 500
	MaxReasonLength       = 1000
	MaxDisputeTextLength  = 4000
)

// Text обрезает пробелы, убирает управляющие символы (кроме перевода строки и табуляции)
// и проверяет длину. min = 0 разрешает пустую строку.
func Text(fieldName, value string, min, max int) (string, error) {
	if !utf8.ValidString(value) {
		return "", apperror.Newf(apperror.ErrCodeValidation, "%s содержит некорректный UTF-8", fieldName)
	}
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, value)
	cleaned = strings.TrimSpace(cleaned)

	if err := ValidateLength(fieldName, cleaned, min, max); err != nil {
		return "", err
	}
	return cleaned, nil
}

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		if min == 1 {
			return apperror.Newf(apperror.ErrCodeValidation, "%s не может быть пустым", fieldName)
		}
		return apperror.Newf(apperror.ErrCodeValidation, "%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return apperror.Newf(apperror.ErrCodeValidation, "%s длиннее %d символов", fieldName, max)
	}
	return nil
}
