package log

import (
	"fmt"
	"strings"
)

// MaxFieldLength caps logged string values; prompts and model output can be large.
const MaxFieldLength = 2048

// sensitiveKeywords mark keys whose values are credentials
var sensitiveKeywords = []string{
	"password", "passwd", "pwd",
	"key", "token", "secret",
	"auth", "credential",
}

// SanitizeField masks credential values and truncates oversized ones
func SanitizeField(key, value string) string {
	if value == "" {
		return value
	}

	lowerKey := strings.ToLower(key)

	if strings.Contains(lowerKey, "email") || strings.Contains(lowerKey, "mail") {
		return sanitizeEmail(value)
	}

	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lowerKey, keyword) {
			return sanitizeToken(value)
		}
	}

	return truncate(value, MaxFieldLength)
}

// sanitizeToken masks a secret showing only the first 4 and last 4 characters
func sanitizeToken(value string) string {
	if len(value) <= 8 {
		if len(value) <= 2 {
			return strings.Repeat("*", len(value))
		}
		return string(value[0]) + strings.Repeat("*", len(value)-2) + string(value[len(value)-1])
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}

// sanitizeEmail keeps the first 3 characters of the local part
func sanitizeEmail(value string) string {
	parts := strings.Split(value, "@")
	if len(parts) != 2 {
		return strings.Repeat("*", len(value))
	}

	localPart, domain := parts[0], parts[1]
	if len(localPart) <= 3 {
		if len(localPart) == 0 {
			return "@" + domain
		}
		return string(localPart[0]) + strings.Repeat("*", len(localPart)-1) + "@" + domain
	}
	return localPart[:3] + "***@" + domain
}

// truncate cuts value to limit bytes, backing up to a rune boundary
func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	cut := limit
	for cut > 0 && !isRuneStart(value[cut]) {
		cut--
	}
	return fmt.Sprintf("%s...(%d bytes truncated)", value[:cut], len(value)-cut)
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
