package server

import (
	"regexp"
	"strings"

	"github.com/samber/lo"
)

// Redaction replaces redacted values.
const Redaction = "***"

// PIIFields are redacted from logged form data.
var PIIFields = []string{"email", "password", "name", "phone", "ssn"}

// RedactFields replaces the value of every field=value pair in message whose
// field is listed, where pairs are separated by separator (default ";").
func RedactFields(fields []string, redaction, message, separator string) string {
	if len(fields) == 0 || message == "" {
		return message
	}
	if separator == "" {
		separator = ";"
	}
	names := lo.Map(fields, func(f string, _ int) string { return regexp.QuoteMeta(f) })
	pattern := regexp.MustCompile(
		`(^|` + regexp.QuoteMeta(separator) + `)(` + strings.Join(names, "|") + `)=[^` + regexp.QuoteMeta(separator) + `]*`)
	return pattern.ReplaceAllString(message, "${1}${2}="+strings.ReplaceAll(redaction, "$", "$$"))
}
