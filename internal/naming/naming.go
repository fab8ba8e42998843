// Package naming derives bound type names and storage table names from
// template names.
package naming

import (
	"regexp"
	"strings"

	"github.com/jinzhu/inflection"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	acronymBoundary = regexp.MustCompile(`([A-Z\d]+)([A-Z][a-z])`)
	wordBoundary    = regexp.MustCompile(`([a-z\d])([A-Z])`)
	separatorRun    = regexp.MustCompile(`[\s\-./_]+`)
)

// ClassName converts an identifier-like string into PascalCase.
//
// Segments are split on underscores, dashes, dots, slashes and whitespace.
// Each segment keeps its inner casing and only gets its first letter
// upper-cased, so "some_otherType_OfClass_name" becomes
// "SomeOtherTypeOfClassName".
func ClassName(value string) string {
	caser := cases.Title(language.Und, cases.NoLower)
	var b strings.Builder
	for _, segment := range segments(value) {
		b.WriteString(caser.String(segment))
	}
	return b.String()
}

// TableName converts a template or class name into the lower, underscored,
// pluralized storage name ("person" -> "people").
func TableName(value string) string {
	return Pluralize(Underscore(value))
}

// Underscore converts a CamelCase or mixed-separator string to snake_case.
func Underscore(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	value = acronymBoundary.ReplaceAllString(value, "${1}_${2}")
	value = wordBoundary.ReplaceAllString(value, "${1}_${2}")
	value = separatorRun.ReplaceAllString(value, "_")
	return strings.Trim(strings.ToLower(value), "_")
}

// Pluralize pluralizes the last underscore-delimited word of value.
func Pluralize(value string) string {
	if value == "" {
		return ""
	}
	idx := strings.LastIndex(value, "_")
	return value[:idx+1] + inflection.Plural(value[idx+1:])
}

func segments(value string) []string {
	return strings.FieldsFunc(value, func(r rune) bool {
		switch r {
		case '_', '-', '.', '/', ' ', '\t', '\n':
			return true
		}
		return false
	})
}
