package model

import "strings"

type Locale string

const (
	LocaleArabic  Locale = "ar-SA"
	LocaleEnglish Locale = "en-US"

	DefaultLocale = LocaleArabic
)

// LocaleFromAcceptLanguage maps any header mentioning Arabic to ar-SA and
// everything else to en-US. An empty header yields the default locale.
func LocaleFromAcceptLanguage(header string) Locale {
	h := strings.ToLower(strings.TrimSpace(header))
	if h == "" {
		return DefaultLocale
	}
	if strings.Contains(h, "ar") {
		return LocaleArabic
	}
	return LocaleEnglish
}

// ParseLocale normalizes a client-supplied locale, falling back to def.
func ParseLocale(s string, def Locale) Locale {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ar", "ar-sa":
		return LocaleArabic
	case "en", "en-us":
		return LocaleEnglish
	}
	return def
}

func (l Locale) IsArabic() bool { return l == LocaleArabic }

// Language is the two-letter tag sent to providers.
func (l Locale) Language() string {
	if l.IsArabic() {
		return "ar"
	}
	return "en"
}
