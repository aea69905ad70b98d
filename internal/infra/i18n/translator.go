package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"idea-to-market/internal/domain/model"

	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

// Translator holds the messages of one locale.
type Translator struct {
	translations map[string]string
}

// NewTranslator reads locales/<langCode>.yaml from fsys.
func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	filePath := path.Join("locales", fmt.Sprintf("%s.yaml", langCode))
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}
	return newTranslatorFromBytes(data)
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation file: %w", err)
	}
	return &Translator{translations: translations}, nil
}

// T returns the message for key, formatted with args. Unknown keys come back unchanged.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.translations[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

// Catalog picks a Translator per request locale.
type Catalog struct {
	byLocale map[model.Locale]*Translator
	fallback model.Locale
}

// NewCatalog loads every supported locale from fsys.
func NewCatalog(fsys fs.FS) (*Catalog, error) {
	c := &Catalog{byLocale: map[model.Locale]*Translator{}, fallback: model.DefaultLocale}
	for _, loc := range []model.Locale{model.LocaleArabic, model.LocaleEnglish} {
		tr, err := NewTranslator(fsys, string(loc))
		if err != nil {
			return nil, err
		}
		c.byLocale[loc] = tr
	}
	return c, nil
}

// MustDefaultCatalog loads the embedded catalogs and panics if they are broken.
func MustDefaultCatalog() *Catalog {
	c, err := NewCatalog(LocalesFS)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) T(locale model.Locale, key string, args ...interface{}) string {
	tr, ok := c.byLocale[locale]
	if !ok {
		tr = c.byLocale[c.fallback]
	}
	return tr.T(key, args...)
}
