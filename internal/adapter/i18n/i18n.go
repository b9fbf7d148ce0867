package i18n

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/escalopa/tajweed-bot/internal/domain"
)

type I18n struct {
	translations map[domain.Language]map[string]string
	fallback     domain.Language
}

type translationFile struct {
	Messages map[string]string `yaml:"messages"`
}

// NewI18n loads <lang>.yaml for every supported language from localesDir
func NewI18n(localesDir string, fallback domain.Language) (*I18n, error) {
	i18n := &I18n{
		translations: make(map[domain.Language]map[string]string),
		fallback:     fallback,
	}

	// Load all translation files
	for _, lang := range domain.Languages {
		filename := filepath.Join(localesDir, string(lang)+".yaml")
		if err := i18n.loadTranslations(lang, filename); err != nil {
			return nil, fmt.Errorf("load %s translations: %w", lang, err)
		}
	}

	if _, ok := i18n.translations[fallback]; !ok {
		return nil, fmt.Errorf("unsupported fallback language %q", fallback)
	}

	return i18n, nil
}

func (i *I18n) loadTranslations(lang domain.Language, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	var tf translationFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return fmt.Errorf("unmarshal yaml: %w", err)
	}

	i.translations[lang] = tf.Messages

	return nil
}

// Get retrieves a translated message, falling back to the default language
// and then to the key itself
func (i *I18n) Get(lang domain.Language, key string, args ...interface{}) string {
	msg, ok := i.translations[lang][key]
	if !ok {
		msg, ok = i.translations[i.fallback][key]
	}
	if !ok {
		return key
	}

	// Simple formatting support
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}

	return msg
}

// Supports reports whether lang has a translation file loaded
func (i *I18n) Supports(lang domain.Language) bool {
	_, ok := i.translations[lang]
	return ok
}
