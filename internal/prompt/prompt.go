// Package prompt manages the prompt templates sent to vision models.
// Built-in templates cover each supported language; a YAML file can
// override any of them.
package prompt

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// languageNames maps language codes to the natural-language name used
// inside prompt templates
var languageNames = map[string]string{
	"en": "English",
	"zh": "Chinese",
	"ja": "Japanese",
	"ko": "Korean",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"ru": "Russian",
}

// Languages returns the supported language codes
func Languages() []string {
	return []string{"en", "zh", "ja", "ko", "es", "fr", "de", "ru"}
}

// IsSupported reports whether a language code is supported
func IsSupported(lang string) bool {
	_, ok := languageNames[lang]
	return ok
}

const defaultSystemPrompt = "You are an image tagging assistant. " +
	"Answer with the requested output only. Do not explain your reasoning, " +
	"do not describe your thought process, and do not address the user."

const defaultTagPrompt = "Generate exactly {tag_count} comma-separated tags " +
	"for this image in {language_name}. Each tag is a short noun or noun " +
	"phrase a photographer would use to organize an album: subject, scene, " +
	"setting, colors, mood. Output only the comma-separated tags, nothing else."

const defaultDescriptionPrompt = "Describe this image in {language_name} in " +
	"one or two sentences for archival and search. Output only the description."

// Library resolves prompt templates by language
type Library struct {
	system       map[string]string
	tags         map[string]string
	descriptions map[string]string
	names        map[string]string
}

// Default returns a library containing only the built-in templates
func Default() *Library {
	return &Library{
		system:       map[string]string{},
		tags:         map[string]string{},
		descriptions: map[string]string{},
		names:        map[string]string{},
	}
}

// Load reads template overrides from a YAML file. The file may define
// any subset of system_prompts, tag_prompts, description_prompts and
// language_names, each keyed by language code (or "default").
func Load(path string) (*Library, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read prompt config: %w", err)
	}

	return &Library{
		system:       v.GetStringMapString("system_prompts"),
		tags:         v.GetStringMapString("tag_prompts"),
		descriptions: v.GetStringMapString("description_prompts"),
		names:        v.GetStringMapString("language_names"),
	}, nil
}

// SystemPrompt returns the system prompt for a language
func (l *Library) SystemPrompt(lang string) string {
	return l.render(pick(l.system, lang, defaultSystemPrompt), lang, 0)
}

// TagPrompt returns the tag-generation prompt for a language and tag count
func (l *Library) TagPrompt(lang string, tagCount int) string {
	return l.render(pick(l.tags, lang, defaultTagPrompt), lang, tagCount)
}

// DescriptionPrompt returns the description-generation prompt for a language
func (l *Library) DescriptionPrompt(lang string) string {
	return l.render(pick(l.descriptions, lang, defaultDescriptionPrompt), lang, 0)
}

// LanguageName returns the natural-language name for a language code
func (l *Library) LanguageName(lang string) string {
	if name, ok := l.names[lang]; ok && name != "" {
		return name
	}
	if name, ok := languageNames[lang]; ok {
		return name
	}
	return "English"
}

func pick(m map[string]string, lang, fallback string) string {
	if t, ok := m[lang]; ok && t != "" {
		return t
	}
	if t, ok := m["default"]; ok && t != "" {
		return t
	}
	return fallback
}

// render substitutes the template placeholders
func (l *Library) render(template, lang string, tagCount int) string {
	r := strings.NewReplacer(
		"{language}", lang,
		"{language_name}", l.LanguageName(lang),
		"{tag_count}", fmt.Sprintf("%d", tagCount),
	)
	return r.Replace(template)
}
