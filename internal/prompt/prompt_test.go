package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultTagPrompt(t *testing.T) {
	lib := Default()

	p := lib.TagPrompt("en", 10)
	if !strings.Contains(p, "10") {
		t.Errorf("tag prompt should contain the tag count, got: %s", p)
	}
	if !strings.Contains(p, "English") {
		t.Errorf("tag prompt should name the language, got: %s", p)
	}

	p = lib.TagPrompt("ja", 5)
	if !strings.Contains(p, "Japanese") {
		t.Errorf("expected Japanese language name, got: %s", p)
	}
}

func TestLanguageNameFallback(t *testing.T) {
	lib := Default()
	if got := lib.LanguageName("xx"); got != "English" {
		t.Errorf("unknown language should fall back to English, got %s", got)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	content := `
tag_prompts:
  en: "Give {tag_count} tags in {language_name}."
language_names:
  en: "British English"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	lib, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load prompt config: %v", err)
	}

	got := lib.TagPrompt("en", 7)
	want := "Give 7 tags in British English."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	// Languages without overrides keep the built-in template
	if p := lib.TagPrompt("fr", 3); !strings.Contains(p, "French") {
		t.Errorf("expected built-in fallback for fr, got: %s", p)
	}
}

func TestIsSupported(t *testing.T) {
	for _, lang := range Languages() {
		if !IsSupported(lang) {
			t.Errorf("expected %s to be supported", lang)
		}
	}
	if IsSupported("tlh") {
		t.Error("tlh should not be supported")
	}
}
