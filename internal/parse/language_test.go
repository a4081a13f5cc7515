package parse

import (
	"strings"
	"testing"
)

func TestCanonicalEnglishCommaList(t *testing.T) {
	got := Canonical("sunset, beach, ocean, palm tree", "en")
	want := "sunset,beach,ocean,palm tree"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestCanonicalEnglishWordFallback(t *testing.T) {
	// No comma list: extract bare words instead
	got := Canonical("mountains rivers forests", "en")
	if got == "" {
		t.Fatal("expected word fallback to produce tags")
	}
	for _, w := range []string{"mountains", "rivers", "forests"} {
		if !strings.Contains(got, w) {
			t.Errorf("expected %q in result %q", w, got)
		}
	}
}

func TestCanonicalChineseEnumeratedList(t *testing.T) {
	raw := "这张图片包含以下内容：风景、山脉、天空、湖泊"
	got := Canonical(raw, "zh")
	if got == "" {
		t.Fatal("expected Chinese tags to be recovered")
	}
	for _, w := range []string{"风景", "山脉", "天空", "湖泊"} {
		if !strings.Contains(got, w) {
			t.Errorf("expected %q in result %q", w, got)
		}
	}
}

func TestCanonicalWrongLanguageFallsThrough(t *testing.T) {
	// Configured for Chinese but the model answered in English;
	// the English parser must pick it up.
	got := Canonical("landscape, mountain, sky, lake", "zh")
	if got == "" {
		t.Fatal("expected fallback to English parser")
	}
	if !strings.Contains(got, "mountain") {
		t.Errorf("expected English tags, got %q", got)
	}
}

func TestCanonicalKoreanWords(t *testing.T) {
	got := Canonical("풍경, 산맥, 하늘", "ko")
	if got == "" {
		t.Fatal("expected Korean tags to be recovered")
	}
	if !strings.Contains(got, "풍경") {
		t.Errorf("expected 풍경 in result %q", got)
	}
}

func TestCanonicalDeduplicates(t *testing.T) {
	got := Canonical("cat, dog, cat, bird, dog, fish", "en")
	if strings.Count(got, "cat") != 1 {
		t.Errorf("expected cat once, got %q", got)
	}
}

func TestCanonicalEmpty(t *testing.T) {
	if got := Canonical("", "en"); got != "" {
		t.Errorf("empty input should yield empty result, got %q", got)
	}
	if got := Canonical("   ", "zh"); got != "" {
		t.Errorf("blank input should yield empty result, got %q", got)
	}
}

func TestCanonicalRoundTripsThroughTags(t *testing.T) {
	canonical := Canonical("sunset, beach, ocean, palm tree", "en")
	tags := Tags(canonical, 10)
	if len(tags) != 4 {
		t.Errorf("expected 4 tags after round trip, got %v", tags)
	}
}
