package translation

import (
	"reflect"
	"testing"

	"youdub/internal/workdir"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"你好。我是小明！你呢？", []string{"你好。", "我是小明！", "你呢？"}},
		{"第一句，第二部分；第三部分。", []string{"第一句，第二部分；第三部分。"}},
		{"他说：“走吧。”然后离开了。", []string{"他说：“走吧。”", "然后离开了。"}},
		{"等一下……好吧", []string{"等一下……", "好吧"}},
		{"wait......ok", []string{"wait......", "ok"}},
		{"结束。\n", []string{"结束。"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := SplitSentences(tt.input); !reflect.DeepEqual(got, tt.expected) {
				t.Fatalf("SplitSentences(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSplitUtterancesProportionalTiming(t *testing.T) {
	items := []workdir.Utterance{{
		Start:       10,
		End:         16,
		Text:        "Hello. I am Ming.",
		Speaker:     "SPEAKER_01",
		Translation: "你好。我是小明。",
	}}
	got := SplitUtterances(items)
	if len(got) != 2 {
		t.Fatalf("expected 2 units, got %d", len(got))
	}
	// 8 characters over 6 seconds; the first sentence holds 3 of them.
	if got[0].Start != 10 || got[0].End != 12.25 {
		t.Fatalf("unexpected first span %v-%v", got[0].Start, got[0].End)
	}
	if got[1].Start != 12.25 || got[1].End != 16 {
		t.Fatalf("unexpected second span %v-%v", got[1].Start, got[1].End)
	}
	for _, unit := range got {
		if unit.Text != items[0].Text || unit.Speaker != "SPEAKER_01" {
			t.Fatalf("child did not inherit parent fields: %+v", unit)
		}
	}
	if got[0].Translation != "你好。" || got[1].Translation != "我是小明。" {
		t.Fatalf("unexpected sentences %q / %q", got[0].Translation, got[1].Translation)
	}
}

func TestSplitUtterancesRoundsAndKeepsEmpty(t *testing.T) {
	items := []workdir.Utterance{
		{Start: 0, End: 1, Translation: "一二三。四五六七。"},
		{Start: 1.23456, End: 2, Translation: ""},
	}
	got := SplitUtterances(items)
	if len(got) != 3 {
		t.Fatalf("expected 3 units, got %d", len(got))
	}
	if got[0].End != 0.444 {
		t.Fatalf("expected rounded end 0.444, got %v", got[0].End)
	}
	if got[2].Start != 1.235 || got[2].Translation != "" {
		t.Fatalf("empty translation should pass through rounded: %+v", got[2])
	}
}
