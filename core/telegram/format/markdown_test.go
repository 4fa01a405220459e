package format

import "testing"

func TestEscapeMarkdownV2(t *testing.T) {
	cases := map[string]string{
		"Villa 3.5":      `Villa 3\.5`,
		"a_b*c":          `a\_b\*c`,
		"(2+2)=4!":       `\(2\+2\)\=4\!`,
		`back\slash`:     `back\\slash`,
		"plain":          "plain",
	}
	for in, want := range cases {
		if got := EscapeMarkdownV2(in); got != want {
			t.Errorf("EscapeMarkdownV2(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEscapeMarkdown(t *testing.T) {
	if got := EscapeMarkdown("my_house [new]"); got != `my\_house \[new]` {
		t.Fatalf("EscapeMarkdown = %q", got)
	}
}
