// Package format escapes user-supplied text for Telegram parse modes.
package format

import "strings"

var (
	mdV1Replacer = strings.NewReplacer(`_`, `\_`, `*`, `\*`, "`", "\\`", `[`, `\[`)
	mdV2Replacer = func() *strings.Replacer {
		const specials = "\\_*[]()~`>#+-=|{}.!"
		pairs := make([]string, 0, len(specials)*2)
		for _, r := range specials {
			pairs = append(pairs, string(r), `\`+string(r))
		}
		return strings.NewReplacer(pairs...)
	}()
)

// EscapeMarkdown escapes text for the legacy Markdown parse mode.
func EscapeMarkdown(text string) string {
	return mdV1Replacer.Replace(text)
}

// EscapeMarkdownV2 escapes text for MarkdownV2.
func EscapeMarkdownV2(text string) string {
	return mdV2Replacer.Replace(text)
}
