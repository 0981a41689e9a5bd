package subtitle

import "regexp"

var cjkGapRegex = regexp.MustCompile(`([\x{4e00}-\x{9fff}])[ \t\x{3000}]+([\x{4e00}-\x{9fff}])`)

// CollapseCJKSpaces removes whitespace sitting between two CJK unified
// ideographs on the same line, e.g. "韋昌輝 殺 死" -> "韋昌輝殺死". Line breaks
// and spaces next to non-ideographs are left alone, so unlike a plain \s+
// collapse "中\n文" keeps its caption line break.
func CollapseCJKSpaces(doc string) string {
	// matches cannot overlap, so "殺 死 楊" needs a second pass
	for {
		next := cjkGapRegex.ReplaceAllString(doc, "$1$2")
		if next == doc {
			return next
		}
		doc = next
	}
}
