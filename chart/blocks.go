package chart

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Chart artifacts travel inside stage output markdown as fenced blocks so
// later stages and the exporter can recover them without a side channel.

var blockPattern = regexp.MustCompile("(?s)```chart\\s*\\n(.*?)```")

// FormatBlock renders an artifact as a fenced chart block.
func FormatBlock(a *Artifact) string {
	encoded, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return ""
	}
	return "```chart\n" + string(encoded) + "\n```"
}

// ParseBlocks extracts every chart block from markdown, in document order.
// Blocks that fail to decode are skipped.
func ParseBlocks(markdown string) []*Artifact {
	var out []*Artifact
	for _, m := range blockPattern.FindAllStringSubmatch(markdown, -1) {
		var a Artifact
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &a); err != nil {
			continue
		}
		out = append(out, &a)
	}
	return out
}

// StripBlocks removes chart blocks from markdown, for text-only views.
func StripBlocks(markdown string) string {
	return strings.TrimSpace(blockPattern.ReplaceAllString(markdown, ""))
}
