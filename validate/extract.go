// Package validate parses and checks structured LLM output against shape
// contracts, returning typed errors instead of panicking on the malformed
// text models routinely produce.
package validate

import (
	"regexp"
	"strings"
)

// Pre-compiled patterns for JSON extraction from LLM responses.
var (
	// fencedObjectPattern matches JSON objects inside markdown code fences.
	fencedObjectPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	// bareObjectPattern matches any JSON object (greedy fallback).
	bareObjectPattern = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	// fencedArrayPattern matches JSON arrays inside markdown code fences.
	fencedArrayPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\[.*\\])\\s*```")
	// bareArrayPattern matches any JSON array (greedy fallback).
	bareArrayPattern = regexp.MustCompile(`(?s)\[[\s\S]*\]`)
	// trailingCommaPattern matches trailing commas before ] or }.
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSON pulls a JSON object out of an LLM response, stripping code
// fences, JavaScript-style comments, and trailing commas. Returns "" when
// no object-shaped content is found.
func ExtractJSON(content string) string {
	var raw string
	if matches := fencedObjectPattern.FindStringSubmatch(content); len(matches) > 1 {
		raw = matches[1]
	} else if match := bareObjectPattern.FindString(content); match != "" {
		raw = match
	}
	if raw == "" {
		return ""
	}
	return cleanJSON(raw)
}

// ExtractJSONArray pulls a JSON array out of an LLM response.
func ExtractJSONArray(content string) string {
	if matches := fencedArrayPattern.FindStringSubmatch(content); len(matches) > 1 {
		return cleanJSON(matches[1])
	}
	if match := bareArrayPattern.FindString(content); match != "" {
		return cleanJSON(match)
	}
	return ""
}

// cleanJSON removes comment and trailing-comma artifacts models commonly
// emit despite being asked for strict JSON.
func cleanJSON(raw string) string {
	lines := strings.Split(raw, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned = append(cleaned, stripLineComment(line))
	}
	result := strings.Join(cleaned, "\n")
	return trailingCommaPattern.ReplaceAllString(result, "$1")
}

// stripLineComment removes a // comment from a JSON line while respecting
// string values, so "https://example.com" survives intact.
func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}

	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/' {
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}
