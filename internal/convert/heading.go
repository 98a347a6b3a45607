package convert

import (
	"regexp"
	"strings"
)

// Numbered heading patterns: numeric, roman numerals, and explicit Appendix prefix.
var (
	headingNumRe      = regexp.MustCompile(`^\s*(\d+(?:\.\d+)*)\.?\s+(\S.*)$`)
	headingRomanRe    = regexp.MustCompile(`^\s*([IVXLCDM]+)\.(?:([0-9]+)\.?)?\s+(\S.*)$`)
	headingAppendixRe = regexp.MustCompile(`^\s*(?:Appendix|APPENDIX)\s+([A-Z](?:\.[0-9]+)*)\b`)

	// Table of contents lines end in a page number; they are never headings.
	tocNumRe = regexp.MustCompile(`^\s*(?:\d+(?:\.\d+)*|[IVXLCDM]+|[A-Z](?:\.[0-9]+)*)\s+.+?\s+\d+\s*$`)
)

const maxHeadingLen = 120

// numberedHeading reports the depth implied by a heading's numbering,
// e.g. "2.3.1 Scope" is depth 3.
func numberedHeading(line string) (int, bool) {
	line = normalizeDotLeaders(line)
	if line == "" || len(line) > maxHeadingLen || isToCLine(line) {
		return 0, false
	}
	if m := headingAppendixRe.FindStringSubmatch(line); len(m) == 2 {
		return strings.Count(m[1], ".") + 1, true
	}
	if m := headingNumRe.FindStringSubmatch(line); len(m) == 3 {
		if strings.HasSuffix(strings.TrimSpace(m[2]), ".") {
			// "3. It was raining." reads as a numbered list item.
			return 0, false
		}
		return strings.Count(m[1], ".") + 1, true
	}
	if m := headingRomanRe.FindStringSubmatch(line); len(m) == 4 {
		if m[2] != "" {
			return 2, true
		}
		return 1, true
	}
	return 0, false
}

func isToCLine(s string) bool {
	return tocNumRe.MatchString(normalizeDotLeaders(s))
}

func normalizeDotLeaders(s string) string {
	s = strings.ReplaceAll(s, "•", " ")
	s = strings.ReplaceAll(s, "·", " ")
	s = strings.ReplaceAll(s, "…", " ... ")
	s = dotLeaderRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

var dotLeaderRe = regexp.MustCompile(`(?:\s?\.){3,}`)

// headingLevel maps a font size ratio over body text to a heading level.
// Zero means body text.
func headingLevel(size, body float64) int {
	if body <= 0 {
		return 0
	}
	r := size / body
	switch {
	case r >= 1.8:
		return 1
	case r >= 1.4:
		return 2
	case r >= 1.2:
		return 3
	}
	return 0
}
