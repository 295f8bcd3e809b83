// Package gaps implements the [[...]] gap grammar used by fill-in
// questions: an option list joined by a separator, with an optional *
// marker designating the correct option.
//
// The same parser backs both question editing (computing the cached
// correct-answer list when passage text changes) and grading
// (recomputing answers before comparison). Keeping a single
// implementation is what prevents the two paths from drifting.
package gaps

import (
	"regexp"
	"strings"
)

// Marker designates the correct option inside a gap body. When several
// tokens carry it, the last one wins.
const Marker = "*"

// gapPattern matches one [[...]] span. Non-greedy so adjacent gaps on
// one line never merge; `.` not matching newlines keeps a span from
// swallowing line breaks.
var gapPattern = regexp.MustCompile(`\[\[(.*?)\]\]`)

// tagPattern matches tag-like substrings, including an unterminated tag
// running off the end of the token.
var tagPattern = regexp.MustCompile(`<[^>]*>?`)

var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
	"&quot;", `"`,
	"&#39;", "'",
)

// Gap is one parsed gap expression: the cleaned options in authoring
// order and the designated correct option.
type Gap struct {
	Options       []string
	CorrectOption string
}

// ParseGap parses a raw gap body ("blue*,azure,cyan") into its cleaned
// option list and correct option.
//
// The correct option resolves in this exact order: the cleaned marked
// token if it survived cleaning and is present in the option list,
// otherwise the first cleaned option, otherwise "". An empty or fully
// malformed body yields empty options and an empty correct option.
func ParseGap(rawBody, separator string) Gap {
	if separator == "" {
		separator = ","
	}

	var rawOptions []string
	for _, token := range strings.Split(rawBody, separator) {
		token = strings.TrimSpace(token)
		if token != "" {
			rawOptions = append(rawOptions, token)
		}
	}

	// Last marker wins when authors mark more than one token.
	markedIndex := -1
	for i, token := range rawOptions {
		if strings.Contains(token, Marker) {
			markedIndex = i
		}
	}

	var options []string
	markedOption := ""
	for i, token := range rawOptions {
		cleaned := CleanToken(token)
		if i == markedIndex {
			markedOption = cleaned
		}
		if cleaned != "" {
			options = append(options, cleaned)
		}
	}

	correct := ""
	switch {
	case markedOption != "" && containsOption(options, markedOption):
		correct = markedOption
	case len(options) > 0:
		// No marker, or the marked token was filtered out by cleaning.
		correct = options[0]
	}

	return Gap{Options: options, CorrectOption: correct}
}

// CleanToken strips the correctness marker, decodes the supported HTML
// entities, removes tag-like substrings and trims whitespace. Display
// and grading both compare cleaned tokens.
func CleanToken(token string) string {
	token = strings.ReplaceAll(token, Marker, "")
	token = entityReplacer.Replace(token)
	token = tagPattern.ReplaceAllString(token, "")
	return strings.TrimSpace(token)
}

// ExtractAnswers scans passage text for every [[...]] span left to
// right and returns the correct option of each, one entry per gap.
func ExtractAnswers(text, separator string) []string {
	matches := gapPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	answers := make([]string, 0, len(matches))
	for _, m := range matches {
		answers = append(answers, ParseGap(m[1], separator).CorrectOption)
	}
	return answers
}

// ExtractGaps parses every gap span in the passage, options included.
// Editors use this to render distractor lists.
func ExtractGaps(text, separator string) []Gap {
	matches := gapPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	gaps := make([]Gap, 0, len(matches))
	for _, m := range matches {
		gaps = append(gaps, ParseGap(m[1], separator))
	}
	return gaps
}

// CountGaps returns the number of [[...]] spans in the passage.
func CountGaps(text string) int {
	return len(gapPattern.FindAllStringIndex(text, -1))
}

// GapBodies returns the raw (uncleaned) body of every gap span, used by
// the validator to warn about questionable authoring such as multiple
// markers in one gap.
func GapBodies(text string) []string {
	matches := gapPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	bodies := make([]string, 0, len(matches))
	for _, m := range matches {
		bodies = append(bodies, m[1])
	}
	return bodies
}

func containsOption(options []string, want string) bool {
	for _, opt := range options {
		if opt == want {
			return true
		}
	}
	return false
}
