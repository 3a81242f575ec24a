// Package script turns raw narration text into an ordered list of scenes.
// A scene is the unit the pipeline generates one audio and one image for.
package script

import (
	"regexp"
	"strings"
)

// Merge policy: a paragraph-built segment is folded into its predecessor when
// it is short on both sentences and words and is not itself marker-led.
const (
	mergeMaxSentences = 3
	mergeMaxWords     = 50
)

// markerRe matches paragraphs that open a new scene: screenplay sluglines,
// transitions, numbered scene headings and uppercase speaker labels.
var markerRe = regexp.MustCompile(`^(?i:INT\.|EXT\.|SCENE\s+\d+|CUT\s+TO:|FADE\s+IN\.|FADE\s+OUT\.)|^[A-Z][A-Z0-9 ]*:`)

var (
	newlineRuns  = regexp.MustCompile(`\n{2,}`)
	sentenceEnds = regexp.MustCompile(`[.!?]+`)
)

// Segment splits raw text into ordered, non-empty scene strings.
// Empty or whitespace-only input yields an empty result, not an error.
// The function has no side effects.
func Segment(raw string) []string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = newlineRuns.ReplaceAllString(text, "\n\n")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var paragraphs []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}

	// Group paragraphs into scenes; a marker paragraph closes the current
	// scene and opens the next one.
	var scenes []string
	var current []string
	for _, p := range paragraphs {
		if isMarker(p) && len(current) > 0 {
			scenes = append(scenes, strings.Join(current, "\n\n"))
			current = nil
		}
		current = append(current, p)
	}
	if len(current) > 0 {
		scenes = append(scenes, strings.Join(current, "\n\n"))
	}

	// Fold fragments that are too short to stand as their own scene into
	// their predecessor.
	var merged []string
	for _, s := range scenes {
		if len(merged) > 0 && shouldMerge(s) {
			merged[len(merged)-1] += "\n\n" + s
			continue
		}
		merged = append(merged, s)
	}

	return merged
}

// isMarker reports whether a paragraph opens a new scene.
func isMarker(p string) bool {
	return markerRe.MatchString(p)
}

// shouldMerge reports whether a scene is too short to stand alone.
func shouldMerge(s string) bool {
	if isMarker(s) {
		return false
	}
	return countSentences(s) < mergeMaxSentences && countWords(s) < mergeMaxWords
}

func countWords(s string) int {
	return len(strings.Fields(s))
}

// countSentences approximates a sentence count by terminal punctuation runs.
// Trailing text without punctuation still counts as one sentence.
func countSentences(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	n := len(sentenceEnds.FindAllString(s, -1))
	if !sentenceEnds.MatchString(string(s[len(s)-1])) {
		n++
	}
	if n == 0 {
		n = 1
	}
	return n
}
