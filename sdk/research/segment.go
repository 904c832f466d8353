package research

import "strings"

// TextSegment partitions a growing text buffer into a frozen prefix and a
// live suffix. Stable+Active always reconstructs the input exactly, so a
// renderer can memoize Stable and reprocess only Active on each update.
type TextSegment struct {
	Stable string
	Active string
}

const (
	// DefaultMinStable is the minimum buffer length before any freezing.
	DefaultMinStable = 2000

	// liveTail keeps the most recent content in the active segment so the
	// still-streaming end of the answer stays live.
	liveTail = 1000
)

// SplitStable splits text at the last paragraph boundary that leaves at
// least liveTail characters active and does not fall inside an unterminated
// fenced region (code fence or math block). Splitting inside an open fence
// would break rendering once the two halves are processed independently.
//
// Buffers shorter than minStable are returned entirely active. If no valid
// boundary exists the whole text stays active.
//
// The scan is a single linear pass: fence parity is tracked while walking
// forward, so each candidate boundary is judged against the text before it
// without rescanning.
func SplitStable(text string, minStable int) TextSegment {
	if len(text) < minStable {
		return TextSegment{Active: text}
	}
	searchEnd := len(text) - liveTail
	if searchEnd <= 0 {
		return TextSegment{Active: text}
	}

	best := -1
	codeFences := 0
	mathFences := 0

	for i := 0; i < searchEnd; {
		if strings.HasPrefix(text[i:], "```") {
			codeFences++
			i += 3
			continue
		}
		if strings.HasPrefix(text[i:], "$$") {
			mathFences++
			i += 2
			continue
		}
		if strings.HasPrefix(text[i:], "\n\n") && i+2 <= searchEnd {
			if codeFences%2 == 0 && mathFences%2 == 0 {
				best = i + 2
			}
		}
		i++
	}

	if best < 0 {
		return TextSegment{Active: text}
	}
	return TextSegment{Stable: text[:best], Active: text[best:]}
}

// Segmenter wraps SplitStable with a monotonic boundary: for a growing
// buffer the stable length never shrinks across calls, so a renderer that
// memoized the frozen prefix never sees it pop back.
type Segmenter struct {
	// MinStable overrides DefaultMinStable when positive.
	MinStable int

	stable int
}

// Split segments the buffer, clamping the boundary so it never retreats.
func (s *Segmenter) Split(text string) TextSegment {
	minStable := s.MinStable
	if minStable <= 0 {
		minStable = DefaultMinStable
	}

	seg := SplitStable(text, minStable)
	if len(seg.Stable) < s.stable && s.stable <= len(text) {
		seg = TextSegment{Stable: text[:s.stable], Active: text[s.stable:]}
	}
	s.stable = len(seg.Stable)
	return seg
}

// Reset clears the boundary for a new buffer.
func (s *Segmenter) Reset() {
	s.stable = 0
}
