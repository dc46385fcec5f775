package chat

import (
	"strings"
	"unicode"
)

// Smoother rechunks raw model text deltas to word boundaries. Providers
// send deltas at arbitrary split points (mid-word, mid-rune batches);
// re-emitting whole words makes client-side rendering stable.
//
// Non-text events pass through after any buffered text is flushed, so
// relative ordering between text and tool frames is preserved.
type Smoother struct {
	emit    EmitFunc
	pending strings.Builder
}

// NewSmoother wraps emit with word-boundary rechunking.
func NewSmoother(emit EmitFunc) *Smoother {
	return &Smoother{emit: emit}
}

// Emit accepts one event. Text deltas are buffered and re-emitted one
// word at a time; everything else flushes the buffer first and passes
// through unchanged.
func (s *Smoother) Emit(e Event) {
	if e.Kind != EventTextDelta {
		s.Flush()
		s.emit(e)
		return
	}

	delta, ok := e.Data.(TextDelta)
	if !ok || delta.Text == "" {
		return
	}
	s.pending.WriteString(delta.Text)
	s.drain()
}

// drain emits every complete word (text followed by trailing whitespace)
// currently buffered, keeping any unfinished word for the next delta.
func (s *Smoother) drain() {
	text := s.pending.String()
	emitted := 0

	for {
		word, rest, ok := nextWord(text[emitted:])
		if !ok {
			break
		}
		emitText(s.emit, word)
		emitted += len(word)
		_ = rest
	}

	if emitted > 0 {
		remainder := text[emitted:]
		s.pending.Reset()
		s.pending.WriteString(remainder)
	}
}

// nextWord returns the leading run of non-space characters plus the
// whitespace that follows it. A word without trailing whitespace is not
// complete yet. Leading whitespace alone is a complete chunk.
func nextWord(text string) (word, rest string, ok bool) {
	if text == "" {
		return "", "", false
	}

	i := 0
	for i < len(text) && !isSpaceByte(text, i) {
		i++
	}
	j := i
	for j < len(text) && isSpaceByte(text, j) {
		j++
	}

	if j == i {
		// No trailing whitespace seen, the word may still be growing.
		return "", text, false
	}
	return text[:j], text[j:], true
}

func isSpaceByte(s string, i int) bool {
	r := rune(s[i])
	if r < 0x80 {
		return unicode.IsSpace(r)
	}
	// Multi-byte runes are never treated as boundaries; CJK text flushes
	// on Flush or the next spaced delta.
	return false
}

// Flush emits whatever is buffered as a final text delta. Call before any
// terminal frame.
func (s *Smoother) Flush() {
	if s.pending.Len() == 0 {
		return
	}
	emitText(s.emit, s.pending.String())
	s.pending.Reset()
}
