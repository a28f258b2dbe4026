package kernel_test

import (
	"testing"

	"github.com/orthodoxfm/search/kernel"
	"github.com/orthodoxfm/search/rxengine/meta"
)

func compileConds(t *testing.T, pattern string) []kernel.Condition {
	t.Helper()
	eng, err := meta.Compile(pattern)
	if err != nil {
		t.Fatalf("meta.Compile(%q): %v", pattern, err)
	}
	return []kernel.Condition{{Engine: eng}}
}

func TestRunFindsMatchOnFirstLine(t *testing.T) {
	conds := compileConds(t, `wor\w+`)
	src := kernel.ByteSource("hello world\nfoo bar\n")
	outcome, m, err := kernel.Run(conds, src, 0, int64(len(src)), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != kernel.OutcomeFound {
		t.Fatalf("outcome = %v, want Found", outcome)
	}
	if m.LineStart != 0 {
		t.Fatalf("LineStart = %d, want 0", m.LineStart)
	}
}

func TestRunSkipsToSecondLine(t *testing.T) {
	conds := compileConds(t, `^foo`)
	src := kernel.ByteSource("hello world\nfoo bar\n")
	outcome, m, err := kernel.Run(conds, src, 0, int64(len(src)), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != kernel.OutcomeFound {
		t.Fatalf("outcome = %v, want Found", outcome)
	}
	if m.LineStart != 12 {
		t.Fatalf("LineStart = %d, want 12 (start of second line)", m.LineStart)
	}
}

func TestRunNotFound(t *testing.T) {
	conds := compileConds(t, `zzz`)
	src := kernel.ByteSource("hello world\nfoo bar\n")
	outcome, _, err := kernel.Run(conds, src, 0, int64(len(src)), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != kernel.OutcomeNotFound {
		t.Fatalf("outcome = %v, want NotFound", outcome)
	}
}

func TestRunMatchesFinalLineWithoutTrailingNewline(t *testing.T) {
	conds := compileConds(t, `bar$`)
	src := kernel.ByteSource("foo bar")
	outcome, _, err := kernel.Run(conds, src, 0, int64(len(src)), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != kernel.OutcomeFound {
		t.Fatalf("outcome = %v, want Found on partial last line", outcome)
	}
}

func TestRunEmptyInput(t *testing.T) {
	conds := compileConds(t, `.+`)
	src := kernel.ByteSource("")
	outcome, _, err := kernel.Run(conds, src, 0, 0, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != kernel.OutcomeNotFound {
		t.Fatalf("outcome = %v, want NotFound on empty input", outcome)
	}
}

// TestRunEmptyInputDoesNotSynthesizeMatchableLine guards against a
// dot-matches-anything condition spuriously matching the newline fillLine
// synthesizes for end-of-input: on genuinely empty input there is no line
// to evaluate at all, so Run must report NotFound before ever trying a
// condition against that synthesized byte.
func TestRunEmptyInputDoesNotSynthesizeMatchableLine(t *testing.T) {
	conds := compileConds(t, `.*`)
	src := kernel.ByteSource("")
	outcome, _, err := kernel.Run(conds, src, 0, 0, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != kernel.OutcomeNotFound {
		t.Fatalf("outcome = %v, want NotFound on empty input, not a spurious zero-length match", outcome)
	}
}

// TestRunTrailingNewlineInputDoesNotMatchPhantomLine checks that when a
// producer's last real byte is itself a newline, Run doesn't treat the
// position just past it as one more (empty) line to evaluate.
func TestRunTrailingNewlineInputDoesNotMatchPhantomLine(t *testing.T) {
	conds := compileConds(t, `.*`)
	src := kernel.ByteSource("foo\n")
	outcome, m, err := kernel.Run(conds, src, 0, int64(len(src)), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != kernel.OutcomeFound {
		t.Fatalf("outcome = %v, want Found on the real \"foo\" line", outcome)
	}
	if m.LineStart != 0 {
		t.Fatalf("LineStart = %d, want 0 (the match should come from the real line, not a phantom one after it)", m.LineStart)
	}
}

// skipInvalidProducer wraps a ByteSource, returning StatusSkip for every
// even position and StatusInvalid once per odd position before yielding
// the real byte, exercising the producer protocol's three non-terminal
// statuses together.
func skipInvalidProducer(data []byte) kernel.Producer {
	seenInvalid := make(map[int64]bool)
	return func(pos int64) (byte, kernel.Status) {
		if pos < 0 || pos >= int64(len(data)) {
			return 0, kernel.StatusNotFound
		}
		if data[pos] == '#' {
			return 0, kernel.StatusSkip
		}
		if !seenInvalid[pos] {
			seenInvalid[pos] = true
			return 0, kernel.StatusInvalid
		}
		return data[pos], kernel.StatusOK
	}
}

func TestRunHandlesSkipAndInvalidBytes(t *testing.T) {
	conds := compileConds(t, `hello`)
	data := []byte("#hello\n")
	src := kernel.ProducerSource(skipInvalidProducer(data))
	outcome, _, err := kernel.Run(conds, src, 0, int64(len(data)), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != kernel.OutcomeFound {
		t.Fatalf("outcome = %v, want Found", outcome)
	}
}

func TestRunAbort(t *testing.T) {
	conds := compileConds(t, `zzz`)
	src := kernel.ProducerSource(func(pos int64) (byte, kernel.Status) {
		return 0, kernel.StatusAbort
	})
	outcome, _, err := kernel.Run(conds, src, 0, 10, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != kernel.OutcomeAborted {
		t.Fatalf("outcome = %v, want Aborted", outcome)
	}
}

func TestRunBackwardFindsClosestPriorMatch(t *testing.T) {
	conds := compileConds(t, `ab`)
	src := kernel.ByteSource("zzabzzabzz")
	outcome, m, err := kernel.RunBackward(conds, src, 9, int64(len(src)), nil)
	if err != nil {
		t.Fatalf("RunBackward: %v", err)
	}
	if outcome != kernel.OutcomeFound {
		t.Fatalf("outcome = %v, want Found", outcome)
	}
	if m.LineStart != 6 {
		t.Fatalf("LineStart = %d, want 6 (closest 'ab' before position 9)", m.LineStart)
	}
}

func TestNextStartAdvancesPastZeroLengthMatch(t *testing.T) {
	m := kernel.Match{LineStart: 5, Captures: [][]int{{2, 2}}}
	if got := kernel.NextStart(m); got != 8 {
		t.Fatalf("NextStart = %d, want 8", got)
	}
}

func TestNextStartAfterNonEmptyMatch(t *testing.T) {
	m := kernel.Match{LineStart: 5, Captures: [][]int{{2, 4}}}
	if got := kernel.NextStart(m); got != 9 {
		t.Fatalf("NextStart = %d, want 9", got)
	}
}

// TestRunScrubsInvalidUTF8ForUTF8Conditions exercises the spec's UTF-8
// Safety Layer wiring (S6): a condition compiled in UTF-8 mode must see the
// invalid leading byte of a broken multi-byte sequence replaced with NUL,
// so it can't spuriously consume the byte that follows it.
func TestRunScrubsInvalidUTF8ForUTF8Conditions(t *testing.T) {
	eng, err := meta.Compile(`\x28`)
	if err != nil {
		t.Fatalf("meta.Compile: %v", err)
	}
	conds := []kernel.Condition{{Engine: eng, UTF8Mode: true}}

	data := []byte{0xC3, 0x28}
	src := kernel.ByteSource(data)
	outcome, m, err := kernel.Run(conds, src, 0, int64(len(data)), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != kernel.OutcomeFound {
		t.Fatalf("outcome = %v, want Found", outcome)
	}
	if m.Captures[0][0] != 1 {
		t.Fatalf("match start = %d, want 1 (0xC3 scrubbed, 0x28 matched)", m.Captures[0][0])
	}
}

// TestRunDoesNotScrubNonUTF8Conditions confirms a byte-mode condition still
// sees the raw, unscrubbed buffer even when sharing a line with a UTF-8
// condition (the two must not share a mutated copy).
func TestRunDoesNotScrubNonUTF8Conditions(t *testing.T) {
	cfg := meta.DefaultConfig()
	cfg.Latin1 = true
	eng, err := meta.CompileWithConfig(`\xC3`, cfg)
	if err != nil {
		t.Fatalf("meta.CompileWithConfig: %v", err)
	}
	conds := []kernel.Condition{{Engine: eng, UTF8Mode: false}}

	data := []byte{0xC3, 0x28}
	src := kernel.ByteSource(data)
	outcome, m, err := kernel.Run(conds, src, 0, int64(len(data)), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != kernel.OutcomeFound {
		t.Fatalf("outcome = %v, want Found (raw 0xC3 byte untouched)", outcome)
	}
	if m.Captures[0][0] != 0 {
		t.Fatalf("match start = %d, want 0", m.Captures[0][0])
	}
}

func TestRunFastPathMatchesWithoutEngine(t *testing.T) {
	conds := []kernel.Condition{{Upper: []byte("CAT"), Lower: []byte("cat")}}
	src := kernel.ByteSource("a Cat sat\n")
	outcome, m, err := kernel.Run(conds, src, 0, int64(len(src)), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != kernel.OutcomeFound {
		t.Fatalf("outcome = %v, want Found", outcome)
	}
	if m.Captures[0][0] != 2 || m.Captures[0][1] != 5 {
		t.Fatalf("match = [%d,%d), want [2,5) (the mixed-case \"Cat\")", m.Captures[0][0], m.Captures[0][1])
	}
}

func TestRunFastPathNoMatch(t *testing.T) {
	conds := []kernel.Condition{{Upper: []byte("DOG"), Lower: []byte("dog")}}
	src := kernel.ByteSource("a cat sat\n")
	outcome, _, err := kernel.Run(conds, src, 0, int64(len(src)), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != kernel.OutcomeNotFound {
		t.Fatalf("outcome = %v, want NotFound", outcome)
	}
}
