// Package msearch is the public search facade: it ties dialect
// translation, charset-aware case folding, and the execution kernel
// together into the same Handle-based API an editor, viewer, or
// find-files panel drives a search through.
package msearch

import (
	"github.com/orthodoxfm/search/casefold"
	"github.com/orthodoxfm/search/charset"
	"github.com/orthodoxfm/search/dialect"
	"github.com/orthodoxfm/search/kernel"
	"github.com/orthodoxfm/search/replace"
	"github.com/orthodoxfm/search/rxengine/meta"
)

// Kind tags the category of error a Handle last recorded, mirroring the
// upstream mc_search_error_t enumeration.
type Kind int

const (
	// KindOK means no error occurred.
	KindOK Kind = iota
	// KindInput means the pattern text itself was malformed (a hex
	// dialect parse failure, an unterminated glob group, etc).
	KindInput
	// KindRegexCompile means the canonical regex failed to compile.
	KindRegexCompile
	// KindRegex means the compiled regex raised a runtime error.
	KindRegex
)

// TypeInfo describes one selectable dialect for UI population.
type TypeInfo struct {
	Tag       dialect.Dialect
	HumanName string
}

// Types lists the dialects a Handle can be configured with, in the
// upstream tool's menu order (Normal, Regex, Hex, Glob).
func Types() []TypeInfo {
	return []TypeInfo{
		{Tag: dialect.Literal, HumanName: "Normal"},
		{Tag: dialect.Regex, HumanName: "Regular expression"},
		{Tag: dialect.Hex, HumanName: "Hexadecimal"},
		{Tag: dialect.Glob, HumanName: "Wildcard search"},
	}
}

// Handle is a compiled search descriptor: a pattern, a dialect, and the
// options (case sensitivity, whole words, entire line, all charsets) that
// shape how it's translated and compiled before Run can be called.
type Handle struct {
	pattern []byte
	cs      charset.Charset

	dlct          dialect.Dialect
	caseSensitive bool
	wholeWords    bool
	entireLine    bool
	allCharsets   bool

	conditions []kernel.Condition
	lastMatch  kernel.Match
	lastFound  bool

	prepared bool
	result   bool
	errKind  Kind
	errStr   string
}

// New creates an unprepared Handle for pattern, interpreted in charset cs.
func New(pattern []byte, cs charset.Charset) *Handle {
	p := make([]byte, len(pattern))
	copy(p, pattern)
	return &Handle{
		pattern:       p,
		cs:            cs,
		caseSensitive: true,
	}
}

// SetDialect selects how pattern is interpreted. Must be called before Prepare.
func (h *Handle) SetDialect(d dialect.Dialect) { h.dlct = d; h.prepared = false }

// SetCaseSensitive toggles case sensitivity. Default is true.
func (h *Handle) SetCaseSensitive(v bool) { h.caseSensitive = v; h.prepared = false }

// SetWholeWords toggles word-boundary wrapping. Ignored when entire-line
// matching is also set.
func (h *Handle) SetWholeWords(v bool) { h.wholeWords = v; h.prepared = false }

// SetEntireLine toggles ^...$ anchoring.
func (h *Handle) SetEntireLine(v bool) { h.entireLine = v; h.prepared = false }

// SetAllCharsets compiles one condition per registered charset instead of
// just the Handle's configured charset, so a search finds matches
// regardless of which codepage the subject text happens to use.
func (h *Handle) SetAllCharsets(v bool) { h.allCharsets = v; h.prepared = false }

// Error returns the kind and description of the last error Prepare or Run
// recorded.
func (h *Handle) Error() (Kind, string) { return h.errKind, h.errStr }

// Free releases the compiled conditions. The garbage collector reclaims
// everything on its own; Free exists to let long-lived callers (a
// find-files session reusing many Handles) drop references eagerly.
func (h *Handle) Free() {
	h.conditions = nil
	h.prepared = false
}

func (h *Handle) setError(kind Kind, msg string) {
	h.errKind = kind
	h.errStr = msg
}

// Prepare compiles the Handle's conditions. It's idempotent: once called
// successfully (or unsuccessfully), later calls return the cached result
// until a Set* method invalidates it.
func (h *Handle) Prepare() bool {
	if h.prepared {
		return h.result
	}
	h.prepared = true
	h.conditions = nil
	h.errKind = KindOK
	h.errStr = ""

	charsets := h.targetCharsets()

	for _, cs := range charsets {
		cond, err := h.compileCondition(cs)
		if err != nil {
			if !h.allCharsets {
				h.result = false
				return false
			}
			continue
		}
		h.conditions = append(h.conditions, cond)
	}

	h.result = len(h.conditions) > 0
	if !h.result && h.errKind == KindOK {
		h.setError(KindRegexCompile, "no charset produced a compilable condition")
	}
	return h.result
}

// targetCharsets returns the charsets Prepare should compile a condition
// against. Hex always forces ASCII (spec's preserved open-question
// decision); otherwise it's every registered charset when AllCharsets is
// set, or just the Handle's own charset.
func (h *Handle) targetCharsets() []charset.Charset {
	if h.dlct == dialect.Hex {
		return []charset.Charset{charset.ASCII}
	}
	if h.allCharsets {
		return charset.All()
	}
	return []charset.Charset{h.cs}
}

// compileCondition translates h.pattern (recoding it into cs's bytes
// first, if cs differs from h.cs) and compiles it into a kernel.Condition.
func (h *Handle) compileCondition(cs charset.Charset) (kernel.Condition, error) {
	raw := h.pattern
	if cs.Name() != h.cs.Name() {
		raw = charset.Recode(h.pattern, h.cs, cs)
	}

	if upper, lower, ok := buildLiteralFastPath(raw, cs, h.dlct, h.caseSensitive, h.wholeWords, h.entireLine); ok {
		return kernel.Condition{Upper: upper, Lower: lower}, nil
	}

	canonical, forceASCII, err := dialect.Translate(raw, h.dlct, dialect.Options{
		WholeWords: h.wholeWords,
		EntireLine: h.entireLine,
	})
	if err != nil {
		h.setError(KindInput, err.Error())
		return kernel.Condition{}, err
	}

	effective := cs
	if forceASCII {
		effective = charset.ASCII
	}
	utf8Mode := effective.IsUTF8()

	if !h.caseSensitive {
		if utf8Mode {
			canonical = "(?i)" + canonical
		} else {
			canonical, err = casefold.Expand(canonical, effective)
			if err != nil {
				h.setError(KindInput, err.Error())
				return kernel.Condition{}, err
			}
		}
	}
	canonical = "(?s)" + canonical

	cfg := meta.DefaultConfig()
	cfg.Latin1 = !utf8Mode

	engine, err := meta.CompileWithConfig(canonical, cfg)
	if err != nil {
		h.setError(KindRegexCompile, err.Error())
		return kernel.Condition{}, err
	}

	return kernel.Condition{Engine: engine, UTF8Mode: utf8Mode}, nil
}

// buildLiteralFastPath computes the Literal-dialect upper_bytes/lower_bytes
// fast path (spec's Compiled Condition data model): when the pattern needs
// no whole-word or entire-line wrapping, the kernel can scan a line
// directly byte-by-byte against a pair of case-folded byte arrays instead
// of compiling and running a regex at all. ok is false whenever the
// pattern isn't eligible — non-Literal dialect, anchoring requested, an
// empty pattern (which the regex path already treats specially via the
// null-pattern advance-by-one rule), or a case-insensitive UTF-8 charset,
// whose Unicode folding can change a rune's byte length and so can't be
// represented as a fixed-width byte array; that case already has the
// regex engine's own native (?i) folding.
func buildLiteralFastPath(raw []byte, cs charset.Charset, d dialect.Dialect, caseSensitive, wholeWords, entireLine bool) (upper, lower []byte, ok bool) {
	if d != dialect.Literal || wholeWords || entireLine || len(raw) == 0 {
		return nil, nil, false
	}
	if caseSensitive {
		return raw, raw, true
	}
	if cs.IsUTF8() {
		return nil, nil, false
	}

	upper = make([]byte, len(raw))
	lower = make([]byte, len(raw))
	for i, b := range raw {
		r, _ := cs.DecodeOne(raw[i : i+1])
		upper[i] = b
		lower[i] = b
		if ub, encOK := cs.Encode(cs.ToUpper(r)); encOK && len(ub) == 1 {
			upper[i] = ub[0]
		}
		if lb, encOK := cs.Encode(cs.ToLower(r)); encOK && len(lb) == 1 {
			lower[i] = lb[0]
		}
	}
	return upper, lower, true
}

// Run searches src over [start, end) using the Handle's compiled
// conditions, returning the outcome and recording the match (if any) for
// MatchStart/MatchEnd.
func (h *Handle) Run(src kernel.Source, start, end int) kernel.Outcome {
	if !h.Prepare() {
		return kernel.OutcomeNotFound
	}
	outcome, m, err := kernel.Run(h.conditions, src, int64(start), int64(end), nil)
	if err != nil {
		h.setError(KindRegex, err.Error())
		h.lastFound = false
		return kernel.OutcomeNotFound
	}
	h.lastFound = outcome == kernel.OutcomeFound
	h.lastMatch = m
	return outcome
}

// RunBackward searches backward from savedStart, one byte at a time, for
// the nearest prior match (the "search previous occurrence" operation).
func (h *Handle) RunBackward(src kernel.Source, savedStart, end int) kernel.Outcome {
	if !h.Prepare() {
		return kernel.OutcomeNotFound
	}
	outcome, m, err := kernel.RunBackward(h.conditions, src, int64(savedStart), int64(end), nil)
	if err != nil {
		h.setError(KindRegex, err.Error())
		h.lastFound = false
		return kernel.OutcomeNotFound
	}
	h.lastFound = outcome == kernel.OutcomeFound
	h.lastMatch = m
	return outcome
}

// MatchStart returns the absolute start offset of capture group, or -1 if
// there was no match or the group didn't participate.
func (h *Handle) MatchStart(group int) int32 {
	g := h.groupBounds(group)
	if g == nil {
		return -1
	}
	return int32(h.lastMatch.LineStart) + int32(g[0])
}

// MatchEnd returns the absolute end offset of capture group, or -1 if
// there was no match or the group didn't participate.
func (h *Handle) MatchEnd(group int) int32 {
	g := h.groupBounds(group)
	if g == nil {
		return -1
	}
	return int32(h.lastMatch.LineStart) + int32(g[1])
}

func (h *Handle) groupBounds(group int) []int {
	if !h.lastFound || group < 0 || group >= len(h.lastMatch.Captures) {
		return nil
	}
	return h.lastMatch.Captures[group]
}

// matchCaptures adapts the last match's groups to replace.Captures by
// slicing them out of the line the kernel matched against. It's built
// fresh from the absolute offsets on every PrepareReplacement call, since
// the kernel doesn't retain the matched line after Run returns.
type matchCaptures struct {
	groups [][]byte
}

func (c matchCaptures) NumGroups() int { return len(c.groups) }
func (c matchCaptures) Group(i int) []byte {
	if i < 0 || i >= len(c.groups) {
		return nil
	}
	return c.groups[i]
}

// PrepareReplacement renders tpl against the last successful match. line
// must be the same bytes that were passed to Run (or the producer's
// output for that line), so capture offsets can be sliced out of it.
//
// When the Handle's dialect is Glob and mode is Cooked, tpl is first
// translated through dialect.GlobBackrefs: a glob replacement string's *
// and ? tokens refer to the auto-numbered capture groups Translate built
// for them, not to literal \N syntax, so the same glob.c-derived
// translation that built the search pattern also rewrites the replacement
// (spec.md §4.A, SPEC_FULL.md §5).
func (h *Handle) PrepareReplacement(tpl []byte, line []byte, mode replace.Mode) ([]byte, error) {
	groups := make([][]byte, len(h.lastMatch.Captures))
	for i, g := range h.lastMatch.Captures {
		if g == nil || len(g) < 2 {
			continue
		}
		if g[0] < 0 || g[1] > len(line) || g[0] > g[1] {
			continue
		}
		groups[i] = line[g[0]:g[1]]
	}

	if h.dlct == dialect.Glob && mode == replace.Cooked {
		tpl = []byte(dialect.GlobBackrefs(string(tpl)))
	}

	utf8Mode := h.cs.IsUTF8()
	return replace.Render(tpl, matchCaptures{groups: groups}, mode, utf8Mode)
}
