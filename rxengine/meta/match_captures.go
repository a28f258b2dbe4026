package meta

// MatchWithCaptures represents a successful match together with the
// positions of every capture group. Captures[0] always spans the entire
// match; Captures[i] is [start, end] for the i-th parenthesized group, or
// nil when that group did not participate in the match.
type MatchWithCaptures struct {
	haystack []byte
	captures [][]int
}

// NewMatchWithCaptures builds a MatchWithCaptures from the raw capture slots
// produced by the NFA/DFA search state. haystack is stored by reference.
func NewMatchWithCaptures(haystack []byte, captures [][]int) *MatchWithCaptures {
	return &MatchWithCaptures{haystack: haystack, captures: captures}
}

// group0 returns the [start, end] pair for the whole match, or nil if the
// match carries no capture information at all.
func (m *MatchWithCaptures) group0() []int {
	if len(m.captures) == 0 {
		return nil
	}
	return m.captures[0]
}

// Start returns the start offset of the whole match, or -1 if unavailable.
func (m *MatchWithCaptures) Start() int {
	g := m.group0()
	if g == nil {
		return -1
	}
	return g[0]
}

// End returns the end offset of the whole match, or -1 if unavailable.
func (m *MatchWithCaptures) End() int {
	g := m.group0()
	if g == nil {
		return -1
	}
	return g[1]
}

// NumCaptures returns the number of capture slots, including group 0.
func (m *MatchWithCaptures) NumCaptures() int {
	return len(m.captures)
}

// GroupIndex returns the [start, end] pair for the given group index, or nil
// if the index is out of range or the group did not participate.
func (m *MatchWithCaptures) GroupIndex(i int) []int {
	if i < 0 || i >= len(m.captures) {
		return nil
	}
	return m.captures[i]
}

// Group returns the matched bytes for group i, or nil if the group is out
// of range, unmatched, or its bounds fall outside the haystack.
func (m *MatchWithCaptures) Group(i int) []byte {
	g := m.GroupIndex(i)
	if g == nil || len(g) < 2 {
		return nil
	}
	start, end := g[0], g[1]
	if start < 0 || end > len(m.haystack) || start > end {
		return nil
	}
	return m.haystack[start:end]
}

// GroupString returns the matched text for group i as a string, or "" if
// the group is unmatched or out of range.
func (m *MatchWithCaptures) GroupString(i int) string {
	return string(m.Group(i))
}

// Bytes returns the matched bytes for the whole match (group 0).
func (m *MatchWithCaptures) Bytes() []byte {
	return m.Group(0)
}

// String returns the matched text for the whole match (group 0).
func (m *MatchWithCaptures) String() string {
	return string(m.Bytes())
}

// AllGroups returns the matched bytes for every capture group, in order.
// Unmatched groups are nil.
func (m *MatchWithCaptures) AllGroups() [][]byte {
	out := make([][]byte, len(m.captures))
	for i := range m.captures {
		out[i] = m.Group(i)
	}
	return out
}

// AllGroupStrings returns the matched text for every capture group, in
// order. Unmatched groups are "".
func (m *MatchWithCaptures) AllGroupStrings() []string {
	out := make([]string, len(m.captures))
	for i := range m.captures {
		out[i] = m.GroupString(i)
	}
	return out
}
