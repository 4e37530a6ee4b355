package quartz

import "strings"

type matchOp int

const (
	matchAny matchOp = iota
	matchEquals
	matchPrefix
	matchSuffix
	matchContains
)

// GroupMatcher selects job or trigger keys by group. The zero value
// matches every group.
type GroupMatcher struct {
	op      matchOp
	pattern string
}

func AnyGroup() GroupMatcher { return GroupMatcher{op: matchAny} }

func GroupEquals(group string) GroupMatcher {
	return GroupMatcher{op: matchEquals, pattern: group}
}

func GroupStartsWith(prefix string) GroupMatcher {
	return GroupMatcher{op: matchPrefix, pattern: prefix}
}

func GroupEndsWith(suffix string) GroupMatcher {
	return GroupMatcher{op: matchSuffix, pattern: suffix}
}

func GroupContains(sub string) GroupMatcher {
	return GroupMatcher{op: matchContains, pattern: sub}
}

func (m GroupMatcher) Matches(group string) bool {
	switch m.op {
	case matchEquals:
		return group == m.pattern
	case matchPrefix:
		return strings.HasPrefix(group, m.pattern)
	case matchSuffix:
		return strings.HasSuffix(group, m.pattern)
	case matchContains:
		return strings.Contains(group, m.pattern)
	default:
		return true
	}
}
