package model

import "strings"

// Tag classifies a journal entry. Only the values below are valid.
type Tag string

const (
	TagWork        Tag = "work"
	TagLearning    Tag = "learning"
	TagInteresting Tag = "interesting"
)

// DisplayOrder is the order tag sections are presented within a week.
var DisplayOrder = []Tag{TagLearning, TagWork, TagInteresting}

// ParseTag resolves a submitted category to a Tag. The label
// "Interesting things" is accepted as an alias of TagInteresting.
func ParseTag(raw string) (Tag, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "work":
		return TagWork, true
	case "learning":
		return TagLearning, true
	case "interesting", "interesting things":
		return TagInteresting, true
	default:
		return "", false
	}
}

// Valid reports whether t is one of the recognized tags.
func (t Tag) Valid() bool {
	switch t {
	case TagWork, TagLearning, TagInteresting:
		return true
	}
	return false
}

// Label returns the human-readable section name.
func (t Tag) Label() string {
	switch t {
	case TagWork:
		return "Work"
	case TagLearning:
		return "Learning"
	case TagInteresting:
		return "Interesting things"
	default:
		return string(t)
	}
}
