package service

import (
	"fmt"
	"sort"
	"time"

	"work-journal/internal/model"
)

// WeekBucket holds the entries of one Sunday-to-Saturday week, split by tag.
// Within a section entries keep the order they were supplied in.
type WeekBucket struct {
	Key         string // YYYY-MM-DD of the week's Sunday
	Start       time.Time
	Learning    []model.Entry
	Work        []model.Entry
	Interesting []model.Entry
}

// WeekSection is one non-empty tag group of a bucket, ready for display.
type WeekSection struct {
	Tag     model.Tag
	Label   string
	Entries []model.Entry
}

// WeekStart returns the Sunday on or before date, at UTC midnight.
func WeekStart(date time.Time) time.Time {
	y, m, d := date.UTC().Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// AggregateWeeks groups entries into week buckets in ascending week order.
// Entries with an unrecognized tag are left out of every section.
func AggregateWeeks(entries []model.Entry) []WeekBucket {
	grouped := make(map[string][]model.Entry)
	starts := make(map[string]time.Time)
	for _, entry := range entries {
		start := WeekStart(entry.Date)
		key := start.Format(model.DateLayout)
		grouped[key] = append(grouped[key], entry)
		starts[key] = start
	}

	keys := make([]string, 0, len(grouped))
	for key := range grouped {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	buckets := make([]WeekBucket, 0, len(keys))
	for _, key := range keys {
		bucket := WeekBucket{Key: key, Start: starts[key]}
		for _, entry := range grouped[key] {
			switch entry.Type {
			case model.TagLearning:
				bucket.Learning = append(bucket.Learning, entry)
			case model.TagWork:
				bucket.Work = append(bucket.Work, entry)
			case model.TagInteresting:
				bucket.Interesting = append(bucket.Interesting, entry)
			}
		}
		buckets = append(buckets, bucket)
	}
	return buckets
}

// ByTag returns the section holding entries of tag.
func (b WeekBucket) ByTag(tag model.Tag) []model.Entry {
	switch tag {
	case model.TagLearning:
		return b.Learning
	case model.TagWork:
		return b.Work
	case model.TagInteresting:
		return b.Interesting
	}
	return nil
}

// Sections lists the non-empty sections in display order.
func (b WeekBucket) Sections() []WeekSection {
	var sections []WeekSection
	for _, tag := range model.DisplayOrder {
		entries := b.ByTag(tag)
		if len(entries) == 0 {
			continue
		}
		sections = append(sections, WeekSection{Tag: tag, Label: tag.Label(), Entries: entries})
	}
	return sections
}

// Label renders the bucket heading, e.g. "Week of January 7th".
func (b WeekBucket) Label() string {
	return fmt.Sprintf("Week of %s %d%s", b.Start.Month(), b.Start.Day(), ordinalSuffix(b.Start.Day()))
}

// Empty reports whether no section holds an entry.
func (b WeekBucket) Empty() bool {
	return len(b.Learning) == 0 && len(b.Work) == 0 && len(b.Interesting) == 0
}

func ordinalSuffix(n int) string {
	if n%100 >= 11 && n%100 <= 13 {
		return "th"
	}
	switch n % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}
