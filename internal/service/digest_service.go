package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"work-journal/internal/model"
)

// DigestService builds human-readable weekly summaries for notifications.
type DigestService struct {
	journal *JournalService
}

func NewDigestService(journal *JournalService) *DigestService {
	return &DigestService{journal: journal}
}

// WeeklyDigest renders the week containing now as Telegram HTML.
func (s *DigestService) WeeklyDigest(ctx context.Context, now time.Time) (string, error) {
	weeks, err := s.journal.Weeks(ctx)
	if err != nil {
		return "", err
	}

	start := WeekStart(now)
	bucket := WeekBucket{Key: start.Format(model.DateLayout), Start: start}
	for _, week := range weeks {
		if week.Key == bucket.Key {
			bucket = week
			break
		}
	}

	return FormatWeek(bucket), nil
}

// FormatWeek renders a single bucket as Telegram HTML.
func FormatWeek(bucket WeekBucket) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📓 <b>%s</b>\n", html.EscapeString(bucket.Label())))

	sections := bucket.Sections()
	if len(sections) == 0 {
		builder.WriteString("— nothing recorded yet\n")
		return strings.TrimSpace(builder.String())
	}

	for _, section := range sections {
		builder.WriteString(fmt.Sprintf("\n%s <b>%s</b>\n", tagIcon(section.Tag), html.EscapeString(section.Label)))
		for _, entry := range section.Entries {
			builder.WriteString(formatEntry(entry))
		}
	}

	return strings.TrimSpace(builder.String())
}

// FormatWeeks renders every bucket, oldest first.
func FormatWeeks(buckets []WeekBucket) string {
	if len(buckets) == 0 {
		return "— the journal is empty"
	}
	parts := make([]string, 0, len(buckets))
	for _, bucket := range buckets {
		parts = append(parts, FormatWeek(bucket))
	}
	return strings.Join(parts, "\n\n")
}

func formatEntry(entry model.Entry) string {
	text := html.EscapeString(strings.TrimSpace(entry.Text))
	return fmt.Sprintf("• <b>#%d</b> %s <i>(%s)</i>\n", entry.ID, text, entry.Date.UTC().Format("Mon"))
}

func tagIcon(tag model.Tag) string {
	switch tag {
	case model.TagLearning:
		return "🎓"
	case model.TagWork:
		return "💼"
	case model.TagInteresting:
		return "✨"
	default:
		return "🏷️"
	}
}
