package readinglog

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/papermoth/ficshelf/backend/internal/catalog"
	"go.uber.org/zap"
)

// NoData marks a top-entity slot with no completed fics to draw from.
const NoData = "N/A"

// MonthlyReport aggregates one user's reading activity over a calendar month.
type MonthlyReport struct {
	Year  int
	Month time.Month
	// ReadingDays holds one flag per calendar day of the month; index is
	// day-of-month minus one.
	ReadingDays     []bool
	CompletedFicIDs []string
	TotalWords      int64
	TopFandom       string
	TopRelationship string
	TopCharacter    string
}

// BuildMonthlyReport computes the reading heatmap, the set of fics completed
// within the target month, and aggregate statistics over that set. monthOffset
// counts months back from the current month; zero means the current month.
func (s *Service) BuildMonthlyReport(ctx context.Context, userID string, monthOffset int) (MonthlyReport, error) {
	windowStart, windowEnd := MonthWindow(s.clock(), monthOffset)
	report := MonthlyReport{
		Year:            windowStart.Year(),
		Month:           windowStart.Month(),
		ReadingDays:     make([]bool, daysIn(windowStart)),
		CompletedFicIDs: []string{},
		TopFandom:       NoData,
		TopRelationship: NoData,
		TopCharacter:    NoData,
	}

	var records []ReadingLog
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		s.logError(opMonthlyReport, "log_query_failed", err, zap.String("user_id", userID))
		return MonthlyReport{}, newServiceError(opMonthlyReport, "log_query_failed", err)
	}

	completedSet := make(map[string]struct{})
	for _, record := range records {
		for _, interval := range record.intervals() {
			if interval.overlaps(windowStart, windowEnd) {
				markReadingDays(report.ReadingDays, interval.clip(windowStart, windowEnd))
			}
			if interval.finishesWithin(windowStart, windowEnd) {
				if _, ok := completedSet[record.FicID]; !ok {
					completedSet[record.FicID] = struct{}{}
					report.CompletedFicIDs = append(report.CompletedFicIDs, record.FicID)
				}
			}
		}
	}

	if len(report.CompletedFicIDs) == 0 {
		return report, nil
	}

	var words []int64
	if err := s.db.WithContext(ctx).
		Model(&catalog.Fic{}).
		Where("fic_id IN ?", report.CompletedFicIDs).
		Pluck("words", &words).Error; err != nil {
		s.logError(opMonthlyReport, "word_query_failed", err, zap.String("user_id", userID))
		return MonthlyReport{}, newServiceError(opMonthlyReport, "word_query_failed", err)
	}
	for _, count := range words {
		report.TotalWords += count
	}

	tops := map[catalog.Category]*string{
		catalog.CategoryFandom:       &report.TopFandom,
		catalog.CategoryRelationship: &report.TopRelationship,
		catalog.CategoryCharacter:    &report.TopCharacter,
	}
	for _, category := range []catalog.Category{catalog.CategoryFandom, catalog.CategoryRelationship, catalog.CategoryCharacter} {
		top, err := s.topEntityName(ctx, category, report.CompletedFicIDs)
		if err != nil {
			s.logError(opMonthlyReport, "entity_query_failed", err, zap.String("category", string(category)))
			return MonthlyReport{}, newServiceError(opMonthlyReport, "entity_query_failed", err)
		}
		*tops[category] = top
	}

	return report, nil
}

// markReadingDays flags every calendar day touched by the clipped interval.
// Days are walked by constructing real dates and incrementing the day field,
// so month boundaries and month lengths need no special cases.
func markReadingDays(days []bool, clipped Interval) {
	day := time.Date(clipped.Start.Year(), clipped.Start.Month(), clipped.Start.Day(), 0, 0, 0, 0, time.UTC)
	for !day.After(clipped.End) {
		index := day.Day() - 1
		if index >= 0 && index < len(days) {
			days[index] = true
		}
		day = day.AddDate(0, 0, 1)
	}
}

// topEntityName counts occurrences of each entity name in the category across
// the completed fics and returns the most frequent one. Ties resolve to the
// alphabetically smallest name so the result is deterministic.
func (s *Service) topEntityName(ctx context.Context, category catalog.Category, ficIDs []string) (string, error) {
	var names []string
	err := s.db.WithContext(ctx).
		Model(&catalog.TaggableEntity{}).
		Joins("JOIN entity_links ON entity_links.entity_id = taggable_entities.entity_id").
		Where("entity_links.owner_type = ? AND entity_links.owner_id IN ? AND taggable_entities.category = ?",
			string(catalog.OwnerTypeFic), ficIDs, string(category)).
		Pluck("taggable_entities.name", &names).Error
	if err != nil {
		return "", err
	}

	counts := make(map[string]int, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		counts[trimmed]++
	}
	if len(counts) == 0 {
		return NoData, nil
	}

	ranked := make([]string, 0, len(counts))
	for name := range counts {
		ranked = append(ranked, name)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if counts[ranked[i]] != counts[ranked[j]] {
			return counts[ranked[i]] > counts[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})
	return ranked[0], nil
}
