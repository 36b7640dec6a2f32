// Package statistics aggregates submitted feedback responses into per-field
// summaries. Every function is pure over its inputs.
package statistics

import (
	"context"
	"math"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/example/feedback-analytics/internal/feedback"
)

// MaxSampleResponses bounds the raw answers retained for text fields.
const MaxSampleResponses = 3

// OptionCount pairs a choice option with the number of times it was selected.
type OptionCount struct {
	Option string
	Count  int
}

// ChoiceStatistics summarizes radio and checkbox fields.
type ChoiceStatistics struct {
	OptionCounts map[string]int
	MostPopular  *OptionCount
}

// RatingStatistics summarizes rating fields.
type RatingStatistics struct {
	Average      float64
	Min          float64
	Max          float64
	Distribution map[int]int
}

// TextStatistics summarizes text and textarea fields.
type TextStatistics struct {
	AverageWordCount float64
	TotalWords       int
	SampleResponses  []string
}

// FieldStatistics is the type-specific aggregate for one form field. Exactly one
// of Choice, Rating or Text is populated, matching Type.
type FieldStatistics struct {
	FieldID      string
	Type         feedback.FieldType
	Label        string
	TotalAnswers int
	ResponseRate float64

	Choice *ChoiceStatistics
	Rating *RatingStatistics
	Text   *TextStatistics
}

// ComputeFieldStatistics aggregates the answers given to field across responses.
func ComputeFieldStatistics(field feedback.FormField, responses []feedback.Response) FieldStatistics {
	return computeField(field, inSubmissionOrder(responses))
}

// ComputeAll computes statistics for every field of form, one goroutine per
// field. The result is keyed by field id.
func ComputeAll(ctx context.Context, form feedback.Form, responses []feedback.Response) (map[string]FieldStatistics, error) {
	ordered := inSubmissionOrder(responses)
	results := make([]FieldStatistics, len(form.Fields))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, field := range form.Fields {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			results[i] = computeField(field, ordered)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := make(map[string]FieldStatistics, len(results))
	for _, result := range results {
		stats[result.FieldID] = result
	}
	return stats, nil
}

// Rate returns part/whole as a percentage rounded to two decimals, or 0 when
// whole is not positive.
func Rate(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return Round2(float64(part) / float64(whole) * 100)
}

// Round2 rounds to two decimal places.
func Round2(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return math.Round(value*100) / 100
}

func computeField(field feedback.FormField, responses []feedback.Response) FieldStatistics {
	stats := FieldStatistics{FieldID: field.ID, Type: field.Type, Label: field.Label}

	switch field.Type {
	case feedback.FieldRadio, feedback.FieldCheckbox:
		stats.Choice, stats.TotalAnswers = choiceStatistics(field, responses)
	case feedback.FieldRating:
		stats.Rating, stats.TotalAnswers = ratingStatistics(field, responses)
	case feedback.FieldText, feedback.FieldTextarea:
		stats.Text, stats.TotalAnswers = textStatistics(field, responses)
	}

	stats.ResponseRate = Rate(stats.TotalAnswers, len(responses))
	return stats
}

func choiceStatistics(field feedback.FormField, responses []feedback.Response) (*ChoiceStatistics, int) {
	counts := make(map[string]int)
	var firstSeen []string
	answered := 0

	for _, response := range responses {
		var selections []string
		if field.Type == feedback.FieldCheckbox {
			selections = feedback.AnswerList(response.Answers[field.ID])
		} else if text := feedback.AnswerText(response.Answers[field.ID]); text != "" {
			selections = []string{text}
		}
		if len(selections) == 0 {
			continue
		}
		answered++
		for _, option := range selections {
			if _, seen := counts[option]; !seen {
				firstSeen = append(firstSeen, option)
			}
			counts[option]++
		}
	}

	return &ChoiceStatistics{
		OptionCounts: counts,
		MostPopular:  mostPopular(field.Options, firstSeen, counts),
	}, answered
}

// mostPopular picks the highest count. Ties go to the option declared first in
// the form, then to the undeclared option observed first.
func mostPopular(declared, firstSeen []string, counts map[string]int) *OptionCount {
	order := make([]string, 0, len(declared)+len(firstSeen))
	listed := make(map[string]struct{}, len(declared))
	for _, option := range declared {
		if _, dup := listed[option]; dup {
			continue
		}
		listed[option] = struct{}{}
		order = append(order, option)
	}
	for _, option := range firstSeen {
		if _, ok := listed[option]; !ok {
			order = append(order, option)
		}
	}

	var best *OptionCount
	for _, option := range order {
		count := counts[option]
		if count == 0 {
			continue
		}
		if best == nil || count > best.Count {
			best = &OptionCount{Option: option, Count: count}
		}
	}
	return best
}

func ratingStatistics(field feedback.FormField, responses []feedback.Response) (*RatingStatistics, int) {
	scale := field.RatingScale()
	stats := &RatingStatistics{Distribution: make(map[int]int, scale)}
	for value := 1; value <= scale; value++ {
		stats.Distribution[value] = 0
	}

	var sum float64
	answered := 0
	for _, response := range responses {
		value, ok := feedback.AnswerNumber(response.Answers[field.ID])
		if !ok {
			continue
		}
		if answered == 0 || value < stats.Min {
			stats.Min = value
		}
		if answered == 0 || value > stats.Max {
			stats.Max = value
		}
		answered++
		sum += value

		bucket := int(math.Round(value))
		if bucket >= 1 && bucket <= scale {
			stats.Distribution[bucket]++
		}
	}

	if answered > 0 {
		stats.Average = Round2(sum / float64(answered))
	}
	return stats, answered
}

func textStatistics(field feedback.FormField, responses []feedback.Response) (*TextStatistics, int) {
	stats := &TextStatistics{SampleResponses: []string{}}
	answered := 0

	for _, response := range responses {
		text := feedback.AnswerText(response.Answers[field.ID])
		if text == "" {
			continue
		}
		answered++
		stats.TotalWords += len(strings.Fields(text))
		if len(stats.SampleResponses) < MaxSampleResponses {
			stats.SampleResponses = append(stats.SampleResponses, text)
		}
	}

	if answered > 0 {
		stats.AverageWordCount = Round2(float64(stats.TotalWords) / float64(answered))
	}
	return stats, answered
}

func inSubmissionOrder(responses []feedback.Response) []feedback.Response {
	ordered := append([]feedback.Response(nil), responses...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].SubmittedAt.Equal(ordered[j].SubmittedAt) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].SubmittedAt.Before(ordered[j].SubmittedAt)
	})
	return ordered
}
