package application

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeedbackQuery(t *testing.T) {
	t.Parallel()

	t.Run("applies defaults", func(t *testing.T) {
		t.Parallel()

		query, err := ParseFeedbackQuery(RawFeedbackQuery{})
		require.NoError(t, err)
		assert.Equal(t, FeedbackQuery{Page: 1, Limit: 20, SortBy: SortBySubmittedAt, SortOrder: SortDescending}, query)
	})

	t.Run("accepts explicit values", func(t *testing.T) {
		t.Parallel()

		query, err := ParseFeedbackQuery(RawFeedbackQuery{Page: "3", Limit: "100", Search: " ali ", SortBy: "lastName", SortOrder: "ASC"})
		require.NoError(t, err)
		assert.Equal(t, FeedbackQuery{Page: 3, Limit: 100, Search: "ali", SortBy: SortByLastName, SortOrder: SortAscending}, query)
	})

	t.Run("out of range values", func(t *testing.T) {
		t.Parallel()

		_, err := ParseFeedbackQuery(RawFeedbackQuery{Page: "0", Limit: "101", SortBy: "email", SortOrder: "sideways"})

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.False(t, vErr.Malformed)
		assert.Equal(t, map[string]string{
			"page":      "must be at least 1",
			"limit":     "must be at most 100",
			"sortBy":    "must be one of submittedAt, username, firstName, lastName",
			"sortOrder": "must be one of asc, desc",
		}, vErr.FieldErrors)
		assert.Equal(t, "validation", ErrorKind(err))
	})

	t.Run("unparseable values", func(t *testing.T) {
		t.Parallel()

		_, err := ParseFeedbackQuery(RawFeedbackQuery{Page: "first", Limit: "1.5"})

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.True(t, vErr.Malformed)
		assert.Equal(t, "must be an integer", vErr.FieldErrors["page"])
		assert.Equal(t, "must be an integer", vErr.FieldErrors["limit"])
	})

	t.Run("search length is bounded in characters", func(t *testing.T) {
		t.Parallel()

		query, err := ParseFeedbackQuery(RawFeedbackQuery{Search: "  " + strings.Repeat("あ", MaxSearchLength) + "  "})
		require.NoError(t, err)
		assert.Len(t, []rune(query.Search), MaxSearchLength)

		_, err = ParseFeedbackQuery(RawFeedbackQuery{Search: strings.Repeat("a", MaxSearchLength+1)})

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.False(t, vErr.Malformed)
		assert.Equal(t, map[string]string{"search": "must be at most 200 characters"}, vErr.FieldErrors)
	})

	t.Run("zero limit", func(t *testing.T) {
		t.Parallel()

		_, err := ParseFeedbackQuery(RawFeedbackQuery{Limit: "0"})

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "must be at least 1", vErr.FieldErrors["limit"])
	})
}
