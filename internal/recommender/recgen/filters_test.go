package recgen

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moodloom/recengine/internal/catalog"
)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func TestFilterCandidatesAppliesGenreGateOnlyWhenStrict(t *testing.T) {
	tracks := []catalog.TrackDTO{
		{TrackID: "rock", ArtistGenres: []string{"indie rock"}},
		{TrackID: "jazz", ArtistGenres: []string{"smooth jazz"}},
	}

	fc := FilterContext{PrimaryGenre: strPtr("rock"), GenreStrictness: 0.9}
	kept := filterCandidates(tracks, fc, "session-1")
	assert.Len(t, kept, 1)
	assert.Equal(t, "rock", kept[0].TrackID)
}

func TestFilterCandidatesSkipsGenreGateBelowStrictnessThreshold(t *testing.T) {
	tracks := []catalog.TrackDTO{
		{TrackID: "rock", ArtistGenres: []string{"indie rock"}},
		{TrackID: "jazz", ArtistGenres: []string{"smooth jazz"}},
	}

	fc := FilterContext{PrimaryGenre: strPtr("rock"), GenreStrictness: 0.2}
	kept := filterCandidates(tracks, fc, "session-1")
	assert.Len(t, kept, 2)
}

func TestFilterCandidatesRejectsUnknownGenreUnderStrictGate(t *testing.T) {
	tracks := []catalog.TrackDTO{
		{TrackID: "unknown"},
	}
	fc := FilterContext{PrimaryGenre: strPtr("rock"), GenreStrictness: 1.0}
	kept := filterCandidates(tracks, fc, "session-1")
	assert.Empty(t, kept)
}

func TestFilterCandidatesRejectsExcludedRegion(t *testing.T) {
	tracks := []catalog.TrackDTO{
		{TrackID: "sea", ArtistCountry: "southeast_asian"},
		{TrackID: "western", ArtistCountry: ""},
	}

	fc := FilterContext{ExcludedRegions: []string{"southeast_asian"}}
	kept := filterCandidates(tracks, fc, "session-1")
	assert.Len(t, kept, 1)
	assert.Equal(t, "western", kept[0].TrackID)
}

func TestFilterCandidatesRegionMatchIsNormalized(t *testing.T) {
	tracks := []catalog.TrackDTO{
		{TrackID: "t1", ArtistCountry: "Southeast Asian"},
	}
	fc := FilterContext{ExcludedRegions: []string{"southeast-asian"}}
	kept := filterCandidates(tracks, fc, "session-1")
	assert.Empty(t, kept)
}

func TestFilterCandidatesRejectsOutOfRangeYearWhenTemporal(t *testing.T) {
	tracks := []catalog.TrackDTO{
		{TrackID: "in_range", ReleaseYear: intPtr(1995)},
		{TrackID: "too_old", ReleaseYear: intPtr(1970)},
		{TrackID: "too_new", ReleaseYear: intPtr(2020)},
		{TrackID: "unknown_year"},
	}

	fc := FilterContext{
		IsTemporal:   true,
		YearRangeMin: intPtr(1989),
		YearRangeMax: intPtr(2000),
	}
	kept := filterCandidates(tracks, fc, "session-1")

	var ids []string
	for _, t := range kept {
		ids = append(ids, t.TrackID)
	}
	assert.ElementsMatch(t, []string{"in_range", "unknown_year"}, ids)
}

func TestFilterCandidatesHonorsYearToleranceAtBoundary(t *testing.T) {
	tracks := []catalog.TrackDTO{
		{TrackID: "boundary_low", ReleaseYear: intPtr(1988)},
		{TrackID: "boundary_high", ReleaseYear: intPtr(2001)},
	}

	fc := FilterContext{
		IsTemporal:   true,
		YearRangeMin: intPtr(1989),
		YearRangeMax: intPtr(2000),
	}
	kept := filterCandidates(tracks, fc, "session-1")
	assert.Len(t, kept, 2)
}

func TestFilterCandidatesSkipsTemporalFilterWhenNotTemporal(t *testing.T) {
	tracks := []catalog.TrackDTO{
		{TrackID: "t1", ReleaseYear: intPtr(2020)},
	}
	fc := FilterContext{
		IsTemporal:   false,
		YearRangeMin: intPtr(1989),
		YearRangeMax: intPtr(2000),
	}
	kept := filterCandidates(tracks, fc, "session-1")
	assert.Len(t, kept, 1)
}

func TestFilterCandidatesEmptyInputReturnsEmpty(t *testing.T) {
	kept := filterCandidates(nil, FilterContext{}, "session-1")
	assert.Empty(t, kept)
}
