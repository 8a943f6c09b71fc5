package recgen

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodloom/recengine/internal/models"
)

func uriPtr(s string) *string { return &s }

func TestRemoveDuplicatesKeepsFirstOccurrence(t *testing.T) {
	recs := []models.TrackRecommendation{
		{TrackID: "t1", SpotifyURI: uriPtr("uri1")},
		{TrackID: "t1", SpotifyURI: uriPtr("uri1")},
		{TrackID: "t2", SpotifyURI: uriPtr("uri2")},
	}
	unique := RemoveDuplicates(recs)
	assert.Len(t, unique, 2)
}

func TestEnforceSourceRatioKeepsUserMentionedAnchorsUnlimited(t *testing.T) {
	var recs []models.TrackRecommendation
	for i := 0; i < 8; i++ {
		recs = append(recs, models.TrackRecommendation{
			TrackID:       idx(i),
			Source:        models.SourceAnchorTrack,
			UserMentioned: true,
			ConfidenceScore: 1.0,
		})
	}
	for i := 0; i < 30; i++ {
		recs = append(recs, models.TrackRecommendation{
			TrackID:         "artist-" + idx(i),
			Source:          models.SourceArtistDiscovery,
			ConfidenceScore: 0.8,
		})
	}

	final := EnforceSourceRatio(recs, 30, 0.95)

	userMentionedCount := 0
	for _, r := range final {
		if r.UserMentioned {
			userMentionedCount++
		}
	}
	assert.Equal(t, 8, userMentionedCount, "all 8 user-mentioned anchors survive despite exceeding the anchor cap")
}

func TestEnforceSourceRatioOrdersAnchorsBeforeArtistBeforeReccobeat(t *testing.T) {
	recs := []models.TrackRecommendation{
		{TrackID: "r1", Source: models.SourceReccobeat, ConfidenceScore: 0.99},
		{TrackID: "a1", Source: models.SourceArtistDiscovery, ConfidenceScore: 0.5},
		{TrackID: "anchor1", Source: models.SourceAnchorTrack, UserMentioned: true, ConfidenceScore: 0.1},
	}

	final := EnforceSourceRatio(recs, 30, 0.95)
	require.Len(t, final, 3)
	assert.Equal(t, "anchor1", final[0].TrackID, "anchors stay first even with the lowest confidence score")
	assert.Equal(t, "a1", final[1].TrackID)
	assert.Equal(t, "r1", final[2].TrackID)
}

func TestCalculateSourceLimitsReservesAnchorBudgetFirst(t *testing.T) {
	limits := calculateSourceLimits(30, 0.95)
	assert.Equal(t, 5, limits.anchor)
	assert.Equal(t, 23, limits.artist)
	assert.Equal(t, 2, limits.reccobeat)
}

func TestEnforceSourceRatioThrottlesUserMentionedArtistShare(t *testing.T) {
	var recs []models.TrackRecommendation
	for i := 0; i < 25; i++ {
		recs = append(recs, models.TrackRecommendation{
			TrackID:             fmt.Sprintf("mentioned-%d", i),
			Source:              models.SourceArtistDiscovery,
			UserMentionedArtist: true,
			ConfidenceScore:     0.9,
		})
	}
	for i := 0; i < 15; i++ {
		recs = append(recs, models.TrackRecommendation{
			TrackID:         fmt.Sprintf("discovered-%d", i),
			Source:          models.SourceArtistDiscovery,
			ConfidenceScore: 0.6,
		})
	}

	// maxCount large enough, and artistRatio 1.0, so the final size cap
	// never trims the partition further than the ratio enforcement does.
	final := EnforceSourceRatio(recs, 100, 1.0)

	var mentioned, other int
	for _, r := range final {
		if r.Source != models.SourceArtistDiscovery {
			continue
		}
		if r.UserMentionedArtist {
			mentioned++
		} else {
			other++
		}
	}
	assert.Equal(t, 20, mentioned, "25 user-mentioned-artist tracks are capped to 50% of the 40-track partition")
	assert.Equal(t, 15, other, "non-user-mentioned discovery tracks are never dropped by the ratio cap")
}

func idx(i int) string {
	return string(rune('a' + i))
}
