package catalog

import "strings"

// regionKeywords maps a genre substring to the region tag the regional
// filter matches against mood_analysis.excluded_regions. Spotify's Web
// API has no artist-country field, so this is the same kind of
// keyword-bucket heuristic the mood analyzer already uses to classify
// free-text genre keywords, applied here to artist genre strings instead.
var regionKeywords = []struct {
	keyword string
	region  string
}{
	{"k-pop", "east_asian"}, {"korean", "east_asian"}, {"kpop", "east_asian"},
	{"j-pop", "east_asian"}, {"j-rock", "east_asian"}, {"japanese", "east_asian"},
	{"c-pop", "east_asian"}, {"cantopop", "east_asian"}, {"mandopop", "east_asian"}, {"chinese", "east_asian"},
	{"indo pop", "southeast_asian"}, {"indonesian", "southeast_asian"}, {"dangdut", "southeast_asian"},
	{"opm", "southeast_asian"}, {"vinahouse", "southeast_asian"}, {"vpop", "southeast_asian"},
	{"thai", "southeast_asian"}, {"malay", "southeast_asian"},
	{"bollywood", "south_asian"}, {"desi", "south_asian"}, {"punjabi", "south_asian"}, {"hindi", "south_asian"},
	{"reggaeton", "latin_american"}, {"latin", "latin_american"}, {"bachata", "latin_american"},
	{"salsa", "latin_american"}, {"banda", "latin_american"}, {"regional mexican", "latin_american"},
	{"afrobeat", "african"}, {"afropop", "african"}, {"naija", "african"}, {"amapiano", "african"},
	{"arab", "middle_eastern"}, {"khaleeji", "middle_eastern"}, {"turkish", "middle_eastern"},
}

// regionFromGenres derives a coarse region tag from an artist's Spotify
// genre list, returning "" when no keyword matches (most Western genres).
func regionFromGenres(genres []string) string {
	for _, g := range genres {
		lower := strings.ToLower(g)
		for _, rk := range regionKeywords {
			if strings.Contains(lower, rk.keyword) {
				return rk.region
			}
		}
	}
	return ""
}
