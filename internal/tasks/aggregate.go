package tasks

import (
	"sort"
	"strings"

	"github.com/desertthunder/mixstats/internal/services"
	"github.com/desertthunder/mixstats/internal/shared"
)

const rankingLimit = 10

// ArtistCount is one entry of the top-artists ranking.
type ArtistCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// RankedTrack is one entry of the top-tracks ranking.
type RankedTrack struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Artists    string `json:"artists"`
	Popularity int    `json:"popularity"`
}

// GenreCount is one entry of the top-genres ranking.
type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

// aggregates holds everything computed from a playlist's track sequence.
type aggregates struct {
	trackCount      int
	totalDurationMS int
	featuresCount   int
	avgFeatures     map[string]float64
	topArtists      []ArtistCount
	topTracks       []RankedTrack
	topGenres       []GenreCount
}

// aggregate computes playlist statistics in a single pass over the track
// sequence. features maps track id to its feature record (tracks without one
// contribute nothing to the average); artists maps artist id to resolved
// metadata; artistOrder is the deduplicated first-seen ordering of artist ids
// used so genre ties resolve deterministically.
func aggregate(tracks []services.Track, features map[string]services.AudioFeatures, artists map[string]services.Artist, artistOrder []string) *aggregates {
	agg := &aggregates{trackCount: len(tracks)}

	artistCounts := make(map[string]int)
	var artistSeen []string
	var featureSums services.AudioFeatures
	ranked := make([]RankedTrack, 0, len(tracks))

	for _, track := range tracks {
		agg.totalDurationMS += track.DurationMS

		var names []string
		for _, ref := range track.Artists {
			label := ref.Name
			if label == "" {
				label = ref.ID
			}
			if label == "" {
				continue
			}
			if _, ok := artistCounts[label]; !ok {
				artistSeen = append(artistSeen, label)
			}
			artistCounts[label]++
			names = append(names, label)
		}

		if f, ok := features[track.ID]; ok && track.ID != "" {
			featureSums.Danceability += f.Danceability
			featureSums.Energy += f.Energy
			featureSums.Valence += f.Valence
			featureSums.Tempo += f.Tempo
			featureSums.Acousticness += f.Acousticness
			featureSums.Instrumentalness += f.Instrumentalness
			featureSums.Liveness += f.Liveness
			featureSums.Speechiness += f.Speechiness
			agg.featuresCount++
		}

		ranked = append(ranked, RankedTrack{
			ID:         track.ID,
			Name:       track.Name,
			Artists:    strings.Join(names, ", "),
			Popularity: track.Popularity,
		})
	}

	agg.avgFeatures = averageFeatures(featureSums, agg.featuresCount)
	agg.topArtists = rankArtists(artistCounts, artistSeen)
	agg.topTracks = rankTracks(ranked)
	agg.topGenres = rankGenres(artists, artistOrder)

	return agg
}

// averageFeatures divides per-field sums by count, rounded to 3 decimals.
// Returns an empty (but non-nil) map when no track had a feature record, so
// the response serializes as an empty object rather than zero-filled fields.
func averageFeatures(sums services.AudioFeatures, count int) map[string]float64 {
	if count == 0 {
		return map[string]float64{}
	}

	n := float64(count)
	return map[string]float64{
		"danceability":     shared.Round3(sums.Danceability / n),
		"energy":           shared.Round3(sums.Energy / n),
		"valence":          shared.Round3(sums.Valence / n),
		"tempo":            shared.Round3(sums.Tempo / n),
		"acousticness":     shared.Round3(sums.Acousticness / n),
		"instrumentalness": shared.Round3(sums.Instrumentalness / n),
		"liveness":         shared.Round3(sums.Liveness / n),
		"speechiness":      shared.Round3(sums.Speechiness / n),
	}
}

// rankArtists sorts per-track-artist occurrence counts descending, ties kept
// in first-seen order, truncated to the ranking limit.
func rankArtists(counts map[string]int, seen []string) []ArtistCount {
	entries := make([]ArtistCount, 0, len(seen))
	for _, name := range seen {
		entries = append(entries, ArtistCount{Name: name, Count: counts[name]})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})

	return truncate(entries)
}

// rankTracks sorts by popularity descending, ties kept in playlist order,
// truncated to the ranking limit.
func rankTracks(ranked []RankedTrack) []RankedTrack {
	entries := make([]RankedTrack, len(ranked))
	copy(entries, ranked)

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Popularity > entries[j].Popularity
	})

	return truncate(entries)
}

// rankGenres counts each genre once per unique resolved artist record,
// iterating artists in first-seen order so ties resolve deterministically.
func rankGenres(artists map[string]services.Artist, artistOrder []string) []GenreCount {
	counts := make(map[string]int)
	var seen []string

	for _, id := range artistOrder {
		artist, ok := artists[id]
		if !ok {
			continue
		}
		for _, genre := range artist.Genres {
			if _, ok := counts[genre]; !ok {
				seen = append(seen, genre)
			}
			counts[genre]++
		}
	}

	entries := make([]GenreCount, 0, len(seen))
	for _, genre := range seen {
		entries = append(entries, GenreCount{Genre: genre, Count: counts[genre]})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})

	return truncate(entries)
}

func truncate[T any](entries []T) []T {
	if len(entries) > rankingLimit {
		return entries[:rankingLimit]
	}
	return entries
}
