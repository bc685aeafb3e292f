// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package normalize

import (
	"github.com/nobarfilm/nobarfilm/internal/models"
)

// Anime normalizes an anime API catalog payload. Lists appear as
// data.animeList (browse) or data.searchResults (search); both are
// read and concatenated so mixed responses lose nothing.
func Anime(payload []byte) models.CatalogPage {
	root := decode(payload)
	data := getMap(root, "data")

	items := make([]models.DramaSummary, 0)
	for _, raw := range getSlice(data, "animeList") {
		if rec, ok := animeRecord(raw); ok {
			items = append(items, rec)
		}
	}
	for _, raw := range getSlice(data, "searchResults") {
		if rec, ok := animeRecord(raw); ok {
			items = append(items, rec)
		}
	}

	hasMore, nextOffset := pageHints(root, data)
	return models.CatalogPage{Items: items, HasMore: hasMore, NextOffset: nextOffset}
}

func animeRecord(raw interface{}) (models.DramaSummary, bool) {
	anime, ok := raw.(map[string]interface{})
	if !ok {
		return models.DramaSummary{}, false
	}
	id := firstString(anime, "animeId", "slug", "id")
	if id == "" {
		return models.DramaSummary{}, false
	}
	return models.DramaSummary{
		BookID:       id,
		Title:        StripHTML(firstString(anime, "title", "name")),
		CoverURL:     firstString(anime, "poster", "cover"),
		Description:  StripHTML(firstString(anime, "synopsis", "description")),
		ChapterCount: getInt(anime, "episodes"),
		Tags:         getStrings(anime, "genres"),
		PlayCount:    firstString(anime, "score", "rating"),
		Source:       SourceAnime,
	}, true
}

// AnimeStream normalizes an anime episode payload into a stream
// source. The server list is tried in order; the first entry with a
// URL wins.
func AnimeStream(payload []byte, bookID string, episode int) *models.StreamSource {
	root := decode(payload)
	data := getMap(root, "data")

	if url := firstString(data, "streamUrl", "url"); url != "" {
		return &models.StreamSource{
			BookID:  bookID,
			Episode: episode,
			URL:     url,
			Quality: firstString(data, "quality"),
			Source:  SourceAnime,
		}
	}

	for _, raw := range getSlice(data, "servers") {
		server, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		url := firstString(server, "streamUrl", "url")
		if url == "" {
			continue
		}
		return &models.StreamSource{
			BookID:  bookID,
			Episode: episode,
			URL:     url,
			Quality: firstString(server, "quality"),
			Source:  SourceAnime,
		}
	}
	return nil
}
