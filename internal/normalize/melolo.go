// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package normalize

import (
	"github.com/nobarfilm/nobarfilm/internal/models"
)

// Melolo normalizes a Melolo catalog payload. Entries live under
// data.list with a videoId/title/cover shape.
func Melolo(payload []byte) models.CatalogPage {
	root := decode(payload)
	data := getMap(root, "data")

	items := make([]models.DramaSummary, 0)
	for _, raw := range getSlice(data, "list") {
		video, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		id := firstString(video, "videoId", "video_id", "id")
		if id == "" {
			continue
		}
		items = append(items, models.DramaSummary{
			BookID:       id,
			Title:        StripHTML(firstString(video, "title", "videoName")),
			CoverURL:     firstString(video, "cover", "coverUrl"),
			Description:  StripHTML(firstString(video, "brief", "description")),
			ChapterCount: getInt(video, "totalEpisode"),
			Tags:         getStrings(video, "tags"),
			PlayCount:    firstString(video, "playNum", "viewCount"),
			Source:       SourceMelolo,
		})
	}

	hasMore, nextOffset := pageHints(root, data)
	return models.CatalogPage{Items: items, HasMore: hasMore, NextOffset: nextOffset}
}

// MeloloStream normalizes a Melolo episode payload into a stream source.
func MeloloStream(payload []byte, bookID string, episode int) *models.StreamSource {
	root := decode(payload)
	data := getMap(root, "data")

	url := firstString(data, "playUrl", "videoUrl", "url")
	if url == "" {
		return nil
	}
	return &models.StreamSource{
		BookID:   bookID,
		Episode:  episode,
		URL:      url,
		Quality:  firstString(data, "resolution", "quality"),
		Subtitle: firstString(data, "subtitleUrl"),
		Source:   SourceMelolo,
	}
}
