// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package normalize

import (
	"github.com/nobarfilm/nobarfilm/internal/models"
)

// MovieBox normalizes a MovieBox-style catalog payload. Entries live
// under data.items with a nested subject object; flattened items
// (fields directly on the element) are accepted as well since the
// upstream uses both layouts.
func MovieBox(payload []byte) models.CatalogPage {
	root := decode(payload)
	data := getMap(root, "data")

	items := make([]models.DramaSummary, 0)
	for _, raw := range getSlice(data, "items") {
		item, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		subject := getMap(item, "subject")
		if subject == nil {
			subject = item
		}
		id := firstString(subject, "subjectId", "subject_id", "id")
		if id == "" {
			continue
		}

		cover := firstString(subject, "cover")
		if cover == "" {
			if img := getMap(subject, "cover"); img != nil {
				cover = firstString(img, "url", "image")
			}
		}

		items = append(items, models.DramaSummary{
			BookID:       id,
			Title:        StripHTML(firstString(subject, "title", "name")),
			CoverURL:     cover,
			Description:  StripHTML(firstString(subject, "description", "intro")),
			ChapterCount: getInt(subject, "totalEpisode"),
			Tags:         getStrings(subject, "genre"),
			PlayCount:    firstString(subject, "imdbRatingValue", "rating"),
			Source:       SourceMovieBox,
		})
	}

	hasMore, nextOffset := pageHints(root, data)
	return models.CatalogPage{Items: items, HasMore: hasMore, NextOffset: nextOffset}
}

// MovieBoxStream normalizes a MovieBox play payload into a stream
// source. Streams are listed by resolution; entries are tried in
// order and the first with a URL wins.
func MovieBoxStream(payload []byte, bookID string, episode int) *models.StreamSource {
	root := decode(payload)
	data := getMap(root, "data")

	for _, raw := range getSlice(data, "streams") {
		stream, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		url := firstString(stream, "url", "playUrl")
		if url == "" {
			continue
		}
		return &models.StreamSource{
			BookID:   bookID,
			Episode:  episode,
			URL:      url,
			Quality:  firstString(stream, "resolutions", "quality"),
			Format:   firstString(stream, "format"),
			Subtitle: firstString(stream, "subtitleUrl"),
			Source:   SourceMovieBox,
		}
	}
	return nil
}
