// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package normalize

import (
	"github.com/nobarfilm/nobarfilm/internal/models"
)

// NetShort normalizes a NetShort catalog or search payload.
//
// Books appear under every cell of the cell wrapper
// (cell.cell_data[].books) and under a top-level books field. Both
// locations are read and concatenated, in that order; responses
// legitimately carry both a sectioned layout and a flat supplemental
// list, and no deduplication is applied here.
func NetShort(payload []byte) models.CatalogPage {
	root := decode(payload)

	items := make([]models.DramaSummary, 0)
	for _, rawCell := range getSlice(root, "cell", "cell_data") {
		cell, ok := rawCell.(map[string]interface{})
		if !ok {
			continue
		}
		for _, raw := range getSlice(cell, "books") {
			if rec, ok := netShortRecord(raw); ok {
				items = append(items, rec)
			}
		}
	}
	for _, raw := range getSlice(root, "books") {
		if rec, ok := netShortRecord(raw); ok {
			items = append(items, rec)
		}
	}

	hasMore, nextOffset := pageHints(root, getMap(root, "cell"))
	return models.CatalogPage{Items: items, HasMore: hasMore, NextOffset: nextOffset}
}

func netShortRecord(raw interface{}) (models.DramaSummary, bool) {
	book, ok := raw.(map[string]interface{})
	if !ok {
		return models.DramaSummary{}, false
	}
	id := firstString(book, "book_id", "bookId")
	if id == "" {
		return models.DramaSummary{}, false
	}
	return models.DramaSummary{
		BookID:       id,
		Title:        StripHTML(firstString(book, "book_title", "title")),
		CoverURL:     firstString(book, "cover", "book_pic"),
		Description:  StripHTML(firstString(book, "abstract", "intro")),
		ChapterCount: getInt(book, "serial_count"),
		Tags:         getStrings(book, "category_names"),
		PlayCount:    firstString(book, "read_count", "play_amount"),
		Source:       SourceNetShort,
	}, true
}

// NetShortStream normalizes a NetShort episode payload into a stream
// source. Video URLs follow a fallback chain across the known fields.
func NetShortStream(payload []byte, bookID string, episode int) *models.StreamSource {
	root := decode(payload)
	video := getMap(root, "video_data")
	if video == nil {
		video = getMap(root, "data")
	}

	url := firstString(video, "main_url", "backup_url", "video_url")
	if url == "" {
		return nil
	}
	return &models.StreamSource{
		BookID:   bookID,
		Episode:  episode,
		URL:      url,
		Quality:  firstString(video, "definition", "quality"),
		Subtitle: firstString(video, "subtitle_url"),
		Source:   SourceNetShort,
	}
}
