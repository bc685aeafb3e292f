// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package normalize

import (
	"github.com/nobarfilm/nobarfilm/internal/models"
)

// DramaBox normalizes a DramaBox catalog or search payload.
//
// Record arrays appear in two locations that are concatenated in
// priority order: data.newTheaterList.records (primary section) and
// data.records (supplemental). Search responses highlight matches
// with markup in bookName, stripped here.
func DramaBox(payload []byte) models.CatalogPage {
	root := decode(payload)
	data := getMap(root, "data")

	items := make([]models.DramaSummary, 0)
	for _, raw := range getSlice(data, "newTheaterList", "records") {
		if rec, ok := dramaBoxRecord(raw); ok {
			items = append(items, rec)
		}
	}
	for _, raw := range getSlice(data, "records") {
		if rec, ok := dramaBoxRecord(raw); ok {
			items = append(items, rec)
		}
	}

	hasMore, nextOffset := pageHints(root, data)
	return models.CatalogPage{Items: items, HasMore: hasMore, NextOffset: nextOffset}
}

func dramaBoxRecord(raw interface{}) (models.DramaSummary, bool) {
	book, ok := raw.(map[string]interface{})
	if !ok {
		return models.DramaSummary{}, false
	}
	id := firstString(book, "bookId", "book_id")
	if id == "" {
		return models.DramaSummary{}, false
	}
	return models.DramaSummary{
		BookID:       id,
		Title:        StripHTML(firstString(book, "bookName", "book_name")),
		CoverURL:     firstString(book, "coverWap", "cover"),
		Description:  StripHTML(firstString(book, "introduction", "intro")),
		ChapterCount: getInt(book, "chapterCount"),
		Tags:         getStrings(book, "tagNames"),
		PlayCount:    firstString(book, "playCount", "play_count"),
		Source:       SourceDramaBox,
	}, true
}

// DramaBoxStream normalizes a DramaBox chapter payload into a stream
// source for one episode. CDN entries are tried in listed order; the
// first with a usable URL wins. Returns nil when no stream is present.
func DramaBoxStream(payload []byte, bookID string, episode int) *models.StreamSource {
	root := decode(payload)
	data := getMap(root, "data")

	for _, raw := range getSlice(data, "chapterList") {
		chapter, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if idx := getInt(chapter, "index"); idx != 0 && idx != episode {
			continue
		}
		for _, rawCdn := range getSlice(chapter, "cdnList") {
			cdn, ok := rawCdn.(map[string]interface{})
			if !ok {
				continue
			}
			url := firstString(cdn, "url", "videoPath")
			if url == "" {
				continue
			}
			return &models.StreamSource{
				BookID:  bookID,
				Episode: episode,
				URL:     url,
				Quality: firstString(cdn, "quality"),
				Format:  firstString(cdn, "videoFormat", "format"),
				Source:  SourceDramaBox,
			}
		}
	}
	return nil
}
