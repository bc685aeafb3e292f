// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

// DramaSummary is the canonical projection of one catalog entry from
// any upstream source. Normalizers always emit fully-shaped records;
// fields the upstream omits are zero-valued, never partially decoded.
type DramaSummary struct {
	BookID       string   `json:"book_id"`
	Title        string   `json:"title"`
	CoverURL     string   `json:"cover_url,omitempty"`
	Description  string   `json:"description,omitempty"`
	ChapterCount int      `json:"chapter_count,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	PlayCount    string   `json:"play_count,omitempty"`
	Source       string   `json:"source"`
}

// CatalogPage is a normalized page of catalog entries plus the
// pagination hints the upstream provided. HasMore and NextOffset
// follow a fallback chain during normalization and default to
// false/0 when the upstream reports neither.
type CatalogPage struct {
	Items      []DramaSummary `json:"items"`
	HasMore    bool           `json:"has_more"`
	NextOffset int            `json:"next_offset"`
}

// StreamSource is a resolved playable stream for one episode.
type StreamSource struct {
	BookID   string `json:"book_id"`
	Episode  int    `json:"episode"`
	URL      string `json:"url"`
	Quality  string `json:"quality,omitempty"`
	Format   string `json:"format,omitempty"`
	Subtitle string `json:"subtitle_url,omitempty"`
	Source   string `json:"source"`
}
