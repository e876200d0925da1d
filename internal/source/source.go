// Package source normalizes external document records into domain.Document
// values before they reach the chunker. Feed exports arrive in per-source
// shapes; each known schema is decoded explicitly rather than duck-typed.
package source

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"newsrag/internal/domain"
)

// feedRecord is the JSON shape produced by the feed-export collaborator.
type feedRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	PublishDate string `json:"publishDate"`
	Source      string `json:"source"`
}

// articleRecord is the alternative archive-dump shape some feeds use.
type articleRecord struct {
	GUID        string `json:"guid"`
	Headline    string `json:"headline"`
	Body        string `json:"body"`
	Link        string `json:"link"`
	PublishedAt string `json:"published_at"`
	Feed        string `json:"feed"`
}

// Load reads documents from the given paths. Glob patterns are expanded.
// JSON files are decoded as arrays of known feed schemas; plain .txt files
// become single documents titled after the file name. Records with empty
// content are rejected.
func Load(paths []string) ([]domain.Document, error) {
	var docs []domain.Document
	for _, p := range paths {
		matches, _ := filepath.Glob(p)
		if matches == nil {
			matches = []string{p}
		}
		for _, m := range matches {
			loaded, err := loadFile(m)
			if err != nil {
				return nil, fmt.Errorf("source: %s: %w", m, err)
			}
			docs = append(docs, loaded...)
		}
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("source: no documents found")
	}
	return docs, nil
}

func loadFile(path string) ([]domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return decodeJSON(data)
	case ".txt":
		doc, err := fromText(path, string(data))
		if err != nil {
			return nil, err
		}
		return []domain.Document{doc}, nil
	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}

// decodeJSON tries the known feed schemas in order. A file must parse
// entirely as one schema; mixed records are not supported.
func decodeJSON(data []byte) ([]domain.Document, error) {
	var feeds []feedRecord
	if err := json.Unmarshal(data, &feeds); err == nil && usableFeeds(feeds) {
		docs := make([]domain.Document, 0, len(feeds))
		for i, r := range feeds {
			doc, err := fromFeed(r)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			docs = append(docs, doc)
		}
		return docs, nil
	}

	var articles []articleRecord
	if err := json.Unmarshal(data, &articles); err == nil && usableArticles(articles) {
		docs := make([]domain.Document, 0, len(articles))
		for i, r := range articles {
			doc, err := fromArticle(r)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			docs = append(docs, doc)
		}
		return docs, nil
	}
	return nil, fmt.Errorf("no known feed schema matched")
}

func usableFeeds(records []feedRecord) bool {
	for _, r := range records {
		if r.Content != "" {
			return true
		}
	}
	return false
}

func usableArticles(records []articleRecord) bool {
	for _, r := range records {
		if r.Body != "" {
			return true
		}
	}
	return false
}

func fromFeed(r feedRecord) (domain.Document, error) {
	if strings.TrimSpace(r.Content) == "" {
		return domain.Document{}, fmt.Errorf("empty content")
	}
	if r.ID == "" {
		return domain.Document{}, fmt.Errorf("missing id")
	}
	return domain.Document{
		ID:          r.ID,
		Title:       r.Title,
		Body:        r.Content,
		URL:         r.URL,
		PublishedAt: parseDate(r.PublishDate),
		SourceTag:   r.Source,
	}, nil
}

func fromArticle(r articleRecord) (domain.Document, error) {
	if strings.TrimSpace(r.Body) == "" {
		return domain.Document{}, fmt.Errorf("empty body")
	}
	if r.GUID == "" {
		return domain.Document{}, fmt.Errorf("missing guid")
	}
	return domain.Document{
		ID:          r.GUID,
		Title:       r.Headline,
		Body:        r.Body,
		URL:         r.Link,
		PublishedAt: parseDate(r.PublishedAt),
		SourceTag:   r.Feed,
	}, nil
}

func fromText(path, content string) (domain.Document, error) {
	if strings.TrimSpace(content) == "" {
		return domain.Document{}, fmt.Errorf("empty file")
	}
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return domain.Document{
		ID:        name,
		Title:     name,
		Body:      content,
		SourceTag: "file",
	}, nil
}

func parseDate(raw string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}
