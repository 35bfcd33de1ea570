package notion

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"doc_assistant/internal/domain"
)

const maxTitleLength = 200

// Canonical property names the sync database must provide. Matching
// against the live schema is case-insensitive and type-checked, so a
// database whose column is named "External_ID" still resolves.
var requiredProperties = map[string]string{
	"external_id":           "rich_text",
	"title":                 "title",
	"authors":               "rich_text",
	"tags":                  "multi_select",
	"reading_status":        "select",
	"summary_last_modified": "date",
	"local_last_modified":   "date",
	"archived":              "checkbox",
}

var optionalProperties = map[string]string{
	"source_slug": "rich_text",
}

// SchemaError reports a sync database whose schema cannot carry the
// required properties. It is a configuration problem, not a transient
// one, so callers should not retry.
type SchemaError struct {
	Property  string
	Type      string
	Available []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("notion database is missing required property %q of type %s (available: %s)",
		e.Property, e.Type, strings.Join(e.Available, ", "))
}

// resolveSchema maps canonical property names onto the actual column
// names of the database. The title column falls back to "Name", the
// default Notion gives new databases.
func resolveSchema(db database) (map[string]string, error) {
	byLower := make(map[string]string, len(db.Properties))
	for name := range db.Properties {
		byLower[strings.ToLower(name)] = name
	}

	resolve := func(canonical, wantType string) (string, bool) {
		if actual, ok := byLower[canonical]; ok && db.Properties[actual].Type == wantType {
			return actual, true
		}
		if canonical == "title" {
			if actual, ok := byLower["name"]; ok && db.Properties[actual].Type == wantType {
				return actual, true
			}
		}
		return "", false
	}

	resolved := make(map[string]string, len(requiredProperties)+len(optionalProperties))
	for canonical, wantType := range requiredProperties {
		actual, ok := resolve(canonical, wantType)
		if !ok {
			available := make([]string, 0, len(db.Properties))
			for name, prop := range db.Properties {
				available = append(available, name+" ("+prop.Type+")")
			}
			sort.Strings(available)
			return nil, &SchemaError{Property: canonical, Type: wantType, Available: available}
		}
		resolved[canonical] = actual
	}
	for canonical, wantType := range optionalProperties {
		if actual, ok := resolve(canonical, wantType); ok {
			resolved[canonical] = actual
		}
	}
	return resolved, nil
}

func (c *Client) parsePage(p page, summary string) domain.RemoteRecord {
	prop := func(canonical string) (property, bool) {
		actual, ok := c.props[canonical]
		if !ok {
			return property{}, false
		}
		value, ok := p.Properties[actual]
		return value, ok
	}
	text := func(canonical string) string {
		value, ok := prop(canonical)
		if !ok {
			return ""
		}
		if value.Type == "title" {
			return strings.TrimSpace(plainText(value.Title))
		}
		return strings.TrimSpace(plainText(value.RichText))
	}
	date := func(canonical string) *time.Time {
		value, ok := prop(canonical)
		if !ok || value.Date == nil || value.Date.Start == "" {
			return nil
		}
		parsed, err := time.Parse(time.RFC3339, value.Date.Start)
		if err != nil {
			// Date-only values come back without a time component.
			parsed, err = time.Parse("2006-01-02", value.Date.Start)
			if err != nil {
				return nil
			}
		}
		return &parsed
	}

	rec := domain.RemoteRecord{
		PageID:       p.ID,
		ExternalID:   text("external_id"),
		Slug:         text("source_slug"),
		Title:        text("title"),
		Summary:      summary,
		LastEditedAt: p.LastEditedTime,
	}

	if authors := text("authors"); authors != "" {
		for _, author := range strings.Split(authors, ",") {
			if author = strings.TrimSpace(author); author != "" {
				rec.Authors = append(rec.Authors, author)
			}
		}
	}
	if value, ok := prop("tags"); ok {
		for _, option := range value.MultiSelect {
			rec.Tags = append(rec.Tags, option.Name)
		}
		rec.Tags = domain.DedupeTags(rec.Tags)
	}
	if value, ok := prop("reading_status"); ok && value.Select != nil {
		if status, ok := domain.ParseReadingStatus(value.Select.Name); ok {
			rec.ReadingStatus = string(status)
		}
	}
	rec.SummaryModifiedAt = date("summary_last_modified")
	rec.LocalModifiedAt = date("local_last_modified")

	if value, ok := prop("archived"); ok && value.Checkbox != nil {
		rec.Archived = *value.Checkbox
	}
	rec.Archived = rec.Archived || p.Archived

	return rec
}

// buildProperties renders a local record into the page property payload.
// The slug property is written only when the database carries the
// optional source_slug column.
func (c *Client) buildProperties(rec *domain.Record, archived bool) map[string]any {
	title := rec.Title
	if runes := []rune(title); len(runes) > maxTitleLength {
		title = string(runes[:maxTitleLength])
	}

	externalID := ""
	if rec.Key.Kind == domain.KeyExternal {
		externalID = rec.Key.Value
	}

	tags := make([]map[string]string, 0, len(rec.Tags))
	for _, tag := range domain.DedupeTags(rec.Tags) {
		tags = append(tags, map[string]string{"name": tag})
	}

	modified := rec.LocalModifiedAt.UTC().Format(time.RFC3339)

	props := map[string]any{
		c.props["title"]:       map[string]any{"title": toRichText(title)},
		c.props["external_id"]: map[string]any{"rich_text": toRichText(externalID)},
		c.props["authors"]:     map[string]any{"rich_text": toRichText(strings.Join(rec.Authors, ", "))},
		c.props["tags"]:        map[string]any{"multi_select": tags},
		c.props["reading_status"]: map[string]any{
			"select": map[string]string{"name": string(rec.ReadingStatus)},
		},
		c.props["summary_last_modified"]: map[string]any{"date": map[string]string{"start": modified}},
		c.props["local_last_modified"]:   map[string]any{"date": map[string]string{"start": modified}},
		c.props["archived"]:              map[string]any{"checkbox": archived},
	}

	if slugProp, ok := c.props["source_slug"]; ok && rec.Key.Kind == domain.KeySlug {
		props[slugProp] = map[string]any{"rich_text": toRichText(rec.Key.Value)}
	}

	return props
}
