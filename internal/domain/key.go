package domain

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// KeyKind discriminates the two identifier schemes a document can carry.
type KeyKind string

const (
	// KeyExternal is a canonical identifier assigned by the document's
	// source API (e.g. an arXiv id like "2503.10291").
	KeyExternal KeyKind = "external"
	// KeySlug is a slug derived locally from the source URL, used for
	// documents that have no API-addressable identity.
	KeySlug KeyKind = "slug"
)

// DocumentKey is the effective primary key of a record. Exactly one
// identifier scheme is authoritative per record.
type DocumentKey struct {
	Kind  KeyKind `json:"kind"`
	Value string  `json:"value"`
}

func ExternalKey(id string) DocumentKey {
	return DocumentKey{Kind: KeyExternal, Value: id}
}

func SlugKey(slug string) DocumentKey {
	return DocumentKey{Kind: KeySlug, Value: slug}
}

// String returns the effective primary key value.
func (k DocumentKey) String() string { return k.Value }

func (k DocumentKey) IsZero() bool { return k.Value == "" }

var (
	externalURLPattern = regexp.MustCompile(`^(?:https?://)?(?:www\.)?arxiv\.org/(?:abs|pdf)/(\d{4}\.\d{4,5})(?:v\d+)?(?:\.pdf)?$`)
	bareExternalID     = regexp.MustCompile(`^(\d{4}\.\d{4,5})(?:v\d+)?$`)
	nonAlnum           = regexp.MustCompile(`[^a-zA-Z0-9]+`)
	multiHyphen        = regexp.MustCompile(`-{2,}`)
)

// KeyFromSource derives a DocumentKey from a source URL or bare external
// id. API-addressable documents get an external key; everything else gets
// a slug derived from the URL.
func KeyFromSource(raw string) (DocumentKey, error) {
	raw = strings.TrimSpace(raw)
	if m := bareExternalID.FindStringSubmatch(raw); m != nil {
		return ExternalKey(m[1]), nil
	}
	if m := externalURLPattern.FindStringSubmatch(raw); m != nil {
		return ExternalKey(m[1]), nil
	}
	slug := SlugifyURL(raw)
	if slug == "" {
		return DocumentKey{}, fmt.Errorf("cannot derive identifier from %q", raw)
	}
	return SlugKey(slug), nil
}

const maxSlugLength = 80

// SlugifyURL derives a filesystem-safe slug from a URL, e.g.
// "https://www.example.com/blog/post/" -> "example-com-blog-post".
func SlugifyURL(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	s := parsed.Host + parsed.Path
	s = strings.TrimPrefix(s, "www.")
	s = strings.TrimRight(s, "/")
	s = nonAlnum.ReplaceAllString(s, "-")
	s = multiHyphen.ReplaceAllString(s, "-")
	s = strings.ToLower(strings.Trim(s, "-"))
	if len(s) > maxSlugLength {
		s = s[:maxSlugLength]
		if idx := strings.LastIndex(s, "-"); idx > 0 {
			s = s[:idx]
		}
		s = strings.TrimRight(s, "-")
	}
	return s
}
