package domain

// Extraction is what a content extractor recovers from a source
// document before summarization.
type Extraction struct {
	Title    string
	Authors  []string
	Abstract string
	Content  string
	Source   []byte
}
