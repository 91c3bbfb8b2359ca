package domain

// ResultStub is a repository search hit before metadata enrichment.
type ResultStub struct {
	Link string `json:"link"`
}

// Paper is an enriched search result fed back to the search agent.
type Paper struct {
	Citation string `json:"citation"`
	Abstract string `json:"abstract"`
	Code     string `json:"code"`
}

// PaperDetail is the full detail-page record used by the paper and bookmark
// flows. Err carries a human-readable message on fetch failure; callers must
// check it before using the other fields.
type PaperDetail struct {
	Title        string `json:"title"`
	Citation     string `json:"citation"`
	Abstract     string `json:"abstract"`
	PreviewLink  string `json:"preview_link"`
	FullTextLink string `json:"full_text_link"`
	URL          string `json:"url"`
	Code         string `json:"code"`
	Err          string `json:"error,omitempty"`
}

// SavedPaper is a user bookmark.
type SavedPaper struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"user_id"`
	EprintCode string `json:"eprint_code"`
	Title      string `json:"title"`
}
