package model

// ResultSource records which side of the hybrid search produced a result.
type ResultSource string

const (
	SourceVector   ResultSource = "vector"
	SourceDatabase ResultSource = "database"
	SourceBoth     ResultSource = "both"
)

// Result is a single ranked search result returned by the query tools.
// RelevanceScore is nil for lexical-only matches (they carry no similarity
// signal and sort after all scored vector matches).
type Result struct {
	ID             string         `json:"id"`
	ChatName       string         `json:"chatName"`
	IsGroupMessage bool           `json:"isGroupMessage"`
	SenderName     string         `json:"senderName"`
	IsFromMe       bool           `json:"isFromMe"`
	Timestamp      int64          `json:"timestamp"`
	Content        string         `json:"content"`
	URLs           []ExtractedURL `json:"urls,omitempty"`
	RelevanceScore *float64       `json:"relevanceScore,omitempty"`
	Source         ResultSource   `json:"source"`
}

// URLResult is a single entry from the URL lookup tools.
type URLResult struct {
	URL        string     `json:"url"`
	Domain     string     `json:"domain"`
	Purpose    URLPurpose `json:"purpose"`
	SenderName string     `json:"senderName"`
	ChatName   string     `json:"chatName"`
	Timestamp  int64      `json:"timestamp"`
	Context    string     `json:"context,omitempty"`
}
