package types

// SearchQuery 搜索参数.
type SearchQuery struct {
	Q     string `form:"q"     rule:"required,max=256"`
	Type  string `form:"type"  rule:"omitempty,oneof=all image video audio document code other folders"`
	Date  string `form:"date"  rule:"omitempty,oneof=all today week month year"`
	Size  string `form:"size"  rule:"omitempty,oneof=all small medium large"`
	Sort  string `form:"sort"  rule:"omitempty,oneof=relevance name date size"`
	Order string `form:"order" rule:"omitempty,sortorder"`
}

// SearchResult 一条命中结果.
type SearchResult struct {
	FileEntry

	Score int `json:"score"`
}

// SearchResponse 搜索结果.
type SearchResponse struct {
	Query   string         `json:"query"`
	Total   int            `json:"total"`
	Results []SearchResult `json:"results"`
}

// SearchHistoryResponse 最近的搜索词，最新的在前.
type SearchHistoryResponse struct {
	Terms []string `json:"terms"`
}
