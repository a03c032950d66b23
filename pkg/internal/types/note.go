package types

import "time"

// Note 共享笔记.
type Note struct {
	Content   string    `json:"content"`
	Revision  string    `json:"revision"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
	WordCount int       `json:"word_count"`
	ETag      string    `json:"etag"`
}

// PutNoteRequest 保存笔记请求.
type PutNoteRequest struct {
	Content string `json:"content"`
}

// PutNoteResponse 保存结果，Overwrote 表示覆盖了客户端未见过的版本.
type PutNoteResponse struct {
	Note

	Overwrote bool `json:"overwrote"`
}
