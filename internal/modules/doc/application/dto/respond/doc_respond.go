package respond

import "encoding/json"

// UploadRespond 上传结果。Async 为 true 时 Chunks 恒为 0，
// 实际切片数待队列摄取完成后可经 /doc/get 查询
type UploadRespond struct {
	DocumentID int64  `json:"document_id"`
	Filename   string `json:"filename"`
	FileType   string `json:"file_type"`
	Chunks     int    `json:"chunks"`
	Async      bool   `json:"async"`
}

// SearchSource 命中来源，前端展示用
type SearchSource struct {
	ID        string          `json:"id"`
	ChunkText string          `json:"chunk_text"`
	Metadata  json.RawMessage `json:"metadata"`
	Score     float32         `json:"score"`
}

type SearchRespond struct {
	Answer  string         `json:"answer"`
	Sources []SearchSource `json:"sources"`
}

type ReingestRespond struct {
	DocumentID int64 `json:"document_id"`
	Chunks     int   `json:"chunks"`
}

type DocumentRespond struct {
	ID         int64           `json:"id"`
	Filename   string          `json:"filename"`
	FileType   string          `json:"file_type"`
	TextChars  int             `json:"text_chars"`
	Chunks     int             `json:"chunks"`
	Metadata   json.RawMessage `json:"metadata"`
	UploadedAt string          `json:"uploaded_at"`
}

type DocumentListRespond struct {
	Documents []DocumentRespond `json:"documents"`
}
