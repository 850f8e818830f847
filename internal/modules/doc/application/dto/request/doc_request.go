package request

// SearchRequest 文档问答请求
type SearchRequest struct {
	Query string `json:"query" binding:"required"` // 用户问题（必填）
}

// ReingestRequest 重新摄取指定文档
type ReingestRequest struct {
	DocumentID int64 `json:"document_id" binding:"required"`
}

// ListDocumentsRequest 文档列表分页参数
type ListDocumentsRequest struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}
