package entity

import (
	"database/sql"
	"time"
)

// 文档类型标签（按文件扩展名推导）
const (
	FileTypePDF    = "pdf"
	FileTypeDOCX   = "docx"
	FileTypeTXT    = "txt"
	FileTypePPTX   = "pptx"
	FileTypeCSV    = "csv"
	FileTypeImages = "images"
	FileTypeOthers = "others"
)

// Document 一份上传的源文件。extracted_text 在摄取前为空，摄取时由编排器回填一次。
// 删除属于管理操作，核心流程不删除文档（删除需级联其 chunks）。
type Document struct {
	Id            int64          `gorm:"column:id;primaryKey;autoIncrement"`
	UserId        sql.NullString `gorm:"column:user_id;type:char(36)"`
	FilePath      string         `gorm:"column:file_path;type:varchar(512);not null"`
	Filename      string         `gorm:"column:filename;type:varchar(512)"`
	FileType      string         `gorm:"column:file_type;type:varchar(16);not null;default:others"`
	ExtractedText string         `gorm:"column:extracted_text;type:longtext"`
	MetadataJson  string         `gorm:"column:metadata_json;type:json"`
	UploadedAt    time.Time      `gorm:"column:uploaded_at;type:datetime;not null"`
}

func (Document) TableName() string { return "doc_document" }

// Chunk 文档切片。chunk_index 在同一文档内从 0 连续编号，顺序与切片器输出一致。
// vector_id 形如 doc<document_id>_chunk<chunk_index>，与向量库条目一一对应。
type Chunk struct {
	Id         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	DocumentId int64     `gorm:"column:document_id;not null;uniqueIndex:uniq_doc_chunk;index:idx_chunk_document"`
	ChunkIndex int       `gorm:"column:chunk_index;type:int;not null;uniqueIndex:uniq_doc_chunk"`
	Content    string    `gorm:"column:content;type:mediumtext"`
	VectorId   string    `gorm:"column:vector_id;type:varchar(128);not null;uniqueIndex:uniq_chunk_vector"`
	CreatedAt  time.Time `gorm:"column:created_at;type:datetime;not null"`
}

func (Chunk) TableName() string { return "doc_chunk" }

// QueryHistory 一次问答的审计记录，创建后不再修改
type QueryHistory struct {
	Id        int64          `gorm:"column:id;primaryKey;autoIncrement"`
	UserId    sql.NullString `gorm:"column:user_id;type:char(36)"`
	QueryText string         `gorm:"column:query_text;type:text;not null"`
	TopIds    string         `gorm:"column:top_ids;type:text"`
	Answer    string         `gorm:"column:answer;type:mediumtext"`
	CreatedAt time.Time      `gorm:"column:created_at;type:datetime;not null"`
}

func (QueryHistory) TableName() string { return "doc_query_history" }
