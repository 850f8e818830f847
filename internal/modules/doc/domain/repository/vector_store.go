package repository

import "context"

// VectorStore 是 domain 层定义的"向量库能力抽象"。
//
// 设计约束：
// 1) application / domain 只能依赖本接口，不应直接依赖 Milvus SDK。
// 2) infrastructure 通过适配器实现本接口（MilvusStore），从而做到可替换。
//
// 字段约定：ID 采用 doc<document_id>_chunk<chunk_index> 形式，凭 id 即可
// 还原出所属文档与切片序号，检索结果无需回表二次查询。

// VectorUpsertItem 向量写入所需的标准字段
type VectorUpsertItem struct {
	ID           string
	Vector       []float32
	DocumentID   int64
	ChunkIndex   int64
	Content      string
	MetadataJSON string
}

// VectorSearchHit 向量检索命中结果
type VectorSearchHit struct {
	ID           string
	Score        float32
	DocumentID   int64
	ChunkIndex   int64
	Content      string
	MetadataJSON string
}

// VectorStore 向量数据库接口（Upsert/Delete/Search）
type VectorStore interface {
	Upsert(ctx context.Context, items []VectorUpsertItem) ([]string, error)
	DeleteByIDs(ctx context.Context, ids []string) error
	// DeleteByDocument 按 document_id 字段删除该文档的全部向量。
	// 以向量库自身状态为准，不依赖 MySQL 行，MySQL 写失败残留的
	// 向量也会一并清掉
	DeleteByDocument(ctx context.Context, documentID int64) error
	// DeleteAll 清空整个集合（仅 globalPurge 兼容路径使用）
	DeleteAll(ctx context.Context) error
	// ListAllIDs 枚举集合内全部向量 id
	ListAllIDs(ctx context.Context) ([]string, error)
	// Search 按向量做 top-K 最近邻检索，按相似度降序返回
	Search(ctx context.Context, vector []float32, topK int) ([]VectorSearchHit, error)
}
