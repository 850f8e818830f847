package repository

import (
	"context"

	"DocPilot/internal/modules/doc/domain/entity"
)

// StoreCoordinator 双写协调器：chunk 行（MySQL）与向量条目（Milvus）是同一
// 逻辑切片在两个存储里的投影，本接口是二者的唯一写入口，保证两边数量不散。
//
// 两个存储之间没有跨库事务：先写向量再写行，任一步失败整体失败并上抛，
// 已落的部分不回滚（见 DESIGN.md 的一致性权衡说明）。
type StoreCoordinator interface {
	// ReplaceChunksAndVectors 整体替换一个文档的全部切片与向量。
	// len(embeddings) != len(chunks) 时直接报错，不产生任何写入。
	// 重复执行（相同文档、相同文本）结果幂等。返回写入的 chunk 数。
	ReplaceChunksAndVectors(ctx context.Context, doc *entity.Document, chunks []string, embeddings [][]float64) (int, error)

	// QueryNearest 按向量检索 top-K 最近邻，命中结果自带文本与元数据
	QueryNearest(ctx context.Context, vector []float32, k int) ([]VectorSearchHit, error)
}
