package vectordb

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"DocPilot/internal/modules/doc/domain/repository"
)

// MilvusStore VectorStore implementation backed by Milvus.
// Collection schema: id (varchar PK) / vector / document_id / chunk_index /
// content / metadata, see initial.EnsureCollection.
type MilvusStore struct {
	cli         client.Client
	collection  string
	vectorDim   int
	metricType  entity.MetricType
	vectorField string
}

var _ repository.VectorStore = (*MilvusStore)(nil)

// NewMilvusStore wraps an existing client (shared, managed by initial).
func NewMilvusStore(cli client.Client, collection string, vectorDim int, metricType string) (*MilvusStore, error) {
	if cli == nil {
		return nil, fmt.Errorf("milvus client is nil")
	}
	if collection == "" {
		return nil, fmt.Errorf("collection name is empty")
	}
	mt := entity.COSINE
	if strings.EqualFold(metricType, "L2") {
		mt = entity.L2
	} else if strings.EqualFold(metricType, "IP") {
		mt = entity.IP
	}
	return &MilvusStore{
		cli:         cli,
		collection:  collection,
		vectorDim:   vectorDim,
		metricType:  mt,
		vectorField: "vector",
	}, nil
}

func (s *MilvusStore) Upsert(ctx context.Context, items []repository.VectorUpsertItem) ([]string, error) {
	if len(items) == 0 {
		return []string{}, nil
	}

	ids := make([]string, 0, len(items))
	vectors := make([][]float32, 0, len(items))
	documentIDs := make([]int64, 0, len(items))
	chunkIndexes := make([]int64, 0, len(items))
	contents := make([]string, 0, len(items))
	metas := make([][]byte, 0, len(items))

	for _, it := range items {
		if it.ID == "" {
			return nil, fmt.Errorf("upsert item missing ID")
		}
		if len(it.Vector) != s.vectorDim {
			return nil, fmt.Errorf("vector dim mismatch for id=%s: got %d, want %d", it.ID, len(it.Vector), s.vectorDim)
		}

		ids = append(ids, it.ID)
		vectors = append(vectors, it.Vector)
		documentIDs = append(documentIDs, it.DocumentID)
		chunkIndexes = append(chunkIndexes, it.ChunkIndex)
		contents = append(contents, it.Content)

		m := it.MetadataJSON
		if m == "" {
			m = "{}"
		}
		metas = append(metas, []byte(m))
	}

	_, err := s.cli.Upsert(
		ctx,
		s.collection,
		"", // partition
		entity.NewColumnVarChar("id", ids),
		entity.NewColumnFloatVector(s.vectorField, s.vectorDim, vectors),
		entity.NewColumnInt64("document_id", documentIDs),
		entity.NewColumnInt64("chunk_index", chunkIndexes),
		entity.NewColumnVarChar("content", contents),
		entity.NewColumnJSONBytes("metadata", metas),
	)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *MilvusStore) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	expr := fmt.Sprintf(`id in ["%s"]`, strings.Join(ids, `","`))
	return s.cli.Delete(ctx, s.collection, "", expr)
}

// DeleteAll wipes the whole collection. Only the legacy globalPurge
// path uses this.
func (s *MilvusStore) DeleteByDocument(ctx context.Context, documentID int64) error {
	expr := fmt.Sprintf(`document_id == %d`, documentID)
	return s.cli.Delete(ctx, s.collection, "", expr)
}

func (s *MilvusStore) DeleteAll(ctx context.Context) error {
	return s.cli.Delete(ctx, s.collection, "", `id != ""`)
}

func (s *MilvusStore) ListAllIDs(ctx context.Context) ([]string, error) {
	res, err := s.cli.Query(
		ctx,
		s.collection,
		nil,
		`id != ""`,
		[]string{"id"},
	)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0)
	for _, col := range res {
		if col.Name() != "id" {
			continue
		}
		for i := 0; i < col.Len(); i++ {
			id, err := col.GetAsString(i)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *MilvusStore) Search(ctx context.Context, vector []float32, topK int) ([]repository.VectorSearchHit, error) {
	if len(vector) != s.vectorDim {
		return nil, fmt.Errorf("query vector dim mismatch: got %d, want %d", len(vector), s.vectorDim)
	}
	if topK <= 0 {
		return []repository.VectorSearchHit{}, nil
	}

	sp, _ := entity.NewIndexAUTOINDEXSearchParam(1)

	res, err := s.cli.Search(
		ctx,
		s.collection,
		nil,
		"",
		[]string{"id", "document_id", "chunk_index", "content", "metadata"},
		[]entity.Vector{entity.FloatVector(vector)},
		s.vectorField,
		s.metricType,
		topK,
		sp,
	)
	if err != nil {
		return nil, err
	}

	hits := make([]repository.VectorSearchHit, 0)
	if len(res) == 0 {
		return hits, nil
	}
	sr := res[0]
	if sr.Err != nil {
		return nil, sr.Err
	}

	getCol := func(name string) entity.Column {
		for _, c := range sr.Fields {
			if c.Name() == name {
				return c
			}
		}
		return nil
	}
	docIDCol := getCol("document_id")
	chunkIdxCol := getCol("chunk_index")
	contentCol := getCol("content")
	metaCol := getCol("metadata")

	for i := 0; i < sr.ResultCount; i++ {
		id, _ := sr.IDs.GetAsString(i)

		hit := repository.VectorSearchHit{
			ID:    id,
			Score: sr.Scores[i],
		}
		if docIDCol != nil {
			v, _ := docIDCol.GetAsInt64(i)
			hit.DocumentID = v
		}
		if chunkIdxCol != nil {
			v, _ := chunkIdxCol.GetAsInt64(i)
			hit.ChunkIndex = v
		}
		if contentCol != nil {
			v, _ := contentCol.GetAsString(i)
			hit.Content = v
		}
		if metaCol != nil {
			v, _ := metaCol.Get(i)
			if bs, ok := v.([]byte); ok {
				hit.MetadataJSON = string(bs)
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
