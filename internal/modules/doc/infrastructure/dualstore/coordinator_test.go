package dualstore

import (
	"context"
	"errors"
	"sort"
	"testing"

	"DocPilot/internal/modules/doc/domain/entity"
	"DocPilot/internal/modules/doc/domain/repository"
)

// fakeVectorStore in-memory VectorStore for coordinator tests.
type fakeVectorStore struct {
	entries   map[string]repository.VectorUpsertItem
	upsertErr error
	deleteErr error
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{entries: map[string]repository.VectorUpsertItem{}}
}

func (f *fakeVectorStore) Upsert(_ context.Context, items []repository.VectorUpsertItem) ([]string, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		f.entries[it.ID] = it
		ids = append(ids, it.ID)
	}
	return ids, nil
}

func (f *fakeVectorStore) DeleteByIDs(_ context.Context, ids []string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for _, id := range ids {
		delete(f.entries, id)
	}
	return nil
}

func (f *fakeVectorStore) DeleteByDocument(_ context.Context, documentID int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for id, it := range f.entries {
		if it.DocumentID == documentID {
			delete(f.entries, id)
		}
	}
	return nil
}

func (f *fakeVectorStore) DeleteAll(context.Context) error {
	f.entries = map[string]repository.VectorUpsertItem{}
	return nil
}

func (f *fakeVectorStore) ListAllIDs(context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.entries))
	for id := range f.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeVectorStore) Search(_ context.Context, _ []float32, topK int) ([]repository.VectorSearchHit, error) {
	ids, _ := f.ListAllIDs(context.Background())
	hits := make([]repository.VectorSearchHit, 0)
	for _, id := range ids {
		if len(hits) == topK {
			break
		}
		it := f.entries[id]
		hits = append(hits, repository.VectorSearchHit{
			ID:           it.ID,
			Score:        1,
			DocumentID:   it.DocumentID,
			ChunkIndex:   it.ChunkIndex,
			Content:      it.Content,
			MetadataJSON: it.MetadataJSON,
		})
	}
	return hits, nil
}

// fakeChunkRepo in-memory ChunkRepository keyed by vector_id.
type fakeChunkRepo struct {
	rows      map[string]entity.Chunk
	createErr error
}

func newFakeChunkRepo() *fakeChunkRepo {
	return &fakeChunkRepo{rows: map[string]entity.Chunk{}}
}

func (f *fakeChunkRepo) CreateBatch(_ context.Context, chunks []entity.Chunk) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, c := range chunks {
		f.rows[c.VectorId] = c
	}
	return nil
}

func (f *fakeChunkRepo) ListByDocument(_ context.Context, documentID int64) ([]entity.Chunk, error) {
	var out []entity.Chunk
	for _, c := range f.rows {
		if c.DocumentId == documentID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out, nil
}

func (f *fakeChunkRepo) DeleteByDocument(_ context.Context, documentID int64) error {
	for id, c := range f.rows {
		if c.DocumentId == documentID {
			delete(f.rows, id)
		}
	}
	return nil
}

func (f *fakeChunkRepo) DeleteAll(context.Context) error {
	f.rows = map[string]entity.Chunk{}
	return nil
}

func testDoc(id int64) *entity.Document {
	return &entity.Document{Id: id, Filename: "test.txt", FileType: entity.FileTypeTXT}
}

func vecs(n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = []float64{float64(i), 1}
	}
	return out
}

func TestVectorID(t *testing.T) {
	if got := VectorID(42, 7); got != "doc42_chunk7" {
		t.Errorf("VectorID = %q, want %q", got, "doc42_chunk7")
	}
}

func TestReplaceChunksAndVectors(t *testing.T) {
	ctx := context.Background()

	t.Run("writes both stores with correlating ids", func(t *testing.T) {
		vs, cr := newFakeVectorStore(), newFakeChunkRepo()
		c := NewCoordinator(vs, cr, false)

		n, err := c.ReplaceChunksAndVectors(ctx, testDoc(1), []string{"alpha", "beta"}, vecs(2))
		if err != nil {
			t.Fatal(err)
		}
		if n != 2 {
			t.Fatalf("chunk count = %d, want 2", n)
		}

		it, ok := vs.entries["doc1_chunk0"]
		if !ok {
			t.Fatal("vector doc1_chunk0 missing")
		}
		if it.Content != "alpha" || it.DocumentID != 1 || it.ChunkIndex != 0 {
			t.Errorf("vector item = %+v", it)
		}
		if it.MetadataJSON != `{"document_id":1,"chunk_index":0}` {
			t.Errorf("metadata = %s", it.MetadataJSON)
		}

		row, ok := cr.rows["doc1_chunk1"]
		if !ok {
			t.Fatal("chunk row doc1_chunk1 missing")
		}
		if row.Content != "beta" || row.ChunkIndex != 1 {
			t.Errorf("chunk row = %+v", row)
		}
	})

	t.Run("count mismatch aborts with zero writes", func(t *testing.T) {
		vs, cr := newFakeVectorStore(), newFakeChunkRepo()
		c := NewCoordinator(vs, cr, false)

		// 预置旧数据，验证失败时连清理都不执行
		if _, err := c.ReplaceChunksAndVectors(ctx, testDoc(1), []string{"old"}, vecs(1)); err != nil {
			t.Fatal(err)
		}

		_, err := c.ReplaceChunksAndVectors(ctx, testDoc(1), []string{"a", "b", "c"}, vecs(2))
		if err == nil {
			t.Fatal("expected mismatch error")
		}
		if len(vs.entries) != 1 || len(cr.rows) != 1 {
			t.Errorf("stores changed on mismatch: vectors=%d rows=%d", len(vs.entries), len(cr.rows))
		}
		if _, ok := vs.entries["doc1_chunk0"]; !ok {
			t.Error("old vector purged despite abort")
		}
	})

	t.Run("reingest is idempotent and leaves no orphans", func(t *testing.T) {
		vs, cr := newFakeVectorStore(), newFakeChunkRepo()
		c := NewCoordinator(vs, cr, false)

		if _, err := c.ReplaceChunksAndVectors(ctx, testDoc(1), []string{"a", "b", "c"}, vecs(3)); err != nil {
			t.Fatal(err)
		}
		// 第二次摄取切片变少，旧的第 3 片必须被清掉
		if _, err := c.ReplaceChunksAndVectors(ctx, testDoc(1), []string{"x", "y"}, vecs(2)); err != nil {
			t.Fatal(err)
		}

		if len(vs.entries) != 2 {
			t.Errorf("vector count = %d, want 2", len(vs.entries))
		}
		if _, ok := vs.entries["doc1_chunk2"]; ok {
			t.Error("orphan vector doc1_chunk2 survived reingest")
		}
		if vs.entries["doc1_chunk0"].Content != "x" {
			t.Errorf("chunk0 content = %q, want %q", vs.entries["doc1_chunk0"].Content, "x")
		}
		if len(cr.rows) != 2 {
			t.Errorf("row count = %d, want 2", len(cr.rows))
		}
	})

	t.Run("reingest clears vectors stranded by a row insert failure", func(t *testing.T) {
		vs, cr := newFakeVectorStore(), newFakeChunkRepo()
		c := NewCoordinator(vs, cr, false)

		// 第一轮：向量已写入、行插入失败，MySQL 里看不到这批向量
		cr.createErr = errors.New("mysql down")
		if _, err := c.ReplaceChunksAndVectors(ctx, testDoc(1), []string{"a", "b", "c"}, vecs(3)); err == nil {
			t.Fatal("expected insert error")
		}
		if len(vs.entries) != 3 || len(cr.rows) != 0 {
			t.Fatalf("precondition: vectors=%d rows=%d, want 3/0", len(vs.entries), len(cr.rows))
		}

		// 第二轮切片更少，上一轮第 2、3 片在 MySQL 无对应行，也必须被清掉
		cr.createErr = nil
		n, err := c.ReplaceChunksAndVectors(ctx, testDoc(1), []string{"x"}, vecs(1))
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Fatalf("chunk count = %d, want 1", n)
		}
		if len(vs.entries) != 1 {
			ids, _ := vs.ListAllIDs(ctx)
			t.Fatalf("stranded vectors survive reingest: %v", ids)
		}
		if it := vs.entries["doc1_chunk0"]; it.Content != "x" {
			t.Errorf("chunk0 content = %q, want %q", it.Content, "x")
		}
		if len(cr.rows) != 1 {
			t.Errorf("row count = %d, want 1", len(cr.rows))
		}
	})

	t.Run("scoped purge keeps other documents", func(t *testing.T) {
		vs, cr := newFakeVectorStore(), newFakeChunkRepo()
		c := NewCoordinator(vs, cr, false)

		if _, err := c.ReplaceChunksAndVectors(ctx, testDoc(1), []string{"a"}, vecs(1)); err != nil {
			t.Fatal(err)
		}
		if _, err := c.ReplaceChunksAndVectors(ctx, testDoc(2), []string{"b"}, vecs(1)); err != nil {
			t.Fatal(err)
		}

		if _, ok := vs.entries["doc1_chunk0"]; !ok {
			t.Error("document 1 vectors wiped by document 2 ingestion")
		}
		if len(vs.entries) != 2 {
			t.Errorf("vector count = %d, want 2", len(vs.entries))
		}
	})

	t.Run("global purge wipes everything first", func(t *testing.T) {
		vs, cr := newFakeVectorStore(), newFakeChunkRepo()
		c := NewCoordinator(vs, cr, true)

		if _, err := c.ReplaceChunksAndVectors(ctx, testDoc(1), []string{"a"}, vecs(1)); err != nil {
			t.Fatal(err)
		}
		if _, err := c.ReplaceChunksAndVectors(ctx, testDoc(2), []string{"b"}, vecs(1)); err != nil {
			t.Fatal(err)
		}

		if _, ok := vs.entries["doc1_chunk0"]; ok {
			t.Error("global purge left document 1 vectors")
		}
		if len(vs.entries) != 1 || len(cr.rows) != 1 {
			t.Errorf("vectors=%d rows=%d, want 1/1", len(vs.entries), len(cr.rows))
		}
	})

	t.Run("empty chunks purges and reports zero", func(t *testing.T) {
		vs, cr := newFakeVectorStore(), newFakeChunkRepo()
		c := NewCoordinator(vs, cr, false)

		if _, err := c.ReplaceChunksAndVectors(ctx, testDoc(1), []string{"a"}, vecs(1)); err != nil {
			t.Fatal(err)
		}
		n, err := c.ReplaceChunksAndVectors(ctx, testDoc(1), nil, nil)
		if err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Errorf("chunk count = %d, want 0", n)
		}
		if len(vs.entries) != 0 || len(cr.rows) != 0 {
			t.Errorf("stale entries remain: vectors=%d rows=%d", len(vs.entries), len(cr.rows))
		}
	})

	t.Run("vector write failure leaves mysql untouched", func(t *testing.T) {
		vs, cr := newFakeVectorStore(), newFakeChunkRepo()
		vs.upsertErr = errors.New("milvus down")
		c := NewCoordinator(vs, cr, false)

		_, err := c.ReplaceChunksAndVectors(ctx, testDoc(1), []string{"a"}, vecs(1))
		if err == nil {
			t.Fatal("expected upsert error")
		}
		if len(cr.rows) != 0 {
			t.Errorf("chunk rows written after vector failure: %d", len(cr.rows))
		}
	})

	t.Run("row write failure surfaces error", func(t *testing.T) {
		vs, cr := newFakeVectorStore(), newFakeChunkRepo()
		cr.createErr = errors.New("mysql down")
		c := NewCoordinator(vs, cr, false)

		_, err := c.ReplaceChunksAndVectors(ctx, testDoc(1), []string{"a"}, vecs(1))
		if err == nil {
			t.Fatal("expected insert error")
		}
	})
}

func TestQueryNearest(t *testing.T) {
	vs, cr := newFakeVectorStore(), newFakeChunkRepo()
	c := NewCoordinator(vs, cr, false)
	ctx := context.Background()

	if _, err := c.ReplaceChunksAndVectors(ctx, testDoc(1), []string{"a", "b", "c"}, vecs(3)); err != nil {
		t.Fatal(err)
	}

	hits, err := c.QueryNearest(ctx, []float32{0, 1}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(hits))
	}
	for _, h := range hits {
		if h.Content == "" || h.ID == "" || h.MetadataJSON == "" {
			t.Errorf("hit missing fields: %+v", h)
		}
	}
}
