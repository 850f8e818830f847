package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/embedding"

	"DocPilot/internal/modules/doc/domain/entity"
	"DocPilot/internal/modules/doc/domain/repository"
	"DocPilot/internal/modules/doc/infrastructure/chunking"
)

type fakeDocRepo struct {
	docs          map[int64]*entity.Document
	savedText     string
	savedMetaJSON string
	updateCalls   int
}

func (f *fakeDocRepo) Create(_ context.Context, doc *entity.Document) error {
	f.docs[doc.Id] = doc
	return nil
}

func (f *fakeDocRepo) GetByID(_ context.Context, id int64) (*entity.Document, error) {
	return f.docs[id], nil
}

func (f *fakeDocRepo) List(context.Context, int, int) ([]entity.Document, error) {
	return nil, nil
}

func (f *fakeDocRepo) UpdateExtraction(_ context.Context, _ int64, text, metadataJSON string) error {
	f.savedText = text
	f.savedMetaJSON = metadataJSON
	f.updateCalls++
	return nil
}

type fakeCoordinator struct {
	replaceCalls  int
	gotChunks     []string
	gotEmbeddings [][]float64
	replaceErr    error
	hits          []repository.VectorSearchHit
	searchErr     error
}

func (f *fakeCoordinator) ReplaceChunksAndVectors(_ context.Context, _ *entity.Document, chunks []string, embeddings [][]float64) (int, error) {
	f.replaceCalls++
	if f.replaceErr != nil {
		return 0, f.replaceErr
	}
	f.gotChunks = chunks
	f.gotEmbeddings = embeddings
	return len(chunks), nil
}

func (f *fakeCoordinator) QueryNearest(_ context.Context, _ []float32, k int) ([]repository.VectorSearchHit, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if len(f.hits) > k {
		return f.hits[:k], nil
	}
	return f.hits, nil
}

type fakeExtractor struct {
	text string
	meta map[string]any
}

func (f *fakeExtractor) Extract(context.Context, string) (string, map[string]any) {
	return f.text, f.meta
}

type fakeEmbedder struct {
	dim   int
	err   error
	calls int
	// short 为 true 时少返回一个向量，模拟数量不符
	short bool
}

func (f *fakeEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	n := len(texts)
	if f.short && n > 0 {
		n--
	}
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, f.dim)
	}
	return out, nil
}

type fakeGenerator struct {
	answer     string
	err        error
	gotContext string
	gotQuery   string
}

func (f *fakeGenerator) Generate(_ context.Context, contextText, question string) (string, error) {
	f.gotContext = contextText
	f.gotQuery = question
	return f.answer, f.err
}

type fakeHistoryRepo struct {
	records   []*entity.QueryHistory
	createErr error
}

func (f *fakeHistoryRepo) Create(_ context.Context, r *entity.QueryHistory) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.records = append(f.records, r)
	return nil
}

func (f *fakeHistoryRepo) ListRecent(context.Context, int) ([]entity.QueryHistory, error) {
	return nil, nil
}

func newIngestFixture(t *testing.T, docRepo *fakeDocRepo, coord *fakeCoordinator, ext *fakeExtractor, emb *fakeEmbedder) *IngestPipeline {
	t.Helper()
	p, err := NewIngestPipeline(docRepo, coord, ext, emb, chunking.NewRecursiveChunker(50, 10))
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestIngestPipeline(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path writes chunks", func(t *testing.T) {
		docRepo := &fakeDocRepo{docs: map[int64]*entity.Document{
			1: {Id: 1, FilePath: "/tmp/a.txt", FileType: entity.FileTypeTXT},
		}}
		coord := &fakeCoordinator{}
		ext := &fakeExtractor{text: strings.Repeat("some words here ", 20), meta: map[string]any{"pages": 1}}
		emb := &fakeEmbedder{dim: 4}
		p := newIngestFixture(t, docRepo, coord, ext, emb)

		res, err := p.Ingest(ctx, IngestRequest{DocumentID: 1})
		if err != nil {
			t.Fatal(err)
		}
		if res.Chunks == 0 {
			t.Fatal("expected chunks, got 0")
		}
		if coord.replaceCalls != 1 {
			t.Errorf("replace calls = %d, want 1", coord.replaceCalls)
		}
		if len(coord.gotChunks) != len(coord.gotEmbeddings) {
			t.Errorf("chunks/embeddings mismatch: %d vs %d", len(coord.gotChunks), len(coord.gotEmbeddings))
		}
		if docRepo.updateCalls != 1 {
			t.Errorf("extraction persisted %d times, want 1", docRepo.updateCalls)
		}
		if docRepo.savedMetaJSON != `{"pages":1}` {
			t.Errorf("saved metadata = %s", docRepo.savedMetaJSON)
		}
	})

	t.Run("blank text ends with zero chunks", func(t *testing.T) {
		docRepo := &fakeDocRepo{docs: map[int64]*entity.Document{
			1: {Id: 1, FilePath: "/tmp/empty.pdf", FileType: entity.FileTypePDF},
		}}
		coord := &fakeCoordinator{}
		ext := &fakeExtractor{text: "   \n  "}
		emb := &fakeEmbedder{dim: 4}
		p := newIngestFixture(t, docRepo, coord, ext, emb)

		res, err := p.Ingest(ctx, IngestRequest{DocumentID: 1})
		if err != nil {
			t.Fatal(err)
		}
		if res.Chunks != 0 {
			t.Errorf("chunks = %d, want 0", res.Chunks)
		}
		// 空文本也要先落库再早停
		if docRepo.updateCalls != 1 {
			t.Errorf("extraction persisted %d times, want 1", docRepo.updateCalls)
		}
		if coord.replaceCalls != 0 {
			t.Errorf("coordinator called %d times on empty text", coord.replaceCalls)
		}
		if emb.calls != 0 {
			t.Errorf("embedder called %d times on empty text", emb.calls)
		}
	})

	t.Run("missing document fails", func(t *testing.T) {
		docRepo := &fakeDocRepo{docs: map[int64]*entity.Document{}}
		p := newIngestFixture(t, docRepo, &fakeCoordinator{}, &fakeExtractor{text: "x"}, &fakeEmbedder{dim: 4})

		if _, err := p.Ingest(ctx, IngestRequest{DocumentID: 99}); err == nil {
			t.Fatal("expected error for missing document")
		}
	})

	t.Run("embedder failure propagates", func(t *testing.T) {
		docRepo := &fakeDocRepo{docs: map[int64]*entity.Document{
			1: {Id: 1, FilePath: "/tmp/a.txt", FileType: entity.FileTypeTXT},
		}}
		coord := &fakeCoordinator{}
		p := newIngestFixture(t, docRepo, coord, &fakeExtractor{text: "hello world"}, &fakeEmbedder{dim: 4, err: errors.New("backend down")})

		if _, err := p.Ingest(ctx, IngestRequest{DocumentID: 1}); err == nil {
			t.Fatal("expected embedding error")
		}
		if coord.replaceCalls != 0 {
			t.Error("coordinator called after embedding failure")
		}
	})

	t.Run("coordinator failure propagates", func(t *testing.T) {
		docRepo := &fakeDocRepo{docs: map[int64]*entity.Document{
			1: {Id: 1, FilePath: "/tmp/a.txt", FileType: entity.FileTypeTXT},
		}}
		coord := &fakeCoordinator{replaceErr: errors.New("count mismatch")}
		p := newIngestFixture(t, docRepo, coord, &fakeExtractor{text: "hello world"}, &fakeEmbedder{dim: 4})

		if _, err := p.Ingest(ctx, IngestRequest{DocumentID: 1}); err == nil {
			t.Fatal("expected storage error")
		}
	})
}

func sampleHits(n int) []repository.VectorSearchHit {
	hits := make([]repository.VectorSearchHit, n)
	for i := range hits {
		hits[i] = repository.VectorSearchHit{
			ID:           "doc1_chunk" + string(rune('0'+i)),
			Content:      "chunk " + string(rune('a'+i)),
			MetadataJSON: `{"document_id":1}`,
			Score:        float32(n - i),
		}
	}
	return hits
}

func newAnswerFixture(t *testing.T, coord *fakeCoordinator, hist *fakeHistoryRepo, emb *fakeEmbedder, gen *fakeGenerator) *AnswerPipeline {
	t.Helper()
	p, err := NewAnswerPipeline(coord, hist, emb, gen)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestAnswerPipeline(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		coord := &fakeCoordinator{hits: sampleHits(5)}
		hist := &fakeHistoryRepo{}
		gen := &fakeGenerator{answer: "the answer"}
		p := newAnswerFixture(t, coord, hist, &fakeEmbedder{dim: 4}, gen)

		res, err := p.Answer(ctx, AnswerRequest{Query: "what is this?", AskerID: "u-1"})
		if err != nil {
			t.Fatal(err)
		}
		if res.Answer != "the answer" {
			t.Errorf("answer = %q", res.Answer)
		}
		// 来源带全部 5 条，上下文只拼前 3 条
		if len(res.Sources) != 5 {
			t.Errorf("sources = %d, want 5", len(res.Sources))
		}
		if gen.gotQuery != "what is this?" {
			t.Errorf("generator query = %q", gen.gotQuery)
		}
		if gen.gotContext != "chunk a\n\nchunk b\n\nchunk c" {
			t.Errorf("generator context = %q", gen.gotContext)
		}

		if len(hist.records) != 1 {
			t.Fatalf("history records = %d, want 1", len(hist.records))
		}
		rec := hist.records[0]
		if rec.QueryText != "what is this?" || rec.Answer != "the answer" {
			t.Errorf("record = %+v", rec)
		}
		if !rec.UserId.Valid || rec.UserId.String != "u-1" {
			t.Errorf("record user = %+v", rec.UserId)
		}
		var ids []string
		if err := json.Unmarshal([]byte(rec.TopIds), &ids); err != nil || len(ids) != 5 {
			t.Errorf("top ids = %s", rec.TopIds)
		}
	})

	t.Run("fewer hits than context width", func(t *testing.T) {
		coord := &fakeCoordinator{hits: sampleHits(2)}
		gen := &fakeGenerator{answer: "ok"}
		p := newAnswerFixture(t, coord, &fakeHistoryRepo{}, &fakeEmbedder{dim: 4}, gen)

		res, err := p.Answer(ctx, AnswerRequest{Query: "q"})
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Sources) != 2 {
			t.Errorf("sources = %d, want 2", len(res.Sources))
		}
		if gen.gotContext != "chunk a\n\nchunk b" {
			t.Errorf("context = %q", gen.gotContext)
		}
	})

	t.Run("blank query rejected before embedding", func(t *testing.T) {
		emb := &fakeEmbedder{dim: 4}
		p := newAnswerFixture(t, &fakeCoordinator{}, &fakeHistoryRepo{}, emb, &fakeGenerator{})

		_, err := p.Answer(ctx, AnswerRequest{Query: "   "})
		if !errors.Is(err, ErrBlankQuery) {
			t.Fatalf("err = %v, want ErrBlankQuery", err)
		}
		if emb.calls != 0 {
			t.Error("embedder called for blank query")
		}
	})

	t.Run("no hits reports not found without history record", func(t *testing.T) {
		hist := &fakeHistoryRepo{}
		p := newAnswerFixture(t, &fakeCoordinator{}, hist, &fakeEmbedder{dim: 4}, &fakeGenerator{})

		_, err := p.Answer(ctx, AnswerRequest{Query: "anything"})
		if !errors.Is(err, ErrNoRelevantDocuments) {
			t.Fatalf("err = %v, want ErrNoRelevantDocuments", err)
		}
		if len(hist.records) != 0 {
			t.Errorf("history records = %d, want 0", len(hist.records))
		}
	})

	t.Run("generator failure propagates", func(t *testing.T) {
		coord := &fakeCoordinator{hits: sampleHits(3)}
		p := newAnswerFixture(t, coord, &fakeHistoryRepo{}, &fakeEmbedder{dim: 4}, &fakeGenerator{err: errors.New("model down")})

		if _, err := p.Answer(ctx, AnswerRequest{Query: "q"}); err == nil {
			t.Fatal("expected generation error")
		}
	})

	t.Run("history failure surfaces", func(t *testing.T) {
		coord := &fakeCoordinator{hits: sampleHits(3)}
		hist := &fakeHistoryRepo{createErr: errors.New("mysql down")}
		p := newAnswerFixture(t, coord, hist, &fakeEmbedder{dim: 4}, &fakeGenerator{answer: "a"})

		if _, err := p.Answer(ctx, AnswerRequest{Query: "q"}); err == nil {
			t.Fatal("expected persist error")
		}
	})
}
