package extract

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"DocPilot/internal/modules/doc/domain/entity"
)

type fakeOCR struct {
	imageText string
	pdfText   string
	err       error
}

func (f *fakeOCR) RecognizeImage(context.Context, string) (string, error) {
	return f.imageText, f.err
}

func (f *fakeOCR) RecognizePDF(context.Context, string) (string, error) {
	return f.pdfText, f.err
}

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDetectFileType(t *testing.T) {
	cases := map[string]string{
		"report.PDF":   entity.FileTypePDF,
		"notes.docx":   entity.FileTypeDOCX,
		"readme.txt":   entity.FileTypeTXT,
		"slides.pptx":  entity.FileTypePPTX,
		"data.csv":     entity.FileTypeCSV,
		"scan.jpeg":    entity.FileTypeImages,
		"photo.TIFF":   entity.FileTypeImages,
		"archive.tar":  entity.FileTypeOthers,
		"no-extension": entity.FileTypeOthers,
	}
	for name, want := range cases {
		if got := DetectFileType(name); got != want {
			t.Errorf("DetectFileType(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestExtract_Plain(t *testing.T) {
	e := NewExtractor(&fakeOCR{})

	t.Run("utf8 text", func(t *testing.T) {
		path := writeTempFile(t, "notes.txt", []byte("hello world\nsecond line"))
		text, meta := e.Extract(context.Background(), path)
		if text != "hello world\nsecond line" {
			t.Errorf("text = %q", text)
		}
		if len(meta) != 0 {
			t.Errorf("meta = %v, want empty", meta)
		}
	})

	t.Run("invalid bytes dropped", func(t *testing.T) {
		path := writeTempFile(t, "raw.bin", []byte{'o', 'k', 0xff, 0xfe, '!'})
		text, _ := e.Extract(context.Background(), path)
		if text != "ok!" {
			t.Errorf("text = %q, want %q", text, "ok!")
		}
	})

	t.Run("missing file degrades to empty", func(t *testing.T) {
		text, meta := e.Extract(context.Background(), "/nonexistent/file.xyz")
		if text != "" || len(meta) != 0 {
			t.Errorf("got (%q, %v), want empty result", text, meta)
		}
	})
}

func TestExtract_CSV(t *testing.T) {
	e := NewExtractor(&fakeOCR{})

	t.Run("table rendered with columns metadata", func(t *testing.T) {
		path := writeTempFile(t, "data.csv", []byte("name,age\nalice,30\nbob,25\n"))
		text, meta := e.Extract(context.Background(), path)
		if text != "name\tage\nalice\t30\nbob\t25" {
			t.Errorf("text = %q", text)
		}
		cols, ok := meta["columns"].([]string)
		if !ok || len(cols) != 2 || cols[0] != "name" || cols[1] != "age" {
			t.Errorf("columns = %v", meta["columns"])
		}
		if meta["rows"] != 2 {
			t.Errorf("rows = %v, want 2", meta["rows"])
		}
	})

	t.Run("ragged rows padded", func(t *testing.T) {
		path := writeTempFile(t, "ragged.csv", []byte("a,b,c\n1\n"))
		text, _ := e.Extract(context.Background(), path)
		if text != "a\tb\tc\n1\t\t" {
			t.Errorf("text = %q", text)
		}
	})

	t.Run("malformed csv degrades to empty", func(t *testing.T) {
		path := writeTempFile(t, "bad.csv", []byte("a,\"b\nunclosed"))
		text, meta := e.Extract(context.Background(), path)
		if text != "" || len(meta) != 0 {
			t.Errorf("got (%q, %v), want empty result", text, meta)
		}
	})
}

func writeTempDOCX(t *testing.T, documentXML string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtract_DOCX(t *testing.T) {
	e := NewExtractor(&fakeOCR{})

	t.Run("paragraphs joined with blank lines", func(t *testing.T) {
		doc := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>first paragraph</w:t></w:r></w:p>
    <w:p><w:r><w:t></w:t></w:r></w:p>
    <w:p><w:r><w:t>second </w:t></w:r><w:r><w:t>paragraph</w:t></w:r></w:p>
  </w:body>
</w:document>`
		path := writeTempDOCX(t, doc)
		text, meta := e.Extract(context.Background(), path)
		if text != "first paragraph\n\nsecond paragraph" {
			t.Errorf("text = %q", text)
		}
		if meta["paragraphs"] != 2 {
			t.Errorf("paragraphs = %v, want 2", meta["paragraphs"])
		}
	})

	t.Run("not a zip degrades to empty", func(t *testing.T) {
		path := writeTempFile(t, "fake.docx", []byte("not a zip archive"))
		text, meta := e.Extract(context.Background(), path)
		if text != "" || len(meta) != 0 {
			t.Errorf("got (%q, %v), want empty result", text, meta)
		}
	})
}

func TestExtract_Image(t *testing.T) {
	t.Run("ocr text returned", func(t *testing.T) {
		e := NewExtractor(&fakeOCR{imageText: "recognized words"})
		path := writeTempFile(t, "scan.png", []byte{0x89, 'P', 'N', 'G'})
		text, _ := e.Extract(context.Background(), path)
		if text != "recognized words" {
			t.Errorf("text = %q", text)
		}
	})

	t.Run("ocr failure degrades to empty", func(t *testing.T) {
		e := NewExtractor(&fakeOCR{err: errors.New("engine down")})
		path := writeTempFile(t, "scan.png", []byte{0x89, 'P', 'N', 'G'})
		text, meta := e.Extract(context.Background(), path)
		if text != "" || len(meta) != 0 {
			t.Errorf("got (%q, %v), want empty result", text, meta)
		}
	})
}

func TestCountTables(t *testing.T) {
	t.Run("aligned rows counted once", func(t *testing.T) {
		page := "Title\ncol1\tcol2\nv1\tv2\nv3\tv4\ntrailing prose"
		if got := countTables(page); got != 1 {
			t.Errorf("countTables = %d, want 1", got)
		}
	})

	t.Run("no tabular lines", func(t *testing.T) {
		if got := countTables("just prose\nmore prose"); got != 0 {
			t.Errorf("countTables = %d, want 0", got)
		}
	})

	t.Run("two separated tables", func(t *testing.T) {
		page := "a\tb\nc\td\nprose between\ne\tf\ng\th"
		if got := countTables(page); got != 2 {
			t.Errorf("countTables = %d, want 2", got)
		}
	})
}
