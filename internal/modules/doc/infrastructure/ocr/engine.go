package ocr

import (
	"bytes"
	"context"
	"image/png"
	"strings"
	"sync"

	"github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"
)

const defaultRasterDPI = 300

// Engine 基于 Tesseract 的识别引擎，实现 repository.OCRRecognizer。
// 底层 client 初始化代价高，进程内仅构造一次复用；
// gosseract client 非并发安全，所有识别调用经互斥锁串行化。
type Engine struct {
	mu        sync.Mutex
	client    *gosseract.Client
	rasterDPI float64
}

// NewEngine 构造识别引擎。languages 为 Tesseract 语言包标识
// （如 eng、chi_sim），为空时用引擎默认语言；dpi<=0 时取 300。
func NewEngine(languages []string, dpi int) (*Engine, error) {
	client := gosseract.NewClient()
	if len(languages) > 0 {
		if err := client.SetLanguage(languages...); err != nil {
			client.Close()
			return nil, err
		}
	}
	rasterDPI := float64(dpi)
	if rasterDPI <= 0 {
		rasterDPI = defaultRasterDPI
	}
	return &Engine{client: client, rasterDPI: rasterDPI}, nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Close()
}

// RecognizeImage 识别单张图片文件
func (e *Engine) RecognizeImage(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.client.SetImage(path); err != nil {
		return "", err
	}
	text, err := e.client.Text()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// RecognizePDF 将 PDF 逐页按固定 DPI 光栅化后识别，
// 各页文本以换行拼接
func (e *Engine) RecognizePDF(ctx context.Context, path string) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", err
	}
	defer doc.Close()

	var pages []string
	for n := 0; n < doc.NumPage(); n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		img, err := doc.ImageDPI(n, e.rasterDPI)
		if err != nil {
			return "", err
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return "", err
		}
		pageText, err := e.recognizeBytes(buf.Bytes())
		if err != nil {
			return "", err
		}
		if pageText != "" {
			pages = append(pages, pageText)
		}
	}
	return strings.Join(pages, "\n"), nil
}

func (e *Engine) recognizeBytes(img []byte) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.client.SetImageFromBytes(img); err != nil {
		return "", err
	}
	text, err := e.client.Text()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
