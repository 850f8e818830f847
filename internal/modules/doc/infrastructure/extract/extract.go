package extract

import (
	"context"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"DocPilot/internal/modules/doc/domain/entity"
	"DocPilot/internal/modules/doc/domain/repository"
	"DocPilot/pkg/zlog"
)

// handler 单格式抽取函数。返回 error 时由调度器统一降级
type handler func(ctx context.Context, path string) (string, map[string]any, error)

// Extractor 按扩展名分派的文本抽取器，实现 repository.TextExtractor。
// 任一格式处理器失败只记日志并返回空结果，不中断摄取流程。
type Extractor struct {
	ocr      repository.OCRRecognizer
	handlers map[string]handler
}

func NewExtractor(ocr repository.OCRRecognizer) *Extractor {
	e := &Extractor{ocr: ocr}
	e.handlers = map[string]handler{
		".pdf":  e.extractPDF,
		".docx": e.extractDOCX,
		".pptx": e.extractPPTX,
		".csv":  extractCSV,
		".png":  e.extractImage,
		".jpg":  e.extractImage,
		".jpeg": e.extractImage,
		".bmp":  e.extractImage,
		".tiff": e.extractImage,
	}
	return e
}

func (e *Extractor) Extract(ctx context.Context, path string) (string, map[string]any) {
	h, ok := e.handlers[strings.ToLower(filepath.Ext(path))]
	if !ok {
		// 未识别的扩展名一律按纯文本兜底
		h = extractPlain
	}
	text, meta, err := h(ctx, path)
	if err != nil {
		zlog.Warn("文本抽取失败，降级为空结果",
			zap.String("path", path), zap.Error(err))
		return "", map[string]any{}
	}
	if meta == nil {
		meta = map[string]any{}
	}
	return text, meta
}

// DetectFileType 由文件名扩展名推导文档类型标签
func DetectFileType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return entity.FileTypePDF
	case ".docx":
		return entity.FileTypeDOCX
	case ".txt":
		return entity.FileTypeTXT
	case ".pptx":
		return entity.FileTypePPTX
	case ".csv":
		return entity.FileTypeCSV
	case ".png", ".jpg", ".jpeg", ".bmp", ".tiff":
		return entity.FileTypeImages
	default:
		return entity.FileTypeOthers
	}
}
