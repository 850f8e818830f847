package extract

import "context"

// extractImage 图片直接走 OCR 识别
func (e *Extractor) extractImage(ctx context.Context, path string) (string, map[string]any, error) {
	text, err := e.ocr.RecognizeImage(ctx, path)
	if err != nil {
		return "", nil, err
	}
	return text, map[string]any{}, nil
}
