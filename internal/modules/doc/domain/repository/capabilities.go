package repository

import "context"

// Generator 文本生成能力抽象：
// 给定检索上下文与用户问题，产出自然语言答案。
// infrastructure 用 Eino ChatModel 适配本接口，测试用假实现替换。
type Generator interface {
	Generate(ctx context.Context, contextText, question string) (string, error)
}

// OCRRecognizer 光学字符识别能力抽象。
// 识别引擎初始化代价高，进程内只构造一次后复用；但必须作为显式依赖
// 注入使用方，禁止隐式全局查找，便于测试替换。
type OCRRecognizer interface {
	// RecognizeImage 直接识别一张图片文件
	RecognizeImage(ctx context.Context, path string) (string, error)
	// RecognizePDF 将 PDF 逐页光栅化后识别，各页文本以换行拼接
	RecognizePDF(ctx context.Context, path string) (string, error)
}

// TextExtractor 文本抽取能力抽象：按扩展名分派到对应格式处理器。
// 单格式处理失败被降级为空结果并记录日志，不向上传播（由调用方决定
// 空文本是否致命）。
type TextExtractor interface {
	Extract(ctx context.Context, path string) (string, map[string]any)
}
