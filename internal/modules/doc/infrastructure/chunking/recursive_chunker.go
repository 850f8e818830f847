package chunking

import "strings"

// 默认切片参数：800 字符窗口、200 字符重叠
const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 200
)

// 分隔符按优先级递降：段落、换行、空格，最后退化到逐字符
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// RecursiveChunker 把文本切成带重叠的有序片段。
// 切分策略：在分隔符优先级序列上递归下探，优先保住尽量大的语义单元；
// 相邻片段合并时保留前一片段末尾至多 ChunkOverlap 个字符作为下一片段
// 开头，使边界上下文连续。输出顺序与原文一致，结果完全确定。
type RecursiveChunker struct {
	ChunkSize    int
	ChunkOverlap int
	separators   []string
}

// NewRecursiveChunker 创建切片器并设置窗口与重叠长度
func NewRecursiveChunker(size, overlap int) *RecursiveChunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &RecursiveChunker{ChunkSize: size, ChunkOverlap: overlap, separators: defaultSeparators}
}

// Chunk 切分文本。空白文本返回空序列；切出的片段去除首尾空白，
// 去空白后为空的片段被丢弃。
func (c *RecursiveChunker) Chunk(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}

	raw := c.splitText(text, c.separators)

	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

// splitText 在当前分隔符序列上切分：选第一个在文本中出现的分隔符，
// 得到的片段若仍超窗则带着剩余分隔符继续递归，否则进入合并阶段。
func (c *RecursiveChunker) splitText(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var next []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			next = separators[i+1:]
			break
		}
	}

	splits := splitKeepingSeparator(text, separator)

	var final []string
	var good []string
	for _, s := range splits {
		if runeLen(s) < c.ChunkSize {
			good = append(good, s)
			continue
		}
		if len(good) > 0 {
			final = append(final, c.mergeSplits(good)...)
			good = good[:0]
		}
		if len(next) == 0 {
			final = append(final, s)
		} else {
			final = append(final, c.splitText(s, next)...)
		}
	}
	if len(good) > 0 {
		final = append(final, c.mergeSplits(good)...)
	}
	return final
}

// mergeSplits 把小片段拼进窗口；窗口放不下时产出一个 chunk，再从队首
// 弹出片段直到剩余长度不超过重叠配额，弹剩的尾巴就是下一个 chunk 的头。
func (c *RecursiveChunker) mergeSplits(splits []string) []string {
	var docs []string
	var current []string
	total := 0

	for _, d := range splits {
		dLen := runeLen(d)
		if total+dLen > c.ChunkSize && len(current) > 0 {
			doc := strings.Join(current, "")
			if strings.TrimSpace(doc) != "" {
				docs = append(docs, doc)
			}
			for len(current) > 0 && (total > c.ChunkOverlap || (total+dLen > c.ChunkSize && total > 0)) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, d)
		total += dLen
	}

	if len(current) > 0 {
		doc := strings.Join(current, "")
		if strings.TrimSpace(doc) != "" {
			docs = append(docs, doc)
		}
	}
	return docs
}

// splitKeepingSeparator 按分隔符切开并把分隔符保留在前一片段尾部，
// 保证所有片段拼回去仍是原文。空分隔符表示逐字符切分。
func splitKeepingSeparator(text, sep string) []string {
	if sep == "" {
		runes := []rune(text)
		out := make([]string, 0, len(runes))
		for _, r := range runes {
			out = append(out, string(r))
		}
		return out
	}

	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		if i < len(parts)-1 {
			p += sep
		}
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// runeLen 按 rune 计数，多字节字符不会被高估
func runeLen(s string) int {
	return len([]rune(s))
}
