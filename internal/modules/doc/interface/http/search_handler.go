package http

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	docRequest "DocPilot/internal/modules/doc/application/dto/request"
	"DocPilot/internal/modules/doc/application/service"
	"DocPilot/pkg/back"
	"DocPilot/pkg/xerr"
	"DocPilot/pkg/zlog"
)

// SearchHandler 文档问答 HTTP Handler
type SearchHandler struct {
	searchSvc service.SearchService
}

func NewSearchHandler(searchSvc service.SearchService) *SearchHandler {
	return &SearchHandler{searchSvc: searchSvc}
}

// Search 对已摄取文档做检索增强问答
//
// 路由: POST /doc/search
// 鉴权: 可选 JWT（带 token 时问答记录归属提问者）
// 错误码: 400 空问题 / 404 未检索到相关文档 / 500 检索或生成失败
func (h *SearchHandler) Search(c *gin.Context) {
	var req docRequest.SearchRequest
	if err := c.BindJSON(&req); err != nil {
		back.Error(c, xerr.BadRequest, "query 不能为空")
		return
	}

	asker := strings.TrimSpace(c.GetString("uuid"))
	data, err := h.searchSvc.Search(c.Request.Context(), req, asker)
	if err != nil {
		zlog.Warn("问答请求未成功", zap.Error(err))
	}
	back.Result(c, data, err)
}
