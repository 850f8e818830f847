package http

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	docRequest "DocPilot/internal/modules/doc/application/dto/request"
	"DocPilot/internal/modules/doc/application/service"
	"DocPilot/pkg/back"
	"DocPilot/pkg/xerr"
	"DocPilot/pkg/zlog"
)

// DocumentHandler 文档上传与管理 HTTP Handler
type DocumentHandler struct {
	uploadSvc service.UploadService
	docSvc    service.DocumentService
}

func NewDocumentHandler(uploadSvc service.UploadService, docSvc service.DocumentService) *DocumentHandler {
	return &DocumentHandler{uploadSvc: uploadSvc, docSvc: docSvc}
}

// Upload 上传文件并触发摄取
//
// 路由: POST /doc/upload（multipart 表单，字段名 file）
// 鉴权: 可选 JWT（带 token 时记录上传者）
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		back.Error(c, xerr.BadRequest, "缺少上传文件")
		return
	}

	asker := strings.TrimSpace(c.GetString("uuid"))
	data, err := h.uploadSvc.Upload(c.Request.Context(), file, asker)
	if err != nil {
		zlog.Error("文档上传失败", zap.String("filename", file.Filename), zap.Error(err))
	}
	back.Result(c, data, err)
}

// Reingest 对已有文档重新走一遍摄取链
//
// 路由: POST /doc/reingest
func (h *DocumentHandler) Reingest(c *gin.Context) {
	var req docRequest.ReingestRequest
	if err := c.BindJSON(&req); err != nil {
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}

	data, err := h.docSvc.Reingest(c.Request.Context(), req.DocumentID)
	if err != nil {
		zlog.Error("文档重摄取失败", zap.Int64("documentId", req.DocumentID), zap.Error(err))
	}
	back.Result(c, data, err)
}

// Get 按 id 查询文档摄取状态
//
// 路由: GET /doc/get?id=N
func (h *DocumentHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Query("id"), 10, 64)
	if err != nil || id <= 0 {
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}

	data, err := h.docSvc.Get(c.Request.Context(), id)
	back.Result(c, data, err)
}

// List 分页列出文档
//
// 路由: GET /doc/list?page=1&page_size=20
func (h *DocumentHandler) List(c *gin.Context) {
	var req docRequest.ListDocumentsRequest
	if err := c.BindQuery(&req); err != nil {
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}

	data, err := h.docSvc.List(c.Request.Context(), req.Page, req.PageSize)
	back.Result(c, data, err)
}
