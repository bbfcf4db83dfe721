// internal/handlers/document.go
package handlers

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/municipal/procurement-backend/internal/i18n"
	"github.com/municipal/procurement-backend/internal/services"
	"github.com/municipal/procurement-backend/internal/utils"
)

type DocumentHandler struct {
	documentService *services.DocumentService
	maxSize         int64
}

func NewDocumentHandler(documentService *services.DocumentService, maxSize int64) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		maxSize:         maxSize,
	}
}

// GET /contracts/:id/phases/:phase/documents
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	actor, ok := actor(c)
	if !ok {
		return
	}
	contractID, ok := parseID(c, "id")
	if !ok {
		return
	}

	documents, err := h.documentService.ListDocuments(c.Request.Context(), actor, contractID, c.Param("phase"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"documents": documents,
	})
}

// POST /contracts/:id/phases/:phase/documents
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := actor(c)
	if !ok {
		return
	}
	contractID, ok := parseID(c, "id")
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileUploadFailed), err.Error())
		return
	}
	defer file.Close()

	if header.Size > h.maxSize {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileTooLarge, h.maxSize), nil)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxSize+1))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileUploadFailed), err.Error())
		return
	}

	req := services.UploadDocumentRequest{
		DocumentCode: c.PostForm("document_code"),
		FileName:     header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		Checksum:     c.PostForm("checksum"),
		Data:         data,
	}

	document, err := h.documentService.Upload(c.Request.Context(), actor, contractID, c.Param("phase"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyDocumentUploaded),
		"document": document,
	})
}

// GET /contracts/:id/documents/:docId/url
func (h *DocumentHandler) GetDownloadURL(c *gin.Context) {
	actor, ok := actor(c)
	if !ok {
		return
	}
	contractID, ok := parseID(c, "id")
	if !ok {
		return
	}
	documentID, ok := parseID(c, "docId")
	if !ok {
		return
	}

	url, err := h.documentService.DownloadURL(c.Request.Context(), actor, contractID, documentID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"url": url,
	})
}

// DELETE /contracts/:id/documents/:docId
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := actor(c)
	if !ok {
		return
	}
	contractID, ok := parseID(c, "id")
	if !ok {
		return
	}
	documentID, ok := parseID(c, "docId")
	if !ok {
		return
	}

	if err := h.documentService.Delete(c.Request.Context(), actor, contractID, documentID); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyDocumentDeleted),
	})
}
