package handler

import (
	"io"
	"net/http"

	"recovr/internal/apierror"
	"recovr/internal/dto"
	"recovr/internal/middleware"
	"recovr/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxReceiptImageBytes = 8 << 20

type AssistantHandler struct{ svc service.AssistantService }

func NewAssistantHandler(svc service.AssistantService) *AssistantHandler {
	return &AssistantHandler{svc: svc}
}

func (h *AssistantHandler) History(c *gin.Context) {
	claims := middleware.GetClaims(c)
	resp, err := h.svc.ChatHistory(c.Request.Context(), middleware.UserID(c), claims.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Chat godoc
// @Summary Ask the field assistant
// @Tags assistant
// @Accept json
// @Produce json
// @Param body body dto.ChatRequest true "Message"
// @Success 200 {object} dto.ChatReplyResponse
// @Failure 502 {object} apierror.APIError
// @Failure 503 {object} apierror.APIError
// @Router /v1/assistant/chat [post]
func (h *AssistantHandler) Chat(c *gin.Context) {
	var req dto.ChatRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	resp, err := h.svc.Chat(c.Request.Context(), middleware.UserID(c), claims.Name, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Receipt godoc
// @Summary Read the amount and merchant off a receipt photo
// @Tags assistant
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "Receipt photo"
// @Success 200 {object} dto.ReceiptAnalysis
// @Router /v1/assistant/receipt [post]
func (h *AssistantHandler) Receipt(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("image file is required"))
		return
	}
	if fh.Size > maxReceiptImageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, apierror.New("image is larger than 8 MB"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()
	image, err := io.ReadAll(io.LimitReader(f, maxReceiptImageBytes))
	if err != nil {
		respondError(c, err)
		return
	}

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(image)
	}
	resp, err := h.svc.AnalyzeReceipt(c.Request.Context(), image, mimeType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AssistantHandler) Verify(c *gin.Context) {
	var req dto.VerifyBusinessRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.VerifyBusiness(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Speak returns raw 16-bit 24 kHz mono PCM.
func (h *AssistantHandler) Speak(c *gin.Context) {
	var req dto.SpeakRequest
	if !bindAndValidate(c, &req) {
		return
	}
	audio, err := h.svc.Speak(c.Request.Context(), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "audio/L16;rate=24000;channels=1", audio)
}

// ── Video recaps ─────────────────────────────────────────────────────────────

func (h *AssistantHandler) RequestVideo(c *gin.Context) {
	var req dto.VideoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RequestVideo(c.Request.Context(), req.Prompt)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

func (h *AssistantHandler) VideoStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	status := "queued"
	if h.svc.VideoFile(id) != "" {
		status = "ready"
	}
	c.JSON(http.StatusOK, dto.VideoJobResponse{JobID: id.String(), Status: status})
}

func (h *AssistantHandler) VideoFile(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	path := h.svc.VideoFile(id)
	if path == "" {
		c.JSON(http.StatusNotFound, apierror.New("video is not ready yet"))
		return
	}
	c.FileAttachment(path, "recap_"+shortID(id)+".mp4")
}

func shortID(id uuid.UUID) string { return id.String()[:8] }
