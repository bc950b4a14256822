package controller

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github/itish2003/cricketbot/models"
	"github/itish2003/cricketbot/services"
)

// HealthMessage is the constant liveness payload.
const HealthMessage = "Alive and well my friend !"

// RAGController handles the HTTP requests for the chat API. It depends on the
// RAGService to perform the actual business logic.
type RAGController struct {
	ragService services.RAGService
}

// NewRAGController is a constructor function that creates a new RAGController.
func NewRAGController(service services.RAGService) *RAGController {
	return &RAGController{
		ragService: service,
	}
}

// Health is the Gin handler for GET /api/v1/health.
func (c *RAGController) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, models.HealthResponse{Response: HealthMessage})
}

// Chat is the Gin handler for POST /chat.
func (c *RAGController) Chat(ctx *gin.Context) {
	var req models.ChatRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: text must not be empty"})
		return
	}

	response, err := c.ragService.Chat(ctx.Request.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrEmptyText) {
			ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: " + err.Error()})
			return
		}
		log.WithError(err).Error("CONTROLLER: chat failed")
		ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to generate response"})
		return
	}

	ctx.JSON(http.StatusOK, response)
}

// Stats is the Gin handler for GET /api/v1/stats.
func (c *RAGController) Stats(ctx *gin.Context) {
	count, err := c.ragService.GetTotalChunks(ctx.Request.Context())
	if err != nil {
		log.WithError(err).Error("CONTROLLER: counting chunks failed")
		ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to count indexed chunks"})
		return
	}
	ctx.JSON(http.StatusOK, models.StatsResponse{Chunks: count})
}
