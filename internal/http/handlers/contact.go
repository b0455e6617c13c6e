package handlers

import (
	"net/http"
	"time"

	"github.com/specialsearch/specialsearch/internal/config"
	"github.com/specialsearch/specialsearch/internal/jobs"
	"github.com/gin-gonic/gin"
)

type ContactHandler struct {
	jobs JobEnqueuer
}

func NewContactHandler(jobsRepo JobEnqueuer) *ContactHandler {
	return &ContactHandler{jobs: jobsRepo}
}

type ContactRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Message string `json:"message" binding:"required"`
}

// SubmitContact accepts the form and queues delivery; the mail goes out
// asynchronously, so the response is a 202.
func (h *ContactHandler) SubmitContact(ctx *gin.Context) {
	var req ContactRequest

	if !BindJSON(ctx, &req) {
		return
	}

	requestID, _ := ctx.Get("request_id")
	reqIDStr, _ := requestID.(string)

	payload, err := jobs.ContactEmailPayload{
		Name:        req.Name,
		Email:       req.Email,
		Message:     req.Message,
		SubmittedAt: time.Now().UTC(),
		RequestID:   reqIDStr,
	}.JSON()

	if err != nil {
		RespondInternal(ctx, "Could not submit message")
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	if _, err := h.jobs.Create(cctx, jobs.CreateRequest{
		Type:    jobs.TypeContactEmail,
		Payload: payload,
	}); err != nil {
		RespondInternal(ctx, "Could not submit message")
		return
	}

	ctx.JSON(http.StatusAccepted, gin.H{"message": "Thanks for reaching out. We'll get back to you soon."})
}
