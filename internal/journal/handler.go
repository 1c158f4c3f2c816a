package journal

import (
	"net/http"
	"strconv"

	apiError "projet/internal/errors"
	"projet/internal/record"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type RecordRequest struct {
	Title string   `json:"title" binding:"max=255"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags" binding:"max=50,dive,max=64"`
}

func (r RecordRequest) fields() record.Fields {
	return record.Fields{Title: r.Title, Body: r.Body, Tags: record.Tags(r.Tags)}
}

func (h *Handler) Create(c *gin.Context) {
	var form RecordRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(apiError.NewValidationError(err))
		return
	}

	rec, err := h.service.Create(c.Request.Context(), c.GetString("user_id"), form.fields())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) QuickCreate(c *gin.Context) {
	var form RecordRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(apiError.NewValidationError(err))
		return
	}

	rec, err := h.service.QuickCreate(c.Request.Context(), c.GetString("user_id"), form.fields())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) Show(c *gin.Context) {
	rec, err := h.service.Show(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) Update(c *gin.Context) {
	var form RecordRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(apiError.NewValidationError(err))
		return
	}

	rec, err := h.service.Update(c.Request.Context(), c.GetString("user_id"), c.Param("id"), form.fields())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) Delete(c *gin.Context) {
	confirmed, _ := strconv.ParseBool(c.DefaultQuery("confirm", "false"))

	if err := h.service.Delete(c.Request.Context(), c.GetString("user_id"), c.Param("id"), confirmed); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Revisions(c *gin.Context) {
	revisions, err := h.service.Revisions(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": revisions})
}
