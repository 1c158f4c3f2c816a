package editor

import (
	"net/http"

	apiError "projet/internal/errors"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type FormOpen struct {
	RecordID string `json:"record_id"`
}

type FormRestore struct {
	RevisionID string `json:"revision_id" binding:"required"`
}

func (h *Handler) Open(c *gin.Context) {
	var form FormOpen
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&form); err != nil {
			c.Error(apiError.NewValidationError(err))
			return
		}
	}

	surface, err := h.service.Open(c.Request.Context(), c.GetString("user_id"), form.RecordID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, surface)
}

func (h *Handler) Show(c *gin.Context) {
	surface, err := h.service.Get(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, surface)
}

func (h *Handler) Edit(c *gin.Context) {
	var form FormEdit
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(apiError.NewValidationError(err))
		return
	}

	surface, err := h.service.Edit(c.Request.Context(), c.GetString("user_id"), c.Param("id"), form)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, surface)
}

func (h *Handler) Key(c *gin.Context) {
	var form FormKey
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(apiError.NewValidationError(err))
		return
	}

	surface, err := h.service.Key(c.Request.Context(), c.GetString("user_id"), c.Param("id"), form)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, surface)
}

func (h *Handler) RemoveTag(c *gin.Context) {
	surface, err := h.service.RemoveTag(c.Request.Context(), c.GetString("user_id"), c.Param("id"), c.Param("tag"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, surface)
}

func (h *Handler) Restore(c *gin.Context) {
	var form FormRestore
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(apiError.NewValidationError(err))
		return
	}

	surface, err := h.service.Restore(c.Request.Context(), c.GetString("user_id"), c.Param("id"), form.RevisionID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, surface)
}

func (h *Handler) Save(c *gin.Context) {
	result, err := h.service.Save(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) Discard(c *gin.Context) {
	if err := h.service.Discard(c.Request.Context(), c.GetString("user_id"), c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
