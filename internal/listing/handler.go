package listing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	apiError "projet/internal/errors"
	"projet/internal/record"
	"projet/internal/session"
	"projet/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const keepaliveInterval = 15 * time.Second

// RecordSource is record.Store as the list screens use it.
type RecordSource interface {
	List(ctx context.Context, ownerID string) ([]record.Record, error)
	Subscriber
}

type Handler struct {
	records   RecordSource
	gate      *session.Gate
	logger    *zap.Logger
	keepalive time.Duration
}

func NewHandler(records RecordSource, gate *session.Gate, logger *zap.Logger) *Handler {
	return &Handler{records: records, gate: gate, logger: logger, keepalive: keepaliveInterval}
}

func (h *Handler) List(c *gin.Context) {
	var criteria Criteria
	if err := c.ShouldBindQuery(&criteria); err != nil {
		c.Error(apiError.BadRequest("Invalid filter", err))
		return
	}

	records, err := h.records.List(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		c.Error(err)
		return
	}

	page, pageSize := utils.GetPaginationParams(c)
	c.JSON(http.StatusOK, utils.Paginate(Filter(records, criteria), page, pageSize))
}

func (h *Handler) Tags(c *gin.Context) {
	records, err := h.records.List(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": Tags(records)})
}

// Stream sends the filtered list as a "records" event on connect and after
// every change. When the session signs out it sends a "redirect" event and
// closes.
func (h *Handler) Stream(c *gin.Context) {
	var criteria Criteria
	if err := c.ShouldBindQuery(&criteria); err != nil {
		c.Error(apiError.BadRequest("Invalid filter", err))
		return
	}

	ownerID := c.GetString("user_id")
	clientID := uuid.NewString()
	logger := h.logger.With(zap.String("owner_id", ownerID), zap.String("client_id", clientID))

	// latest wins: a slow client only ever gets the newest list
	updates := make(chan []record.Record, 1)
	view := NewView(h.records, ownerID, criteria, func(visible []record.Record) {
		select {
		case <-updates:
		default:
		}
		updates <- visible
	})
	view.Activate()
	defer view.Teardown()

	watch := h.gate.Watch(c.GetString("user_id"), session.SessionIDFrom(c))
	defer watch.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	logger.Debug("record stream established")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			logger.Debug("client disconnected")
			return false
		case <-watch.Done():
			logger.Info("session ended, closing record stream")
			c.SSEvent("redirect", gin.H{"to": h.gate.EntryPath()})
			return false
		case visible := <-updates:
			c.SSEvent("records", visible)
			return true
		case <-ticker.C:
			fmt.Fprint(w, ": keepalive\n\n")
			return true
		}
	})
	logger.Debug("record stream ended")
}
