package journal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apiError "projet/internal/errors"
	"projet/internal/middleware"
	"projet/internal/record"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockService is a mock implementation of Service
type MockService struct {
	mock.Mock
}

func (m *MockService) record(args mock.Arguments) (*record.Record, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.Record), args.Error(1)
}

func (m *MockService) Create(ctx context.Context, ownerID string, fields record.Fields) (*record.Record, error) {
	return m.record(m.Called(ctx, ownerID, fields))
}

func (m *MockService) QuickCreate(ctx context.Context, ownerID string, fields record.Fields) (*record.Record, error) {
	return m.record(m.Called(ctx, ownerID, fields))
}

func (m *MockService) Show(ctx context.Context, ownerID, id string) (*record.Record, error) {
	return m.record(m.Called(ctx, ownerID, id))
}

func (m *MockService) Update(ctx context.Context, ownerID, id string, fields record.Fields) (*record.Record, error) {
	return m.record(m.Called(ctx, ownerID, id, fields))
}

func (m *MockService) Delete(ctx context.Context, ownerID, id string, confirmed bool) error {
	return m.Called(ctx, ownerID, id, confirmed).Error(0)
}

func (m *MockService) Revisions(ctx context.Context, ownerID, id string) ([]record.Revision, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]record.Revision), args.Error(1)
}

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandler(zap.NewNop()))
	return router
}

func TestCreateHandler(t *testing.T) {
	svc := new(MockService)
	handler := NewHandler(svc)
	router := setupRouter()

	fields := record.Fields{Title: "A", Body: "1", Tags: record.Tags{"work"}}
	svc.On("Create", mock.Anything, "owner-1", fields).Return(&record.Record{ID: "r1", Title: "A"}, nil)

	router.POST("/records", func(c *gin.Context) {
		c.Set("user_id", "owner-1")
		handler.Create(c)
	})

	body, _ := json.Marshal(RecordRequest{Title: "A", Body: "1", Tags: []string{"work"}})
	req := httptest.NewRequest("POST", "/records", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var response record.Record
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "r1", response.ID)
	svc.AssertExpectations(t)
}

func TestCreateHandler_TitleTooLong(t *testing.T) {
	svc := new(MockService)
	handler := NewHandler(svc)
	router := setupRouter()
	router.POST("/records", handler.Create)

	body, _ := json.Marshal(RecordRequest{Title: strings.Repeat("a", 300), Body: "1"})
	req := httptest.NewRequest("POST", "/records", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Contains(t, response["fields"], "title")
	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestQuickCreateHandler(t *testing.T) {
	svc := new(MockService)
	handler := NewHandler(svc)
	router := setupRouter()

	svc.On("QuickCreate", mock.Anything, "owner-1", record.Fields{Body: "thought"}).
		Return(&record.Record{ID: "r1", Title: "Untitled Knot"}, nil)

	router.POST("/records/quick", func(c *gin.Context) {
		c.Set("user_id", "owner-1")
		handler.QuickCreate(c)
	})

	req := httptest.NewRequest("POST", "/records/quick", bytes.NewBufferString(`{"body":"thought"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	svc.AssertExpectations(t)
}

func TestShowHandler_NotFound(t *testing.T) {
	svc := new(MockService)
	handler := NewHandler(svc)
	router := setupRouter()

	svc.On("Show", mock.Anything, "owner-1", "missing").Return(nil, apiError.NotFound("Record not found", nil))

	router.GET("/records/:id", func(c *gin.Context) {
		c.Set("user_id", "owner-1")
		handler.Show(c)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/records/missing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "/", response["redirect"])
	assert.Equal(t, apiError.KindNotFound, response["kind"])
}

func TestUpdateHandler_WriteError(t *testing.T) {
	svc := new(MockService)
	handler := NewHandler(svc)
	router := setupRouter()

	svc.On("Update", mock.Anything, "owner-1", "r1", mock.Anything).Return(nil, apiError.WriteFailed("archive", nil))

	router.PUT("/records/:id", func(c *gin.Context) {
		c.Set("user_id", "owner-1")
		handler.Update(c)
	})

	req := httptest.NewRequest("PUT", "/records/r1", bytes.NewBufferString(`{"title":"A","body":"2"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "archive", response["step"])
	assert.Equal(t, apiError.KindWrite, response["kind"])
}

func TestDeleteHandler(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		confirm bool
		err     error
		status  int
	}{
		{"unconfirmed", "", false, apiError.ConfirmationRequired("confirm"), http.StatusPreconditionRequired},
		{"confirmed", "?confirm=true", true, nil, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			handler := NewHandler(svc)
			router := setupRouter()
			svc.On("Delete", mock.Anything, "owner-1", "r1", tt.confirm).Return(tt.err)

			router.DELETE("/records/:id", func(c *gin.Context) {
				c.Set("user_id", "owner-1")
				handler.Delete(c)
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("DELETE", "/records/r1"+tt.query, nil))

			assert.Equal(t, tt.status, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestRevisionsHandler(t *testing.T) {
	svc := new(MockService)
	handler := NewHandler(svc)
	router := setupRouter()

	svc.On("Revisions", mock.Anything, "owner-1", "r1").Return([]record.Revision{
		{ID: "v2", SnapshotBody: "2"},
		{ID: "v1", SnapshotBody: "1"},
	}, nil)

	router.GET("/records/:id/revisions", func(c *gin.Context) {
		c.Set("user_id", "owner-1")
		handler.Revisions(c)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/records/r1/revisions", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var response struct {
		Data []record.Revision `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Len(t, response.Data, 2)
	assert.Equal(t, "v2", response.Data[0].ID)
}
