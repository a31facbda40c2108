package journal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gymsched/internal/apperr"
	"gymsched/internal/auth"
	"gymsched/internal/events"
)

type MockReader struct{ mock.Mock }

func (m *MockReader) Recent(ctx context.Context, trainerID, limit int) ([]events.Event, error) {
	args := m.Called(ctx, trainerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]events.Event), args.Error(1)
}

func setupRouter(r Reader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		auth.SetIdentity(c, 7, auth.RoleTrainer)
		c.Next()
	})
	router.GET("/calendar/changes", NewHandler(r).Changes)
	return router
}

func TestChanges(t *testing.T) {
	reader := new(MockReader)
	reader.On("Recent", mock.Anything, 7, DefaultLimit).
		Return([]events.Event{{Kind: events.AvailabilityChanged, TrainerID: 7}}, nil)

	w := httptest.NewRecorder()
	setupRouter(reader).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/calendar/changes", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp ChangesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 1)
	assert.Equal(t, events.AvailabilityChanged, resp.Events[0].Kind)
	reader.AssertExpectations(t)
}

func TestChangesErrors(t *testing.T) {
	reader := new(MockReader)
	router := setupRouter(reader)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/calendar/changes?limit=ten", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	reader.On("Recent", mock.Anything, 7, 500).Return(nil, apperr.Validation("limit must be between 1 and %d", MaxEntries))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/calendar/changes?limit=500", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	reader.On("Recent", mock.Anything, 7, 5).Return(nil, apperr.Upstream("read journal", errors.New("redis down")))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/calendar/changes?limit=5", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
