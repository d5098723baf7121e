package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	activitydomain "github.com/smallbiznis/lottery/internal/activity/domain"
	"github.com/smallbiznis/lottery/internal/config"
	drawdomain "github.com/smallbiznis/lottery/internal/draw/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDrawService struct {
	drawErr     error
	lastDraw    drawdomain.DrawRequest
	drawCalls   int
	lastHistory drawdomain.HistoryRequest
	history     []drawdomain.HistoryItem
}

func (f *fakeDrawService) Draw(ctx context.Context, req drawdomain.DrawRequest) (*drawdomain.DrawBatchResult, error) {
	_ = ctx
	f.drawCalls++
	f.lastDraw = req
	if f.drawErr != nil {
		return nil, f.drawErr
	}
	results := make([]drawdomain.DrawResult, 0, req.DrawCount)
	for i := 0; i < req.DrawCount; i++ {
		results = append(results, drawdomain.DrawResult{
			RecordID:  snowflake.ID(1000 + i).String(),
			PrizeName: "銘謝惠顧",
		})
	}
	return &drawdomain.DrawBatchResult{
		BatchID:        "01JTESTBATCH",
		Results:        results,
		DrawCount:      req.DrawCount,
		RemainingDraws: 5 - req.DrawCount,
	}, nil
}

func (f *fakeDrawService) Remaining(ctx context.Context, userID, activityID snowflake.ID) (*drawdomain.RemainingResponse, error) {
	_ = ctx
	_ = userID
	return &drawdomain.RemainingResponse{
		ActivityID:     activityID.String(),
		LimitType:      "TOTAL",
		MaxDraws:       5,
		RemainingDraws: 3,
	}, nil
}

func (f *fakeDrawService) History(ctx context.Context, req drawdomain.HistoryRequest) ([]drawdomain.HistoryItem, error) {
	_ = ctx
	f.lastHistory = req
	return f.history, nil
}

func (f *fakeDrawService) Batch(ctx context.Context, userID snowflake.ID, batchID string) ([]drawdomain.HistoryItem, error) {
	_ = ctx
	_ = userID
	var items []drawdomain.HistoryItem
	for _, item := range f.history {
		if item.BatchID == batchID {
			items = append(items, item)
		}
	}
	return items, nil
}

type fakeActivityService struct {
	activity *activitydomain.Activity
}

func (f *fakeActivityService) Get(ctx context.Context, id snowflake.ID) (*activitydomain.Activity, error) {
	_ = ctx
	if f.activity == nil || f.activity.ID != id {
		return nil, activitydomain.ErrNotFound
	}
	return f.activity, nil
}

func (f *fakeActivityService) ListActive(ctx context.Context) ([]activitydomain.Activity, error) {
	_ = ctx
	if f.activity == nil {
		return nil, nil
	}
	return []activitydomain.Activity{*f.activity}, nil
}

func newTestServer(t *testing.T, drawSvc drawdomain.Service, activitySvc activitydomain.Service) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	return NewServer(ServerParams{
		Gin:         engine,
		Cfg:         config.Config{Environment: "test"},
		DrawSvc:     drawSvc,
		ActivitySvc: activitySvc,
	})
}

func doRequest(t *testing.T, srv *Server, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(HeaderUserID, userID)
	}
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestDrawReturnsBatch(t *testing.T) {
	drawSvc := &fakeDrawService{}
	srv := newTestServer(t, drawSvc, &fakeActivityService{})

	rec := doRequest(t, srv, http.MethodPost, "/api/lottery/draw", "42", map[string]any{
		"activity_id": "7",
		"draw_count":  3,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data drawdomain.DrawBatchResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data.Results, 3)
	assert.Equal(t, 2, resp.Data.RemainingDraws)
	assert.Equal(t, snowflake.ID(42), drawSvc.lastDraw.UserID)
	assert.Equal(t, snowflake.ID(7), drawSvc.lastDraw.ActivityID)
	assert.Equal(t, 3, drawSvc.lastDraw.DrawCount)
}

func TestDrawDefaultsToSingleDraw(t *testing.T) {
	drawSvc := &fakeDrawService{}
	srv := newTestServer(t, drawSvc, &fakeActivityService{})

	rec := doRequest(t, srv, http.MethodPost, "/api/lottery/draw", "42", map[string]any{
		"activity_id": "7",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, drawSvc.lastDraw.DrawCount)
}

func TestDrawRequiresUserHeader(t *testing.T) {
	drawSvc := &fakeDrawService{}
	srv := newTestServer(t, drawSvc, &fakeActivityService{})

	rec := doRequest(t, srv, http.MethodPost, "/api/lottery/draw", "", map[string]any{
		"activity_id": "7",
		"draw_count":  1,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, drawSvc.drawCalls)
}

func TestDrawRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name string
		body map[string]any
	}{
		{name: "missing activity", body: map[string]any{"draw_count": 1}},
		{name: "bad activity", body: map[string]any{"activity_id": "abc", "draw_count": 1}},
		{name: "zero draws", body: map[string]any{"activity_id": "7", "draw_count": 0}},
		{name: "negative draws", body: map[string]any{"activity_id": "7", "draw_count": -2}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			drawSvc := &fakeDrawService{}
			srv := newTestServer(t, drawSvc, &fakeActivityService{})

			rec := doRequest(t, srv, http.MethodPost, "/api/lottery/draw", "42", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "validation_error", decodeError(t, rec).Type)
			assert.Equal(t, 0, drawSvc.drawCalls)
		})
	}
}

func TestDrawErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		status     int
		errType    string
		retryAfter bool
	}{
		{name: "invalid request", err: drawdomain.NewError(drawdomain.KindInvalidRequest, "draw_count exceeds 100", nil), status: http.StatusBadRequest, errType: "invalid_request"},
		{name: "activity not found", err: drawdomain.ErrActivityNotFound, status: http.StatusNotFound, errType: "activity_not_found"},
		{name: "user not found", err: drawdomain.ErrUserNotFound, status: http.StatusNotFound, errType: "user_not_found"},
		{name: "not available", err: drawdomain.ErrActivityNotAvailable, status: http.StatusUnprocessableEntity, errType: "activity_not_available"},
		{name: "insufficient", err: drawdomain.InsufficientAllowance(3, 1), status: http.StatusUnprocessableEntity, errType: "insufficient_allowance"},
		{name: "busy", err: drawdomain.ErrSystemBusy, status: http.StatusServiceUnavailable, errType: "system_busy", retryAfter: true},
		{name: "transient", err: drawdomain.ErrTransient, status: http.StatusServiceUnavailable, errType: "transient", retryAfter: true},
		{name: "prize inconsistent", err: drawdomain.ErrPrizeInconsistent, status: http.StatusInternalServerError, errType: "prize_inconsistent"},
		{name: "internal", err: drawdomain.ErrInternal, status: http.StatusInternalServerError, errType: "internal"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeDrawService{drawErr: tc.err}, &fakeActivityService{})

			rec := doRequest(t, srv, http.MethodPost, "/api/lottery/draw", "42", map[string]any{
				"activity_id": "7",
				"draw_count":  3,
			})
			assert.Equal(t, tc.status, rec.Code)
			payload := decodeError(t, rec)
			assert.Equal(t, tc.errType, payload.Type)
			if tc.retryAfter {
				assert.Equal(t, "1", rec.Header().Get("Retry-After"))
				assert.True(t, payload.Retryable)
			} else {
				assert.Empty(t, rec.Header().Get("Retry-After"))
			}
		})
	}
}

func TestInsufficientAllowanceCarriesCounts(t *testing.T) {
	srv := newTestServer(t, &fakeDrawService{drawErr: drawdomain.InsufficientAllowance(3, 1)}, &fakeActivityService{})

	rec := doRequest(t, srv, http.MethodPost, "/api/lottery/draw", "42", map[string]any{
		"activity_id": "7",
		"draw_count":  3,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	payload := decodeError(t, rec)
	require.NotNil(t, payload.Requested)
	require.NotNil(t, payload.Remaining)
	assert.Equal(t, 3, *payload.Requested)
	assert.Equal(t, 1, *payload.Remaining)
}

func TestRemainingDraws(t *testing.T) {
	srv := newTestServer(t, &fakeDrawService{}, &fakeActivityService{})

	rec := doRequest(t, srv, http.MethodGet, "/api/lottery/remaining-draws?activity_id=7", "42", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data drawdomain.RemainingResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "7", resp.Data.ActivityID)
	assert.Equal(t, 3, resp.Data.RemainingDraws)

	rec = doRequest(t, srv, http.MethodGet, "/api/lottery/remaining-draws", "42", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryPassesFilter(t *testing.T) {
	drawSvc := &fakeDrawService{}
	srv := newTestServer(t, drawSvc, &fakeActivityService{})

	rec := doRequest(t, srv, http.MethodGet, "/api/lottery/history?activity_id=7&limit=20", "42", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())

	require.NotNil(t, drawSvc.lastHistory.ActivityID)
	assert.Equal(t, snowflake.ID(7), *drawSvc.lastHistory.ActivityID)
	assert.Equal(t, snowflake.ID(42), drawSvc.lastHistory.UserID)
	assert.Equal(t, 20, drawSvc.lastHistory.Limit)

	rec = doRequest(t, srv, http.MethodGet, "/api/lottery/history?limit=x", "42", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetBatch(t *testing.T) {
	drawSvc := &fakeDrawService{history: []drawdomain.HistoryItem{
		{RecordID: "1", BatchID: "01JBATCH", PrizeName: "Pen", IsWinning: true},
		{RecordID: "2", BatchID: "01JOTHER", PrizeName: "Pen", IsWinning: true},
	}}
	srv := newTestServer(t, drawSvc, &fakeActivityService{})

	rec := doRequest(t, srv, http.MethodGet, "/api/lottery/history/01JBATCH", "42", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data []drawdomain.HistoryItem `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "1", resp.Data[0].RecordID)

	rec = doRequest(t, srv, http.MethodGet, "/api/lottery/history/01JMISSING", "42", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestActivityEndpoints(t *testing.T) {
	activity := &activitydomain.Activity{
		ID:              snowflake.ID(7),
		Code:            "summer-lottery",
		Name:            "Summer Lottery",
		StartTime:       time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EndTime:         time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		Status:          activitydomain.StatusActive,
		LimitType:       activitydomain.LimitTotal,
		MaxDrawsPerUser: 5,
		Prizes: []activitydomain.Prize{
			{ID: snowflake.ID(8), Name: "Bike", PrizeType: activitydomain.PrizePhysical, TotalStock: 1, RemainingStock: 1, Probability: 0.1},
		},
	}
	srv := newTestServer(t, &fakeDrawService{}, &fakeActivityService{activity: activity})

	rec := doRequest(t, srv, http.MethodGet, "/api/activities", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data []activityResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, "7", list.Data[0].ID)
	assert.Empty(t, list.Data[0].Prizes)

	rec = doRequest(t, srv, http.MethodGet, "/api/activities/7", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Data activityResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.Len(t, detail.Data.Prizes, 1)
	assert.Equal(t, "Bike", detail.Data.Prizes[0].Name)

	rec = doRequest(t, srv, http.MethodGet, "/api/activities/99", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "activity_not_found", decodeError(t, rec).Type)

	rec = doRequest(t, srv, http.MethodGet, "/api/activities/nope", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownRouteReturnsNotFound(t *testing.T) {
	srv := newTestServer(t, &fakeDrawService{}, &fakeActivityService{})

	rec := doRequest(t, srv, http.MethodGet, "/api/nothing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClassifyErrorForLog(t *testing.T) {
	assert.Equal(t, "system_busy", classifyErrorForLog(drawdomain.ErrSystemBusy))
	assert.Equal(t, "validation_error", classifyErrorForLog(invalidRequestError()))
	assert.Equal(t, "internal_error", classifyErrorForLog(context.Canceled))
	assert.Equal(t, "", classifyErrorForLog(nil))
}
