package stats

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"resumeqa/internal/asklog"
	"resumeqa/internal/pipeline"
)

type MockPipeline struct{ mock.Mock }

func (m *MockPipeline) Stats() pipeline.Stats {
	args := m.Called()
	return args.Get(0).(pipeline.Stats)
}

type MockRateTable struct{ mock.Mock }

func (m *MockRateTable) Len() int {
	args := m.Called()
	return args.Int(0)
}

type MockQuestionCounter struct{ mock.Mock }

func (m *MockQuestionCounter) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockRecent struct{ mock.Mock }

func (m *MockRecent) Recent(ctx context.Context, limit int) ([]asklog.Entry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]asklog.Entry), args.Error(1)
}

func TestHandler_GetStats_Table(t *testing.T) {
	builtAt := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		withQuestions bool
		setupMocks    func(*MockPipeline, *MockRateTable, *MockQuestionCounter, *MockRecent)
		wantStatus    int
		wantError     bool
		checkBody     func(*testing.T, map[string]interface{})
	}{
		{
			name:          "Success",
			withQuestions: true,
			setupMocks: func(p *MockPipeline, r *MockRateTable, q *MockQuestionCounter, rc *MockRecent) {
				p.On("Stats").Return(pipeline.Stats{State: pipeline.StateReady, Chunks: 12, Dimension: 768, BuiltAt: &builtAt, BuildAttempts: 1})
				r.On("Len").Return(4)
				q.On("Count", mock.Anything).Return(99, nil)
				rc.On("Recent", mock.Anything, 10).Return([]asklog.Entry{{Question: "Skills?", Outcome: asklog.OutcomeAnswered}}, nil)
			},
			wantStatus: http.StatusOK,
			checkBody: func(t *testing.T, body map[string]interface{}) {
				data := body["data"].(map[string]interface{})
				p := data["pipeline"].(map[string]interface{})
				assert.Equal(t, "ready", p["state"])
				assert.EqualValues(t, 12, p["chunks"])
				assert.EqualValues(t, 4, data["tracked_clients"])
				assert.EqualValues(t, 99, data["questions_logged"])
				recent := data["recent_questions"].([]interface{})
				require.Len(t, recent, 1)
				assert.Equal(t, "Skills?", recent[0].(map[string]interface{})["question"])
			},
		},
		{
			name: "No Question Store",
			setupMocks: func(p *MockPipeline, r *MockRateTable, q *MockQuestionCounter, rc *MockRecent) {
				p.On("Stats").Return(pipeline.Stats{State: pipeline.StateAbsent})
				r.On("Len").Return(0)
			},
			wantStatus: http.StatusOK,
			checkBody: func(t *testing.T, body map[string]interface{}) {
				data := body["data"].(map[string]interface{})
				assert.Equal(t, "absent", data["pipeline"].(map[string]interface{})["state"])
				assert.NotContains(t, data, "questions_logged")
				assert.NotContains(t, data, "recent_questions")
			},
		},
		{
			name:          "Question Count Error",
			withQuestions: true,
			setupMocks: func(p *MockPipeline, r *MockRateTable, q *MockQuestionCounter, rc *MockRecent) {
				p.On("Stats").Return(pipeline.Stats{State: pipeline.StateBuilding})
				r.On("Len").Return(1)
				q.On("Count", mock.Anything).Return(0, errors.New("db error"))
			},
			wantStatus: http.StatusInternalServerError,
			wantError:  true,
		},
		{
			name:          "Recent Questions Error",
			withQuestions: true,
			setupMocks: func(p *MockPipeline, r *MockRateTable, q *MockQuestionCounter, rc *MockRecent) {
				p.On("Stats").Return(pipeline.Stats{State: pipeline.StateReady})
				r.On("Len").Return(1)
				q.On("Count", mock.Anything).Return(3, nil)
				rc.On("Recent", mock.Anything, 10).Return(nil, errors.New("db error"))
			},
			wantStatus: http.StatusInternalServerError,
			wantError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mPipeline := new(MockPipeline)
			mRate := new(MockRateTable)
			mQuestions := new(MockQuestionCounter)
			mRecent := new(MockRecent)

			tt.setupMocks(mPipeline, mRate, mQuestions, mRecent)

			var h *Handler
			if tt.withQuestions {
				h = NewHandler(mPipeline, mRate, mQuestions, mRecent)
			} else {
				h = NewHandler(mPipeline, mRate, nil, nil)
			}
			req := httptest.NewRequest("GET", "/stats", nil)
			w := httptest.NewRecorder()

			h.GetStats(w, req)

			resp := w.Result()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var body map[string]interface{}
			err := json.NewDecoder(resp.Body).Decode(&body)
			assert.NoError(t, err)

			if tt.wantError {
				assert.Contains(t, body, "error")
				errMap := body["error"].(map[string]interface{})
				assert.Equal(t, "INTERNAL_ERROR", errMap["code"])
			} else {
				tt.checkBody(t, body)
			}
		})
	}
}
