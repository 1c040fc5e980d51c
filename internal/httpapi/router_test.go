package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"portal/internal/auth"
	"portal/internal/feedback"
	"portal/internal/meeting"
	"portal/internal/question"
	"portal/internal/store"
	"portal/internal/store/memstore"
)

func ptr[T any](v T) *T { return &v }

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

type files struct{}

func (files) Upload(_ context.Context, u meeting.Upload) (meeting.Attachment, error) {
	body, err := io.ReadAll(u.Body)
	if err != nil {
		return meeting.Attachment{}, err
	}
	return meeting.Attachment{Name: u.Name, URL: "https://files.example/" + u.Name, Size: int64(len(body))}, nil
}

type env struct {
	t      *testing.T
	router *gin.Engine
	issuer *auth.Issuer
	dept   int64

	academic, student, staff int64
}

var now = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func newEnv(t *testing.T, health map[string]store.Pinger) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := memstore.New()
	log := zerolog.New(io.Discard)
	meetings := meeting.NewService(st, st, nil, meeting.Options{
		Location:    time.UTC,
		Now:         func() time.Time { return now },
		Attachments: files{},
		Logger:      &log,
	})
	questions := question.NewService(st, st)
	fb := feedback.NewService(st, questions, meetings)

	e := &env{t: t, issuer: auth.NewIssuer("portal", "secret", time.Hour)}
	e.dept = st.AddDepartment("Physics")
	e.academic = st.AddUser(memstore.User{Name: "Ada", Email: "ada@example.edu", Role: "academic_director"})
	e.student = st.AddUser(memstore.User{Name: "Sam", Email: "sam@example.edu", Role: "student", DepartmentID: &e.dept, Year: ptr(2)})
	e.staff = st.AddUser(memstore.User{Name: "Stu", Email: "stu@example.edu", Role: "staff", DepartmentID: &e.dept})

	e.router = NewRouter(Deps{
		Meetings:   meetings,
		Questions:  questions,
		Feedback:   fb,
		Users:      st,
		SigningKey: "secret",
		Issuer:     "portal",
		Health:     health,
		Logger:     log,
	})
	return e
}

func (e *env) do(method, path string, user int64, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if user != 0 {
		token, _, err := e.issuer.Issue(user)
		require.NoError(e.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type apiError struct {
	Error errorBody `json:"error"`
}

type buckets struct {
	Past    []meeting.Meeting `json:"pastMeetings"`
	Current []meeting.Meeting `json:"currentMeetings"`
	Future  []meeting.Meeting `json:"futureMeetings"`
}

func TestHealthz(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		e := newEnv(t, map[string]store.Pinger{"db": pinger{}})
		w := e.do(http.MethodGet, "/healthz", 0, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"status":"ok","checks":{"db":true}}`, w.Body.String())
	})
	t.Run("degraded", func(t *testing.T) {
		e := newEnv(t, map[string]store.Pinger{"db": pinger{}, "redis": pinger{err: errors.New("down")}})
		w := e.do(http.MethodGet, "/healthz", 0, nil)
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
	t.Run("metrics", func(t *testing.T) {
		e := newEnv(t, nil)
		w := e.do(http.MethodGet, "/metrics", 0, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), "portal_meetings_created_total")
	})
}

func TestAuthRequired(t *testing.T) {
	e := newEnv(t, nil)
	w := e.do(http.MethodGet, "/api/meetings", 0, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "unauthenticated", decode[apiError](t, w).Error.Code)
}

func TestMeetingRoutes(t *testing.T) {
	e := newEnv(t, nil)
	create := map[string]any{
		"title": "Orientation", "meetingDate": "2024-06-15", "startTime": "09:00", "endTime": "10:00",
		"departmentId": e.dept, "role": "student", "year": 2,
	}

	t.Run("staff cannot create", func(t *testing.T) {
		w := e.do(http.MethodPost, "/api/meetings", e.staff, create)
		require.Equal(t, http.StatusForbidden, w.Code)
		require.Equal(t, "forbidden", decode[apiError](t, w).Error.Code)
	})

	t.Run("missing title", func(t *testing.T) {
		w := e.do(http.MethodPost, "/api/meetings", e.academic, map[string]any{"meetingDate": "2024-06-15", "startTime": "09:00", "endTime": "10:00", "departmentId": e.dept, "role": "staff"})
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, "title", decode[apiError](t, w).Error.Field)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/meetings", bytes.NewBufferString("{"))
		token, _, _ := e.issuer.Issue(e.academic)
		req.Header.Set("x-access-token", token)
		w := httptest.NewRecorder()
		e.router.ServeHTTP(w, req)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	w := e.do(http.MethodPost, "/api/meetings", e.academic, create)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[struct {
		Meeting meeting.Meeting `json:"meeting"`
	}](t, w).Meeting
	require.NotZero(t, created.ID)
	path := "/api/meetings/" + strconv.FormatInt(created.ID, 10)

	t.Run("student sees it as current", func(t *testing.T) {
		w := e.do(http.MethodGet, "/api/meetings/user/current", e.student, nil)
		require.Equal(t, http.StatusOK, w.Code)
		b := decode[buckets](t, w)
		require.Len(t, b.Current, 1)
		require.Empty(t, b.Past)
		require.Empty(t, b.Future)
	})

	t.Run("staff does not see it", func(t *testing.T) {
		b := decode[buckets](t, e.do(http.MethodGet, "/api/meetings", e.staff, nil))
		require.Empty(t, b.Current)
		require.Equal(t, http.StatusNotFound, e.do(http.MethodGet, path, e.staff, nil).Code)
	})

	t.Run("flat view", func(t *testing.T) {
		w := e.do(http.MethodGet, "/api/meetings?view=flat", e.academic, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, decode[[]meeting.Meeting](t, w), 1)
	})

	t.Run("department year view", func(t *testing.T) {
		w := e.do(http.MethodGet, "/api/meetings/department/"+strconv.FormatInt(e.dept, 10)+"/year/2", e.academic, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, decode[buckets](t, w).Current, 1)
	})

	t.Run("bad id", func(t *testing.T) {
		w := e.do(http.MethodGet, "/api/meetings/abc", e.student, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, "id", decode[apiError](t, w).Error.Field)
	})

	t.Run("attendance flow", func(t *testing.T) {
		w := e.do(http.MethodPost, "/api/meetings/attendees", e.academic, map[string]any{"meetingId": created.ID, "userIds": []int64{e.student, e.student, 999}, "role": "student"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		added := decode[struct {
			Attendees []meeting.Attendee `json:"attendees"`
		}](t, w).Attendees
		require.Len(t, added, 1)

		w = e.do(http.MethodPost, path+"/feedback-submitted", e.student, nil)
		require.Equal(t, http.StatusConflict, w.Code)
		require.Equal(t, "invalid_state", decode[apiError](t, w).Error.Code)

		w = e.do(http.MethodPost, path+"/attendance", e.staff, nil)
		require.Equal(t, http.StatusNotFound, w.Code)

		require.Equal(t, http.StatusOK, e.do(http.MethodPost, path+"/attendance", e.student, nil).Code)
		require.Equal(t, http.StatusOK, e.do(http.MethodPost, path+"/feedback-submitted", e.student, nil).Code)

		w = e.do(http.MethodGet, path+"/attendees", e.academic, nil)
		require.Equal(t, http.StatusOK, w.Code)
		atts := decode[[]meeting.Attendee](t, w)
		require.Len(t, atts, 1)
		require.True(t, atts[0].Attended)
		require.True(t, atts[0].FeedbackSubmitted)

		require.Equal(t, http.StatusForbidden, e.do(http.MethodGet, path+"/attendees", e.student, nil).Code)

		w = e.do(http.MethodGet, "/api/user/meetings", e.student, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), `"feedbackSubmitted":true`)
	})

	t.Run("update and delete", func(t *testing.T) {
		w := e.do(http.MethodPut, path, e.academic, map[string]any{"status": "completed"})
		require.Equal(t, http.StatusOK, w.Code)
		w = e.do(http.MethodPut, path, e.academic, map[string]any{"status": "scheduled"})
		require.Equal(t, http.StatusConflict, w.Code)

		require.Equal(t, http.StatusOK, e.do(http.MethodDelete, path, e.academic, nil).Code)
		require.Equal(t, http.StatusNotFound, e.do(http.MethodDelete, path, e.academic, nil).Code)
	})
}

func TestMinutesRoutes(t *testing.T) {
	e := newEnv(t, nil)
	w := e.do(http.MethodPost, "/api/meetings", e.academic, map[string]any{
		"title": "Board", "meetingDate": "2024-06-20", "startTime": "14:00", "endTime": "15:00",
		"departmentId": e.dept, "role": "staff",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	mid := decode[struct {
		Meeting meeting.Meeting `json:"meeting"`
	}](t, w).Meeting.ID

	require.Equal(t, http.StatusForbidden, e.do(http.MethodPost, "/api/meeting-minutes", e.staff, map[string]any{"meetingId": mid, "content": "x"}).Code)

	w = e.do(http.MethodPost, "/api/meeting-minutes", e.academic, map[string]any{"meetingId": mid, "content": "Budget approved"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	rec := decode[struct {
		Minutes meeting.Minutes `json:"minutes"`
	}](t, w).Minutes
	path := "/api/meeting-minutes/" + strconv.FormatInt(rec.ID, 10)

	t.Run("staff of the department can read", func(t *testing.T) {
		w := e.do(http.MethodGet, "/api/meeting-minutes/meeting/"+strconv.FormatInt(mid, 10), e.staff, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, decode[[]meeting.Minutes](t, w), 1)
		require.Equal(t, http.StatusNotFound, e.do(http.MethodGet, path, e.student, nil).Code)
	})

	t.Run("attachment upload", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", "budget.pdf")
		require.NoError(t, err)
		_, _ = part.Write([]byte("%PDF"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, path+"/attachments", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		token, _, _ := e.issuer.Issue(e.academic)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		e.router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		got := decode[struct {
			Minutes meeting.Minutes `json:"minutes"`
		}](t, w).Minutes
		require.Len(t, got.Attachments, 1)
		require.Equal(t, "https://files.example/budget.pdf", got.Attachments[0].URL)
	})

	t.Run("attachment without file", func(t *testing.T) {
		w := e.do(http.MethodPost, path+"/attachments", e.academic, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("update and delete", func(t *testing.T) {
		w := e.do(http.MethodPut, path, e.academic, map[string]any{"content": "Budget approved, 3 votes"})
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), "3 votes")
		require.Equal(t, http.StatusOK, e.do(http.MethodDelete, path, e.academic, nil).Code)
		require.Equal(t, http.StatusNotFound, e.do(http.MethodGet, path, e.academic, nil).Code)
	})
}

func TestQuestionAndFeedbackRoutes(t *testing.T) {
	e := newEnv(t, nil)
	dept := strconv.FormatInt(e.dept, 10)

	require.Equal(t, http.StatusForbidden, e.do(http.MethodPost, "/api/questions", e.student, map[string]any{"text": "?", "departmentId": e.dept}).Code)
	require.Equal(t, http.StatusNotFound, e.do(http.MethodPost, "/api/questions", e.academic, map[string]any{"text": "?", "departmentId": 999}).Code)

	w := e.do(http.MethodPost, "/api/questions", e.academic, map[string]any{"text": "Was the lab useful?", "departmentId": e.dept, "role": "student", "year": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	q := decode[question.Question](t, w)
	qpath := strconv.FormatInt(q.ID, 10)

	w = e.do(http.MethodPost, "/api/questions", e.academic, map[string]any{"text": "Workload?", "departmentId": e.dept, "role": "staff"})
	require.Equal(t, http.StatusCreated, w.Code)

	t.Run("list is targeted", func(t *testing.T) {
		require.Len(t, decode[[]question.Question](t, e.do(http.MethodGet, "/api/questions", e.student, nil)), 1)
		require.Len(t, decode[[]question.Question](t, e.do(http.MethodGet, "/api/questions", e.staff, nil)), 1)
		require.Len(t, decode[[]question.Question](t, e.do(http.MethodGet, "/api/questions", e.academic, nil)), 2)
		require.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/questions/"+qpath, e.staff, nil).Code)
	})

	t.Run("department browse", func(t *testing.T) {
		w := e.do(http.MethodGet, "/api/questions/department/"+dept+"?role=staff", e.student, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, decode[[]question.Question](t, w), 1)
		w = e.do(http.MethodGet, "/api/questions/department/"+dept+"?role=dean", e.student, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("by creator", func(t *testing.T) {
		w := e.do(http.MethodGet, "/api/questions/creator/"+strconv.FormatInt(e.academic, 10), e.academic, nil)
		require.Len(t, decode[[]question.Question](t, w), 2)
		require.Equal(t, http.StatusForbidden, e.do(http.MethodGet, "/api/questions/creator/"+strconv.FormatInt(e.academic, 10), e.student, nil).Code)
	})

	t.Run("submit feedback", func(t *testing.T) {
		w := e.do(http.MethodPost, "/api/feedback/submit", e.student, map[string]any{"questionId": q.ID, "rating": 5, "notes": "great"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = e.do(http.MethodPost, "/api/feedback/submit", e.student, map[string]any{"questionId": q.ID, "rating": 9})
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, "rating", decode[apiError](t, w).Error.Field)

		w = e.do(http.MethodPost, "/api/feedback/submit", e.staff, map[string]any{"questionId": q.ID, "rating": 3})
		require.Equal(t, http.StatusNotFound, w.Code)

		mine := decode[[]feedback.Entry](t, e.do(http.MethodGet, "/api/feedback/my-feedback", e.student, nil))
		require.Len(t, mine, 1)
		require.Equal(t, "Was the lab useful?", mine[0].QuestionText)
	})

	t.Run("analytics", func(t *testing.T) {
		require.Equal(t, http.StatusForbidden, e.do(http.MethodGet, "/api/feedback/stats/overall", e.student, nil).Code)

		w := e.do(http.MethodGet, "/api/feedback/stats/overall?departmentId="+dept, e.academic, nil)
		require.Equal(t, http.StatusOK, w.Code)
		stats := decode[feedback.Stats](t, w)
		require.Equal(t, 1, stats.TotalResponses)
		require.InDelta(t, 5.0, stats.AverageRating, 0.001)

		require.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/api/feedback/stats/overall?departmentId=x", e.academic, nil).Code)

		w = e.do(http.MethodGet, "/api/feedback/question/"+qpath, e.academic, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, decode[[]feedback.Feedback](t, w), 1)
	})

	t.Run("update and delete", func(t *testing.T) {
		w := e.do(http.MethodPut, "/api/questions/"+qpath, e.academic, map[string]any{"active": false})
		require.Equal(t, http.StatusOK, w.Code)
		require.Empty(t, decode[[]question.Question](t, e.do(http.MethodGet, "/api/questions", e.student, nil)))
		require.Equal(t, http.StatusOK, e.do(http.MethodDelete, "/api/questions/"+qpath, e.academic, nil).Code)
	})
}
