package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vprep/preparator-backend-go/internal/cache/memcache"
	"github.com/vprep/preparator-backend-go/internal/config"
	"github.com/vprep/preparator-backend-go/internal/domain/agency"
	"github.com/vprep/preparator-backend-go/internal/domain/schedule"
	"github.com/vprep/preparator-backend-go/internal/domain/user"
	"github.com/vprep/preparator-backend-go/internal/pkg/email"
	"github.com/vprep/preparator-backend-go/internal/pkg/jwt"
	"github.com/vprep/preparator-backend-go/internal/repository/memory"
	attendanceService "github.com/vprep/preparator-backend-go/internal/service/attendance"
	"github.com/vprep/preparator-backend-go/internal/service/monitor"
	notificationService "github.com/vprep/preparator-backend-go/internal/service/notification"
	preparationService "github.com/vprep/preparator-backend-go/internal/service/preparation"
)

const handlerTestSecret = "test-secret-key-for-jwt"

var paris, _ = time.LoadLocation("Europe/Paris")

type testServer struct {
	t      *testing.T
	router http.Handler
	jwt    jwt.Service
	store  *memory.Store
	now    time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := memory.NewStore()
	store.PutAgency(agency.Agency{ID: "a1", Name: "Lyon Part-Dieu", Code: "LYS"})
	store.PutUser(user.User{ID: "admin", Email: "admin@vprep.fr", Role: user.RoleAdmin, IsActive: true, EmailVerified: true})
	store.PutUser(user.User{ID: "w1", FirstName: "Camille", LastName: "Martin", Email: "camille@vprep.fr", Role: user.RolePreparator, IsActive: true})

	ts := &testServer{
		t:     t,
		jwt:   jwt.NewJWTService(handlerTestSecret),
		store: store,
		now:   time.Date(2025, 1, 15, 8, 16, 0, 0, paris),
	}
	now := func() time.Time { return ts.now }

	cfg := config.MonitorConfig{
		Enabled:                     true,
		LateThresholdMinutes:        15,
		OvertimeThresholdMinutes:    45,
		PreparationThresholdMinutes: 30,
		LateStartInterval:           5 * time.Minute,
		OvertimeInterval:            15 * time.Minute,
		ActiveHoursStart:            6,
		ActiveHoursEnd:              22,
		Timezone:                    "Europe/Paris",
		JobTimeout:                  time.Minute,
		CandidateTimeout:            5 * time.Second,
		SendMarkerTTL:               time.Minute,
	}

	renderer, err := email.NewRenderer()
	require.NoError(t, err)
	dispatcher := notificationService.NewDispatcher(
		store.Directory(), renderer, email.NewTransport(config.SMTPConfig{}), memcache.NewSendMarker(time.Minute), nil,
	)
	mon, err := monitor.NewService(cfg, monitor.Deps{
		Schedules:    store.Schedules(),
		Timesheets:   store.Timesheets(),
		Preparations: store.Preparations(),
		Agencies:     store.Agencies(),
		Directory:    store.Directory(),
		Dispatcher:   dispatcher,
		Now:          now,
	})
	require.NoError(t, err)

	defaults := agency.Thresholds{LateMinutes: 15, OvertimeMinutes: 45, PreparationMinutes: 30}
	ts.router = NewRouter(ts.jwt, Handlers{
		Timesheet:   NewTimesheetHandler(attendanceService.NewTimesheetService(store.Timesheets(), store.Schedules(), paris, now)),
		Preparation: NewPreparationHandler(preparationService.NewPreparationService(store.Preparations(), store.Agencies(), defaults, now)),
		Schedule:    NewScheduleHandler(store.Schedules()),
		Monitor:     NewMonitorHandler(mon, store.DeliveryLog()),
	}, RouterOptions{AllowedOrigins: []string{"http://localhost:3000"}})
	return ts
}

func (ts *testServer) token(c jwt.Claims) string {
	tok, _, err := ts.jwt.GenerateAccessToken(c, time.Hour)
	require.NoError(ts.t, err)
	return tok
}

func (ts *testServer) worker() string { return ts.token(jwt.Claims{UserID: "w1", AgencyID: "a1"}) }
func (ts *testServer) admin() string  { return ts.token(jwt.Claims{UserID: "admin", IsAdmin: true}) }

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func (ts *testServer) do(method, path, token string, body any) (int, envelope) {
	ts.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (ts *testServer) seedSchedule() {
	_, err := ts.store.Schedules().Create(context.Background(), schedule.Schedule{
		WorkerID:  "w1",
		AgencyID:  "a1",
		Date:      time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		StartTime: "08:00",
		EndTime:   "16:00",
	})
	require.NoError(ts.t, err)
}

func TestRequiresToken(t *testing.T) {
	ts := newTestServer(t)

	code, env := ts.do(http.MethodPost, "/api/v1/timesheets/clock-in", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Success)

	forged, _, err := jwt.NewJWTService("other-secret").GenerateAccessToken(jwt.Claims{UserID: "w1"}, time.Hour)
	require.NoError(t, err)
	code, _ = ts.do(http.MethodPost, "/api/v1/timesheets/clock-in", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestClockInFlow(t *testing.T) {
	ts := newTestServer(t)
	ts.seedSchedule()

	code, _ := ts.do(http.MethodGet, "/api/v1/timesheets/today", ts.worker(), nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env := ts.do(http.MethodPost, "/api/v1/timesheets/clock-in", ts.worker(), nil)
	require.Equal(t, http.StatusOK, code)
	var body struct {
		State  string `json:"state"`
		Delays struct {
			StartDelay int `json:"start_delay"`
		} `json:"delays"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, "clocked_in", body.State)
	assert.Equal(t, 16, body.Delays.StartDelay)

	code, env = ts.do(http.MethodPost, "/api/v1/timesheets/clock-in", ts.worker(), nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	code, _ = ts.do(http.MethodPost, "/api/v1/timesheets/break-end", ts.worker(), nil)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = ts.do(http.MethodGet, "/api/v1/timesheets/today", ts.worker(), nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestClockIn_MissingAgency(t *testing.T) {
	ts := newTestServer(t)

	code, env := ts.do(http.MethodPost, "/api/v1/timesheets/clock-in", ts.token(jwt.Claims{UserID: "w1"}), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, env.Error.Details, "agency_id")
}

func TestPreparationFlow(t *testing.T) {
	ts := newTestServer(t)

	code, env := ts.do(http.MethodPost, "/api/v1/preparations", ts.worker(), map[string]string{"vehicle_id": "AB-123-CD"})
	require.Equal(t, http.StatusCreated, code)
	var prep struct {
		ID    string `json:"id"`
		Steps []struct {
			Type      string `json:"type"`
			Completed bool   `json:"completed"`
		} `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &prep))
	require.Len(t, prep.Steps, 4)

	code, _ = ts.do(http.MethodPost, "/api/v1/preparations", ts.worker(), map[string]string{"vehicle_id": "EF-456-GH"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = ts.do(http.MethodPost, "/api/v1/preparations/"+prep.ID+"/steps/exterior", ts.worker(), map[string]string{"notes": "ok"})
	assert.Equal(t, http.StatusOK, code)

	code, _ = ts.do(http.MethodPost, "/api/v1/preparations/"+prep.ID+"/steps/exterior", ts.worker(), nil)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = ts.do(http.MethodPost, "/api/v1/preparations/"+prep.ID+"/steps/roof", ts.worker(), nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = ts.do(http.MethodGet, "/api/v1/preparations/not-a-uuid", ts.worker(), nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = ts.do(http.MethodGet, "/api/v1/preparations/current", ts.worker(), nil)
	assert.Equal(t, http.StatusOK, code)

	ts.now = ts.now.Add(20 * time.Minute)
	code, env = ts.do(http.MethodPost, "/api/v1/preparations/"+prep.ID+"/complete", ts.worker(), nil)
	require.Equal(t, http.StatusOK, code)
	var done struct {
		Status   string `json:"status"`
		IsOnTime *bool  `json:"is_on_time"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &done))
	assert.Equal(t, "completed", done.Status)
	require.NotNil(t, done.IsOnTime)
	assert.True(t, *done.IsOnTime)
}

func TestAdminRoutes(t *testing.T) {
	ts := newTestServer(t)

	code, _ := ts.do(http.MethodGet, "/api/v1/monitor/jobs", ts.worker(), nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env := ts.do(http.MethodGet, "/api/v1/monitor/jobs", ts.admin(), nil)
	require.Equal(t, http.StatusOK, code)
	var jobs []struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &jobs))
	assert.Len(t, jobs, 4)

	code, _ = ts.do(http.MethodPost, "/api/v1/monitor/jobs/unknown/run", ts.admin(), nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = ts.do(http.MethodPost, "/api/v1/monitor/jobs/"+monitor.JobMissingClockOut+"/stop", ts.admin(), nil)
	assert.Equal(t, http.StatusConflict, code)
}

func TestAdminRunLateStartJob(t *testing.T) {
	ts := newTestServer(t)
	ts.seedSchedule()

	code, env := ts.do(http.MethodPost, "/api/v1/monitor/jobs/"+monitor.JobLateStart+"/run", ts.admin(), nil)
	require.Equal(t, http.StatusOK, code)
	var run struct {
		Sent int `json:"sent"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &run))
	assert.Equal(t, 1, run.Sent)

	deliveries := ts.store.Deliveries()
	require.Len(t, deliveries, 1)

	code, env = ts.do(http.MethodGet, "/api/v1/monitor/deliveries/timesheet/"+deliveries[0].RecordID, ts.admin(), nil)
	require.Equal(t, http.StatusOK, code)
	var list []struct {
		AlertType string `json:"alert_type"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "late_start", list[0].AlertType)
}

func TestCreateSchedule(t *testing.T) {
	ts := newTestServer(t)

	code, env := ts.do(http.MethodPost, "/api/v1/schedules", ts.admin(), map[string]string{
		"worker_id": "w1", "agency_id": "a1", "date": "15/01/2025", "start_time": "8h", "end_time": "16:00",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, env.Error.Details, "date")
	assert.Contains(t, env.Error.Details, "start_time")

	valid := map[string]string{"worker_id": "w1", "agency_id": "a1", "date": "2025-01-15", "start_time": "08:00", "end_time": "16:00"}
	code, _ = ts.do(http.MethodPost, "/api/v1/schedules", ts.admin(), valid)
	assert.Equal(t, http.StatusCreated, code)

	code, _ = ts.do(http.MethodPost, "/api/v1/schedules", ts.admin(), valid)
	assert.Equal(t, http.StatusConflict, code)
}
