package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"machine-utilization-backend/config"
	"machine-utilization-backend/internal/api"
	"machine-utilization-backend/internal/model"
	"machine-utilization-backend/internal/sim"
	"machine-utilization-backend/internal/store"
)

// setupServer wires a router against an in-memory SQLite database. Each test
// gets its own named database so state never leaks between tests.
func setupServer(t *testing.T, dsn string) (*gorm.DB, store.Store, *gin.Engine) {
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	err = testDB.AutoMigrate(&model.MachineSetting{}, &model.HourLog{}, &model.PushSubscription{})
	require.NoError(t, err)

	s := store.NewGormStore(testDB)
	cfg := &config.ServerConfig{
		Port:            8080,
		RateLimitPerSec: 1000,
		RateLimitBurst:  1000,
		CacheTTLSeconds: 1,
	}
	return testDB, s, api.NewRouter(s, cfg, nil, nil)
}

func doRequest(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func TestMachineSettingsLifecycle(t *testing.T) {
	_, _, router := setupServer(t, "file:settings_lifecycle?mode=memory&cache=shared")

	var createdID int64
	t.Run("create applies default targets", func(t *testing.T) {
		w := doRequest(router, "POST", "/api/machine-settings",
			gin.H{"machineName": "Turning 1", "groupName": "SECTOR"})
		require.Equal(t, http.StatusCreated, w.Code)

		var resp struct {
			Data model.MachineSetting `json:"data"`
		}
		decodeBody(t, w, &resp)
		assert.NotZero(t, resp.Data.ID)
		assert.Equal(t, 50.0, resp.Data.WeeklyTarget)
		assert.Equal(t, 50.0, resp.Data.MonthlyTarget)
		createdID = resp.Data.ID
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		w := doRequest(router, "POST", "/api/machine-settings", gin.H{"machineName": "Turning 2"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "machineName and groupName are required")
	})

	t.Run("rejects a duplicate name with 409", func(t *testing.T) {
		w := doRequest(router, "POST", "/api/machine-settings",
			gin.H{"machineName": "Turning 1", "groupName": "SECTOR (TR)"})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "machineName already exists")
	})

	t.Run("list returns the created row", func(t *testing.T) {
		w := doRequest(router, "GET", "/api/machine-settings", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data  []model.MachineSetting `json:"data"`
			Count int                    `json:"count"`
		}
		decodeBody(t, w, &resp)
		assert.Equal(t, 1, resp.Count)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, "Turning 1", resp.Data[0].MachineName)
	})

	t.Run("update patches only the provided fields", func(t *testing.T) {
		w := doRequest(router, "PUT", requestPath("/api/machine-settings?id=", createdID),
			gin.H{"weeklyTarget": 80})
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data model.MachineSetting `json:"data"`
		}
		decodeBody(t, w, &resp)
		assert.Equal(t, 80.0, resp.Data.WeeklyTarget)
		assert.Equal(t, 50.0, resp.Data.MonthlyTarget)
		assert.Equal(t, "Turning 1", resp.Data.MachineName)
	})

	t.Run("update without id is rejected", func(t *testing.T) {
		w := doRequest(router, "PUT", "/api/machine-settings", gin.H{"weeklyTarget": 80})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "id is required")
	})

	t.Run("update with an empty patch is rejected", func(t *testing.T) {
		w := doRequest(router, "PUT", requestPath("/api/machine-settings?id=", createdID), gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "No fields to update")
	})

	t.Run("update of a missing id yields 404", func(t *testing.T) {
		w := doRequest(router, "PUT", "/api/machine-settings?id=99999", gin.H{"weeklyTarget": 10})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("delete of a missing id succeeds with zero count", func(t *testing.T) {
		w := doRequest(router, "DELETE", "/api/machine-settings?id=99999", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"Deleted","deleted":0}`, w.Body.String())
	})

	t.Run("delete removes the row", func(t *testing.T) {
		w := doRequest(router, "DELETE", requestPath("/api/machine-settings?id=", createdID), nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"Deleted","deleted":1}`, w.Body.String())

		list := doRequest(router, "GET", "/api/machine-settings", nil)
		var resp struct {
			Count int `json:"count"`
		}
		decodeBody(t, list, &resp)
		assert.Equal(t, 0, resp.Count)
	})
}

func requestPath(prefix string, id int64) string {
	return fmt.Sprintf("%s%d", prefix, id)
}

func TestInitSettingsIdempotent(t *testing.T) {
	_, _, router := setupServer(t, "file:init_settings?mode=memory&cache=shared")

	w := doRequest(router, "POST", "/api/init-settings", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var first struct {
		Message string `json:"message"`
		Count   int64  `json:"count"`
	}
	decodeBody(t, w, &first)
	assert.Equal(t, "Initialized", first.Message)
	assert.Equal(t, int64(60), first.Count)

	w = doRequest(router, "POST", "/api/init-settings", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var second struct {
		Message string `json:"message"`
		Count   int64  `json:"count"`
	}
	decodeBody(t, w, &second)
	assert.Equal(t, "Table already has data", second.Message)
	assert.Equal(t, int64(60), second.Count)
}

func TestMachineHoursAndStatus(t *testing.T) {
	_, s, router := setupServer(t, "file:hours_status?mode=memory&cache=shared")
	ctx := context.Background()

	for _, m := range []model.MachineSetting{
		{MachineName: "Turning 1", GroupName: "SECTOR", WeeklyTarget: 50, MonthlyTarget: 50},
		{MachineName: "Laser 1", GroupName: "BLADE", WeeklyTarget: 50, MonthlyTarget: 50},
		{MachineName: "Machining 3", GroupName: "SECTOR", WeeklyTarget: 50, MonthlyTarget: 50},
	} {
		setting := m
		require.NoError(t, s.CreateSetting(ctx, &setting))
	}

	now := time.Now().UTC().Truncate(time.Second)

	t.Run("rejects a sample with missing fields", func(t *testing.T) {
		w := doRequest(router, "POST", "/api/machine-hours",
			gin.H{"machineName": "Turning 1", "runHour": 6})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "logTime, machineName, runHour, stopHour are required")
	})

	t.Run("accepts a valid sample", func(t *testing.T) {
		w := doRequest(router, "POST", "/api/machine-hours", gin.H{
			"logTime":     now.Format(time.RFC3339),
			"machineName": "Turning 1",
			"runHour":     6,
			"stopHour":    2,
			"runStatus":   1,
		})
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"message":"Created"`)
	})

	t.Run("clamps negative hour values to zero", func(t *testing.T) {
		w := doRequest(router, "POST", "/api/machine-hours", gin.H{
			"logTime":     now.Format(time.RFC3339),
			"machineName": "Machining 3",
			"runHour":     -3,
			"stopHour":    2,
			"stopStatus":  1,
		})
		require.Equal(t, http.StatusCreated, w.Code)

		var resp struct {
			Data model.HourLog `json:"data"`
		}
		decodeBody(t, w, &resp)
		assert.Equal(t, 0.0, resp.Data.RunHour)
		assert.Equal(t, 2.0, resp.Data.StopHour)
	})

	t.Run("rejects an unparseable limit", func(t *testing.T) {
		w := doRequest(router, "GET", "/api/machine-hours?limit=abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid limit")
	})

	t.Run("filters hour logs by machine", func(t *testing.T) {
		w := doRequest(router, "GET", "/api/machine-hours?machine=Turning%201", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data  []model.HourLog `json:"data"`
			Count int             `json:"count"`
		}
		decodeBody(t, w, &resp)
		assert.Equal(t, 1, resp.Count)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, "Turning 1", resp.Data[0].MachineName)
	})

	t.Run("status joins every machine with its window ratios", func(t *testing.T) {
		w := doRequest(router, "GET", "/api/machine-status", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data []struct {
				MachineName        string   `json:"machineName"`
				GroupName          string   `json:"groupName"`
				RunHour            *float64 `json:"runHour"`
				StopHour           *float64 `json:"stopHour"`
				RunStatus          *int     `json:"runStatus"`
				WeeklyActualRatio  float64  `json:"weeklyActualRatio"`
				MonthlyActualRatio float64  `json:"monthlyActualRatio"`
			} `json:"data"`
			Groups []string `json:"groups"`
			Count  int      `json:"count"`
		}
		decodeBody(t, w, &resp)

		assert.Equal(t, 3, resp.Count)
		assert.Equal(t, []string{"BLADE", "SECTOR"}, resp.Groups)

		byName := make(map[string]int)
		for i, row := range resp.Data {
			byName[row.MachineName] = i
		}

		turning := resp.Data[byName["Turning 1"]]
		assert.Equal(t, 75.0, turning.WeeklyActualRatio)
		assert.Equal(t, 75.0, turning.MonthlyActualRatio)
		require.NotNil(t, turning.RunHour)
		assert.Equal(t, 6.0, *turning.RunHour)
		require.NotNil(t, turning.RunStatus)
		assert.Equal(t, 1, *turning.RunStatus)

		// Never-logged machine still appears, with null sample fields.
		laser := resp.Data[byName["Laser 1"]]
		assert.Nil(t, laser.RunHour)
		assert.Nil(t, laser.StopHour)
		assert.Equal(t, 0.0, laser.WeeklyActualRatio)

		machining := resp.Data[byName["Machining 3"]]
		assert.Equal(t, 0.0, machining.WeeklyActualRatio)
	})

	t.Run("bulk delete wipes the log table", func(t *testing.T) {
		w := doRequest(router, "DELETE", "/api/machine-hours", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"Deleted","deleted":2}`, w.Body.String())
	})
}

func TestTimelineEndpoints(t *testing.T) {
	_, s, router := setupServer(t, "file:timeline_api?mode=memory&cache=shared")
	ctx := context.Background()

	for _, m := range []model.MachineSetting{
		{MachineName: "Turning 1", GroupName: "SECTOR", WeeklyTarget: 50, MonthlyTarget: 50},
		{MachineName: "Laser 1", GroupName: "BLADE", WeeklyTarget: 50, MonthlyTarget: 50},
	} {
		setting := m
		require.NoError(t, s.CreateSetting(ctx, &setting))
	}

	base := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	logs := []model.HourLog{
		{LogTime: base, MachineName: "Turning 1", RunHour: 2, StopHour: 1},
		{LogTime: base.Add(5 * time.Hour), MachineName: "Turning 1", RunHour: 1, StopHour: 0.5},
	}
	for i := range logs {
		require.NoError(t, s.AppendHourLog(ctx, &logs[i]))
	}

	const window = "from=2025-06-10&to=2025-06-11"

	t.Run("missing range parameters", func(t *testing.T) {
		w := doRequest(router, "GET", "/api/timeline-data", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"Missing required parameters: from, to"}`, w.Body.String())
	})

	t.Run("malformed range parameters", func(t *testing.T) {
		w := doRequest(router, "GET", "/api/timeline-data?from=yesterday&to=2025-06-11", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"Invalid date format"}`, w.Body.String())
	})

	t.Run("timeline-data sums the window per machine", func(t *testing.T) {
		w := doRequest(router, "GET", "/api/timeline-data?"+window, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data []struct {
				MachineName  string  `json:"machineName"`
				RunHour      float64 `json:"runHour"`
				StopHour     float64 `json:"stopHour"`
				ActualRatio1 float64 `json:"actualRatio1"`
				TrueRatio1   float64 `json:"trueRatio1"`
			} `json:"data"`
			Count int `json:"count"`
		}
		decodeBody(t, w, &resp)

		require.Equal(t, 2, resp.Count)
		// BLADE sorts before SECTOR.
		assert.Equal(t, "Laser 1", resp.Data[0].MachineName)
		assert.Equal(t, 0.0, resp.Data[0].ActualRatio1)

		turning := resp.Data[1]
		assert.Equal(t, "Turning 1", turning.MachineName)
		assert.Equal(t, 3.0, turning.RunHour)
		assert.Equal(t, 1.5, turning.StopHour)
		assert.Equal(t, 66.67, turning.ActualRatio1)

		// The group averages belong to the full timeline payload, not this one.
		assert.NotContains(t, w.Body.String(), "actualRatio2")
	})

	t.Run("timeline-segments returns the joined raw rows", func(t *testing.T) {
		w := doRequest(router, "GET", "/api/timeline-segments?"+window, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data []struct {
				MachineName string  `json:"machineName"`
				GroupName   *string `json:"groupName"`
				RunHour     float64 `json:"runHour"`
			} `json:"data"`
			Count int `json:"count"`
		}
		decodeBody(t, w, &resp)

		require.Equal(t, 2, resp.Count)
		for _, row := range resp.Data {
			assert.Equal(t, "Turning 1", row.MachineName)
			require.NotNil(t, row.GroupName)
			assert.Equal(t, "SECTOR", *row.GroupName)
		}
	})

	t.Run("timeline reconstructs the band", func(t *testing.T) {
		w := doRequest(router, "GET", "/api/timeline?"+window, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data []struct {
				MachineName  string  `json:"machineName"`
				ActualRatio2 float64 `json:"actualRatio2"`
				Timeline     []struct {
					Start    time.Time `json:"start"`
					End      time.Time `json:"end"`
					State    string    `json:"state"`
					Duration float64   `json:"duration"`
				} `json:"timeline"`
			} `json:"data"`
			Count int `json:"count"`
		}
		decodeBody(t, w, &resp)
		require.Equal(t, 2, resp.Count)

		// Idle machine gets a single IDLE band covering the whole window.
		laser := resp.Data[0]
		assert.Equal(t, "Laser 1", laser.MachineName)
		require.Len(t, laser.Timeline, 1)
		assert.Equal(t, "IDLE", laser.Timeline[0].State)
		assert.Equal(t, 24.0, laser.Timeline[0].Duration)

		turning := resp.Data[1]
		assert.Equal(t, "Turning 1", turning.MachineName)
		require.Len(t, turning.Timeline, 4)
		assert.Equal(t, "RUN", turning.Timeline[0].State)
		assert.WithinDuration(t, base, turning.Timeline[0].Start, time.Second)
		// The second row chains at 11:00, where the first row's band ended,
		// not at its own 13:00 log time.
		assert.Equal(t, "RUN", turning.Timeline[2].State)
		assert.WithinDuration(t, base.Add(3*time.Hour), turning.Timeline[2].Start, time.Second)
		assert.Equal(t, "STOP", turning.Timeline[3].State)
		assert.WithinDuration(t, base.Add(4*time.Hour+30*time.Minute), turning.Timeline[3].End, time.Second)
	})

	t.Run("export produces a workbook download", func(t *testing.T) {
		w := doRequest(router, "GET", "/api/timeline-export?"+window, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
		assert.Contains(t, w.Header().Get("Content-Disposition"), "utilization_20250610_20250611.xlsx")
		assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
		assert.NotZero(t, w.Body.Len())
	})
}

func TestSubscriptionLifecycle(t *testing.T) {
	_, s, router := setupServer(t, "file:subscriptions_api?mode=memory&cache=shared")

	setting := model.MachineSetting{MachineName: "Turning 1", GroupName: "SECTOR", WeeklyTarget: 50, MonthlyTarget: 50}
	require.NoError(t, s.CreateSetting(context.Background(), &setting))

	endpoint := "https://example.com/push/abc123"

	t.Run("put registers the subscription", func(t *testing.T) {
		w := doRequest(router, "PUT", "/api/subscriptions", gin.H{
			"endpoint":            endpoint,
			"p256dh":              "key",
			"auth":                "secret",
			"subscribed_machines": []int64{setting.ID},
		})
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("get returns the watched machines", func(t *testing.T) {
		w := doRequest(router, "GET", "/api/subscriptions?endpoint="+endpoint, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			SubscribedMachines []int64 `json:"subscribed_machines"`
		}
		decodeBody(t, w, &resp)
		assert.Equal(t, []int64{setting.ID}, resp.SubscribedMachines)
	})

	t.Run("get of an unknown endpoint yields 404", func(t *testing.T) {
		w := doRequest(router, "GET", "/api/subscriptions?endpoint=https://example.com/other", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("delete removes the subscription", func(t *testing.T) {
		w := doRequest(router, "DELETE", "/api/subscriptions", gin.H{"endpoint": endpoint})
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = doRequest(router, "GET", "/api/subscriptions?endpoint="+endpoint, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("vapid key is unavailable without configuration", func(t *testing.T) {
		w := doRequest(router, "GET", "/api/vapid_public_key", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestCORSAndMethodNotAllowed(t *testing.T) {
	_, _, router := setupServer(t, "file:cors_api?mode=memory&cache=shared")

	t.Run("unmapped method yields 405", func(t *testing.T) {
		w := doRequest(router, "PATCH", "/api/machine-settings", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		assert.JSONEq(t, `{"error":"Method not allowed"}`, w.Body.String())
	})

	t.Run("preflight short-circuits with 200", func(t *testing.T) {
		w := doRequest(router, "OPTIONS", "/api/machine-hours", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("every response carries the CORS header", func(t *testing.T) {
		w := doRequest(router, "GET", "/api/health", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Body.String(), "healthy")
	})
}

func TestSimulatorTick(t *testing.T) {
	testDB, s, _ := setupServer(t, "file:simulator_tick?mode=memory&cache=shared")
	ctx := context.Background()

	for _, m := range []model.MachineSetting{
		{MachineName: "Turning 1", GroupName: "SECTOR", WeeklyTarget: 50, MonthlyTarget: 50},
		{MachineName: "Laser 1", GroupName: "BLADE", WeeklyTarget: 50, MonthlyTarget: 50},
	} {
		setting := m
		require.NoError(t, s.CreateSetting(ctx, &setting))
	}

	cfg := &config.Config{}
	cfg.Simulator.Enabled = true
	cfg.Simulator.Interval = 10 * time.Minute

	svc := sim.NewService(cfg, s, nil)
	svc.TickOnce(ctx)

	var count int64
	require.NoError(t, testDB.Model(&model.HourLog{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	var generated []model.HourLog
	require.NoError(t, testDB.Find(&generated).Error)
	for _, hourLog := range generated {
		assert.Greater(t, hourLog.RunHour, 0.0)
		assert.GreaterOrEqual(t, hourLog.StopHour, 0.0)
		// Run and stop time partition the tick interval.
		assert.InDelta(t, cfg.Simulator.Interval.Hours(), hourLog.RunHour+hourLog.StopHour, 1e-6)
		assert.Equal(t, 1, hourLog.RunStatus+hourLog.StopStatus)
	}
}
