package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"presence-tracker-backend/config"
	"presence-tracker-backend/internal/api"
	"presence-tracker-backend/internal/capture"
	"presence-tracker-backend/internal/model"
	"presence-tracker-backend/internal/store"
)

// TestScanLifecycle walks a badge through a full day: captured by a scan
// station, entered into two halls, exited from one, with the occupancy
// and presence views checked over the real HTTP surface at each step.
func TestScanLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// 1. In-memory database and seeded directory.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	defer sqlDB.Close()

	require.NoError(t, testDB.AutoMigrate(&model.Location{}, &model.ScanEvent{}))

	appStore := store.NewGormStore(testDB)
	require.NoError(t, appStore.SeedLocations(context.Background(), []store.LocationSeed{
		{ID: 1, Name: "Hall A"},
		{ID: 2, Name: "Hall B"},
	}))

	// 2. The service, served for real so the scan station goes through
	// the actual wire format.
	router := api.NewRouter(appStore, &config.ServerConfig{
		RateLimitPerSec: 1000,
		RateLimitBurst:  1000,
		CacheTTLSeconds: 1,
	})
	server := httptest.NewServer(router)
	defer server.Close()

	// 3. A scan station pointed at the service.
	loop := capture.NewLoop(capture.NewHTTPDispatcher(server.URL), 20*time.Millisecond)

	runFeed := func(t *testing.T, sel capture.Selection, frames string) capture.Result {
		t.Helper()
		loop.SetSelection(sel)
		require.NoError(t, loop.Run(context.Background(), capture.NewLineSource(strings.NewReader(frames))))
		select {
		case res := <-loop.Results():
			return res
		case <-time.After(time.Second):
			t.Fatal("no capture result reported")
			return capture.Result{}
		}
	}

	t.Run("badge enters Hall A", func(t *testing.T) {
		// The badge sits in front of the camera for several frames but
		// must be recorded once.
		res := runFeed(t, capture.Selection{LocationID: 1, Action: store.ActionEntry, Operator: "station-1"}, "B-7\nB-7\nB-7\n")
		require.NoError(t, res.Err)
		assert.NotZero(t, res.Receipt.ID)

		var count int64
		testDB.Model(&model.ScanEvent{}).Count(&count)
		assert.Equal(t, int64(1), count, "three frames of one badge must append one event")

		assert.Equal(t, []store.OccupancyRow{
			{LocationID: 1, LocationName: "Hall A", Count: 1},
		}, getOccupancy(t, server.URL))
	})

	t.Run("same badge enters Hall B without leaving Hall A", func(t *testing.T) {
		res := runFeed(t, capture.Selection{LocationID: 2, Action: store.ActionEntry, Operator: "station-2"}, "B-7\n")
		require.NoError(t, res.Err)

		assert.Equal(t, []store.OccupancyRow{
			{LocationID: 1, LocationName: "Hall A", Count: 1},
			{LocationID: 2, LocationName: "Hall B", Count: 1},
		}, getOccupancy(t, server.URL), "presence is independent per location")
	})

	t.Run("badge exits Hall A", func(t *testing.T) {
		res := runFeed(t, capture.Selection{LocationID: 1, Action: store.ActionExit, Operator: "station-1"}, "B-7\n")
		require.NoError(t, res.Err)

		assert.Equal(t, []store.OccupancyRow{
			{LocationID: 2, LocationName: "Hall B", Count: 1},
		}, getOccupancy(t, server.URL), "a hall with nobody inside is omitted")

		resp, err := http.Get(server.URL + "/presence?token=B-7&location_id=1")
		require.NoError(t, err)
		defer resp.Body.Close()
		body := decodeBody(t, resp)
		assert.Equal(t, "exit", body["action"])
	})

	t.Run("liveness probe stays up", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, decodeBody(t, resp)["ok"])
	})

	// The log is append-only: every scan above is still there.
	var total int64
	testDB.Model(&model.ScanEvent{}).Count(&total)
	assert.Equal(t, int64(3), total)
}

func getOccupancy(t *testing.T, baseURL string) []store.OccupancyRow {
	t.Helper()
	resp, err := http.Get(baseURL + "/occupancy")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rows []store.OccupancyRow
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rows))
	return rows
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}
