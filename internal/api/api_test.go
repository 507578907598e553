package api

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sliink/liveplot/internal/argparse"
	"github.com/sliink/liveplot/internal/core"
	"github.com/sliink/liveplot/internal/extract"
	"github.com/sliink/liveplot/internal/model"
	"github.com/sliink/liveplot/internal/store"
	"github.com/sliink/liveplot/internal/store/memstore"
	"github.com/sliink/liveplot/internal/surface"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

type apiFixture struct {
	api   *API
	core  *core.Core
	store *memstore.Store
	board *surface.FrameBoard
}

func setupTestAPI(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := memstore.New()
	require.NoError(t, st.Append(context.Background(), "la", "1", "2", "4", "9", "15", "16", "42"))
	require.NoError(t, st.Append(context.Background(), "lb", "10", "5", "7", "5", "2", "8", "9"))

	board := surface.NewFrameBoard()
	c := core.NewCore(st, surface.NewStandardFactory(surface.Options{Board: board, Writer: st}))
	require.True(t, c.Initialize())
	require.True(t, c.Start())
	t.Cleanup(func() { c.Stop() })
	require.Eventually(t, func() bool { return st.Listeners() == 1 }, waitFor, tick)

	return &apiFixture{
		api:   NewAPI(c, board, "localhost", 8080),
		core:  c,
		store: st,
		board: board,
	}
}

func (f *apiFixture) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.api.Handler().ServeHTTP(w, req)
	return w
}

func (f *apiFixture) bind(t *testing.T, args ...string) string {
	t.Helper()
	w := f.do(http.MethodPost, "/bind", PlotRequest{Args: args})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var resp BindResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	require.Eventually(t, func() bool {
		_, ok := f.core.Target(resp.ID)
		return ok
	}, waitFor, tick)
	return resp.ID
}

func TestHealthCheck(t *testing.T) {
	f := setupTestAPI(t)

	w := f.do(http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Contains(t, resp, "timestamp")
}

func TestGetStatus(t *testing.T) {
	f := setupTestAPI(t)
	f.bind(t, "--list", "la")

	w := f.do(http.MethodGet, "/status", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp model.HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, model.StatusRunning, resp.Status)
	assert.Equal(t, "running", resp.Details["dispatcher_state"])
	assert.Contains(t, resp.Components, "dispatcher")
}

func TestStatusShowsLastDraw(t *testing.T) {
	f := setupTestAPI(t)
	w := f.do(http.MethodPost, "/draw", PlotRequest{Args: []string{"--list", "missing"}})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	last, ok := resp.Details["last_draw"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "error", last["value"])
	assert.Contains(t, last["error"], "missing")
}

func TestGetConfig(t *testing.T) {
	f := setupTestAPI(t)
	f.core.GetConfigManager().SetConfig("render.background", "#000000")

	w := f.do(http.MethodGet, "/config", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	render, ok := resp["render"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "#000000", render["background"])
}

func TestDraw(t *testing.T) {
	f := setupTestAPI(t)

	t.Run("Bitmap by default", func(t *testing.T) {
		w := f.do(http.MethodPost, "/draw", PlotRequest{Args: []string{"--list", "la", "lb", "--width", "64", "--height", "32"}})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
		data := w.Body.Bytes()
		require.Len(t, data, 16+64*32*3)
		assert.Equal(t, uint64(64), binary.BigEndian.Uint64(data[0:8]))
		assert.Equal(t, uint64(32), binary.BigEndian.Uint64(data[8:16]))
	})

	t.Run("PNG on request", func(t *testing.T) {
		w := f.do(http.MethodPost, "/draw?format=png", PlotRequest{Args: []string{"--list", "la"}})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
		img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, 400, img.Bounds().Dx())
		assert.Equal(t, 300, img.Bounds().Dy())
	})

	t.Run("Errors map to status codes", func(t *testing.T) {
		cases := []struct {
			name   string
			path   string
			args   []string
			status int
		}{
			{"missing list", "/draw", []string{"--width", "10"}, http.StatusBadRequest},
			{"unknown key", "/draw", []string{"--list", "nope"}, http.StatusNotFound},
			{"xy index", "/draw", []string{"--list", "la", "--index", "xy"}, http.StatusNotImplemented},
			{"unknown format", "/draw?format=gif", []string{"--list", "la"}, http.StatusBadRequest},
		}
		for _, tc := range cases {
			w := f.do(http.MethodPost, tc.path, PlotRequest{Args: tc.args})
			assert.Equal(t, tc.status, w.Code, tc.name)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), tc.name)
			assert.NotEmpty(t, resp.Error, tc.name)
		}
	})

	t.Run("Rejects malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/draw", strings.NewReader("{"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		f.api.Handler().ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBindAndTargets(t *testing.T) {
	f := setupTestAPI(t)

	id := f.bind(t, "--list", "la", "--target", "dash", "--width", "80", "--height", "60")

	w := f.do(http.MethodGet, "/targets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var targets []model.TargetInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &targets))
	require.Len(t, targets, 1)
	assert.Equal(t, id, targets[0].ID)
	assert.Equal(t, "window:dash", targets[0].Surface)
	assert.False(t, targets[0].Visible)

	w = f.do(http.MethodGet, "/targets/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var info model.TargetInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, []string{"la"}, info.Spec.Sources)

	w = f.do(http.MethodGet, "/targets/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodPost, "/bind", PlotRequest{Args: []string{"--list"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/bind", PlotRequest{Args: []string{"--list", "la", "--target", "key:la"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	values, err := f.store.Range(context.Background(), "la")
	require.NoError(t, err)
	assert.Len(t, values, 7)
}

func TestFrameFollowsStore(t *testing.T) {
	f := setupTestAPI(t)
	id := f.bind(t, "--list", "la", "--width", "50", "--height", "40")

	w := f.do(http.MethodGet, "/targets/"+id+"/frame.png", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "a window is hidden until its first redraw")

	require.NoError(t, f.store.Append(context.Background(), "la", "7"))

	require.Eventually(t, func() bool {
		_, ok := f.board.Get(id)
		return ok
	}, waitFor, tick)

	w = f.do(http.MethodGet, "/targets/"+id+"/frame.png", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "1", w.Header().Get("X-Frame-Sequence"))
	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 50, img.Bounds().Dx())
}

func TestOpenTargetHasFrame(t *testing.T) {
	f := setupTestAPI(t)
	id := f.bind(t, "--list", "la", "--open")

	require.Eventually(t, func() bool {
		_, ok := f.board.Get(id)
		return ok
	}, waitFor, tick)
}

func TestCloseTarget(t *testing.T) {
	f := setupTestAPI(t)
	id := f.bind(t, "--list", "la", "--open")
	require.Eventually(t, func() bool {
		_, ok := f.board.Get(id)
		return ok
	}, waitFor, tick)

	w := f.do(http.MethodDelete, "/targets/"+id, nil)
	assert.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		_, ok := f.core.Target(id)
		return !ok
	}, waitFor, tick)
	_, ok := f.board.Get(id)
	assert.False(t, ok)

	w = f.do(http.MethodDelete, "/targets/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestKeyTarget(t *testing.T) {
	f := setupTestAPI(t)
	f.bind(t, "--list", "la", "--target", "key:la_plot", "--open")

	require.Eventually(t, func() bool {
		_, ok := f.store.Get("la_plot")
		return ok
	}, waitFor, tick)
	data, _ := f.store.Get("la_plot")
	_, err := png.Decode(bytes.NewReader(data))
	assert.NoError(t, err)
}

func TestMetrics(t *testing.T) {
	f := setupTestAPI(t)
	f.do(http.MethodPost, "/draw", PlotRequest{Args: []string{"--list", "la"}})

	w := f.do(http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `liveplot_draws_total{result="ok"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("parse: %w", argparse.ErrInvalidArgument), http.StatusBadRequest},
		{&extract.SourceError{Source: "la", Err: store.ErrNotFound}, http.StatusNotFound},
		{core.ErrUnknownTarget, http.StatusNotFound},
		{&extract.SourceError{Source: "la", Err: store.ErrWrongType}, http.StatusUnprocessableEntity},
		{extract.ErrNotImplemented, http.StatusNotImplemented},
		{core.ErrDispatcherStopped, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, statusFor(tc.err), tc.err.Error())
	}
}
