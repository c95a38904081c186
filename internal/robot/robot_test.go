package robot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/OpenTrons/opentrons-sub006/internal/location"
	"github.com/OpenTrons/opentrons-sub006/internal/offsets"
	"github.com/OpenTrons/opentrons-sub006/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveRelative_SignedDistance(t *testing.T) {
	cmd := MoveRelative("p1", AxisX, 1*2, 10*time.Second)

	assert.Equal(t, TypeMoveRelative, cmd.CommandType)
	assert.Equal(t, 10*time.Second, cmd.Timeout)
	p, ok := cmd.Params.(MoveRelativeParams)
	require.True(t, ok)
	assert.Equal(t, MoveRelativeParams{PipetteID: "p1", Axis: AxisX, Distance: 2}, p)
	assert.NotEmpty(t, cmd.Key)
	assert.Equal(t, IntentSetup, cmd.Intent)
}

func TestParseAxis(t *testing.T) {
	a, err := ParseAxis("z")
	require.NoError(t, err)
	assert.Equal(t, AxisZ, a)

	_, err = ParseAxis("w")
	assert.Error(t, err)
}

func TestRetractAxis_MountToAxis(t *testing.T) {
	assert.Equal(t, RetractAxisParams{Axis: "leftZ"}, RetractAxis("left").Params)
	assert.Equal(t, RetractAxisParams{Axis: "rightZ"}, RetractAxis("right").Params)
}

type recorded struct {
	path  string
	query string
	body  map[string]any
}

func newServer(t *testing.T, status int, reply string) (*httptest.Server, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.path = r.URL.Path
		rec.query = r.URL.RawQuery
		_ = json.NewDecoder(r.Body).Decode(&rec.body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestHTTPClient_ExecuteSavePosition(t *testing.T) {
	srv, rec := newServer(t, http.StatusCreated, `{"data":{"id":"c1","commandType":"savePosition","status":"succeeded","result":{"position":{"x":1,"y":2,"z":3}}}}`)
	c := NewHTTPClient(srv.URL, "run-1", 5*time.Second)
	defer c.Close()

	res, err := c.Execute(context.Background(), SavePosition("p1"))
	require.NoError(t, err)

	assert.Equal(t, "/runs/run-1/commands", rec.path)
	assert.Contains(t, rec.query, "waitUntilComplete=true")
	data := rec.body["data"].(map[string]any)
	assert.Equal(t, "savePosition", data["commandType"])
	require.NotNil(t, res.Position)
	assert.Equal(t, vector.Vector3{X: 1, Y: 2, Z: 3}, *res.Position)
}

func TestHTTPClient_ExecuteReportsFailure(t *testing.T) {
	srv, _ := newServer(t, http.StatusCreated, `{"data":{"id":"c1","commandType":"home","status":"failed","error":{"errorType":"StallOrCollision","detail":"stalled"}}}`)
	c := NewHTTPClient(srv.URL, "run-1", 5*time.Second)
	defer c.Close()

	_, err := c.Execute(context.Background(), Home())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCommandFailed))

	var ce *CommandError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "StallOrCollision", ce.ErrorType)
}

func TestHTTPClient_ExecuteUnfinishedIsTimeout(t *testing.T) {
	for _, status := range []string{"running", "queued"} {
		t.Run(status, func(t *testing.T) {
			srv, _ := newServer(t, http.StatusCreated, `{"data":{"id":"c1","commandType":"moveRelative","status":"`+status+`"}}`)
			c := NewHTTPClient(srv.URL, "run-1", 5*time.Second)
			defer c.Close()

			res, err := c.Execute(context.Background(), MoveRelative("p1", AxisX, 0.1, time.Second))
			require.Error(t, err)
			assert.Equal(t, status, res.Status)
			assert.True(t, errors.Is(err, ErrCommandFailed))
			assert.True(t, errors.Is(err, context.DeadlineExceeded))
		})
	}
}

func TestHTTPClient_ExecuteHTTPError(t *testing.T) {
	srv, _ := newServer(t, http.StatusConflict, `{"errors":[{"detail":"run not idle"}]}`)
	c := NewHTTPClient(srv.URL, "run-1", 5*time.Second)
	defer c.Close()

	_, err := c.Execute(context.Background(), Home())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")
}

func TestHTTPClient_CreateOffset(t *testing.T) {
	srv, rec := newServer(t, http.StatusCreated, `{"data":{"id":"o1","definitionUri":"opentrons/plate/1","vector":{"x":0.5,"y":0,"z":0}}}`)
	c := NewHTTPClient(srv.URL, "run-1", 5*time.Second)
	defer c.Close()

	seq := location.Sequence{{Kind: location.OnAddressableArea, AddressableAreaName: "D1"}}
	out, err := c.CreateOffset(context.Background(), offsets.OffsetCreateData{
		DefinitionURI: "opentrons/plate/1",
		Sequence:      seq,
		Vector:        vector.Vector3{X: 0.5},
	})
	require.NoError(t, err)
	assert.Equal(t, "/runs/run-1/labware_offsets", rec.path)
	assert.Equal(t, "o1", out.ID)
}

func TestHTTPClient_StopRun(t *testing.T) {
	srv, rec := newServer(t, http.StatusCreated, `{"data":{"id":"a1","actionType":"stop"}}`)
	c := NewHTTPClient(srv.URL, "run-1", 5*time.Second)
	defer c.Close()

	require.NoError(t, c.StopRun(context.Background(), ""))
	assert.Equal(t, "/runs/run-1/actions", rec.path)
	assert.Equal(t, "stop", rec.body["data"].(map[string]any)["actionType"])
}
