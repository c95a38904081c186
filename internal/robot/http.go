package robot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/OpenTrons/opentrons-sub006/internal/offsets"
	"github.com/OpenTrons/opentrons-sub006/internal/vector"
	"resty.dev/v3"
)

// HTTPClient talks to the robot server's run API.
type HTTPClient struct {
	rest  *resty.Client
	runID string
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client for one run on the robot at baseURL.
func NewHTTPClient(baseURL, runID string, timeout time.Duration) *HTTPClient {
	rest := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Opentrons-Version", "*")
	return &HTTPClient{rest: rest, runID: runID}
}

// Close releases the underlying transport.
func (c *HTTPClient) Close() error {
	return c.rest.Close()
}

type envelope[T any] struct {
	Data T `json:"data"`
}

type commandData struct {
	ID          string `json:"id"`
	CommandType string `json:"commandType"`
	Status      string `json:"status"`
	Result      struct {
		Position *vector.Vector3 `json:"position"`
	} `json:"result"`
	Error *struct {
		ErrorType string `json:"errorType"`
		Detail    string `json:"detail"`
	} `json:"error"`
}

// Execute posts the command and waits for it to complete. The context
// deadline, when present, is forwarded so the server stops waiting too.
func (c *HTTPClient) Execute(ctx context.Context, cmd Command) (CommandResult, error) {
	var out envelope[commandData]
	req := c.rest.R().
		SetContext(ctx).
		SetPathParam("runId", c.runID).
		SetQueryParam("waitUntilComplete", "true").
		SetBody(envelope[Command]{Data: cmd}).
		SetResult(&out)
	if deadline, ok := ctx.Deadline(); ok {
		req.SetQueryParam("timeout", strconv.FormatInt(time.Until(deadline).Milliseconds(), 10))
	}

	resp, err := req.Post("/runs/{runId}/commands")
	if err != nil {
		return CommandResult{}, fmt.Errorf("post %s: %w", cmd.CommandType, err)
	}
	if resp.IsError() {
		return CommandResult{}, fmt.Errorf("post %s: status %d: %s", cmd.CommandType, resp.StatusCode(), resp.String())
	}

	d := out.Data
	res := CommandResult{ID: d.ID, CommandType: d.CommandType, Status: d.Status, Position: d.Result.Position}
	if res.CommandType == "" {
		res.CommandType = cmd.CommandType
	}
	switch {
	case d.Status == StatusFailed || d.Error != nil:
		ce := &CommandError{CommandType: res.CommandType}
		if d.Error != nil {
			ce.ErrorType, ce.Detail = d.Error.ErrorType, d.Error.Detail
		}
		return res, ce
	case d.Status != StatusSucceeded:
		// The server gave up waiting and the command is still queued or
		// running. The robot may still be moving, so this is a timeout.
		return res, &CommandError{
			CommandType: res.CommandType,
			Detail:      fmt.Sprintf("still %q when the robot answered", d.Status),
			Err:         context.DeadlineExceeded,
		}
	}
	return res, nil
}

// CreateOffset adds an offset to the run.
func (c *HTTPClient) CreateOffset(ctx context.Context, data offsets.OffsetCreateData) (offsets.LabwareOffset, error) {
	var out envelope[offsets.LabwareOffset]
	resp, err := c.rest.R().
		SetContext(ctx).
		SetPathParam("runId", c.runID).
		SetBody(envelope[offsets.OffsetCreateData]{Data: data}).
		SetResult(&out).
		Post("/runs/{runId}/labware_offsets")
	if err != nil {
		return offsets.LabwareOffset{}, fmt.Errorf("create offset for %s: %w", data.DefinitionURI, err)
	}
	if resp.IsError() {
		return offsets.LabwareOffset{}, fmt.Errorf("create offset for %s: status %d: %s", data.DefinitionURI, resp.StatusCode(), resp.String())
	}
	return out.Data, nil
}

type runAction struct {
	ActionType string `json:"actionType"`
}

// StopRun posts a stop action to the run.
func (c *HTTPClient) StopRun(ctx context.Context, runID string) error {
	if runID == "" {
		runID = c.runID
	}
	resp, err := c.rest.R().
		SetContext(ctx).
		SetPathParam("runId", runID).
		SetBody(envelope[runAction]{Data: runAction{ActionType: "stop"}}).
		Post("/runs/{runId}/actions")
	if err != nil {
		return fmt.Errorf("stop run %s: %w", runID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("stop run %s: status %d: %s", runID, resp.StatusCode(), resp.String())
	}
	return nil
}
