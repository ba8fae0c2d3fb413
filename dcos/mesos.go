package dcos

import (
	"context"
	"fmt"
	"time"

	"github.com/giantswarm/microerror"

	"github.com/mesosphere/sdk-e2etests/tasks"
)

var terminalStates = map[string]bool{
	"TASK_DROPPED":  true,
	"TASK_ERROR":    true,
	"TASK_FAILED":   true,
	"TASK_FINISHED": true,
	"TASK_GONE":     true,
	"TASK_KILLED":   true,
	"TASK_LOST":     true,
}

// IsTerminal reports whether a Mesos task in the given state will never run
// again.
func IsTerminal(state string) bool {
	return terminalStates[state]
}

type mesosState struct {
	Frameworks []mesosFramework `json:"frameworks"`
}

type mesosFramework struct {
	Name  string       `json:"name"`
	Tasks []tasks.Task `json:"tasks"`
}

type mesosTasks struct {
	Tasks []tasks.Task `json:"tasks"`
}

// Tasks returns the active tasks of the framework registered as service.
func (c *Client) Tasks(ctx context.Context, service string) ([]tasks.Task, error) {
	var state mesosState

	res, err := c.resty.R().
		SetContext(ctx).
		SetResult(&state).
		Get("/mesos/master/state")
	if err != nil {
		return nil, microerror.Mask(err)
	}
	err = checkResponse(res)
	if err != nil {
		return nil, microerror.Mask(err)
	}

	var l []tasks.Task
	for _, f := range state.Frameworks {
		if f.Name == service {
			l = append(l, f.Tasks...)
		}
	}

	return l, nil
}

// Task returns the task with the given id, including completed ones.
func (c *Client) Task(ctx context.Context, taskID string) (tasks.Task, error) {
	var l mesosTasks

	res, err := c.resty.R().
		SetContext(ctx).
		SetQueryParam("task_id", taskID).
		SetResult(&l).
		Get("/mesos/master/tasks")
	if err != nil {
		return tasks.Task{}, microerror.Mask(err)
	}
	err = checkResponse(res)
	if err != nil {
		return tasks.Task{}, microerror.Mask(err)
	}

	for _, t := range l.Tasks {
		if t.ID == taskID {
			return t, nil
		}
	}

	return tasks.Task{}, microerror.Maskf(notFoundError, "task %#q", taskID)
}

// WaitForTerminal waits up to timeout for the task to reach a terminal
// state. Expiry returns an error matched by spin.IsTimeout.
func (c *Client) WaitForTerminal(ctx context.Context, taskID string, timeout time.Duration) error {
	c.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("waiting for task %#q to terminate", taskID))

	probe := func(ctx context.Context) (interface{}, error) {
		t, err := c.Task(ctx, taskID)
		if err != nil {
			return nil, microerror.Mask(err)
		}

		return t, nil
	}

	predicate := func(state interface{}) (bool, string) {
		t := state.(tasks.Task)
		if !IsTerminal(t.State) {
			return false, fmt.Sprintf("task %#q is in state %#q", taskID, t.State)
		}

		return true, fmt.Sprintf("task %#q terminated with state %#q", taskID, t.State)
	}

	_, err := c.spinner.Spin(ctx, probe, predicate, timeout, c.interval)
	if err != nil {
		return microerror.Mask(err)
	}

	c.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("task %#q terminated", taskID))

	return nil
}
