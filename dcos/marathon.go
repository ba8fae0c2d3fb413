package dcos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/giantswarm/backoff"
	"github.com/giantswarm/microerror"

	"github.com/mesosphere/sdk-e2etests/tasks"
)

type marathonApp struct {
	App struct {
		ID  string                 `json:"id"`
		Env map[string]interface{} `json:"env"`
	} `json:"app"`
}

type marathonTasks struct {
	Tasks []struct {
		AppID string `json:"appId"`
		ID    string `json:"id"`
		State string `json:"state"`
	} `json:"tasks"`
}

func appPath(appID string) string {
	return "/marathon/v2/apps/" + strings.TrimPrefix(appID, "/")
}

// AppEnv returns the string environment variables of the Marathon app.
// Secret references are skipped.
func (c *Client) AppEnv(ctx context.Context, appID string) (map[string]string, error) {
	var app marathonApp

	res, err := c.resty.R().
		SetContext(ctx).
		SetResult(&app).
		Get(appPath(appID))
	if err != nil {
		return nil, microerror.Mask(err)
	}
	err = checkResponse(res)
	if err != nil {
		return nil, microerror.Mask(err)
	}

	env := map[string]string{}
	for k, v := range app.App.Env {
		if s, ok := v.(string); ok {
			env[k] = s
		}
	}

	return env, nil
}

// UpdateEnv merges changes into the environment of the Marathon app and
// redeploys it. This is how the scheduler configuration is mutated.
func (c *Client) UpdateEnv(ctx context.Context, appID string, changes map[string]string) error {
	var app marathonApp

	{
		res, err := c.resty.R().
			SetContext(ctx).
			SetResult(&app).
			Get(appPath(appID))
		if err != nil {
			return microerror.Mask(err)
		}
		err = checkResponse(res)
		if err != nil {
			return microerror.Mask(err)
		}
	}

	env := app.App.Env
	if env == nil {
		env = map[string]interface{}{}
	}
	for k, v := range changes {
		env[k] = v
	}

	{
		c.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("updating env of app %#q", appID), "changes", fmt.Sprintf("%v", changes))

		res, err := c.resty.R().
			SetContext(ctx).
			SetQueryParam("force", "true").
			SetBody(map[string]interface{}{"env": env}).
			Put(appPath(appID))
		if err != nil {
			return microerror.Mask(err)
		}
		err = checkResponse(res)
		if err != nil {
			return microerror.Mask(err)
		}

		c.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("updated env of app %#q", appID))
	}

	return nil
}

// AppTasks returns the tasks Marathon runs for the app, i.e. the scheduler
// tasks of a framework.
func (c *Client) AppTasks(ctx context.Context, appID string) ([]tasks.Task, error) {
	var l marathonTasks

	res, err := c.resty.R().
		SetContext(ctx).
		SetResult(&l).
		Get(appPath(appID) + "/tasks")
	if err != nil {
		return nil, microerror.Mask(err)
	}
	err = checkResponse(res)
	if err != nil {
		return nil, microerror.Mask(err)
	}

	var result []tasks.Task
	for _, t := range l.Tasks {
		result = append(result, tasks.Task{ID: t.ID, Name: t.AppID, State: t.State})
	}

	return result, nil
}

// WaitForAPI waits for Marathon to answer its ping endpoint.
func (c *Client) WaitForAPI(ctx context.Context) error {
	c.logger.LogCtx(ctx, "level", "debug", "message", "waiting for marathon api to be up")

	o := func() error {
		res, err := c.resty.R().SetContext(ctx).Get("/marathon/ping")
		if err != nil {
			return microerror.Mask(err)
		}
		if res.IsError() {
			return microerror.Maskf(waitError, "marathon ping returned %d", res.StatusCode())
		}

		return nil
	}

	b := backoff.NewConstant(backoff.ShortMaxWait, backoff.ShortMaxInterval)
	n := func(err error, delay time.Duration) {
		c.logger.LogCtx(ctx, "level", "debug", "message", err.Error())
	}

	err := backoff.RetryNotify(o, b, n)
	if err != nil {
		return microerror.Mask(err)
	}

	c.logger.LogCtx(ctx, "level", "debug", "message", "marathon api is up")

	return nil
}
