package dcos

import (
	"fmt"
	"net/http"
	"time"

	"github.com/giantswarm/microerror"
	"github.com/giantswarm/micrologger"
	"github.com/go-resty/resty/v2"

	"github.com/mesosphere/sdk-e2etests/spin"
)

const (
	// DefaultInterval is the delay between two state lookups while waiting
	// for a task.
	DefaultInterval = 5 * time.Second
)

type Config struct {
	Logger  micrologger.Logger
	Spinner spin.Interface

	// HTTPClient is optional and defaults to http.DefaultClient.
	HTTPClient *http.Client
	// Interval defaults to DefaultInterval.
	Interval time.Duration
	// PackageName is the Cosmos package installed and uninstalled by the
	// client, e.g. "hello-world".
	PackageName string
	// Token is the DC/OS ACS token. It may be empty on clusters without
	// authentication.
	Token string
	// URL is the DC/OS cluster URL, e.g. "https://dcos.example.com".
	URL string
}

// Client talks to the DC/OS components exposed through admin router:
// Marathon, the Mesos master, Cosmos and Exhibitor.
type Client struct {
	logger  micrologger.Logger
	resty   *resty.Client
	spinner spin.Interface

	interval    time.Duration
	packageName string
}

func New(config Config) (*Client, error) {
	if config.Logger == nil {
		return nil, microerror.Maskf(invalidConfigError, "%T.Logger must not be empty", config)
	}
	if config.Spinner == nil {
		return nil, microerror.Maskf(invalidConfigError, "%T.Spinner must not be empty", config)
	}

	if config.PackageName == "" {
		return nil, microerror.Maskf(invalidConfigError, "%T.PackageName must not be empty", config)
	}
	if config.URL == "" {
		return nil, microerror.Maskf(invalidConfigError, "%T.URL must not be empty", config)
	}

	if config.Interval < 0 {
		return nil, microerror.Maskf(invalidConfigError, "%T.Interval must not be negative", config)
	}

	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}
	if config.Interval == 0 {
		config.Interval = DefaultInterval
	}

	r := resty.NewWithClient(config.HTTPClient)
	r.SetHostURL(config.URL)
	if config.Token != "" {
		r.SetHeader("Authorization", fmt.Sprintf("token=%s", config.Token))
	}

	c := &Client{
		logger:  config.Logger,
		resty:   r,
		spinner: config.Spinner,

		interval:    config.Interval,
		packageName: config.PackageName,
	}

	return c, nil
}

func checkResponse(res *resty.Response) error {
	if res.StatusCode() == http.StatusNotFound {
		return microerror.Maskf(notFoundError, "%s %s", res.Request.Method, res.Request.URL)
	}
	if res.IsError() {
		return microerror.Maskf(unexpectedStatusError, "%s %s returned %d: %s", res.Request.Method, res.Request.URL, res.StatusCode(), res.String())
	}

	return nil
}
