package dcos

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/giantswarm/microerror"
)

const (
	installRequestType    = "application/vnd.dcos.package.install-request+json;charset=utf-8;version=v1"
	installResponseType   = "application/vnd.dcos.package.install-response+json;charset=utf-8;version=v2"
	uninstallRequestType  = "application/vnd.dcos.package.uninstall-request+json;charset=utf-8;version=v1"
	uninstallResponseType = "application/vnd.dcos.package.uninstall-response+json;charset=utf-8;version=v1"
)

type installRequest struct {
	PackageName string                 `json:"packageName"`
	Options     map[string]interface{} `json:"options,omitempty"`
}

type uninstallRequest struct {
	PackageName string `json:"packageName"`
	AppID       string `json:"appId"`
}

// Install installs the package as service name. options are merged with
// {"service": {"name": name}} so every instance gets its own identity.
func (c *Client) Install(ctx context.Context, name string, options map[string]interface{}) error {
	c.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("installing package %#q as %#q", c.packageName, name))

	body := installRequest{
		PackageName: c.packageName,
		Options:     serviceOptions(name, options),
	}

	res, err := c.resty.R().
		SetContext(ctx).
		SetHeader("Content-Type", installRequestType).
		SetHeader("Accept", installResponseType).
		SetBody(body).
		Post("/package/install")
	if err != nil {
		return microerror.Mask(err)
	}
	err = checkResponse(res)
	if err != nil {
		return microerror.Mask(err)
	}

	c.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("installed package %#q as %#q", c.packageName, name))

	return nil
}

// Uninstall removes the service name. Uninstalling a service that is not
// installed is not an error.
func (c *Client) Uninstall(ctx context.Context, name string) error {
	c.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("uninstalling %#q", name))

	body := uninstallRequest{
		PackageName: c.packageName,
		AppID:       "/" + strings.TrimPrefix(name, "/"),
	}

	res, err := c.resty.R().
		SetContext(ctx).
		SetHeader("Content-Type", uninstallRequestType).
		SetHeader("Accept", uninstallResponseType).
		SetBody(body).
		Post("/package/uninstall")
	if err != nil {
		return microerror.Mask(err)
	}
	if res.StatusCode() == http.StatusNotFound {
		c.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("%#q is not installed", name))
		return nil
	}
	err = checkResponse(res)
	if err != nil {
		return microerror.Mask(err)
	}

	c.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("uninstalled %#q", name))

	return nil
}

func serviceOptions(name string, options map[string]interface{}) map[string]interface{} {
	merged := map[string]interface{}{}
	for k, v := range options {
		merged[k] = v
	}

	service := map[string]interface{}{}
	if s, ok := merged["service"].(map[string]interface{}); ok {
		for k, v := range s {
			service[k] = v
		}
	}
	service["name"] = name
	merged["service"] = service

	return merged
}
