package dcos

import (
	"context"
	"encoding/hex"
	"strings"

	"github.com/giantswarm/microerror"
)

type nodeData struct {
	Bytes string `json:"bytes"`
	Stat  string `json:"stat"`
	Str   string `json:"str"`
}

// ReadNode returns the data of the ZooKeeper node at path as served by
// Exhibitor.
func (c *Client) ReadNode(ctx context.Context, path string) ([]byte, error) {
	var data nodeData

	res, err := c.resty.R().
		SetContext(ctx).
		SetQueryParam("key", "/"+strings.TrimPrefix(path, "/")).
		SetResult(&data).
		Get("/exhibitor/exhibitor/v1/explorer/node-data")
	if err != nil {
		return nil, microerror.Mask(err)
	}
	err = checkResponse(res)
	if err != nil {
		return nil, microerror.Mask(err)
	}

	if data.Bytes == "" && strings.Contains(data.Stat, "not found") {
		return nil, microerror.Maskf(notFoundError, "znode %#q", path)
	}

	b, err := decodeNodeBytes(data.Bytes)
	if err != nil {
		return nil, microerror.Mask(err)
	}

	return b, nil
}

// decodeNodeBytes decodes Exhibitor's space separated hex encoding, e.g.
// "7b 22 6e 22 7d".
func decodeNodeBytes(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.Join(strings.Fields(s), ""))
	if err != nil {
		return nil, microerror.Mask(err)
	}

	return b, nil
}
