// Package zkstate reads persisted scheduler state directly from ZooKeeper.
// It is an alternative to reading through Exhibitor for test runs inside
// the cluster network.
package zkstate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/giantswarm/microerror"
	"github.com/giantswarm/micrologger"
	"github.com/samuel/go-zookeeper/zk"
)

const (
	DefaultSessionTimeout = 10 * time.Second
)

type Config struct {
	Logger micrologger.Logger

	// Servers are the ZooKeeper host:port pairs, e.g. "master.mesos:2181".
	Servers []string
	// SessionTimeout defaults to DefaultSessionTimeout.
	SessionTimeout time.Duration
}

type getter interface {
	Get(path string) ([]byte, *zk.Stat, error)
}

type Reader struct {
	conn   *zk.Conn
	getter getter
	logger micrologger.Logger
}

func New(config Config) (*Reader, error) {
	if config.Logger == nil {
		return nil, microerror.Maskf(invalidConfigError, "%T.Logger must not be empty", config)
	}
	if len(config.Servers) == 0 {
		return nil, microerror.Maskf(invalidConfigError, "%T.Servers must not be empty", config)
	}
	if config.SessionTimeout == 0 {
		config.SessionTimeout = DefaultSessionTimeout
	}

	conn, events, err := zk.Connect(config.Servers, config.SessionTimeout, zk.WithLogger(&logger{logger: config.Logger}))
	if err != nil {
		return nil, microerror.Mask(err)
	}

	go func() {
		for e := range events {
			config.Logger.Log("level", "debug", "message", fmt.Sprintf("zookeeper session %s", e.State.String()))
		}
	}()

	r := &Reader{
		conn:   conn,
		getter: conn,
		logger: config.Logger,
	}

	return r, nil
}

// ReadNode returns the data stored at the znode path. A missing leading
// slash is added.
func (r *Reader) ReadNode(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, microerror.Mask(err)
	}

	p := "/" + strings.TrimPrefix(path, "/")

	b, _, err := r.getter.Get(p)
	if err == zk.ErrNoNode {
		return nil, microerror.Maskf(notFoundError, "znode %#q", p)
	} else if err != nil {
		return nil, microerror.Mask(err)
	}

	r.logger.LogCtx(ctx, "level", "debug", "message", fmt.Sprintf("read %d bytes from znode %#q", len(b), p))

	return b, nil
}

func (r *Reader) Close() {
	if r.conn != nil {
		r.conn.Close()
	}
}

// logger adapts micrologger to the zk.Logger interface.
type logger struct {
	logger micrologger.Logger
}

func (l *logger) Printf(format string, args ...interface{}) {
	l.logger.Log("level", "debug", "message", fmt.Sprintf(format, args...))
}
