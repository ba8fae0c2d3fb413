// Package env loads the settings of a test run from the environment.
package env

import (
	"strings"
	"time"

	"github.com/giantswarm/microerror"
	"github.com/spf13/viper"
)

const (
	KeyArtifactDir = "artifact_dir"
	KeyDCOSURL     = "dcos_url"
	KeyInterval    = "interval"
	KeyPackageName = "package_name"
	KeyTimeout     = "timeout"
	KeyToken       = "dcos_acs_token"
	KeyZKServers   = "zk_servers"
)

const (
	DefaultInterval    = 5 * time.Second
	DefaultPackageName = "hello-world"
	DefaultTimeout     = 15 * time.Minute
)

type Config struct {
	ArtifactDir string
	DCOSURL     string
	PackageName string
	Token       string
	// ZKServers is empty unless ZooKeeper should be read directly instead
	// of through Exhibitor.
	ZKServers []string

	Interval time.Duration
	Timeout  time.Duration
}

// New returns a viper instance reading the keys of this package from
// upper cased environment variables, e.g. DCOS_URL.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyInterval, DefaultInterval)
	v.SetDefault(KeyPackageName, DefaultPackageName)
	v.SetDefault(KeyTimeout, DefaultTimeout)

	for _, k := range []string{KeyArtifactDir, KeyDCOSURL, KeyToken, KeyZKServers} {
		_ = v.BindEnv(k)
	}
	v.AutomaticEnv()

	return v
}

func Load(v *viper.Viper) (Config, error) {
	c := Config{
		ArtifactDir: v.GetString(KeyArtifactDir),
		DCOSURL:     strings.TrimSuffix(v.GetString(KeyDCOSURL), "/"),
		PackageName: v.GetString(KeyPackageName),
		Token:       v.GetString(KeyToken),

		Interval: v.GetDuration(KeyInterval),
		Timeout:  v.GetDuration(KeyTimeout),
	}

	for _, s := range strings.Split(v.GetString(KeyZKServers), ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			c.ZKServers = append(c.ZKServers, s)
		}
	}

	if c.DCOSURL == "" {
		return Config{}, microerror.Maskf(invalidConfigError, "%s must not be empty", strings.ToUpper(KeyDCOSURL))
	}
	if c.PackageName == "" {
		return Config{}, microerror.Maskf(invalidConfigError, "%s must not be empty", strings.ToUpper(KeyPackageName))
	}
	if c.Timeout <= 0 {
		return Config{}, microerror.Maskf(invalidConfigError, "%s must be positive", strings.ToUpper(KeyTimeout))
	}
	if c.Interval < 0 {
		return Config{}, microerror.Maskf(invalidConfigError, "%s must not be negative", strings.ToUpper(KeyInterval))
	}

	return c, nil
}
