package clickhouse

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	req := require.New(t)

	dsn := buildDSN(ClientConfig{
		Host: "ch", Port: 9000, Database: "astro", User: "default", Password: "p@ss",
		DialTimeout: 5 * time.Second, AsyncInsert: true,
	})
	u, err := url.Parse(dsn)
	req.NoError(err)
	req.Equal("clickhouse", u.Scheme)
	req.Equal("ch:9000", u.Host)
	req.Equal("/astro", u.Path)
	pw, _ := u.User.Password()
	req.Equal("p@ss", pw)
	req.Equal("5s", u.Query().Get("dial_timeout"))
	req.Equal("1", u.Query().Get("wait_for_async_insert"))

	u, err = url.Parse(buildDSN(ClientConfig{Host: "ch", Port: 8123, Database: "astro", UseHTTP: true}))
	req.NoError(err)
	req.Equal("http", u.Scheme)
	req.Empty(u.RawQuery)
}

func TestNewClient_RequiresHost(t *testing.T) {
	_, err := NewClient(context.Background())
	require.Error(t, err)
}

func TestOptions(t *testing.T) {
	req := require.New(t)
	cfg := defaultClientConfig()
	for _, opt := range []ClientOption{
		WithAddr("ch", 0),
		WithDatabase(""),
		WithMaxConnections(0, 2),
		WithTimeouts(time.Second, 0),
		WithCreateDatabase(true),
	} {
		opt(&cfg)
	}
	req.Equal("ch", cfg.Host)
	req.Equal(9000, cfg.Port)
	req.Equal("default", cfg.Database)
	req.Equal(10, cfg.MaxOpenConns)
	req.Equal(2, cfg.MaxIdleConns)
	req.Equal(time.Second, cfg.DialTimeout)
	req.Equal(30*time.Second, cfg.ReadTimeout)
	req.True(cfg.CreateDatabase)
}

func TestQuoteIdent(t *testing.T) {
	require.Equal(t, "`astro`", quoteIdent("astro"))
	require.Equal(t, "`a``b`", quoteIdent("a`b"))
}
