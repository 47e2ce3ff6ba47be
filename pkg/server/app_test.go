package server

import (
	"context"
	"errors"
	"testing"

	"AstroAI/pkg/config"

	"github.com/stretchr/testify/require"
)

type recordingCloser struct {
	name  string
	order *[]string
	err   error
}

func (c recordingCloser) Close() error {
	*c.order = append(*c.order, c.name)
	return c.err
}

func TestShutdown_ClosesInReverseOrder(t *testing.T) {
	req := require.New(t)
	var order []string
	app := New(config.Default(), nil, nil, nil)
	app.AddCloser("cache", recordingCloser{name: "cache", order: &order})
	app.AddCloser("index", recordingCloser{name: "index", order: &order, err: errors.New("busy")})
	app.AddCloser("clickhouse", recordingCloser{name: "clickhouse", order: &order})
	app.AddCloser("nil", nil)

	req.NoError(app.Shutdown(context.Background()))
	req.Equal([]string{"clickhouse", "index", "cache"}, order)
}
