package logger_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/focusforge/pkg/logger"
)

func TestGroup(t *testing.T) {
	attr := logger.Group("req", slog.String("id", "1"), slog.Int("n", 2))
	require.Equal(t, "req", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, "id", g[0].Key)
	assert.Equal(t, "n", g[1].Key)
}

func TestErrors(t *testing.T) {
	attr := logger.Errors(errors.New("first"), nil, errors.New("second"))
	require.Equal(t, "errors", attr.Key)
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, "0", g[0].Key)
	assert.Equal(t, "2", g[1].Key)

	assert.Equal(t, slog.Attr{}, logger.Errors(nil, nil))
}

func TestError(t *testing.T) {
	assert.Equal(t, slog.Attr{}, logger.Error(nil))
	attr := logger.Error(errors.New("boom"))
	assert.Equal(t, "error", attr.Key)
}

func TestSessionAttrs(t *testing.T) {
	assert.Equal(t, slog.Attr{}, logger.UserID(""))
	assert.Equal(t, "u-1", logger.UserID("u-1").Value.String())
	assert.Equal(t, "authenticated", logger.State("authenticated").Value.String())
	assert.Equal(t, "logged_out", logger.Reason("logged_out").Value.String())
	assert.Equal(t, uint64(7), logger.Generation(7).Value.Uint64())

	tr := logger.Transition("initializing", "authenticated").Value.Group()
	require.Len(t, tr, 2)
	assert.Equal(t, "initializing", tr[0].Value.String())
	assert.Equal(t, "authenticated", tr[1].Value.String())
}
