package services_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scantocookbook/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTransient, "fetch", "download", "webdav read failed", base)
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrTransient)
	assert.ErrorIs(t, err, base)
	for _, fragment := range []string{"fetch", "download", "webdav read failed", "boom"} {
		assert.Contains(t, err.Error(), fragment)
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	assert.ErrorIs(t, err, services.ErrTransient)
	assert.Contains(t, err.Error(), "service failure")
}

func TestFailureKind(t *testing.T) {
	cases := map[string]error{
		"validation":    services.Wrap(services.ErrValidation, "validate", "", "bad", nil),
		"model":         services.Wrap(services.ErrModel, "analyze", "", "", errors.New("500")),
		"configuration": services.ErrConfiguration,
		"not_found":     services.Wrap(services.ErrNotFound, "", "stat", "", nil),
		"transient":     services.Wrap(services.ErrTransient, "", "", "", nil),
		"unknown":       errors.New("other"),
		"":              nil,
	}
	for want, err := range cases {
		assert.Equal(t, want, services.FailureKind(err))
	}
}
