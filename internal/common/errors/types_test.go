package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorFormatting(t *testing.T) {
	err := ConfigError("route weights must sum to 100")
	assert.Equal(t, "config: route weights must sum to 100", err.Error())

	cause := errors.New("yaml: line 3")
	withCause := ConfigError("parsing snapshot yaml").WithCause(cause)
	assert.Contains(t, withCause.Error(), "cause=yaml: line 3")
	assert.ErrorIs(t, withCause, cause)

	withContext := ValidationError("bad input").WithContext("field", "source_ip")
	assert.Contains(t, withContext.Error(), "field=source_ip")
}

func TestIsType(t *testing.T) {
	assert.True(t, IsType(ConfigError("x"), ErrTypeConfig))
	assert.True(t, IsType(NoRouteError("x"), ErrTypeNoRoute))
	assert.True(t, IsType(OverrideParseError("x", nil), ErrTypeOverrideParse))
	assert.True(t, IsType(AuthError("x"), ErrTypeAuth))
	assert.True(t, IsType(InternalError("x", nil), ErrTypeInternal))

	assert.False(t, IsType(ConfigError("x"), ErrTypeNoRoute))
	assert.False(t, IsType(errors.New("plain"), ErrTypeConfig))
	assert.False(t, IsType(nil, ErrTypeConfig))
}
