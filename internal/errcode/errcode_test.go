package errcode

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOf(t *testing.T) {
	assert.Equal(t, OK, Of(nil))
	assert.Equal(t, Busy, Of(Busy))
	assert.Equal(t, NotFound, Of(New(NotFound, "resolve", "led 99")))
	assert.Equal(t, InvalidParams, Of(fmt.Errorf("parse: %w", New(InvalidParams, "period", "-5"))))
	assert.Equal(t, Error, Of(errors.New("boom")))
}

func TestIsMatchesWrappedCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(NotFound, "strip", "no strip named top"))
	assert.True(t, errors.Is(err, NotFound))
	assert.False(t, errors.Is(err, InvalidParams))
}

func TestErrorString(t *testing.T) {
	e := Wrap(InvalidParams, "colour", errors.New("bad hex"))
	assert.Equal(t, "colour: invalid_params: bad hex", e.Error())
	assert.Equal(t, "not_found: x", (&E{C: NotFound, Msg: "x"}).Error())
}
