package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	var c statusCell
	assert.Equal(t, statusClosed, c.load())

	assert.True(t, c.transition(statusClosed, statusActive))
	assert.Equal(t, statusActive, c.load())

	// guarded: wrong old state leaves the cell untouched
	assert.False(t, c.transition(statusClosed, statusComplete))
	assert.Equal(t, statusActive, c.load())

	assert.True(t, c.transition(statusActive, statusComplete))
	assert.True(t, c.transition(statusComplete, statusClosed))
}

func TestStatusCancellationPath(t *testing.T) {
	var c statusCell
	c.transition(statusClosed, statusActive)
	assert.True(t, c.transition(statusActive, statusCancelled))
	// worker settles the cancellation on its next wake
	assert.False(t, c.transition(statusActive, statusComplete))
	assert.True(t, c.transition(statusCancelled, statusClosed))
}

func TestStatusSet(t *testing.T) {
	var c statusCell
	c.transition(statusClosed, statusActive)
	c.set(statusClosed)
	assert.Equal(t, statusClosed, c.load())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "closed", statusClosed.String())
	assert.Equal(t, "active", statusActive.String())
	assert.Equal(t, "complete", statusComplete.String())
	assert.Equal(t, "cancelled", statusCancelled.String())
}
