//go:build unit

package disposal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResultConstructors(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Result{Status: StatusSuccess}, Success())
	assert.Equal(t, Result{Status: StatusFailed, Message: "boom"}, Failed("boom"))
	assert.Equal(t, Result{Status: StatusDeferred, Message: "later"}, Deferred("later"))
}

func TestResultSucceeded(t *testing.T) {
	t.Parallel()

	assert.True(t, Success().Succeeded())
	assert.False(t, Failed("boom").Succeeded())
	assert.False(t, Deferred("later").Succeeded())
}
