//go:build !opencv

package opencv

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/saturnino-fabrica-de-software/chamada/internal/provider"
)

func TestNewDetector_Unavailable(t *testing.T) {
	_, err := NewDetector("")
	assert.ErrorIs(t, err, provider.ErrUnavailable)
}
