package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	s := String()
	assert.Contains(t, s, AppName)
	assert.Contains(t, s, "v"+Version)
	assert.Contains(t, s, GitCommit)
}
