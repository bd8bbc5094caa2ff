package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfoString(t *testing.T) {
	assert.Equal(t, "v1.0.0", Info{Version: "v1.0.0"}.String())
	assert.Equal(t, "v1.0.0 (0123456)", Info{Version: "v1.0.0", Commit: "0123456789abcdef"}.String())
}

func TestGet(t *testing.T) {
	info := Get()
	assert.Equal(t, Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Equal(t, "build", info.LogAttr().Key)
}
