package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextFallbacks(t *testing.T) {
	t.Parallel()

	var nilCtx *Context
	assert.Equal(t, "unknown", nilCtx.GetVersion(""))
	assert.Equal(t, "unknown", nilCtx.GetBuildDate())

	empty := &Context{}
	assert.Equal(t, "1.0.0", empty.GetVersion("1.0.0"))
	assert.Equal(t, "unknown (built unknown)", empty.String())

	linked := &Context{Version: "v1.2.0", BuildDate: "2024-03-01"}
	assert.Equal(t, "v1.2.0", linked.GetVersion("1.0.0"))
	assert.Equal(t, "v1.2.0 (built 2024-03-01)", linked.String())
}
