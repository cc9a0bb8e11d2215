package errors

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFastPathNoHooks(t *testing.T) {
	ClearErrorHooks()

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.False(t, ee.GetTimestamp().IsZero())
}

func TestBuilderFields(t *testing.T) {
	ClearErrorHooks()

	ee := Newf("save failed for %d entries", 3).
		Component("court").
		Category(CategoryState).
		Priority(PriorityHigh).
		Context("pending", 3).
		Timing("save", 1500*time.Millisecond).
		Build()

	assert.Equal(t, "save failed for 3 entries", ee.GetMessage())
	assert.Equal(t, "court", ee.GetComponent())
	assert.Equal(t, "state", ee.GetCategory())
	assert.Equal(t, PriorityHigh, ee.GetPriority())

	ctx := ee.GetContext()
	assert.Equal(t, 3, ctx["pending"])
	assert.Equal(t, "save", ctx["operation"])
	assert.Equal(t, int64(1500), ctx["duration_ms"])

	// the returned map is a copy
	ctx["pending"] = 99
	assert.Equal(t, 3, ee.GetContext()["pending"])
}

func TestInvalidPriorityFallsBackToMedium(t *testing.T) {
	ee := New(NewStd("x")).Priority("urgent").Build()
	assert.Equal(t, PriorityMedium, ee.GetPriority())

	ee = New(NewStd("x")).Priority("").Build()
	assert.Empty(t, ee.GetPriority())
}

func TestIsAndUnwrap(t *testing.T) {
	sentinel := NewStd("remote unreachable")
	wrapped := New(fmt.Errorf("posting batch: %w", sentinel)).
		Category(CategoryNetwork).
		Build()

	assert.True(t, Is(wrapped, sentinel))
	assert.True(t, Is(wrapped, &EnhancedError{Category: CategoryNetwork}))
	assert.False(t, Is(wrapped, &EnhancedError{Category: CategoryValidation}))
	assert.True(t, IsCategory(wrapped, CategoryNetwork))
	assert.Equal(t, CategoryNetwork, CategoryOf(fmt.Errorf("outer: %w", wrapped)))
	assert.Equal(t, CategoryGeneric, CategoryOf(sentinel))
}

func TestHelpers(t *testing.T) {
	v := ValidationError("name is required")
	assert.True(t, IsCategory(v, CategoryValidation))

	s := StateError("no case selected")
	assert.True(t, IsCategory(s, CategoryState))

	n := NetworkError(NewStd("dial tcp: refused"), "https://script.google.com/macros/s/x/exec", 30*time.Second)
	assert.True(t, IsCategory(n, CategoryNetwork))
	assert.Equal(t, "https-endpoint", n.GetContext()["url_category"])
	assert.InDelta(t, 30.0, n.GetContext()["timeout_seconds"], 0.001)

	nf := New(NewStd("submission 7")).Category(CategoryNotFound).Build()
	assert.True(t, IsNotFound(nf))
}

func TestHooksReceiveErrors(t *testing.T) {
	t.Cleanup(ClearErrorHooks)

	var seen []*EnhancedError
	AddErrorHook(func(ee *EnhancedError) { seen = append(seen, ee) })

	ee := New(NewStd("connection refused")).Build()

	require.Len(t, seen, 1)
	assert.Same(t, ee, seen[0])
	assert.Equal(t, CategoryNetwork, ee.Category, "category is detected from the message")
	assert.NotEmpty(t, ee.GetComponent())
}

func TestDetectCategory(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, CategoryGeneric},
		{"timeout", NewStd("context deadline exceeded"), CategoryTimeout},
		{"network", NewStd("dial tcp 10.0.0.1:443: connection refused"), CategoryNetwork},
		{"validation", NewStd("invalid submission type"), CategoryValidation},
		{"not found", NewStd("submission not found"), CategoryNotFound},
		{"categorized", New(NewStd("x")).Category(CategoryIntegration).Build(), CategoryIntegration},
		{"generic", NewStd("something odd"), CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectCategory(tt.err))
		})
	}
}

func TestLookupComponentPrefersLongestPattern(t *testing.T) {
	assert.Equal(t, "sheets", lookupComponent("github.com/tphakala/reckless-court/internal/remote/sheets.(*Client).Get"))
	assert.Equal(t, "remote", lookupComponent("github.com/tphakala/reckless-court/internal/remote.(*ScriptClient).Get"))
	assert.Equal(t, ComponentUnknown, lookupComponent("main.main"))
}
