package court

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		in      string
		want    Filter
		wantErr bool
	}{
		{"", FilterAll, false},
		{"all", FilterAll, false},
		{"pending", FilterPending, false},
		{"sentenced", FilterSentenced, false},
		{"free", FilterFree, false},
		{"write-down", Filter(TypeWriteDown), false},
		{"reckless", "", true},
		{"KEV-COIN", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFilter(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "KEV COIN", TypeLabel(TypeKevCoin))
	assert.Equal(t, "HATE COIN", TypeLabel(TypeHateCoin))
	assert.Equal(t, "COURT CASE", TypeLabel(TypeCourtCase))
	assert.Equal(t, "WRITE THIS DOWN", TypeLabel(TypeWriteDown))
	assert.Equal(t, "UNKNOWN", TypeLabel(""))

	assert.Equal(t, "SENTENCED", JudgmentLabel(JudgmentSentenced))
	assert.Equal(t, "PENDING", JudgmentLabel("nonsense"))
}

func TestEntryActions(t *testing.T) {
	assert.Equal(t, []string{ActionFree}, newEntryView(Submission{Judgment: JudgmentSentenced}, false).Actions)
	assert.Equal(t, []string{ActionSafe, ActionReckless}, newEntryView(Submission{Judgment: JudgmentSafe}, false).Actions)
	assert.Empty(t, newEntryView(Submission{Judgment: JudgmentFree}, false).Actions)
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		n, size, page                     int
		wantStart, wantEnd, wantPage, pgs int
	}{
		{0, 50, 1, 0, 0, 1, 1},
		{10, 4, 3, 8, 10, 3, 3},
		{10, 4, 9, 8, 10, 3, 3},
		{10, 0, 1, 0, 10, 1, 1},
	}
	for _, tt := range tests {
		start, end, page, pages := paginate(tt.n, tt.size, tt.page)
		assert.Equal(t, [4]int{tt.wantStart, tt.wantEnd, tt.wantPage, tt.pgs}, [4]int{start, end, page, pages})
	}
}
