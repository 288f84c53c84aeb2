package skew

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidates(t *testing.T) {
	f := newFrame(t,
		"a", logWinner,
		"mild", []float64{1, 2, 3, 4, 5, 6, 9},
		"flat", []float64{4, 4, 4, 4, 4, 4, 4},
		"b", sqrtWinner,
		"m", boxCoxWinner,
	)
	require.NoError(t, f.AddText("grade", []string{"A", "B", "C", "A", "B", "C", "A"}, nil))

	plan, err := Partition(f, map[string]string{"m": "log"}, false)
	require.NoError(t, err)

	table := SkewTable{
		{Column: "b", Skew: -2.65},
		{Column: "flat", Skew: 3}, // stale entry for a constant column
		{Column: "mild", Skew: 0.73},
		{Column: "a", Skew: 2.64},
		{Column: "a", Skew: 2.64}, // duplicate
		{Column: "m", Skew: 2.64},
	}

	tests := []struct {
		name      string
		threshold float64
		want      []string
	}{
		{"default threshold", 1, []string{"b", "a"}},
		{"zero threshold", 0, []string{"b", "mild", "a"}},
		{"threshold above every skew", 5, nil},
		{"boundary is inclusive", 2.65, []string{"b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Candidates(f, table, plan, tt.threshold))
		})
	}
}

func TestSelect_WritesWinnersAndGroups(t *testing.T) {
	f := newFrame(t,
		"c", cubeWinner,
		"b", sqrtWinner,
		"a", logWinner,
	)
	plan, err := Partition(f, nil, false)
	require.NoError(t, err)

	sel, err := Select(f, ComputeSkewTable(f), plan, DefaultThreshold, SearchOrder)
	require.NoError(t, err)

	assert.Equal(t, map[string]Transform{"a": Log, "b": Sqrt, "c": Cube}, sel.Chosen)
	require.Len(t, sel.Results, 3)
	assert.Equal(t, "a", sel.Results[0].Column)
	assert.Equal(t, "b", sel.Results[1].Column)
	assert.Equal(t, "c", sel.Results[2].Column)

	got, _ := f.Numeric("b")
	assert.Equal(t, ApplyScalar(sqrtWinner, SqrtValue), got)
	for _, res := range sel.Results {
		assert.Equal(t, ModeAutomatic, res.Mode)
		assert.Nil(t, res.Lambda)
	}
}

func TestSelect_CandidateMatrix(t *testing.T) {
	f := newFrame(t, "d", boxCoxWinner)
	plan, err := Partition(f, nil, false)
	require.NoError(t, err)

	sel, err := Select(f, ComputeSkewTable(f), plan, DefaultThreshold, SearchOrder)
	require.NoError(t, err)

	res := sel.Results[0]
	assert.Equal(t, BoxCox, res.Transform)
	require.NotNil(t, res.Lambda)
	assert.Less(t, *res.Lambda, 0.0)

	var order []Transform
	for _, c := range res.Candidates {
		order = append(order, c.Transform)
	}
	assert.Equal(t, SearchOrder, order)
	assert.InDelta(t, 1.8426, res.Candidates[0].Skew, 1e-3)
	assert.InDelta(t, 2.5143, res.Candidates[3].Skew, 1e-3)
}

func TestSelect_AllowedSubset(t *testing.T) {
	f := newFrame(t, "d", boxCoxWinner)
	plan, err := Partition(f, nil, false)
	require.NoError(t, err)

	sel, err := Select(f, ComputeSkewTable(f), plan, DefaultThreshold, []Transform{Sqrt, Cube})
	require.NoError(t, err)

	res := sel.Results[0]
	assert.Len(t, res.Candidates, 2)
	assert.Equal(t, Cube, res.Transform)
}

func TestPartition(t *testing.T) {
	f := newFrame(t, "a", logWinner, "b", sqrtWinner, "c", cubeWinner)

	plan, err := Partition(f, map[string]string{"c": "SQRT", "a": "mystery"}, false)
	require.NoError(t, err)

	manual := plan.Manual()
	require.Len(t, manual, 2)
	assert.Equal(t, "a", manual[0].Column)
	assert.Equal(t, Cube, manual[0].Policy.Transform)
	assert.True(t, manual[0].Policy.Fallback)
	assert.Equal(t, "c", manual[1].Column)
	assert.Equal(t, Sqrt, manual[1].Policy.Transform)
	assert.False(t, manual[1].Policy.Fallback)

	assert.Equal(t, ModeAutomatic, plan.Policy("b").Mode)
	assert.Equal(t, ModeAutomatic, plan.Policy("unknown").Mode)
}
