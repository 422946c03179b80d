package sqlgen

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/filterlang/filterlang/internal/schema"
)

// assertGoldenCompile compiles the query and compares the statement
// plus its optimization audit trail against a golden file.
func assertGoldenCompile(t *testing.T, name, query string) {
	t.Helper()

	result, err := New(schema.DefaultRegistry()).CompileText(query)
	require.NoError(t, err)

	var b bytes.Buffer
	b.WriteString(result.SQL)
	b.WriteByte('\n')
	for _, opt := range result.Optimizations {
		b.WriteString(opt.String())
		b.WriteByte('\n')
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, b.Bytes())
}

func TestGolden_BasicFilter(t *testing.T) {
	assertGoldenCompile(t, "basic_filter", `Filter: status["Open"]; priority[>2]`)
}

func TestGolden_CrossFilter(t *testing.T) {
	assertGoldenCompile(t, "cross_filter",
		`Filter: status["Open"]; priority[>2] CrossFilter: <Test-Run> status["PASS"]`)
}

func TestGolden_OrFolding(t *testing.T) {
	assertGoldenCompile(t, "or_folding",
		`Filter: status["Open" OR "Pending" OR "Review" OR "Approved" OR "Testing"]`)
}

func TestGolden_SpecialValues(t *testing.T) {
	assertGoldenCompile(t, "special_values",
		`Filter: created[>today]; updated[<=yesterday]; assignee[current_user]`)
}

func TestGolden_MixedConditions(t *testing.T) {
	assertGoldenCompile(t, "mixed_conditions",
		`Filter: status[NOT IN ("Closed", "Done")]; owner[IS NOT NULL]; due date[<2024-06-30]`)
}
