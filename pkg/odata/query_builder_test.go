package odata

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQuery_Defaults(t *testing.T) {
	fields := testFieldMap()

	plan, err := BuildQuery(QueryInput{Table: "VW_MLS_COMMON", Fields: fields, Query: RawQuery{}})
	require.NoError(t, err)

	assert.Equal(t, 100, plan.Top)
	assert.Equal(t, 0, plan.Skip)
	assert.Empty(t, plan.CountSQL)
	assert.Empty(t, plan.Params)

	// Sem $orderby do cliente, a primeira coluna do field map mantém a
	// paginação determinística
	assert.Contains(t, plan.DataSQL, "ORDER BY MLSNUMBER ASC")
	assert.Contains(t, plan.DataSQL, "OFFSET 0 ROWS FETCH NEXT 100 ROWS ONLY")
	assert.Contains(t, plan.DataSQL, "FROM VW_MLS_COMMON")
	assert.NotContains(t, plan.DataSQL, "WHERE")
}

func TestBuildQuery_TopSkipClamps(t *testing.T) {
	tests := []struct {
		name         string
		top, skip    string
		expectedTop  int
		expectedSkip int
	}{
		{"defaults", "", "", 100, 0},
		{"explicit", "50", "10", 50, 10},
		{"top above max", "5000", "0", 1000, 0},
		{"top zero", "0", "0", 100, 0},
		{"top negative", "-5", "0", 1, 0},
		{"skip negative", "10", "-3", 10, 0},
		{"garbage", "abc", "xyz", 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := BuildQuery(QueryInput{
				Table:  "VW_MLS_COMMON",
				Fields: testFieldMap(),
				Query:  RawQuery{"$top": tt.top, "$skip": tt.skip},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expectedTop, plan.Top)
			assert.Equal(t, tt.expectedSkip, plan.Skip)
		})
	}
}

func TestBuildQuery_FilterParameterized(t *testing.T) {
	plan, err := BuildQuery(QueryInput{
		Table:  "VW_MLS_COMMON",
		Fields: testFieldMap(),
		Query:  RawQuery{"$filter": "City eq 'Los Angeles'"},
	})
	require.NoError(t, err)

	assert.Contains(t, plan.DataSQL, "WHERE CITY = @filter0")
	assert.Equal(t, "Los Angeles", plan.Params["filter0"])
}

func TestBuildQuery_SelectRestrictsColumns(t *testing.T) {
	plan, err := BuildQuery(QueryInput{
		Table:  "VW_MLS_COMMON",
		Fields: testFieldMap(),
		Query:  RawQuery{"$select": "ListingKey,City"},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(plan.DataSQL, "SELECT MLSNUMBER, CITY FROM"))
	assert.NotContains(t, plan.DataSQL, "IDCLISTPRICE")
}

func TestBuildQuery_CountSharesWhereAndParams(t *testing.T) {
	plan, err := BuildQuery(QueryInput{
		Table:  "VW_MLS_COMMON",
		Fields: testFieldMap(),
		Query:  RawQuery{"$filter": "ListPrice gt 500000", "$count": "true"},
	})
	require.NoError(t, err)

	assert.Equal(t, "SELECT COUNT(*) AS total FROM VW_MLS_COMMON WHERE IDCLISTPRICE > @filter0", plan.CountSQL)
	assert.Contains(t, plan.DataSQL, "WHERE IDCLISTPRICE > @filter0")
	assert.Equal(t, int64(500000), plan.Params["filter0"])

	// A contagem não pagina
	assert.NotContains(t, plan.CountSQL, "OFFSET")
	assert.NotContains(t, plan.CountSQL, "ORDER BY")
}

func TestBuildQuery_CountOnlyWhenRequested(t *testing.T) {
	plan, err := BuildQuery(QueryInput{
		Table:  "VW_MLS_COMMON",
		Fields: testFieldMap(),
		Query:  RawQuery{"$count": "false"},
	})
	require.NoError(t, err)
	assert.Empty(t, plan.CountSQL)
}

func TestBuildQuery_KeyValueWinsOverFilter(t *testing.T) {
	plan, err := BuildQuery(QueryInput{
		Table:    "VW_MLS_COMMON",
		Fields:   testFieldMap(),
		Query:    RawQuery{"$filter": "City eq 'LA'"},
		KeyField: "ListingKey",
		KeyValue: "MLS-2024-00001",
	})
	require.NoError(t, err)

	assert.Contains(t, plan.DataSQL, "WHERE MLSNUMBER = @keyValue")
	assert.NotContains(t, plan.DataSQL, "CITY")
	assert.Equal(t, "MLS-2024-00001", plan.Params["keyValue"])
	assert.NotContains(t, plan.Params, "filter0")
}

func TestBuildQuery_BaseWhereComposed(t *testing.T) {
	plan, err := BuildQuery(QueryInput{
		Table:     "VW_MLS_COMMON",
		Fields:    testFieldMap(),
		Query:     RawQuery{"$filter": "City eq 'LA'"},
		BaseWhere: &SQLFragment{SQL: "IDCSTATUS = @activeStatus", Params: map[string]interface{}{"activeStatus": "Active"}},
	})
	require.NoError(t, err)

	assert.Contains(t, plan.DataSQL, "WHERE IDCSTATUS = @activeStatus AND CITY = @filter0")
	assert.Equal(t, "Active", plan.Params["activeStatus"])
	assert.Equal(t, "LA", plan.Params["filter0"])
}

func TestBuildQuery_OrderByFromClient(t *testing.T) {
	plan, err := BuildQuery(QueryInput{
		Table:  "VW_MLS_COMMON",
		Fields: testFieldMap(),
		Query:  RawQuery{"$orderby": "ListPrice desc"},
	})
	require.NoError(t, err)
	assert.Contains(t, plan.DataSQL, "ORDER BY IDCLISTPRICE DESC")
}

func TestBuildQuery_ParseErrorsPropagate(t *testing.T) {
	tests := []struct {
		name     string
		query    RawQuery
		expected string
	}{
		{"bad filter field", RawQuery{"$filter": "Bogus eq 1"}, "Unknown field"},
		{"bad select", RawQuery{"$select": "Bogus"}, "Invalid field in $select"},
		{"bad orderby", RawQuery{"$orderby": "Bogus"}, "Invalid field in $orderby"},
		{"bad filter char", RawQuery{"$filter": "City = 'x'"}, "Unexpected character in filter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildQuery(QueryInput{Table: "T", Fields: testFieldMap(), Query: tt.query})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expected)
		})
	}
}

func TestBuildQuery_NextLink(t *testing.T) {
	plan, err := BuildQuery(QueryInput{
		Table:   "VW_MLS_COMMON",
		Fields:  testFieldMap(),
		Query:   RawQuery{"$top": "10", "$count": "true", "$filter": "City eq 'LA'"},
		BaseURL: "http://localhost:8080/odata/Property",
	})
	require.NoError(t, err)
	require.NotNil(t, plan.NextLink)

	link := plan.NextLink(25)
	assert.Contains(t, link, "http://localhost:8080/odata/Property?")
	assert.Contains(t, link, "%24skip=10")
	assert.Contains(t, link, "%24top=10")
	assert.Contains(t, link, "%24count=true")
	assert.Contains(t, link, "%24filter=")

	// Última página: sem next link
	assert.Empty(t, plan.NextLink(10))
	assert.Empty(t, plan.NextLink(5))
}

func TestBuildQuery_NextLinkNilWithoutBaseURL(t *testing.T) {
	plan, err := BuildQuery(QueryInput{
		Table:  "VW_MLS_COMMON",
		Fields: testFieldMap(),
		Query:  RawQuery{"$count": "true"},
	})
	require.NoError(t, err)
	assert.Nil(t, plan.NextLink)
}
