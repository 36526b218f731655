package schema

import (
	"testing"

	"ccmonitor/cli/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(fns []Function) []string {
	out := []string{}
	for _, f := range fns {
		out = append(out, f.Name)
	}
	return out
}

func TestClassify(t *testing.T) {
	api := []Function{
		{Name: "createAsset"},
		{Name: "readAsset"},
		{Name: "readAllAssets"},
		{Name: "deleteAsset"},
		{Name: "setLoggingLevel"},
		{Name: "init"},
		{Name: "readAssetSchemas"},
	}
	c := Classify(api, config.DefaultTabs)

	tests := []struct {
		tab      string
		want     []string
		selected int
	}{
		{tab: "CREATE", want: []string{"createAsset"}, selected: 0},
		{tab: "READ", want: []string{"readAsset", "readAllAssets", "readAssetSchemas"}, selected: 0},
		{tab: "DELETE", want: []string{"deleteAsset"}, selected: 0},
		{tab: "SET", want: []string{"setLoggingLevel"}, selected: 0},
		{tab: "UPDATE", want: []string{}, selected: -1},
		{tab: "EVENT", want: []string{}, selected: -1},
	}
	for _, tt := range tests {
		t.Run(tt.tab, func(t *testing.T) {
			tab, ok := c.Tab(tt.tab)
			require.True(t, ok)
			assert.Equal(t, tt.want, names(tab.Functions))
			assert.Equal(t, tt.selected, tab.Selected)
		})
	}
	assert.Len(t, c.API, len(api))
}

func TestClassifyMatchesEveryPrefixTab(t *testing.T) {
	c := Classify([]Function{{Name: "readState"}}, []string{"read", "READS", "re"})
	assert.Equal(t, []string{"readState"}, names(c.Tabs[0].Functions))
	assert.Equal(t, []string{}, names(c.Tabs[1].Functions))
	assert.Equal(t, []string{"readState"}, names(c.Tabs[2].Functions))
}

func TestClassifyDoesNotShareState(t *testing.T) {
	first := Classify([]Function{{Name: "readAsset"}}, config.DefaultTabs)
	second := Classify([]Function{{Name: "createAsset"}}, config.DefaultTabs)
	assert.Equal(t, "readAsset", first.FunctionFor("readAssetHistory"))
	assert.Equal(t, "", second.FunctionFor("readAssetHistory"))
}

func TestFunctionFor(t *testing.T) {
	c := Classify([]Function{{Name: "readAsset"}, {Name: "readAssetHistory"}, {Name: "create"}}, config.DefaultTabs)
	assert.Equal(t, "readAsset", c.FunctionFor("readAssetHistory"), "first declared match wins")
	assert.Equal(t, "create", c.FunctionFor("tab-create-form"))
	assert.Equal(t, "", c.FunctionFor("nothing"))

	fn, ok := c.Lookup("create")
	assert.True(t, ok)
	assert.Equal(t, "create", fn.Name)
	_, ok = c.Lookup("crea")
	assert.False(t, ok)
}

func TestClassifyEmpty(t *testing.T) {
	c := Classify(nil, config.DefaultTabs)
	assert.True(t, c.Empty())
	require.Len(t, c.Tabs, len(config.DefaultTabs))
	for _, tab := range c.Tabs {
		assert.Equal(t, -1, tab.Selected)
	}
}
