package names

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_EmptyTableFallback(t *testing.T) {
	r := NewResolver(nil, LangZH, nil)
	assert.Equal(t, "Move", r.Resolve("Move_screen"))
	assert.Equal(t, "Build Supply Depot", r.Resolve("Build_Supply_Depot_screen"))
	assert.Equal(t, "Harvest Gather", r.Resolve("Harvest_Gather_unit"))
	assert.Equal(t, "no op", r.Resolve("no_op"))
}

func TestResolve_RepeatedSuffixes(t *testing.T) {
	r := NewResolver(nil, LangEN, nil)
	assert.Equal(t, "Effect Stim", r.Resolve("Effect_Stim_quick_autocast"))
}

func TestResolve_SuffixOnlyIdentifierKept(t *testing.T) {
	r := NewResolver(nil, LangEN, nil)
	assert.Equal(t, " quick", r.Resolve("_quick"))
}

func TestResolve_TableChain(t *testing.T) {
	table := Table{
		"Attack_screen": {ID: 12, EN: "Attack (screen)", ZH: "攻击屏幕"},
		"Move":          {ID: 331, EN: "Move", ZH: "移动"},
		"Select army":   {ID: 7, EN: "Select army", ZH: "选择军队"},
		"Stop":          {ID: 453, EN: "Stop"},
	}

	zh := NewResolver(table, LangZH, nil)
	assert.Equal(t, "攻击屏幕", zh.Resolve("Attack_screen"), "exact match")
	assert.Equal(t, "移动", zh.Resolve("Move_screen"), "stripped underscore key")
	assert.Equal(t, "选择军队", zh.Resolve("Select_army"), "stripped spaced key")
	assert.Equal(t, "Stop", zh.Resolve("Stop_quick"), "other language when empty")

	en := NewResolver(table, LangEN, nil)
	assert.Equal(t, "Move", en.Resolve("Move_minimap"))
	assert.Equal(t, "Attack (screen)", en.Resolve("Attack_screen"))
}

func TestResolve_UnknownLangDefaultsToZH(t *testing.T) {
	r := NewResolver(Table{"Move": {EN: "Move", ZH: "移动"}}, "fr", nil)
	assert.Equal(t, "移动", r.Resolve("Move"))
}

func TestResolve_NilResolver(t *testing.T) {
	var r *Resolver
	assert.Equal(t, "Move", r.Resolve("Move_screen"))
}

func TestResolver_SwapConcurrent(t *testing.T) {
	r := NewResolver(nil, LangEN, nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = r.Resolve("Move_screen")
			}
		}()
	}
	for j := 0; j < 50; j++ {
		r.Swap(Table{"Move": {EN: "Go"}})
	}
	wg.Wait()
	assert.Equal(t, "Go", r.Resolve("Move_screen"))
	assert.Equal(t, 1, r.Len())
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "names.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Move":{"id":331,"en":"Move","zh":"移动"}}`), 0o644))

	table, err := LoadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, Entry{ID: 331, EN: "Move", ZH: "移动"}, table["Move"])

	_, err = LoadJSON(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{nope`), 0o644))
	_, err = LoadJSON(path)
	assert.Error(t, err)
}

func TestParseJSON_Null(t *testing.T) {
	table, err := ParseJSON([]byte(`null`))
	require.NoError(t, err)
	assert.NotNil(t, table)
	assert.Empty(t, table)
}
