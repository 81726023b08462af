package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sechecker/sechecker/internal/engine"
	"github.com/sechecker/sechecker/internal/policy"
	"github.com/sechecker/sechecker/internal/types"
)

func evidenceModule(name string, sevs ...types.Severity) *engine.Module {
	return &engine.Module{
		Name:        name,
		Description: "Finds " + name + " things.",
		Callbacks: engine.Callbacks{
			Init: func(_ engine.Env, m *engine.Module) error {
				res, err := types.NewResult(m.Name, types.KindType)
				m.Data = res
				return err
			},
			Run: func(_ engine.Env, m *engine.Module) error {
				res := m.Data.(*types.Result)
				it := types.NewItem("httpd_t")
				for i, s := range sevs {
					p, err := types.NewProof(i, types.KindType, fmt.Sprintf("proof %d is %s", i, s), s)
					if err != nil {
						return err
					}
					it.AddProof(p.WithMarkup(fmt.Sprintf("<proof idx=%d/>", i)))
				}
				ok := types.NewItem("passing_t")
				ok.Passed = true
				if err := res.AddItem(ok); err != nil {
					return err
				}
				return res.AddItem(it)
			},
			Result: func(m *engine.Module) *types.Result { return m.Data.(*types.Result) },
		},
	}
}

func newLibrary(t *testing.T, typ string, mods ...*engine.Module) *engine.Library {
	t.Helper()
	yes := true
	p, err := policy.FromFacts(policy.Facts{Version: 21, Type: typ, SELinuxEnabled: &yes, MLSSystem: new(bool)}, nil)
	require.NoError(t, err)
	lib, err := engine.New(p)
	require.NoError(t, err)
	for _, m := range mods {
		_, err := lib.Register(m)
		require.NoError(t, err)
	}
	lib.SelectAll()
	require.NoError(t, lib.Execute())
	return lib
}

func TestFormatModule_LongIncludesAllProofs(t *testing.T) {
	m := evidenceModule("mixed", types.SevLow, types.SevHigh)
	m.OutputFormat = types.OutLong
	lib := newLibrary(t, "binary", m)

	var buf bytes.Buffer
	require.NoError(t, FormatModule(&buf, ModuleView(lib, m), PrintOptions{NoColor: true}))
	out := buf.String()
	assert.Contains(t, out, "Module: mixed")
	assert.Contains(t, out, "Finds mixed things.")
	assert.Contains(t, out, "Tested 2 type(s), 1 failing")
	assert.Contains(t, out, "(max high)")
	assert.Contains(t, out, "[low] proof 0 is low")
	assert.Contains(t, out, "[high] proof 1 is high")
	assert.Contains(t, out, "<proof idx=1/>")
	assert.NotContains(t, out, "passing_t")
	assert.NotContains(t, out, "  httpd_t  [", "LONG has no LIST lines")
}

func TestFormatModule_FlagsSelectSections(t *testing.T) {
	m := evidenceModule("m", types.SevModerate)
	lib := newLibrary(t, "binary", m)
	v := ModuleView(lib, m)

	tests := []struct {
		name    string
		format  types.OutputFormat
		want    []string
		notWant []string
	}{
		{"quiet", types.OutQuiet, []string{"Module: m", "Tested 2"}, []string{"httpd_t"}},
		{"short", types.OutShort, []string{"Module: m", "  httpd_t  [moderate]"}, []string{"proof 0"}},
		{"list only", types.OutList, []string{"httpd_t  [moderate]"}, []string{"Module: m", "Tested"}},
		{"verbose", types.OutVerbose, []string{"Module: m", "Tested", "httpd_t  [moderate]", "proof 0 is moderate"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v.Format = tt.format
			var buf bytes.Buffer
			require.NoError(t, FormatModule(&buf, v, PrintOptions{NoColor: true}))
			for _, s := range tt.want {
				assert.Contains(t, buf.String(), s)
			}
			for _, s := range tt.notWant {
				assert.NotContains(t, buf.String(), s)
			}
		})
	}
}

func TestFormatModule_SkippedRendersStatusOnly(t *testing.T) {
	m := evidenceModule("needs_source", types.SevDanger)
	m.Requirements = []types.NameValue{{Name: engine.ReqPolicyType, Value: "source"}}
	m.OutputFormat = types.OutVerbose
	lib := newLibrary(t, "binary", m)

	var buf bytes.Buffer
	require.NoError(t, FormatModule(&buf, ModuleView(lib, m), PrintOptions{NoColor: true}))
	assert.Equal(t, "needs_source: skipped (requirement policy_type=source not met)\n", buf.String())
}

func TestPrintAll_ListsEveryDisposition(t *testing.T) {
	good := evidenceModule("good", types.SevLow)
	bad := evidenceModule("bad")
	bad.Callbacks.Run = func(engine.Env, *engine.Module) error { return errors.New("exploded") }
	skipped := evidenceModule("skipped")
	skipped.Requirements = []types.NameValue{{Name: engine.ReqMLSPolicy}}
	lib := newLibrary(t, "binary", good, bad, skipped)

	var buf bytes.Buffer
	require.NoError(t, PrintAll(&buf, lib, PrintOptions{NoColor: true, Summary: true}))
	out := buf.String()
	assert.Contains(t, out, "Module: good")
	assert.Contains(t, out, "bad: failed (run: exploded)")
	assert.Contains(t, out, "skipped: skipped (requirement mls_policy not met)")
	for _, name := range []string{"good", "bad", "skipped"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, strings.ToLower(out), "status")
}

func TestPrintAll_UsesModulePrintCallback(t *testing.T) {
	m := evidenceModule("custom", types.SevLow)
	m.Callbacks.Print = func(env engine.Env, m *engine.Module, w io.Writer) error {
		_, err := fmt.Fprintf(w, "custom report for %s (%s)\n", m.Name, env.OutputFormat(m))
		return err
	}
	lib := newLibrary(t, "binary", m)
	var buf bytes.Buffer
	require.NoError(t, PrintAll(&buf, lib, PrintOptions{NoColor: true}))
	assert.Equal(t, "custom report for custom (short)\n", buf.String())
}

func TestPrintAll_NoModules(t *testing.T) {
	lib := newLibrary(t, "binary")
	var buf bytes.Buffer
	require.NoError(t, PrintAll(&buf, lib, PrintOptions{}))
	assert.Contains(t, buf.String(), "No modules selected")
}

func TestPrintViews_MatchesLive(t *testing.T) {
	m := evidenceModule("m", types.SevHigh)
	lib := newLibrary(t, "binary", m)
	var live, cached bytes.Buffer
	require.NoError(t, PrintAll(&live, lib, PrintOptions{NoColor: true}))

	b, err := json.Marshal(Views(lib))
	require.NoError(t, err)
	var views []View
	require.NoError(t, json.Unmarshal(b, &views))
	require.NoError(t, PrintViews(&cached, views, PrintOptions{NoColor: true}))
	assert.Equal(t, live.String(), cached.String())
}

func TestShouldFail(t *testing.T) {
	lib := newLibrary(t, "binary", evidenceModule("m", types.SevModerate))
	views := Views(lib)
	assert.True(t, ShouldFail(views, types.SevLow))
	assert.True(t, ShouldFail(views, types.SevModerate))
	assert.False(t, ShouldFail(views, types.SevHigh))

	th, err := ParseFailOn("")
	require.NoError(t, err)
	assert.Equal(t, DefaultFailOn, th)
	_, err = ParseFailOn("apocalyptic")
	assert.Error(t, err)
}

func TestCounts(t *testing.T) {
	skipped := evidenceModule("s")
	skipped.Requirements = []types.NameValue{{Name: engine.ReqMLSPolicy}}
	lib := newLibrary(t, "binary", evidenceModule("m", types.SevHigh), skipped)
	states, sevs := Counts(Views(lib))
	assert.Equal(t, 1, states["completed"])
	assert.Equal(t, 1, states["skipped"])
	assert.Equal(t, 1, sevs["high"])
}

func TestWriteSARIF_Shape(t *testing.T) {
	lib := newLibrary(t, "binary", evidenceModule("m", types.SevHigh))
	var buf bytes.Buffer
	require.NoError(t, WriteSARIF(&buf, Views(lib), "1.0.0"))
	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "2.1.0", doc["version"])
	runs := doc["runs"].([]any)
	results := runs[0].(map[string]any)["results"].([]any)
	require.Len(t, results, 1)
	r0 := results[0].(map[string]any)
	assert.Equal(t, "m", r0["ruleId"])
	assert.Equal(t, "error", r0["level"])
}

func TestWriteJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}
