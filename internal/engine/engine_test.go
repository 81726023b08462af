package engine

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sechecker/sechecker/internal/config"
	"github.com/sechecker/sechecker/internal/metrics"
	"github.com/sechecker/sechecker/internal/policy"
	"github.com/sechecker/sechecker/internal/types"
)

func boolp(b bool) *bool { return &b }

func testPolicy(t *testing.T, typ string) policy.Policy {
	t.Helper()
	p, err := policy.FromFacts(policy.Facts{
		Version:        21,
		Type:           typ,
		SELinuxEnabled: boolp(true),
		MLSSystem:      boolp(false),
	}, nil)
	require.NoError(t, err)
	return p
}

// recorder tracks callback invocations across modules.
type recorder struct {
	calls []string
}

type stubData struct {
	result *types.Result
}

// stub builds a module whose run produces a single item named after it.
func (r *recorder) stub(name string, deps ...string) *Module {
	m := &Module{Name: name, Description: name + " check"}
	for _, d := range deps {
		m.Dependencies = append(m.Dependencies, types.NameValue{Name: d})
	}
	m.Callbacks = Callbacks{
		Init: func(_ Env, m *Module) error {
			r.calls = append(r.calls, "init:"+m.Name)
			res, err := types.NewResult(m.Name, types.KindType)
			if err != nil {
				return err
			}
			m.Data = &stubData{result: res}
			return nil
		},
		Run: func(env Env, m *Module) error {
			r.calls = append(r.calls, "run:"+m.Name)
			for _, d := range m.Dependencies {
				if _, err := env.Result(d.Name); err != nil {
					return err
				}
			}
			p, _ := types.NewProof(0, types.KindType, "found by "+m.Name, types.SevLow)
			it := types.NewItem(m.Name + "_t")
			it.AddProof(p)
			return m.Data.(*stubData).result.AddItem(it)
		},
		Free: func(m *Module) {
			r.calls = append(r.calls, "free:"+m.Name)
		},
		Result: func(m *Module) *types.Result {
			return m.Data.(*stubData).result
		},
	}
	return m
}

func newLib(t *testing.T, typ string, opts ...Option) *Library {
	t.Helper()
	lib, err := New(testPolicy(t, typ), opts...)
	require.NoError(t, err)
	return lib
}

func TestNew_RequiresPolicy(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestRegistry_DuplicateLeavesStateIntact(t *testing.T) {
	var r recorder
	lib := newLib(t, "binary")
	first, err := lib.Register(r.stub("m1"))
	require.NoError(t, err)

	dup := r.stub("m1")
	dup.Description = "impostor"
	_, err = lib.Register(dup)
	assert.ErrorIs(t, err, types.ErrDuplicateName)

	got, err := lib.Module("m1")
	require.NoError(t, err)
	assert.Same(t, first, got)
	assert.Equal(t, "m1 check", got.Description)
	assert.Equal(t, 1, lib.Registry().Len())
}

func TestRegistry_LookupAndResolve(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Register(&Module{Name: "bare", Callbacks: Callbacks{Init: func(Env, *Module) error { return nil }}})
	require.NoError(t, err)

	_, err = reg.Lookup("nope")
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = reg.Lookup("")
	assert.ErrorIs(t, err, types.ErrInvalidArgument)

	cb, err := reg.ResolveCallback("bare", SlotInit)
	require.NoError(t, err)
	initFn, ok := cb.(InitFunc)
	require.True(t, ok, "got %T", cb)
	assert.NoError(t, initFn(nil, nil))
	for _, slot := range []Slot{SlotRun, SlotFree, SlotPrint, SlotResult} {
		_, err := reg.ResolveCallback("bare", slot)
		assert.ErrorIs(t, err, types.ErrNotFound, "slot %s", slot)
	}
	_, err = reg.ResolveCallback("nope", SlotInit)
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = reg.Register(&Module{})
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestCheckRequirement(t *testing.T) {
	tests := []struct {
		name string
		typ  string
		reqs []types.NameValue
		want bool
	}{
		{"no requirements", "binary", nil, true},
		{"source on binary", "binary", []types.NameValue{{Name: ReqPolicyType, Value: "source"}}, false},
		{"source on source", "source", []types.NameValue{{Name: ReqPolicyType, Value: "source"}}, true},
		{"bad policy type value", "source", []types.NameValue{{Name: ReqPolicyType, Value: "kernel"}}, false},
		{"min version met", "binary", []types.NameValue{{Name: ReqPolicyVersion, Value: "20"}}, true},
		{"min version unmet", "binary", []types.NameValue{{Name: ReqPolicyVersion, Value: "24"}}, false},
		{"selinux enabled", "binary", []types.NameValue{{Name: ReqSELinux}}, true},
		{"mls policy", "binary", []types.NameValue{{Name: ReqMLSPolicy, Value: "true"}}, false},
		{"mls policy off", "binary", []types.NameValue{{Name: ReqMLSPolicy, Value: "false"}}, true},
		{"mls system", "binary", []types.NameValue{{Name: ReqMLSSystem, Value: "1"}}, false},
		{"unknown key satisfied", "binary", []types.NameValue{{Name: "kernel_version", Value: "6"}}, true},
		{"all must hold", "source", []types.NameValue{{Name: ReqPolicyType, Value: "source"}, {Name: ReqMLSPolicy}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := newLib(t, tt.typ)
			assert.Equal(t, tt.want, lib.CheckRequirement(&Module{Name: "m", Requirements: tt.reqs}))
		})
	}
}

func TestCheckDependency(t *testing.T) {
	var r recorder
	lib := newLib(t, "binary")
	_, _ = lib.Register(r.stub("base"))
	dep, _ := lib.Register(r.stub("dep", "base"))
	ghost, _ := lib.Register(r.stub("ghost", "missing"))

	assert.False(t, lib.CheckDependency(dep), "base not selected yet")
	require.NoError(t, lib.Select("base"))
	assert.True(t, lib.CheckDependency(dep))
	assert.False(t, lib.CheckDependency(ghost))
}

func TestSelect_Atomic(t *testing.T) {
	var r recorder
	lib := newLib(t, "binary")
	_, _ = lib.Register(r.stub("a"))
	err := lib.Select("a", "nope")
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.False(t, lib.Selected("a"))
}

func TestSelectMatching(t *testing.T) {
	var r recorder
	lib := newLib(t, "binary")
	for _, n := range []string{"find_domains", "find_file_types", "unused_bools"} {
		_, _ = lib.Register(r.stub(n))
	}
	n, err := lib.SelectMatching("find_*")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, lib.Selected("find_domains"))
	assert.False(t, lib.Selected("unused_bools"))

	_, err = lib.SelectMatching("zzz*")
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = lib.SelectMatching("[")
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestExecute_DependencyOrder(t *testing.T) {
	var r recorder
	lib := newLib(t, "binary")
	// registered out of dependency order on purpose
	_, _ = lib.Register(r.stub("c", "b", "a"))
	_, _ = lib.Register(r.stub("b", "a"))
	_, _ = lib.Register(r.stub("a"))
	_, _ = lib.Register(r.stub("solo"))
	lib.SelectAll()

	require.NoError(t, lib.Execute())
	if diff := cmp.Diff([]string{"a", "b", "c", "solo"}, lib.Order()); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	pos := map[string]int{}
	for i, n := range lib.Order() {
		pos[n] = i
	}
	for _, m := range lib.Modules() {
		for _, d := range m.DependencyNames() {
			assert.Less(t, pos[d], pos[m.Name], "%s must follow %s", m.Name, d)
		}
		assert.Equal(t, StateCompleted, m.State(), m.Name)
		require.NotNil(t, m.Result())
	}
	wantCalls := []string{"init:a", "init:b", "init:c", "init:solo", "run:a", "run:b", "run:c", "run:solo"}
	if diff := cmp.Diff(wantCalls, r.calls); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestPrepare_CycleAbortsBeforeInit(t *testing.T) {
	var r recorder
	lib := newLib(t, "binary")
	_, _ = lib.Register(r.stub("x", "z"))
	_, _ = lib.Register(r.stub("y", "x"))
	_, _ = lib.Register(r.stub("z", "y"))
	_, _ = lib.Register(r.stub("free"))
	lib.SelectAll()

	err := lib.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrCyclicDependency)
	var ce *types.CycleError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "x", ce.Module)
	assert.Equal(t, []string{"x", "z", "y", "x"}, ce.Path)

	assert.Empty(t, r.calls)
	for _, m := range lib.Modules() {
		assert.NotEqual(t, StateInitialized, m.State())
		assert.NotEqual(t, StateCompleted, m.State())
	}
	assert.Empty(t, lib.Order())
}

func TestScenario_RequirementSkipDoesNotAffectIndependent(t *testing.T) {
	var r recorder
	lib := newLib(t, "binary")
	m1, _ := lib.Register(r.stub("M1"))
	m1.Requirements = []types.NameValue{{Name: ReqPolicyType, Value: "source"}}
	m2, _ := lib.Register(r.stub("M2"))
	m3, _ := lib.Register(r.stub("M3", "M1"))
	lib.SelectAll()

	assert.False(t, lib.CheckRequirement(m1))
	require.NoError(t, lib.Execute())

	assert.Equal(t, StateSkipped, m1.State())
	assert.Contains(t, m1.Reason(), "policy_type=source")
	assert.Nil(t, m1.Result())

	assert.Equal(t, StateCompleted, m2.State())
	assert.NotNil(t, m2.Result())

	assert.Equal(t, StateSkipped, m3.State())
	assert.Contains(t, m3.Reason(), "dependency M1 skipped")
	assert.NotContains(t, r.calls, "init:M3")
}

func TestIndependentDispositionInvariant(t *testing.T) {
	run := func(requireSource bool) State {
		var r recorder
		lib := newLib(t, "binary")
		a, _ := lib.Register(r.stub("a"))
		if requireSource {
			a.Requirements = []types.NameValue{{Name: ReqPolicyType, Value: "source"}}
		}
		b, _ := lib.Register(r.stub("b"))
		lib.SelectAll()
		require.NoError(t, lib.Execute())
		return b.State()
	}
	assert.Equal(t, run(false), run(true))
}

func TestFailureIsolation(t *testing.T) {
	var r recorder
	lib := newLib(t, "binary")
	bad, _ := lib.Register(r.stub("bad"))
	bad.Callbacks.Run = func(Env, *Module) error { return errors.New("boom") }
	dep, _ := lib.Register(r.stub("dependent", "bad"))
	panicky, _ := lib.Register(r.stub("panicky"))
	panicky.Callbacks.Init = func(Env, *Module) error { panic("oops") }
	ok, _ := lib.Register(r.stub("ok"))
	lib.SelectAll()

	require.NoError(t, lib.Execute())
	assert.Equal(t, StateFailed, bad.State())
	assert.Contains(t, bad.Reason(), "boom")
	assert.Nil(t, bad.Result())
	assert.Equal(t, StateSkipped, dep.State())
	assert.Contains(t, dep.Reason(), "dependency bad failed")
	assert.Equal(t, StateFailed, panicky.State())
	assert.Contains(t, panicky.Reason(), "panic: oops")
	assert.Equal(t, StateCompleted, ok.State())
	assert.NotContains(t, r.calls, "run:dependent")
}

func TestMissingCallbacksSkip(t *testing.T) {
	lib := newLib(t, "binary")
	noRun, _ := lib.Register(&Module{Name: "norun", Callbacks: Callbacks{Init: func(Env, *Module) error { return nil }}})
	noInit, _ := lib.Register(&Module{Name: "noinit"})
	unselected, _ := lib.Register(&Module{Name: "unselected"})
	require.NoError(t, lib.Select("norun", "noinit"))
	require.NoError(t, lib.Execute())
	assert.Equal(t, StateSkipped, noRun.State())
	assert.Equal(t, "no run callback", noRun.Reason())
	assert.Equal(t, StateSkipped, noInit.State())
	assert.Equal(t, "no init callback", noInit.Reason())
	assert.Equal(t, "not selected", unselected.Reason())

	var names []string
	for _, m := range lib.ReportOrder() {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"norun", "noinit"}, names)
}

func TestEnvResult_OnlyCompleted(t *testing.T) {
	var r recorder
	lib := newLib(t, "binary")
	_, _ = lib.Register(r.stub("a"))
	_, err := lib.Result("a")
	assert.ErrorIs(t, err, types.ErrNotFound)
	require.NoError(t, lib.Select("a"))
	require.NoError(t, lib.Execute())
	res, err := lib.Result("a")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Len())

	require.NoError(t, res.AddItem(types.NewItem("added_by_dependent")))
	again, err := lib.Result("a")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Len())
	_, found := again.Item("added_by_dependent")
	assert.False(t, found)
}

func TestRerunReplacesResult(t *testing.T) {
	var r recorder
	lib := newLib(t, "binary")
	m, _ := lib.Register(r.stub("a"))
	lib.SelectAll()
	require.NoError(t, lib.Execute())
	first := m.Result()
	require.NoError(t, lib.Execute())
	second := m.Result()
	assert.NotSame(t, first, second)
	assert.Equal(t, 1, second.Len())
	assert.Contains(t, r.calls, "free:a")
}

func TestClose_FreesPrivateData(t *testing.T) {
	var r recorder
	lib := newLib(t, "binary")
	_, _ = lib.Register(r.stub("a"))
	_, _ = lib.Register(r.stub("never"))
	require.NoError(t, lib.Select("a"))
	require.NoError(t, lib.Execute())
	lib.Close()
	assert.Contains(t, r.calls, "free:a")
	assert.NotContains(t, r.calls, "free:never")
	assert.Equal(t, 0, lib.Registry().Len())
	_, err := lib.Register(r.stub("late"))
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
	assert.ErrorIs(t, lib.Prepare(), types.ErrInvalidArgument)
}

func TestOutputFormatInheritance(t *testing.T) {
	lib := newLib(t, "binary", WithOutputFormat(types.OutQuiet))
	plain, _ := lib.Register(&Module{Name: "plain"})
	custom, _ := lib.Register(&Module{Name: "custom", OutputFormat: types.OutVerbose})
	assert.Equal(t, types.OutQuiet, lib.OutputFormat(plain))
	assert.Equal(t, types.OutVerbose, lib.OutputFormat(custom))

	require.NoError(t, lib.OverrideOutputFormat(types.OutLong))
	assert.Equal(t, types.OutLong, lib.OutputFormat(custom))
	assert.ErrorIs(t, lib.SetOutputFormat(0), types.ErrInvalidArgument)
}

func TestMetricsRecorded(t *testing.T) {
	var r recorder
	rec := metrics.NewRecorder(nil)
	lib := newLib(t, "binary", WithMetrics(rec))
	_, _ = lib.Register(r.stub("a"))
	skipped, _ := lib.Register(r.stub("b"))
	skipped.Requirements = []types.NameValue{{Name: ReqMLSPolicy}}
	lib.SelectAll()
	require.NoError(t, lib.Execute())

	n, err := testutil.GatherAndCount(rec.Registry(), "sechecker_module_dispositions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestApplyProfile(t *testing.T) {
	r := &recorder{}
	lib := newLib(t, "source")
	_, err := lib.Register(r.stub("a"))
	require.NoError(t, err)
	_, err = lib.Register(r.stub("b"))
	require.NoError(t, err)

	prof, err := config.ParseProfile([]byte(`version: "1.0"
output: quiet
modules:
  - name: b
    output: verbose
    options: [{name: depth, value: "2"}, {name: depth, value: "3"}]
    requirements: [{name: policy_type, value: source}]
`))
	require.NoError(t, err)
	require.NoError(t, lib.ApplyProfile(prof))

	assert.False(t, lib.Selected("a"))
	assert.True(t, lib.Selected("b"))
	assert.Equal(t, types.OutQuiet, lib.Format())
	b, err := lib.Module("b")
	require.NoError(t, err)
	assert.Equal(t, types.OutVerbose, lib.OutputFormat(b))
	assert.Equal(t, []string{"2", "3"}, b.OptionValues("depth"))
	assert.True(t, lib.CheckRequirement(b))

	bad, err := config.ParseProfile([]byte("version: \"1.0\"\nmodules:\n  - name: a\n  - name: ghost\n"))
	require.NoError(t, err)
	err = lib.ApplyProfile(bad)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.False(t, lib.Selected("a"), "failed profile leaves selection unchanged")
}
