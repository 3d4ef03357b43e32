package expand

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/lemonberrylabs/bufr-resolve/pkg/tables"
	"github.com/lemonberrylabs/bufr-resolve/pkg/types"
	"gopkg.in/yaml.v3"
)

var fixtureSequences = filepath.Join("..", "..", "testdata", "wmo", "37", "sequence.def")

func fixtureExpander(t *testing.T) *Expander {
	t.Helper()
	return New(tables.NewReader(tables.Paths{Sequence: fixtureSequences}, nil), nil)
}

func inlineExpander(t *testing.T, content string) *Expander {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sequence.def")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write sequence.def: %v", err)
	}
	return New(tables.NewReader(tables.Paths{Sequence: path}, nil), nil)
}

func mustExpand(t *testing.T, e *Expander, id string) *Tree {
	t.Helper()
	tree, err := e.Expand(id)
	if err != nil {
		t.Fatalf("Expand(%s): unexpected error: %v", id, err)
	}
	return tree
}

func TestExpandFlatSequence(t *testing.T) {
	tree := mustExpand(t, fixtureExpander(t), "302046")

	want := map[string]interface{}{
		"302046": []interface{}{"004024", "004024", "012049"},
	}
	if diff := cmp.Diff(want, tree.Value()); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
	if !tree.Found || !tree.Terminated {
		t.Errorf("expected found and terminated, got %+v", tree)
	}
}

func TestExpandNestedSequence(t *testing.T) {
	tree := mustExpand(t, fixtureExpander(t), "307089")

	seq302046 := map[string]interface{}{"302046": []interface{}{"004024", "004024", "012049"}}
	want := map[string]interface{}{
		"307089": []interface{}{
			map[string]interface{}{"307087": []interface{}{
				map[string]interface{}{"301090": []interface{}{
					map[string]interface{}{"301004": []interface{}{"001001", "001002", "001015", "002001"}},
					map[string]interface{}{"301011": []interface{}{"004001", "004002", "004003"}},
					map[string]interface{}{"301012": []interface{}{"004004", "004005"}},
					map[string]interface{}{"301021": []interface{}{"005001", "006001"}},
					"007030",
					"007031",
				}},
				seq302046,
			}},
			map[string]interface{}{"307088": []interface{}{
				"101000", "031001", seq302046, "201129", "012101", "201000",
			}},
		},
	}
	if diff := cmp.Diff(want, tree.Value()); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandUnknownRoot(t *testing.T) {
	tree := mustExpand(t, fixtureExpander(t), "399999")

	if tree.Found {
		t.Error("expected Found to be false")
	}
	want := map[string]interface{}{"399999": []interface{}{}}
	if diff := cmp.Diff(want, tree.Value()); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
	b, err := json.Marshal(tree)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"399999":[]}` {
		t.Errorf("unexpected JSON %s", b)
	}
}

func TestExpandUndefinedMemberIsEmptyMapping(t *testing.T) {
	tree := mustExpand(t, inlineExpander(t, `"399020" = [ 388888, 001001 ]`+"\n"), "399020")

	want := map[string]interface{}{
		"399020": []interface{}{
			map[string]interface{}{"388888": []interface{}{}},
			"001001",
		},
	}
	if diff := cmp.Diff(want, tree.Value()); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
	if s := tree.Stats(); s.Undefined != 1 || s.Sequences != 1 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestExpandSelfReference(t *testing.T) {
	tree := mustExpand(t, inlineExpander(t, `"399003" = [ 399003, 001002 ]`+"\n"), "399003")

	want := map[string]interface{}{
		"399003": []interface{}{CircularMarker, "001002"},
	}
	if diff := cmp.Diff(want, tree.Value()); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
	if !tree.Members[0].Circular || tree.Members[0].Token != "399003" {
		t.Errorf("expected circular member referencing 399003, got %+v", tree.Members[0])
	}
}

func TestExpandMutualReference(t *testing.T) {
	e := inlineExpander(t, `"399001" = [ 399002, 001001 ]
"399002" = [ 399001, 001002 ]
`)
	tree := mustExpand(t, e, "399001")

	want := map[string]interface{}{
		"399001": []interface{}{
			map[string]interface{}{"399002": []interface{}{CircularMarker, "001002"}},
			"001001",
		},
	}
	if diff := cmp.Diff(want, tree.Value()); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}

	// Starting from the other end of the cycle breaks it at the other edge.
	tree = mustExpand(t, e, "399002")
	want = map[string]interface{}{
		"399002": []interface{}{
			map[string]interface{}{"399001": []interface{}{CircularMarker, "001001"}},
			"001002",
		},
	}
	if diff := cmp.Diff(want, tree.Value()); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandSharedSubsequenceInSiblingBranches(t *testing.T) {
	e := inlineExpander(t, `"399040" = [ 399041, 399041, 399042 ]
"399041" = [ 001001 ]
"399042" = [ 399041 ]
`)
	tree := mustExpand(t, e, "399040")

	leaf := map[string]interface{}{"399041": []interface{}{"001001"}}
	want := map[string]interface{}{
		"399040": []interface{}{
			leaf,
			leaf,
			map[string]interface{}{"399042": []interface{}{leaf}},
		},
	}
	if diff := cmp.Diff(want, tree.Value()); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
	if s := tree.Stats(); s.Circular != 0 {
		t.Errorf("shared subsequences are not cycles, got %d circular", s.Circular)
	}
}

func TestExpandIsIdempotent(t *testing.T) {
	e := inlineExpander(t, `"399001" = [ 399002, 001001 ]
"399002" = [ 399001, 399003 ]
"399003" = [ 001002 ]
`)
	first := mustExpand(t, e, "399001")
	second := mustExpand(t, e, "399001")
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated expansion differs (-first +second):\n%s", diff)
	}

	// Requesting an inner sequence afterwards must expand it fully again.
	inner := mustExpand(t, e, "399003")
	if diff := cmp.Diff([]string{"001002"}, inner.Flatten()); diff != "" {
		t.Errorf("inner expansion mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandPassesThroughMalformedTokens(t *testing.T) {
	tree := mustExpand(t, inlineExpander(t, `"399010" = [ 001001, 0, abc, 907000 ]`+"\n"), "399010")

	if diff := cmp.Diff([]string{"001001", "0", "abc", "907000"}, tree.Flatten()); diff != "" {
		t.Errorf("flatten mismatch (-want +got):\n%s", diff)
	}
	if s := tree.Stats(); s.Unknown != 3 || s.Elementary != 1 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestExpandUnterminatedBlock(t *testing.T) {
	tree := mustExpand(t, inlineExpander(t, `"399050" = [ 001001,
  001002,
`), "399050")

	if tree.Terminated {
		t.Error("expected Terminated to be false")
	}
	if diff := cmp.Diff([]string{"001001", "001002"}, tree.Flatten()); diff != "" {
		t.Errorf("flatten mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandMissingFile(t *testing.T) {
	e := New(tables.NewReader(tables.Paths{Sequence: filepath.Join(t.TempDir(), "missing.def")}, nil), nil)

	_, err := e.Expand("307089")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, types.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "307089") {
		t.Errorf("expected sequence id in error, got %v", err)
	}
}

func TestTreeJSONPreservesOrder(t *testing.T) {
	tree := mustExpand(t, fixtureExpander(t), "307088")

	b, err := json.Marshal(tree)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"307088":["101000","031001",{"302046":["004024","004024","012049"]},"201129","012101","201000"]}`
	if string(b) != want {
		t.Errorf("unexpected JSON:\n got %s\nwant %s", b, want)
	}
}

func TestTreeYAMLMatchesValue(t *testing.T) {
	tree := mustExpand(t, fixtureExpander(t), "307089")

	out, err := yaml.Marshal(tree)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"004024"`) {
		t.Errorf("expected quoted tokens in YAML, got:\n%s", out)
	}

	var decoded map[string]interface{}
	if err := yaml.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(tree.Value(), decoded); diff != "" {
		t.Errorf("YAML round trip mismatch (-value +yaml):\n%s", diff)
	}
}

func TestFlattenAndStats(t *testing.T) {
	tree := mustExpand(t, fixtureExpander(t), "307088")

	want := []string{"101000", "031001", "004024", "004024", "012049", "201129", "012101", "201000"}
	if diff := cmp.Diff(want, tree.Flatten()); diff != "" {
		t.Errorf("flatten mismatch (-want +got):\n%s", diff)
	}

	got := tree.Stats()
	wantStats := Stats{Elementary: 5, Replication: 1, Operator: 2, Sequences: 1, Depth: 2}
	if diff := cmp.Diff(wantStats, got); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}
