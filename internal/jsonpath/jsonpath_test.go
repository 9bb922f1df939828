package jsonpath

import "testing"

func mustCompile(t *testing.T, path string) Path {
	t.Helper()
	p, err := Compile(path)
	if err != nil {
		t.Fatalf("Compile(%q): %v", path, err)
	}
	return p
}

func TestLookup(t *testing.T) {
	root := map[string]interface{}{
		"text": "hello",
		"data": map[string]interface{}{
			"items": []interface{}{
				map[string]interface{}{"value": "a"},
				map[string]interface{}{"value": "b"},
			},
		},
		"results": []interface{}{
			map[string]interface{}{
				"alternatives": []interface{}{
					map[string]interface{}{"transcript": "ok"},
				},
			},
		},
		"count": float64(3),
	}

	if v, ok := mustCompile(t, "data.items[1].value").Lookup(root); !ok || v != "b" {
		t.Fatalf("expected b, got %v (ok=%v)", v, ok)
	}
	if v, ok := mustCompile(t, "results[0].alternatives[0].transcript").Lookup(root); !ok || v != "ok" {
		t.Fatalf("expected ok, got %v (ok=%v)", v, ok)
	}
	if v, ok := mustCompile(t, "count").Lookup(root); !ok || v != "3" {
		t.Fatalf("expected 3, got %v (ok=%v)", v, ok)
	}
	if _, ok := mustCompile(t, "data.items[99].value").Lookup(root); ok {
		t.Fatalf("expected not found")
	}
	if _, ok := (Path{}).Lookup(root); ok {
		t.Fatalf("empty path must not match")
	}
}

func TestCompileErrors(t *testing.T) {
	for _, p := range []string{"a..b", "a[", "a[]", "a[x]", "a[0]b"} {
		if _, err := Compile(p); err == nil {
			t.Fatalf("expected error for %q", p)
		}
	}
	p, err := Compile("foo[0][1]")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(p.steps) != 1 || p.steps[0].key != "foo" || len(p.steps[0].idxs) != 2 || p.steps[0].idxs[1] != 1 {
		t.Fatalf("unexpected parse result: %+v", p.steps)
	}
}

func TestExtractFallbacks(t *testing.T) {
	body := []byte(`{"result":{"transcript":"deep"},"text":"top"}`)
	if got := mustCompile(t, "result.transcript").Extract(body); got != "deep" {
		t.Fatalf("expected deep, got %q", got)
	}
	if got := mustCompile(t, "missing.path").Extract(body); got != "top" {
		t.Fatalf("expected fallback to text, got %q", got)
	}
	if got := (Path{}).Extract([]byte(`{"transcript":"only"}`)); got != "only" {
		t.Fatalf("expected first string fallback, got %q", got)
	}
	if got := (Path{}).Extract([]byte(`not json`)); got != "" {
		t.Fatalf("expected empty for invalid json, got %q", got)
	}
}
