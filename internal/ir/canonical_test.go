package ir

import (
	"strings"
	"testing"
)

func TestMarshalCanonical_SortedKeys(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"zeta":  int64(1),
		"alpha": int64(2),
		"mid":   "v",
	})
	if err != nil {
		t.Fatalf("MarshalCanonical failed: %v", err)
	}
	want := `{"alpha":2,"mid":"v","zeta":1}`
	if string(got) != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{"msg": "a < b && c > d"})
	if err != nil {
		t.Fatalf("MarshalCanonical failed: %v", err)
	}
	if strings.Contains(string(got), `<`) {
		t.Errorf("output contains HTML-escaped characters: %s", got)
	}
}

func TestMarshalCanonical_RejectsFloats(t *testing.T) {
	if _, err := MarshalCanonical(map[string]any{"v": 1.5}); err == nil {
		t.Error("expected error for float value, got nil")
	}
}

func TestMarshalCanonical_RejectsNull(t *testing.T) {
	if _, err := MarshalCanonical(nil); err == nil {
		t.Error("expected error for null, got nil")
	}
	if _, err := MarshalCanonical(map[string]any{"v": nil}); err == nil {
		t.Error("expected error for null object value, got nil")
	}
}

func TestMarshalCanonical_NFCNormalization(t *testing.T) {
	// e + combining acute accent normalizes to the precomposed form.
	decomposed := "é"
	precomposed := "é"

	a, err := MarshalCanonical(decomposed)
	if err != nil {
		t.Fatalf("MarshalCanonical failed: %v", err)
	}
	b, err := MarshalCanonical(precomposed)
	if err != nil {
		t.Fatalf("MarshalCanonical failed: %v", err)
	}
	if string(a) != string(b) {
		t.Errorf("NFC forms differ: %s vs %s", a, b)
	}
}

func TestMarshalCanonical_NestedArrays(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"ops": []any{
			map[string]any{"op": "declare", "value": int64(2)},
			map[string]any{"op": "read"},
		},
	})
	if err != nil {
		t.Fatalf("MarshalCanonical failed: %v", err)
	}
	want := `{"ops":[{"op":"declare","value":2},{"op":"read"}]}`
	if string(got) != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestMarshalCanonical_TagValues(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{"tag": Tag(7)})
	if err != nil {
		t.Fatalf("MarshalCanonical failed: %v", err)
	}
	if string(got) != `{"tag":7}` {
		t.Errorf("got %s, want {\"tag\":7}", got)
	}
}
