package platform

import (
	"path/filepath"
	"testing"
)

func TestSafeName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"a.txt", "a.txt"},
		{"report 2024.pdf", "report 2024.pdf"},
		{"a/b", "a_b"},
		{`a\b`, "a_b"},
		{".", "_"},
		{"..", "__"},
		{"", "_"},
		{"...", "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeName(tt.name); got != tt.want {
				t.Errorf("SafeName(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestChildPathStaysUnderParent(t *testing.T) {
	root := filepath.Join("out", "root")

	for _, name := range []string{"..", "../escape", "a/../../b"} {
		got := ChildPath(root, name)
		if filepath.Dir(got) != root {
			t.Errorf("ChildPath(%q) = %q escapes %q", name, got, root)
		}
	}
}

func TestJoinRemote(t *testing.T) {
	if got := JoinRemote("", "a"); got != "a" {
		t.Errorf("JoinRemote(\"\", a) = %q, want a", got)
	}
	if got := JoinRemote("a/b", "c"); got != "a/b/c" {
		t.Errorf("JoinRemote(a/b, c) = %q, want a/b/c", got)
	}
}

func TestValidatePath(t *testing.T) {
	if err := ValidatePath(""); err == nil {
		t.Error("ValidatePath should reject an empty path")
	}
	if err := ValidatePath("/tmp/out"); err != nil {
		t.Errorf("ValidatePath(/tmp/out) error = %v", err)
	}
}
