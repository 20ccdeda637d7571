package sync

import "testing"

// ============== Excluder Tests ==============

func TestExcluderMatch(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		path     string
		isDir    bool
		want     bool
	}{
		{"NoPatterns", nil, "a.txt", false, false},
		{"BaseNameGlob", []string{"*.tmp"}, "docs/scratch.tmp", false, true},
		{"BaseNameNoMatch", []string{"*.tmp"}, "docs/notes.txt", false, false},
		{"OfficeLockFile", []string{"~$*"}, "reports/~$budget.xlsx", false, true},
		{"DirPatternMatchesDir", []string{"Archive/"}, "2023/Archive", true, true},
		{"DirPatternSkipsFile", []string{"Archive/"}, "Archive", false, false},
		{"DirPatternFullPath", []string{"2023/Archive/"}, "2023/Archive", true, true},
		{"PathPattern", []string{"build/*"}, "build/out.bin", false, true},
		{"PathPatternNested", []string{"build/*"}, "src/build/out.bin", false, true},
		{"PathPatternNoMatch", []string{"build/*"}, "build/sub/out.bin", false, false},
		{"AnyDepth", []string{"**/drafts"}, "a/b/drafts", true, true},
		{"AnyDepthPath", []string{"**/drafts/*.md"}, "a/b/drafts/x.md", false, true},
		{"BackslashSeparators", []string{`build\*`}, "build/out.bin", false, true},
		{"BlankPatternIgnored", []string{"  "}, "a.txt", false, false},
		{"MalformedPattern", []string{"[abc"}, "a", false, false},
		{"RootNeverExcluded", []string{"*"}, "", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExcluder(tt.patterns)
			if got := e.Match(tt.path, tt.isDir); got != tt.want {
				t.Errorf("Match(%q, %v) = %v, want %v", tt.path, tt.isDir, got, tt.want)
			}
		})
	}
}

func TestNilExcluder(t *testing.T) {
	var e *Excluder
	if e.Match("a.txt", false) {
		t.Error("nil excluder should match nothing")
	}
}
