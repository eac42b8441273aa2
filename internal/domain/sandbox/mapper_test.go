package sandbox

import "testing"

func TestMapAccessRead(t *testing.T) {
	dir, file := MapAccess([]string{"read"})
	if dir != DirRead || file != FileRead {
		t.Fatalf("got dir=%v file=%v", dir, file)
	}
}

func TestMapAccessWrite(t *testing.T) {
	dir, file := MapAccess([]string{"write"})
	if dir != DirRead|DirMutate || file != FileRead|FileWrite {
		t.Fatalf("got dir=%v file=%v", dir, file)
	}
}

func TestMapAccessCombined(t *testing.T) {
	dir, file := MapAccess([]string{"read", "write"})
	if dir != DirRead|DirMutate || file != FileRead|FileWrite {
		t.Fatalf("got dir=%v file=%v", dir, file)
	}
}

func TestMapAccessUnknownIgnored(t *testing.T) {
	dir, file := MapAccess([]string{"frobnicate"})
	if dir != 0 || file != 0 {
		t.Fatalf("expected no bits set for unknown op, got dir=%v file=%v", dir, file)
	}
}

func TestPatternToDirPath(t *testing.T) {
	cases := map[string]string{
		"/tmp/test/**":          "/tmp/test",
		"fs:///var/log/*.log":   "/var/log",
		"/home/user/docs/":      "/home/user/docs",
		"**":                    "/tmp",
		"":                      "/tmp",
		"/data/*/reports/*.csv": "/data",
	}
	for pattern, want := range cases {
		if got := patternToDirPath(pattern); got != want {
			t.Errorf("patternToDirPath(%q) = %q, want %q", pattern, got, want)
		}
	}
}

func TestPreopenDirsNilPolicy(t *testing.T) {
	if dirs := PreopenDirs(nil); dirs != nil {
		t.Fatalf("expected nil for nil policy, got %v", dirs)
	}
}
