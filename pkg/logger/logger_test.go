package logger

import "testing"

func TestInitLevels(t *testing.T) {
	cases := map[string]string{
		"debug":   "debug",
		"DEBUG":   "debug",
		" warn ":  "warn",
		"warning": "warn",
		"error":   "error",
		"fatal":   "fatal",
		"":        "info",
		"bogus":   "info",
	}
	for in, want := range cases {
		Init(in)
		if got := LevelString(); got != want {
			t.Fatalf("Init(%q): got level %q, want %q", in, got, want)
		}
	}
	// restore default for other tests
	Init("")
}

func TestEnabledThreshold(t *testing.T) {
	Init("warn")
	defer Init("")

	if enabled(LevelDebug) {
		t.Fatal("debug should be suppressed at warn level")
	}
	if enabled(LevelInfo) {
		t.Fatal("info should be suppressed at warn level")
	}
	if !enabled(LevelWarn) {
		t.Fatal("warn should be enabled at warn level")
	}
	if !enabled(LevelError) {
		t.Fatal("error should be enabled at warn level")
	}
}
