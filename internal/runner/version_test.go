package runner

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionTag(t *testing.T) {
	orig := productVersion
	t.Cleanup(func() { productVersion = orig })

	cases := map[string]string{
		"":       "dev",
		"dev":    "dev",
		"1.2.3":  "v1.2.3",
		"v0.4.0": "v0.4.0",
		"V2":     "V2",
	}
	for in, want := range cases {
		productVersion = in
		if got := versionTag(); got != want {
			t.Errorf("versionTag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSetVersionAndPrint(t *testing.T) {
	origVersion, origCommit, origDate := productVersion, buildCommit, buildDate
	t.Cleanup(func() { productVersion, buildCommit, buildDate = origVersion, origCommit, origDate })

	SetVersion("1.0.0", "0123456789abcdef", "2026-10-01")
	SetVersion(" ", "", "")

	var buf bytes.Buffer
	printVersion(&buf)
	want := "version: v1.0.0\ngit hash: 0123456\nbuild date: 2026-10-01\n"
	if got := buf.String(); got != want {
		t.Fatalf("printVersion = %q, want %q", got, want)
	}
	if !strings.HasPrefix(versionTag(), "v1") {
		t.Fatalf("versionTag() = %q", versionTag())
	}
}
