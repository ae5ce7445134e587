package version

import (
	"runtime/debug"
	"testing"
)

func withBuildInfo(t *testing.T, info *debug.BuildInfo, ok bool) {
	t.Helper()
	orig := readBuildInfo
	t.Cleanup(func() { readBuildInfo = orig })
	readBuildInfo = func() (*debug.BuildInfo, bool) { return info, ok }
}

func TestGetVersion(t *testing.T) {
	cases := []struct {
		name string
		info *debug.BuildInfo
		ok   bool
		want string
	}{
		{name: "no build info", ok: false, want: "dev"},
		{name: "module version", info: &debug.BuildInfo{Main: debug.Module{Version: "v0.3.0"}}, ok: true, want: "v0.3.0"},
		{
			name: "dirty revision",
			info: &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}, Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef"},
				{Key: "vcs.modified", Value: "true"},
			}},
			ok:   true,
			want: "0123456 (dirty)",
		},
		{name: "no revision", info: &debug.BuildInfo{}, ok: true, want: "dev"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			withBuildInfo(t, tc.info, tc.ok)
			if got := GetVersion(); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestStampedVersionWins(t *testing.T) {
	Version = "v1.0.0"
	t.Cleanup(func() { Version = "" })
	if got := GetVersion(); got != "v1.0.0" {
		t.Fatalf("got %q", got)
	}
}
