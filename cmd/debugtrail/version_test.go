package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrintVersion(t *testing.T) {
	tests := []struct {
		name          string
		version       string
		build         string
		buildTime     string
		expectContain []string
	}{
		{
			name:          "dev build",
			version:       "dev",
			build:         "unknown",
			expectContain: []string{"debugtrail version dev", "Go version:", "OS/Arch:"},
		},
		{
			name:          "release build",
			version:       "0.2.0",
			build:         "abc1234",
			buildTime:     "2026-01-05_09:30:00",
			expectContain: []string{"debugtrail version 0.2.0", "(build: abc1234)", "[2026-01-05_09:30:00]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origVersion, origBuild, origBuildTime := Version, Build, BuildTime
			defer func() {
				Version, Build, BuildTime = origVersion, origBuild, origBuildTime
			}()
			Version, Build, BuildTime = tt.version, tt.build, tt.buildTime

			var buf bytes.Buffer
			printVersion(&buf)
			for _, want := range tt.expectContain {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestVersionCommandSkipsSetup(t *testing.T) {
	var out bytes.Buffer
	a := &app{out: &out, errOut: &out}
	root := newRootCmd(a)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if a.manager != nil {
		t.Fatal("version should not open storage")
	}
	if !strings.Contains(out.String(), "debugtrail version") {
		t.Fatalf("output = %q", out.String())
	}
}
