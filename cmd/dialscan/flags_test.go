package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/dialscan/internal/config"
	"github.com/muurk/dialscan/internal/ssdp"
	"github.com/muurk/dialscan/internal/version"
)

func TestDiscoveryFlagsResolve(t *testing.T) {
	prefs := config.DefaultPreferences()
	prefs.DiscoveryTimeoutMs = 4000
	prefs.TargetPort = 8008
	prefs.Describe = false

	tests := []struct {
		name string
		args []string
		want settings
	}{
		{
			name: "preferences only",
			args: nil,
			want: settings{Timeout: 4 * time.Second, TargetPort: 8008, ReceiveTimeout: 3 * time.Second, Describe: false},
		},
		{
			name: "flags override",
			args: []string{"--timeout", "2500", "--port", "-1", "--describe"},
			want: settings{Timeout: 2500 * time.Millisecond, TargetPort: ssdp.AnyPort, ReceiveTimeout: 3 * time.Second, Describe: true},
		},
		{
			name: "receive timeout",
			args: []string{"--receive-timeout", "500"},
			want: settings{Timeout: 4 * time.Second, TargetPort: 8008, ReceiveTimeout: 500 * time.Millisecond, Describe: false},
		},
		{
			name: "non-positive values fall back",
			args: []string{"--timeout", "0", "--port", "0"},
			want: settings{Timeout: ssdp.DefaultTimeout, TargetPort: ssdp.AnyPort, ReceiveTimeout: 3 * time.Second, Describe: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f discoveryFlags
			cmd := &cobra.Command{Use: "test"}
			addDiscoveryFlags(cmd, &f)
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags() error = %v", err)
			}

			if got := f.resolve(cmd, prefs); got != tt.want {
				t.Errorf("resolve() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPortLabel(t *testing.T) {
	if got := portLabel(ssdp.AnyPort); got != "any" {
		t.Errorf("portLabel(-1) = %q, want any", got)
	}
	if got := portLabel(8008); got != "8008" {
		t.Errorf("portLabel(8008) = %q, want 8008", got)
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	t.Cleanup(func() {
		versionCmd.SetOut(nil)
		versionJSON = false
	})

	versionJSON = false
	if err := versionCmd.RunE(versionCmd, nil); err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "dialscan "+version.Version) {
		t.Errorf("version output = %q", out.String())
	}

	out.Reset()
	versionJSON = true
	if err := versionCmd.RunE(versionCmd, nil); err != nil {
		t.Fatalf("version --json error = %v", err)
	}
	var info version.Info
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		t.Fatalf("version --json output is not JSON: %v", err)
	}
	if info.Version != version.Version {
		t.Errorf("Version = %q, want %q", info.Version, version.Version)
	}
}

func TestCommandTree(t *testing.T) {
	want := []string{"scan", "watch", "serve", "config", "version"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
	for _, name := range []string{"show", "init"} {
		cmd, _, err := rootCmd.Find([]string{"config", name})
		if err != nil || cmd.Name() != name {
			t.Errorf("config %q not registered", name)
		}
	}
}
