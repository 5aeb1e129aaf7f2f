package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "separate value kept",
			args:         []string{"-a", ":8080", "-c", "ikebana.json"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c", "ikebana.json"},
		},
		{
			name:         "equals form kept whole",
			args:         []string{"--config=/etc/ikebana.json", "-d", "postgres://x"},
			allowedFlags: []string{"--config"},
			want:         []string{"--config=/etc/ikebana.json"},
		},
		{
			name:         "flag without value",
			args:         []string{"-c"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "next token that looks like a flag is not a value",
			args:         []string{"-c", "-notvalue"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "value starting with dashes inside equals form",
			args:         []string{"--config=--weird.json"},
			allowedFlags: []string{"--config"},
			want:         []string{"--config=--weird.json"},
		},
		{
			name:         "repeated flag preserved in order",
			args:         []string{"-c", "one.json", "-c", "two.json"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c", "one.json", "-c", "two.json"},
		},
		{
			name:         "empty args",
			args:         []string{},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowedFlags))
		})
	}
}

func Test_configFilePath(t *testing.T) {
	assert.Equal(t, "/path/short.json", configFilePath([]string{"-c", "/path/short.json"}))
	assert.Equal(t, "/path/long.json", configFilePath([]string{"-config", "/path/long.json"}))
	assert.Equal(t, "/path/eq.json", configFilePath([]string{"--config=/path/eq.json"}))
	assert.Empty(t, configFilePath([]string{"-a", ":9000", "-l", "console"}))
	assert.Equal(t, "/path/2.json", configFilePath([]string{"-c", "/path/1.json", "-config", "/path/2.json"}))
}

func TestConfigFilePath_ReadsOSArgs(t *testing.T) {
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })

	os.Args = []string{"server", "-a", ":8080", "-c", "/etc/ikebana.json"}
	assert.Equal(t, "/etc/ikebana.json", ConfigFilePath())
}
