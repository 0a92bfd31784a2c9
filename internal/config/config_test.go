package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novodl/novodl/internal/config"
)

func TestLoad(t *testing.T) {
	tests := map[string]struct {
		file      string
		env       map[string]string
		opts      config.Options
		expConfig config.Config
		expErr    bool
	}{
		"Without a file nor environment, defaults should be used.": {
			opts: config.Options{
				DefaultDBPath:       "/tmp/novodl.db",
				DefaultSettingsPath: "/tmp/settings.json",
			},
			expConfig: config.Config{
				ListenAddr:   ":3683",
				AccessLog:    true,
				LndMode:      config.LndModeExec,
				DBPath:       "/tmp/novodl.db",
				SettingsPath: "/tmp/settings.json",
			},
		},

		"A config file should override the defaults.": {
			file: `
listen_addr: ":9999"
access_log: false
lnd_mode: "fake"
`,
			opts: config.Options{
				DefaultDBPath:       "/tmp/novodl.db",
				DefaultSettingsPath: "/tmp/settings.json",
			},
			expConfig: config.Config{
				ListenAddr:   ":9999",
				AccessLog:    false,
				LndMode:      config.LndModeFake,
				DBPath:       "/tmp/novodl.db",
				SettingsPath: "/tmp/settings.json",
			},
		},

		"Environment variables should override the file.": {
			file: `
listen_addr: ":9999"
`,
			env: map[string]string{
				"NOVODL_LISTEN_ADDR": ":7777",
			},
			opts: config.Options{
				DefaultDBPath:       "/tmp/novodl.db",
				DefaultSettingsPath: "/tmp/settings.json",
			},
			expConfig: config.Config{
				ListenAddr:   ":7777",
				AccessLog:    true,
				LndMode:      config.LndModeExec,
				DBPath:       "/tmp/novodl.db",
				SettingsPath: "/tmp/settings.json",
			},
		},

		"A missing config file should fail.": {
			opts:   config.Options{Path: "/does/not/exist.yaml"},
			expErr: true,
		},

		"An unknown lnd mode should fail.": {
			file:   `lnd_mode: "warp"`,
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			for k, v := range test.env {
				t.Setenv(k, v)
			}

			opts := test.opts
			if test.file != "" {
				path := filepath.Join(t.TempDir(), "config.yaml")
				err := os.WriteFile(path, []byte(test.file), 0644)
				require.NoError(err)
				opts.Path = path
			}

			cfg, err := config.Load(opts)

			if test.expErr {
				assert.Error(err)
				return
			}
			require.NoError(err)
			assert.Equal(test.expConfig, *cfg)
		})
	}
}
