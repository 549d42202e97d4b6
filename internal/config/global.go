// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride replaces ConfigDir's platform lookup. Tests set it because
// os.UserHomeDir() does not reliably respect HOME on every platform.
var configDirOverride string

// Reset clears test overrides. Call from test cleanup to restore defaults.
func Reset() {
	configDirOverride = ""
}

// SetConfigDirOverride makes ConfigDir return dir.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}
