// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"errors"
	"slices"
	"syscall"
)

// isFatalFsnotifyError reports whether err means the watcher is broken for
// good. The errno set is platform-specific.
func isFatalFsnotifyError(err error) bool {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}
	return slices.Contains(fatalErrnos, errno)
}
