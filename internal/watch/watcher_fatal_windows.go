// SPDX-License-Identifier: MPL-2.0

//go:build windows

package watch

import "syscall"

// fatalErrnos are ReadDirectoryChangesW failures after which no further
// events arrive: ERROR_TOO_MANY_OPEN_FILES (4), ERROR_INVALID_HANDLE (6, the
// watched directory was deleted or unmounted) and ERROR_NOT_ENOUGH_MEMORY (8).
var fatalErrnos = []syscall.Errno{syscall.Errno(4), syscall.Errno(6), syscall.Errno(8)}
