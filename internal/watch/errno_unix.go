// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package watch

import "syscall"

// fatalErrnos are inotify resource exhaustion: the watch limit (ENOSPC) or the
// process or system descriptor limit (EMFILE, ENFILE). Large Scala trees with
// generated sources hit fs.inotify.max_user_watches first.
var fatalErrnos = []syscall.Errno{syscall.ENOSPC, syscall.EMFILE, syscall.ENFILE}
