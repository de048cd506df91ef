//go:build linux

package scanner

import (
	"os"
	"syscall"
)

// statTimes returns creation and attribute-change times. Linux stat(2) has
// no birth time, so created is always nil.
func statTimes(info os.FileInfo) (created, changed *int64) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return nil, nil
	}
	ctime := int64(st.Ctim.Sec) // int32 on 32-bit platforms
	return nil, &ctime
}
