//go:build darwin

package scanner

import (
	"os"
	"syscall"
)

func statTimes(info os.FileInfo) (created, changed *int64) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return nil, nil
	}
	birth := st.Birthtimespec.Sec
	ctime := st.Ctimespec.Sec
	return &birth, &ctime
}
