//go:build linux

package scan

import "syscall"

func devInoFromStat(stat *syscall.Stat_t) DevIno {
	return DevIno{Dev: stat.Dev, Ino: stat.Ino}
}

func nlinkFromStat(stat *syscall.Stat_t) uint64 {
	return stat.Nlink
}
