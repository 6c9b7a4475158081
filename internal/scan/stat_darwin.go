//go:build darwin

package scan

import "syscall"

func devInoFromStat(stat *syscall.Stat_t) DevIno {
	return DevIno{Dev: uint64(stat.Dev), Ino: stat.Ino}
}

func nlinkFromStat(stat *syscall.Stat_t) uint64 {
	return uint64(stat.Nlink)
}
