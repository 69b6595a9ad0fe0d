//go:build unix

package fsx

import (
	"errors"
	"syscall"
)

// isEXDEV 报告 rename 是否因跨文件系统失败。*os.LinkError 实现了 Unwrap，errors.Is 可直接穿透。
func isEXDEV(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}
