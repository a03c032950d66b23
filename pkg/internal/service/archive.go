package service

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/klauspost/compress/zip"
)

// 可执行文件与安装包上传前压缩为 zip.
var zipExtensions = []string{"exe", "msi", "bat", "cmd", "sh", "app", "dmg", "deb", "rpm", "apk"}

// 已是压缩包的扩展名，永不再次压缩.
var archiveExtensions = []string{"zip", "rar", "7z", "tar", "gz"}

// NeedsZip 判断文件是否需要在上传前压缩.
func NeedsZip(name string) bool {
	ext := extension(name)
	if slices.Contains(archiveExtensions, ext) {
		return false
	}

	return slices.Contains(zipExtensions, ext)
}

// zipFile 把 r 压缩为只含一个条目 name 的 zip 包.
func zipFile(name string, r io.Reader, modified time.Time) (*bytes.Buffer, error) {
	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return nil, fmt.Errorf("zip %s: %w", name, err)
	}

	if _, err := io.Copy(w, r); err != nil {
		return nil, fmt.Errorf("zip %s: %w", name, err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip %s: %w", name, err)
	}

	return &buf, nil
}
