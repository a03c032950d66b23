package service

import (
	"path"
	"strings"

	"github.com/yeisme/drivemini/pkg/internal/types"
)

// 按扩展名分类，ogg 先归为视频.
var fileTypeGroups = []struct {
	typ  types.FileType
	exts []string
}{
	{types.FileTypeImage, []string{"jpg", "jpeg", "png", "gif", "bmp", "svg", "webp", "tiff"}},
	{types.FileTypeVideo, []string{"mp4", "webm", "ogg", "mov", "avi", "mkv", "flv", "3gp"}},
	{types.FileTypeAudio, []string{"mp3", "wav", "ogg", "aac", "flac", "m4a", "wma"}},
	{types.FileTypeDocument, []string{"pdf", "doc", "docx", "txt", "rtf", "md"}},
	{types.FileTypeCode, []string{"js", "ts", "jsx", "tsx", "css", "html", "json", "xml", "yaml", "yml"}},
}

var fileTypeByExt = func() map[string]types.FileType {
	m := make(map[string]types.FileType)

	for _, g := range fileTypeGroups {
		for _, ext := range g.exts {
			if _, ok := m[ext]; !ok {
				m[ext] = g.typ
			}
		}
	}

	return m
}()

// extension 返回小写且不带点的扩展名.
func extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}

// ClassifyFile 按扩展名判断文件类别.
func ClassifyFile(name string) types.FileType {
	if t, ok := fileTypeByExt[extension(name)]; ok {
		return t
	}

	return types.FileTypeOther
}
