package types

import "time"

// FileType 按扩展名划分的文件类别.
type FileType string

const (
	FileTypeFolder   FileType = "folder"
	FileTypeImage    FileType = "image"
	FileTypeVideo    FileType = "video"
	FileTypeAudio    FileType = "audio"
	FileTypeDocument FileType = "document"
	FileTypeCode     FileType = "code"
	FileTypeOther    FileType = "other"
)

// FileEntry 文件浏览与搜索中的一项，Path 相对于存储根路径.
type FileEntry struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	IsDir        bool      `json:"is_dir"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified,omitzero"`
	Type         FileType  `json:"type"`
}

// ListFilesQuery 列目录参数，Path 为空表示根目录.
type ListFilesQuery struct {
	Path string `form:"path" rule:"omitempty,drivepath"`
}

// ListFilesResponse 目录内容，目录在前.
type ListFilesResponse struct {
	Path    string      `json:"path"`
	Folders []FileEntry `json:"folders"`
	Files   []FileEntry `json:"files"`
}

// CreateFolderRequest 创建文件夹请求.
type CreateFolderRequest struct {
	Path string `json:"path" rule:"omitempty,drivepath"`
	Name string `json:"name" rule:"required,max=255"`
}

// CreateFolderResponse 创建文件夹响应.
type CreateFolderResponse struct {
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

// PathQuery 以 query 传入单个路径.
type PathQuery struct {
	Path string `form:"path" rule:"required,drivepath"`
}

// DeleteResponse 删除结果.
type DeleteResponse struct {
	Deleted int `json:"deleted"`
}

// DownloadQuery 下载参数，Inline 为真时直接返回对象内容.
type DownloadQuery struct {
	Path   string `form:"path"   rule:"required,drivepath"`
	Inline bool   `form:"inline"`
}

// DownloadResponse 预签名下载链接.
type DownloadResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PutContentRequest 覆盖保存文本文件.
type PutContentRequest struct {
	Path    string `json:"path"    rule:"required,drivepath"`
	Content string `json:"content"`
}

// PutContentResponse 保存结果.
type PutContentResponse struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}
