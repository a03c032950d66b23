package types

import (
	"time"

	"github.com/yeisme/drivemini/pkg/internal/quota"
)

// UploadState 单个文件的上传状态.
type UploadState string

const (
	UploadPending   UploadState = "pending"
	UploadZipping   UploadState = "zipping"
	UploadUploading UploadState = "uploading"
	UploadDone      UploadState = "done"
	UploadError     UploadState = "error"
)

// UploadFileStatus 单个文件的进度.
type UploadFileStatus struct {
	Name          string      `json:"name"`
	StoredName    string      `json:"stored_name"`
	Path          string      `json:"path"`
	Size          int64       `json:"size"`
	State         UploadState `json:"state"`
	Zipped        bool        `json:"zipped,omitempty"`
	BytesUploaded int64       `json:"bytes_uploaded"`
	Error         string      `json:"error,omitempty"`
}

// UploadTask 一批上传的整体状态，保存在 KV 中.
type UploadTask struct {
	ID        string             `json:"id"`
	Path      string             `json:"path"`
	Files     []UploadFileStatus `json:"files"`
	Decision  quota.Decision     `json:"decision"`
	Done      bool               `json:"done"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// UploadQuery 上传表单参数.
type UploadQuery struct {
	Path string `form:"path" rule:"omitempty,drivepath"`
}

// UploadTaskQuery 任务查询参数.
type UploadTaskQuery struct {
	ID string `uri:"id" rule:"required,len=26"`
}
