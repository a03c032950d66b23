package quota

// Level 使用率档位.
type Level string

const (
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// AverageFileBytes 估算剩余可上传文件数时假定的平均文件大小.
const AverageFileBytes = int64(10) << 20

// Recommendation 用量建议.
type Recommendation struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Recommend 根据使用率给出建议.
func Recommend(percent float64) Recommendation {
	switch {
	case percent > 95:
		return Recommendation{LevelCritical, "Storage is almost full. Delete unused files before uploading more."}
	case percent > 80:
		return Recommendation{LevelHigh, "Storage is filling up. Consider cleaning up large or old files."}
	case percent > 60:
		return Recommendation{LevelModerate, "Storage use is moderate. Keep an eye on large uploads."}
	default:
		return Recommendation{LevelLow, "Plenty of space available."}
	}
}

// FilesRemaining 按 AverageFileBytes 粗略估算还能上传的文件数.
func FilesRemaining(remaining int64) int64 {
	if remaining <= 0 {
		return 0
	}

	return remaining / AverageFileBytes
}
