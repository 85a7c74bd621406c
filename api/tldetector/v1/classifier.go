package tldetectorv1

const (
	ClassifierServiceName = "tlclassifier.v1.ClassifierService"

	ClassifierServiceClassifyProcedure = "/" + ClassifierServiceName + "/Classify"
)

// ClassifyRequest 外部分类服务请求
type ClassifyRequest struct {
	Variant string             `json:"variant"` // 模型变体（sim|site）
	Image   UpdateImageRequest `json:"image"`
}

// ClassifyResponse 外部分类服务响应
type ClassifyResponse struct {
	State int32 `json:"state"`
}
