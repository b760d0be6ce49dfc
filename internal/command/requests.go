package command

// StartRequest 对应 start 操作。
type StartRequest struct {
	Port int `json:"port" validate:"min=0,max=65535"`
}

// AddJSONRouteRequest 对应 addJsonRoute；method 只要求非空，合法性由引擎在应用时判断。
type AddJSONRouteRequest struct {
	Method       string `json:"method" validate:"required"`
	Path         string `json:"path" validate:"required"`
	ResponseBody any    `json:"responseBody"`
	StatusCode   int    `json:"statusCode" validate:"omitempty,min=100,max=599"`
}

// AddTextRouteRequest 对应 addTextRoute。
type AddTextRouteRequest struct {
	Method       string `json:"method" validate:"required"`
	Path         string `json:"path" validate:"required"`
	ResponseText string `json:"responseText"`
	ContentType  string `json:"contentType"`
}

// AddStaticDirRequest 对应 addStaticDir；目录是否存在交给引擎判断。
type AddStaticDirRequest struct {
	URLPath string `json:"urlPath" validate:"required"`
	FSPath  string `json:"fsPath" validate:"required"`
}

// noArgs is used by operations without parameters.
type noArgs struct{}
