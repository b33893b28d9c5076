package api

// TriggerRequest is the body of POST /api/v1/engine/process.
type TriggerRequest struct {
	BatchID         string `json:"batch_id" validate:"required"`
	UsersFilePath   string `json:"users_file_path" validate:"required"`
	CoursesFilePath string `json:"courses_file_path" validate:"required"`
	TopK            int    `json:"top_k" validate:"gte=0"`
	CallbackURL     string `json:"callback_url" validate:"omitempty,url"`
}

// TriggerResponse acknowledges acceptance of a batch for processing.
type TriggerResponse struct {
	BatchID string `json:"batch_id"`
	Status  string `json:"status"`
}

// ErrorResponse is the body returned for non-2xx trigger responses.
type ErrorResponse struct {
	ErrorCode    string      `json:"error_code"`
	ErrorMessage string      `json:"error_message"`
	Details      interface{} `json:"details,omitempty"`
}

// InfoResponse is returned by GET /api/v1/info.
type InfoResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
}
