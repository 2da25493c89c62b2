package http

type ErrorResponse struct {
	Message string `json:"message"`
}

type InfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	IsRelease bool   `json:"isRelease"`
}

type AboutResponse struct {
	Description string   `json:"description"`
	Routes      []string `json:"routes"`
}

type UserResponse struct {
	ID      string `json:"id"`
	Data    any    `json:"data"`
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

type PreferenceResponse struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type GetLogOutputRequest struct {
	MaxLen int `query:"maxLen"`
}

type GetLogOutputResponse struct {
	Log string `json:"log"`
}
