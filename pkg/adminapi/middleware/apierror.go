package middleware

// apiError is the JSON error envelope returned by admin API middleware
// (panic recovery, timeouts) when a handler cannot complete normally.
type apiError struct {
	Error apiErrorDetail `json:"error"`
}

type apiErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func newServerError(message string) apiError {
	return apiError{Error: apiErrorDetail{Message: message, Type: "server_error"}}
}

func newGatewayTimeoutError(message string) apiError {
	return apiError{Error: apiErrorDetail{Message: message, Type: "timeout_error"}}
}
