package response

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Response wraps every successful reply. Message is a human summary the UI
// can show as is, e.g. an import's created/updated/skipped counts.
type Response struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func SuccessResponse(data interface{}) Response {
	return Response{
		Status: statusSuccess,
		Data:   data,
	}
}

// MessageResponse acknowledges a command that has no payload worth returning.
func MessageResponse(msg string) Response {
	return Response{
		Status:  statusSuccess,
		Message: msg,
	}
}

func SummaryResponse(data interface{}, summary string) Response {
	return Response{
		Status:  statusSuccess,
		Data:    data,
		Message: summary,
	}
}
