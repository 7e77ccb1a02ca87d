package convert

// ErrorResponse is the body of every failed request. Successful requests
// bind and answer with domain.ConversionRequest and domain.ConversionResult.
type ErrorResponse struct {
	Error string `json:"error"`
}
