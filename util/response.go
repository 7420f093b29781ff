package util

import "errors"

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

type ErrorBody struct {
	Kind    Kind   `json:"kind"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func SuccessResponse(data interface{}) Response {
	return Response{Success: true, Data: data}
}

/*
* AppErrors keep their kind and code
* Anything else is reported as an internal error with its message
 */
func FailedResponse(err error) Response {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return Response{Error: &ErrorBody{Kind: appErr.Kind, Code: appErr.Code, Message: appErr.Message}}
	}
	return Response{Error: &ErrorBody{Kind: KindInternal, Message: err.Error()}}
}
