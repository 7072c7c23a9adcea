package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	xerrors "TaskHub/internal/errors"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// statusFor 把错误类别映射为 HTTP 状态码。
func statusFor(kind xerrors.Kind) int {
	switch kind {
	case xerrors.KindInvalidID, xerrors.KindValidation, xerrors.KindParse:
		return http.StatusBadRequest
	case xerrors.KindNotFound:
		return http.StatusNotFound
	case xerrors.KindTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := xerrors.From(err)
	if !ok {
		e = xerrors.Wrap(xerrors.CodeUnknown, err, "internal error")
	}
	status := statusFor(e.Kind())
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("code", string(e.Code())),
			slog.String("severity", string(e.Severity())),
			slog.Any("error", err),
		)
	}
	writeJSON(w, status, errorBody{Error: e.Message(), Code: string(e.Code())})
}

func badRequest(message string) error {
	return xerrors.New(xerrors.CodeInvalidArgument, message)
}
