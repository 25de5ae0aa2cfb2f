package handlers

import (
	"net/http"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/logx"
)

var statusByKind = map[apperr.Kind]int{
	apperr.KindValidation:    http.StatusBadRequest,
	apperr.KindPermission:    http.StatusForbidden,
	apperr.KindNotFound:      http.StatusNotFound,
	apperr.KindStateConflict: http.StatusConflict,
	apperr.KindPrecondition:  http.StatusUnprocessableEntity,
}

// writeAppError maps an application error onto a status code and body. Anything that is not
// a client-facing *apperr.Error becomes a 500 without details.
func writeAppError(logger logx.Logger, w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		if logger != nil {
			logger.Error("request failed",
				logx.String("request_id", reqID(r.Context())),
				logx.String("method", r.Method),
				logx.String("path", r.URL.Path),
				logx.Any("err", err),
			)
		}
		writeError(logger, w, r, http.StatusInternalServerError, "internal error", "")
		return
	}

	reason := apperr.ReasonOf(err)
	if reason == "" {
		reason = string(kind)
	}
	writeError(logger, w, r, status, apperr.MessageOf(err), reason)
}
