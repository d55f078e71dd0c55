package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"booking-api/internal/logger"
	"booking-api/internal/service"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}

// decode reads a JSON object into v. An empty body decodes as {}.
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

var httpStatus = map[codes.Code]int{
	codes.InvalidArgument:    http.StatusBadRequest,
	codes.Unauthenticated:    http.StatusUnauthorized,
	codes.PermissionDenied:   http.StatusForbidden,
	codes.NotFound:           http.StatusNotFound,
	codes.AlreadyExists:      http.StatusConflict,
	codes.FailedPrecondition: http.StatusConflict,
	codes.ResourceExhausted:  http.StatusTooManyRequests,
}

// writeError maps a service status error onto the HTTP response. Validation
// errors become a field -> message object, everything else {"detail": ...}.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	st := status.Convert(err)
	code, ok := httpStatus[st.Code()]
	if !ok {
		logger.FromContext(r.Context()).Error("request error",
			zap.String("code", st.Code().String()), zap.String("error", st.Message()))
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	if st.Code() == codes.InvalidArgument {
		if fields := service.FieldViolations(err); len(fields) > 0 {
			writeJSON(w, code, fields)
			return
		}
	}
	writeDetail(w, code, st.Message())
}

func badBody(w http.ResponseWriter, err error) {
	writeDetail(w, http.StatusBadRequest, "JSON parse error - "+err.Error())
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeDetail(w, http.StatusNotFound, "Not found.")
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeDetail(w, http.StatusMethodNotAllowed, `Method "`+r.Method+`" not allowed.`)
}
