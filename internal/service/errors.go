package service

import (
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"booking-api/internal/store"
)

const msgRequired = "This field is required."

// fieldErrors collects per-field validation messages in insertion order.
type fieldErrors struct {
	fields []string
	msgs   map[string]string
}

func (f *fieldErrors) add(field, msg string) {
	if f.msgs == nil {
		f.msgs = make(map[string]string)
	}
	if _, ok := f.msgs[field]; ok {
		return
	}
	f.fields = append(f.fields, field)
	f.msgs[field] = msg
}

// err returns nil when nothing was added, otherwise an InvalidArgument
// status carrying a BadRequest detail with one violation per field.
func (f *fieldErrors) err() error {
	if len(f.fields) == 0 {
		return nil
	}
	br := &errdetails.BadRequest{}
	for _, k := range f.fields {
		br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
			Field:       k,
			Description: f.msgs[k],
		})
	}
	st := status.New(codes.InvalidArgument, "invalid input")
	if ds, err := st.WithDetails(br); err == nil {
		return ds.Err()
	}
	return st.Err()
}

func invalid(field, msg string) error {
	var f fieldErrors
	f.add(field, msg)
	return f.err()
}

// FieldViolations extracts field -> message from a validation error.
func FieldViolations(err error) map[string]string {
	st, ok := status.FromError(err)
	if !ok {
		return nil
	}
	var out map[string]string
	for _, d := range st.Details() {
		br, ok := d.(*errdetails.BadRequest)
		if !ok {
			continue
		}
		for _, v := range br.GetFieldViolations() {
			if out == nil {
				out = make(map[string]string)
			}
			out[v.GetField()] = v.GetDescription()
		}
	}
	return out
}

var (
	errNotFound = status.Error(codes.NotFound, "Not found.")
	errDenied   = status.Error(codes.PermissionDenied, "You do not have permission to perform this action.")
)

// storeErr converts a store failure into a status error. Unknown errors
// become Internal and must be logged by the caller's transport.
func storeErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return errNotFound
	case errors.Is(err, store.ErrConflict):
		return status.Error(codes.AlreadyExists, "conflict")
	}
	return status.Error(codes.Internal, err.Error())
}
