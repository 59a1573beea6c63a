package errors

import (
	"fmt"
	"io"
)

// Kind identifies one of the native error constructors a thrown error object
// was created from.
type Kind uint8

const (
	KindError Kind = iota
	KindTypeError
	KindRangeError
	KindReferenceError
	KindSyntaxError
)

// Kinds lists every kind in installation order.
var Kinds = []Kind{KindError, KindTypeError, KindRangeError, KindReferenceError, KindSyntaxError}

// String returns the constructor name, which is also the prototype's "name".
func (k Kind) String() string {
	switch k {
	case KindTypeError:
		return "TypeError"
	case KindRangeError:
		return "RangeError"
	case KindReferenceError:
		return "ReferenceError"
	case KindSyntaxError:
		return "SyntaxError"
	default:
		return "Error"
	}
}

// ParseKind maps a constructor name back to its Kind.
func ParseKind(name string) (Kind, bool) {
	for _, k := range Kinds {
		if k.String() == name {
			return k, true
		}
	}
	return KindError, false
}

// Report describes an exception that escaped to the host.
type Report struct {
	Name    string
	Message string
	// Detail is the ToString of the thrown value when it was not an error object.
	Detail string
	Cause  error
}

func (r *Report) Error() string {
	switch {
	case r.Name != "" && r.Message != "":
		return fmt.Sprintf("Uncaught %s: %s", r.Name, r.Message)
	case r.Name != "":
		return "Uncaught " + r.Name
	default:
		return "Uncaught " + r.Detail
	}
}

func (r *Report) Unwrap() error { return r.Cause }

// Kind returns the native kind named by the report, if any.
func (r *Report) Kind() (Kind, bool) {
	return ParseKind(r.Name)
}

// DisplayReports prints uncaught exception reports one per line.
func DisplayReports(w io.Writer, reports []*Report) {
	for _, r := range reports {
		fmt.Fprintln(w, r.Error())
	}
}
