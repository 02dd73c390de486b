// Package form binds submitted form values and reports failures in the
// shape the UI renders: an echo of what was submitted plus messages keyed
// by field name, with "" holding form-level messages.
package form

import (
	"errors"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	StatusIdle    = "idle"
	StatusError   = "error"
	StatusSuccess = "success"
)

// Submission echoes a form post back to the client.
type Submission struct {
	Status       string              `json:"status"`
	InitialValue map[string]string   `json:"initialValue"`
	Error        map[string][]string `json:"error,omitempty"`
}

// Reply is the body of every 400 response produced by a form.
type Reply struct {
	Result *Submission `json:"result"`
}

func Idle(initial map[string]string) *Submission {
	if initial == nil {
		initial = map[string]string{}
	}
	return &Submission{Status: StatusIdle, InitialValue: initial}
}

func FromValues(values url.Values) *Submission {
	s := &Submission{Status: StatusSuccess, InitialValue: map[string]string{}}
	for k, v := range values {
		if len(v) > 0 {
			s.InitialValue[k] = v[0]
		}
	}
	return s
}

func (s *Submission) FieldError(field, msg string) {
	if s.Error == nil {
		s.Error = map[string][]string{}
	}
	s.Error[field] = append(s.Error[field], msg)
	s.Status = StatusError
}

func (s *Submission) FormError(msg string) {
	s.FieldError("", msg)
}

// Hide removes sensitive fields from the echoed values.
func (s *Submission) Hide(fields ...string) *Submission {
	for _, f := range fields {
		delete(s.InitialValue, f)
	}
	return s
}

func (s *Submission) Failed() bool {
	return len(s.Error) > 0
}

func (s *Submission) Reply() Reply {
	return Reply{Result: s}
}

var (
	usernameRe   = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	registerOnce sync.Once
)

func registerValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	})
}

// Bind decodes the request into dst (query for GET, body otherwise) and
// returns the submission echo. Validation failures are already recorded on
// the returned submission; callers add cross-field errors and check Failed.
func Bind(c *gin.Context, dst any) *Submission {
	registerOnce.Do(registerValidations)

	err := c.ShouldBind(dst)
	values := c.Request.Form
	if c.Request.Method == "GET" {
		values = c.Request.URL.Query()
	}
	sub := FromValues(values)
	if err == nil {
		return sub
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		sub.FormError("Invalid submission")
		return sub
	}
	for _, fe := range verrs {
		sub.FieldError(fe.Field(), Message(fe.Field(), fe.Tag()))
	}
	return sub
}
