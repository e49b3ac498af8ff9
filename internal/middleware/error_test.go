package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

var errorCodes = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusForbidden,
	http.StatusNotFound,
	http.StatusConflict,
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
}

func TestProperty_ErrorsHaveConsistentStructure(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("error body carries code, message and RFC3339 timestamp", prop.ForAll(
		func(i int, message string) bool {
			status := errorCodes[i]
			w := httptest.NewRecorder()
			RespondWithError(w, status, message)

			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				return false
			}
			_, err := time.Parse(time.RFC3339, resp.Error.Timestamp)
			return w.Code == status &&
				w.Header().Get("Content-Type") == "application/json" &&
				resp.Error.Status == status &&
				resp.Error.Code != "" && !strings.Contains(resp.Error.Code, " ") &&
				resp.Error.Message == message &&
				err == nil
		},
		gen.IntRange(0, len(errorCodes)-1),
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestValidationErrorsLandInDetails(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithValidationErrors(w, []ValidationError{{Field: "address_id", Message: "This field is required"}})

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w.Code != http.StatusBadRequest || resp.Error.Details["validation_errors"] == nil {
		t.Errorf("response = %d %+v", w.Code, resp)
	}
}

func TestPanicsBecome500(t *testing.T) {
	handler := ErrorHandlingMiddleware(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/cart", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", w.Code)
	}
}

func TestErrorCodes(t *testing.T) {
	cases := map[int]string{
		http.StatusPaymentRequired: "payment_required",
		http.StatusConflict:        "conflict",
		http.StatusBadGateway:      "bad_gateway",
		599:                        "error",
	}
	for status, want := range cases {
		if got := errorCode(status); got != want {
			t.Errorf("errorCode(%d) = %q, want %q", status, got, want)
		}
	}
}

func TestUnencodablePayloadIs500(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithJSON(w, http.StatusOK, map[string]any{"bad": make(chan int)})
	if w.Code != http.StatusInternalServerError || !json.Valid(w.Body.Bytes()) {
		t.Errorf("response = %d %s", w.Code, w.Body.String())
	}
}
