package arbiter_test

import (
	"encoding/json"
	"testing"

	"github.com/matryer/is"

	"github.com/arbiterhq/arbiter"
)

func TestResultString(t *testing.T) {
	is := is.New(t)

	is.Equal(arbiter.Maybe.String(), "MAYBE")
	is.Equal(arbiter.Valid.String(), "VALID")
	is.Equal(arbiter.Invalid.String(), "INVALID")
	is.Equal(arbiter.OperationNotSupported.String(), "OPERATION_NOT_SUPPORTED")
	is.Equal(arbiter.Failed.String(), "FAILED")
}

func TestResultTextRoundTrip(t *testing.T) {
	is := is.New(t)

	for _, r := range []arbiter.Result{
		arbiter.Maybe,
		arbiter.Valid,
		arbiter.Invalid,
		arbiter.OperationNotSupported,
		arbiter.Failed,
	} {
		b, err := json.Marshal(r)
		is.NoErr(err)

		var back arbiter.Result
		is.NoErr(json.Unmarshal(b, &back))
		is.Equal(back, r)
	}

	var r arbiter.Result
	if err := json.Unmarshal([]byte(`"BOGUS"`), &r); err == nil {
		t.Fatal("expected error for unknown result name")
	}
}
