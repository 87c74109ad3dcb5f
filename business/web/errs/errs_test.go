package errs_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/ardanlabs/poolchain/business/web/errs"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Map(t *testing.T) {
	errStale := errors.New("stale")
	errUnknown := errors.New("unknown")

	statuses := map[error]int{
		errStale:   http.StatusConflict,
		errUnknown: http.StatusNotFound,
	}

	t.Log("Given the need to map domain errors to status codes.")
	{
		err := errs.Map(fmt.Errorf("adding block: %w", errStale), statuses)

		te := errs.GetTrusted(err)
		if te == nil || te.Status != http.StatusConflict {
			t.Fatalf("\t%s\tShould map a wrapped sentinel to its status : %v", failed, err)
		}
		t.Logf("\t%s\tShould map a wrapped sentinel to its status.", success)

		if !errors.Is(err, errStale) {
			t.Fatalf("\t%s\tShould keep the sentinel in the chain.", failed)
		}
		t.Logf("\t%s\tShould keep the sentinel in the chain.", success)

		other := errors.New("disk full")
		if errs.IsTrusted(errs.Map(other, statuses)) {
			t.Fatalf("\t%s\tShould not trust an unmapped error.", failed)
		}
		t.Logf("\t%s\tShould not trust an unmapped error.", success)
	}
}
