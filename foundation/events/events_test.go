package events_test

import (
	"testing"

	"github.com/ardanlabs/poolchain/foundation/events"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Events(t *testing.T) {
	t.Log("Given the need to fan events out to subscribers.")
	{
		evts := events.New()

		a := evts.Acquire("a")
		b := evts.Acquire("b")

		if evts.Acquire("a") != a {
			t.Fatalf("\t%s\tShould get back the same channel for a known id.", failed)
		}
		t.Logf("\t%s\tShould get back the same channel for a known id.", success)

		evts.Sendf("block[%d]", 7)

		for _, ch := range []chan string{a, b} {
			if got := <-ch; got != "block[7]" {
				t.Fatalf("\t%s\tShould receive the formatted event : got %q", failed, got)
			}
		}
		t.Logf("\t%s\tShould deliver the event to every subscriber.", success)

		if err := evts.Release("a"); err != nil {
			t.Fatalf("\t%s\tShould be able to release a subscriber : %s", failed, err)
		}
		if err := evts.Release("a"); err == nil {
			t.Fatalf("\t%s\tShould not release an unknown subscriber.", failed)
		}
		if _, open := <-a; open {
			t.Fatalf("\t%s\tShould close the released channel.", failed)
		}
		t.Logf("\t%s\tShould release subscribers once.", success)

		for i := 0; i < 105; i++ {
			evts.Send("tick")
		}
		if got := evts.Dropped("b"); got != 5 {
			t.Fatalf("\t%s\tShould count events dropped for a slow subscriber : got %d", failed, got)
		}
		t.Logf("\t%s\tShould count events dropped for a slow subscriber.", success)

		evts.Shutdown()
		if evts.Len() != 0 {
			t.Fatalf("\t%s\tShould remove every subscriber on shutdown.", failed)
		}
		t.Logf("\t%s\tShould remove every subscriber on shutdown.", success)
	}
}
