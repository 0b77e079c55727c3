package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/primdiff/internal/primitive"
)

// AssertionError is returned when a frame or the final scene does not match
// its clause.
type AssertionError struct {
	Where    string // "frame[3].added" or "final.types.BOX"
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Where, e.Expected, e.Actual)
}

func checkExpect(frame int, expect *ExpectClause, ev TraceEvent) []error {
	var errs []error
	where := func(field string) string { return fmt.Sprintf("frame[%d].%s", frame, field) }

	if expect.Error != "" || ev.Error != "" {
		if expect.Error != ev.Error {
			errs = append(errs, &AssertionError{
				Where:    where("error"),
				Expected: errorOrNone(expect.Error),
				Actual:   errorOrNone(ev.Error),
			})
		}
	}

	errs = appendCount(errs, where("added"), expect.Added, len(ev.Added))
	errs = appendCount(errs, where("removed"), expect.Removed, len(ev.Removed))
	errs = appendCount(errs, where("live"), expect.Live, ev.Live)
	return errs
}

func checkFinal(final *FinalClause, result *Result) []error {
	var errs []error
	errs = appendCount(errs, "final.live", final.Live, len(result.Scene))

	if len(final.Types) == 0 {
		return errs
	}
	got := result.LiveByType()
	names := make([]string, 0, len(final.Types))
	for name := range final.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		canonical := strings.ToUpper(name)
		if typ, ok := primitive.Default().ByName(name); ok {
			canonical = typ.Name
		}
		want := final.Types[name]
		errs = appendCount(errs, "final.types."+canonical, &want, got[canonical])
	}
	return errs
}

func appendCount(errs []error, where string, want *int, got int) []error {
	if want == nil || *want == got {
		return errs
	}
	return append(errs, &AssertionError{
		Where:    where,
		Expected: fmt.Sprint(*want),
		Actual:   fmt.Sprint(got),
	})
}

func errorOrNone(code string) string {
	if code == "" {
		return "no error"
	}
	return code
}
