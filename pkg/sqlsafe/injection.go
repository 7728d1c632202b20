package sqlsafe

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes an injection pattern found in a bound value.
type InjectionCheckResult struct {
	Fingerprint string // libinjection fingerprint of the detected pattern
	Position    int    // index of the offending argument in the bind list
}

// CheckArgsForInjection runs libinjection over the bound arguments of a
// rendered statement. Bound values cannot alter the SQL text, so this is
// defense in depth rather than the primary control, but a caller passing an
// obvious injection payload as a value is worth rejecting loudly.
//
// Only string values are checked; numbers and booleans cannot carry
// injection patterns. Returns nil if all arguments are clean.
func CheckArgsForInjection(args []any) *InjectionCheckResult {
	for i, arg := range args {
		strValue, ok := arg.(string)
		if !ok {
			continue
		}
		if isSQLi, fingerprint := libinjection.IsSQLi(strValue); isSQLi {
			return &InjectionCheckResult{
				Fingerprint: string(fingerprint),
				Position:    i,
			}
		}
	}
	return nil
}
