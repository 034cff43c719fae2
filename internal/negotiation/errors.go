package negotiation

import "errors"

var ErrNothingToNegotiate = errors.New("no price anomalies to negotiate")
