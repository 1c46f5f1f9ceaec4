package gtpv2c

import "fmt"

// CapacityError reports a write that would overflow MaxMessageLength.
// It is not retryable: a message that does not fit indicates the caller
// assembled more content than the single-datagram transport allows and
// must be restructured, not re-encoded.
type CapacityError struct {
	IEType uint8 // IE being written when the limit was hit
	Needed int   // header+body bytes of the rejected write
	Length int   // running message length at the time
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("message length %d cannot take %d more bytes for IE type %d (limit %d)",
		e.Length, e.Needed, e.IEType, MaxMessageLength)
}
