package request

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/elevconsts"
)

// Wire layout, big-endian, BUFFER_LEN bytes in total:
//
//	 0  origin          int32
//	 4  destination     int32
//	 8  direction       int32 (0 Up, 1 Down)
//	12  elevator        int32 (-1 unassigned)
//	16  flags           uint8
//	17  reserved        3 bytes
//	20  request id      16 bytes
//	36  timestamp text  NUL padded to the end of the buffer
const (
	OFFSET_ORIGIN      = 0
	OFFSET_DESTINATION = 4
	OFFSET_DIRECTION   = 8
	OFFSET_ELEVATOR    = 12
	OFFSET_FLAGS       = 16
	OFFSET_ID          = 20
	OFFSET_TIMESTAMP   = 36

	MAX_TIMESTAMP_LEN = elevconsts.BUFFER_LEN - OFFSET_TIMESTAMP
)

const (
	flagComplete byte = 1 << iota
	flagTimerFault
	flagLocation
)

var (
	ErrShortBuffer      = errors.New("buffer shorter than the fixed header")
	ErrBadDirection     = errors.New("invalid direction")
	ErrTimestampTooLong = errors.New("timestamp does not fit the wire record")
	ErrFieldRange       = errors.New("field does not fit in 32 bits")
	ErrBadFloor         = errors.New("floor below the ground floor")
)

// Encode returns the fixed BUFFER_LEN byte record for r.
func Encode(r Request) ([]byte, error) {
	if len(r.Timestamp) > MAX_TIMESTAMP_LEN {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrTimestampTooLong, len(r.Timestamp), MAX_TIMESTAMP_LEN)
	}
	if !utf8.ValidString(r.Timestamp) || bytes.IndexByte([]byte(r.Timestamp), 0) >= 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimestamp, r.Timestamp)
	}
	if !r.Direction.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrBadDirection, r.Direction)
	}
	for _, v := range []int{r.Origin, r.Destination, r.Elevator} {
		if v < math.MinInt32 || v > math.MaxInt32 {
			return nil, fmt.Errorf("%w: %d", ErrFieldRange, v)
		}
	}

	buf := make([]byte, elevconsts.BUFFER_LEN)
	binary.BigEndian.PutUint32(buf[OFFSET_ORIGIN:], uint32(int32(r.Origin)))
	binary.BigEndian.PutUint32(buf[OFFSET_DESTINATION:], uint32(int32(r.Destination)))
	binary.BigEndian.PutUint32(buf[OFFSET_DIRECTION:], uint32(r.Direction))
	binary.BigEndian.PutUint32(buf[OFFSET_ELEVATOR:], uint32(int32(r.Elevator)))

	var flags byte
	if r.Complete {
		flags |= flagComplete
	}
	if r.TimerFault {
		flags |= flagTimerFault
	}
	if r.Location {
		flags |= flagLocation
	}
	buf[OFFSET_FLAGS] = flags

	copy(buf[OFFSET_ID:OFFSET_TIMESTAMP], r.ID[:])
	copy(buf[OFFSET_TIMESTAMP:], r.Timestamp)

	return buf, nil
}

// Decode reads a wire record. Everything after the first NUL of the
// timestamp area, and anything past BUFFER_LEN, is padding and ignored.
func Decode(buf []byte) (Request, error) {
	if len(buf) < OFFSET_TIMESTAMP {
		return Request{}, fmt.Errorf("%w: got %d bytes, need %d", ErrShortBuffer, len(buf), OFFSET_TIMESTAMP)
	}
	if len(buf) > elevconsts.BUFFER_LEN {
		buf = buf[:elevconsts.BUFFER_LEN]
	}

	direction := elevconsts.Direction(int32(binary.BigEndian.Uint32(buf[OFFSET_DIRECTION:])))
	if !direction.Valid() {
		return Request{}, fmt.Errorf("%w: ordinal %d", ErrBadDirection, direction)
	}

	text := buf[OFFSET_TIMESTAMP:]
	if end := bytes.IndexByte(text, 0); end >= 0 {
		text = text[:end]
	}
	if !utf8.Valid(text) {
		return Request{}, fmt.Errorf("%w: not valid UTF-8", ErrInvalidTimestamp)
	}

	flags := buf[OFFSET_FLAGS]
	r := Request{
		Timestamp:   string(text),
		Origin:      int(int32(binary.BigEndian.Uint32(buf[OFFSET_ORIGIN:]))),
		Destination: int(int32(binary.BigEndian.Uint32(buf[OFFSET_DESTINATION:]))),
		Direction:   direction,
		Elevator:    int(int32(binary.BigEndian.Uint32(buf[OFFSET_ELEVATOR:]))),
		Complete:    flags&flagComplete != 0,
		TimerFault:  flags&flagTimerFault != 0,
		Location:    flags&flagLocation != 0,
	}
	copy(r.ID[:], buf[OFFSET_ID:OFFSET_TIMESTAMP])

	if r.Origin < elevconsts.GROUND_FLOOR || r.Destination < elevconsts.GROUND_FLOOR {
		return Request{}, fmt.Errorf("%w: origin %d, destination %d", ErrBadFloor, r.Origin, r.Destination)
	}
	return r, nil
}
