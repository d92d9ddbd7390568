package request

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/elevconsts"
)

var (
	ErrMalformedLine    = errors.New("malformed request line")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)

var timestampPattern = regexp.MustCompile(`^(\d{1,2}):(\d{1,2}):(\d{1,2})\.(\d{1,9})$`)

// ValidTimestamp checks the H:M:S.f time-of-day grammar of the workload file.
func ValidTimestamp(ts string) bool {
	m := timestampPattern.FindStringSubmatch(ts)
	if m == nil {
		return false
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	sec, _ := strconv.Atoi(m[3])
	return h <= 23 && min <= 59 && sec <= 59
}

// ParseLine reads "<timestamp> <origin> <direction> <destination>",
// e.g. "14:05:15.2 2 Up 4".
func ParseLine(line string) (Request, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return Request{}, fmt.Errorf("%w: expected 4 fields, got %d in %q", ErrMalformedLine, len(fields), line)
	}

	if !ValidTimestamp(fields[0]) {
		return Request{}, fmt.Errorf("%w: %w %q", ErrMalformedLine, ErrInvalidTimestamp, fields[0])
	}

	origin, err := parseFloor(fields[1])
	if err != nil {
		return Request{}, fmt.Errorf("%w: origin: %w", ErrMalformedLine, err)
	}

	direction, ok := elevconsts.ParseDirection(fields[2])
	if !ok {
		return Request{}, fmt.Errorf("%w: %w %q", ErrMalformedLine, ErrBadDirection, fields[2])
	}

	destination, err := parseFloor(fields[3])
	if err != nil {
		return Request{}, fmt.Errorf("%w: destination: %w", ErrMalformedLine, err)
	}

	if origin == destination {
		return Request{}, fmt.Errorf("%w: origin and destination are both %d", ErrMalformedLine, origin)
	}

	return New(fields[0], origin, direction, destination), nil
}

func parseFloor(token string) (int, error) {
	floor, err := strconv.Atoi(token)
	if err != nil {
		return 0, fmt.Errorf("floor %q is not a number", token)
	}
	if floor < elevconsts.GROUND_FLOOR {
		return 0, fmt.Errorf("floor %d is below the ground floor", floor)
	}
	return floor, nil
}

// Line renders the request back into its workload text form.
func (r Request) Line() string {
	return fmt.Sprintf("%s %d %v %d", r.Timestamp, r.Origin, r.Direction, r.Destination)
}

// ParseWorkload parses a whole workload file. Blank lines and lines starting
// with '#' are skipped; the first malformed line aborts the parse.
func ParseWorkload(reader io.Reader) ([]Request, error) {
	var requests []Request

	scanner := bufio.NewScanner(reader)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		req, err := ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNumber, err)
		}
		requests = append(requests, req)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading workload: %w", err)
	}
	return requests, nil
}
