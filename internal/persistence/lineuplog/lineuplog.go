// Package lineuplog encodes confirmed line-ups as the positional strings kept
// in the manager's event log:
//
//	boatType,member1,score1,...,memberN,scoreN,idealScore,mistake1,...,mistakeK,timeOffset
//
// The number of slots is not written; the decoder takes it from the boat
// catalog.
package lineuplog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	Delimiter = ","
	// EmptySlot stands in for a slot nobody held.
	EmptySlot = "null"
)

var ErrMalformed = errors.New("malformed line-up entry")

type Slot struct {
	Member string
	Score  int
}

type Entry struct {
	BoatType   string
	Slots      []Slot
	IdealScore int
	Mistakes   []string
	TimeOffset int
}

// SlotCounter reports how many slots a boat type has.
type SlotCounter func(boatType string) (int, bool)

func Encode(e Entry) (string, error) {
	fields := make([]string, 0, 3+2*len(e.Slots)+len(e.Mistakes))
	if err := checkField(e.BoatType); err != nil || e.BoatType == "" {
		return "", fmt.Errorf("%w: boat type %q", ErrMalformed, e.BoatType)
	}
	fields = append(fields, e.BoatType)
	for _, s := range e.Slots {
		name := s.Member
		if name == "" {
			name = EmptySlot
		}
		if err := checkField(name); err != nil {
			return "", err
		}
		fields = append(fields, name, strconv.Itoa(s.Score))
	}
	fields = append(fields, strconv.Itoa(e.IdealScore))
	for _, m := range e.Mistakes {
		if err := checkField(m); err != nil || m == "" {
			return "", fmt.Errorf("%w: mistake %q", ErrMalformed, m)
		}
		fields = append(fields, m)
	}
	fields = append(fields, strconv.Itoa(e.TimeOffset))
	return strings.Join(fields, Delimiter), nil
}

func Decode(raw string, slots SlotCounter) (Entry, error) {
	var e Entry
	f := strings.Split(raw, Delimiter)
	if len(f) < 3 {
		return e, fmt.Errorf("%w: %d fields", ErrMalformed, len(f))
	}
	e.BoatType = f[0]
	n, ok := slots(e.BoatType)
	if !ok {
		return e, fmt.Errorf("%w: unknown boat type %q", ErrMalformed, e.BoatType)
	}
	if len(f) < 1+2*n+2 {
		return e, fmt.Errorf("%w: %d fields for %d slots", ErrMalformed, len(f), n)
	}
	e.Slots = make([]Slot, 0, n)
	for i := 0; i < n; i++ {
		name := f[1+2*i]
		score, err := strconv.Atoi(f[2+2*i])
		if err != nil {
			return e, fmt.Errorf("%w: slot %d score: %v", ErrMalformed, i, err)
		}
		if name == EmptySlot {
			name = ""
		}
		e.Slots = append(e.Slots, Slot{Member: name, Score: score})
	}
	ideal, err := strconv.Atoi(f[1+2*n])
	if err != nil {
		return e, fmt.Errorf("%w: ideal score: %v", ErrMalformed, err)
	}
	e.IdealScore = ideal
	last := len(f) - 1
	offset, err := strconv.Atoi(f[last])
	if err != nil {
		return e, fmt.Errorf("%w: time offset: %v", ErrMalformed, err)
	}
	e.TimeOffset = offset
	if mistakes := f[2+2*n : last]; len(mistakes) > 0 {
		e.Mistakes = append([]string(nil), mistakes...)
	}
	return e, nil
}

func checkField(s string) error {
	if strings.Contains(s, Delimiter) {
		return fmt.Errorf("%w: %q contains %q", ErrMalformed, s, Delimiter)
	}
	return nil
}

// Score is the sum of slot scores.
func (e Entry) Score() int {
	total := 0
	for _, s := range e.Slots {
		total += s.Score
	}
	return total
}
