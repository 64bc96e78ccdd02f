// Package channel resolves the textual channel plan into the ordered list
// of downstream channels a scan cycle walks.
//
// A plan is a comma-separated list of entries, each either a bare frequency
// in MHz ("114") or a frequency:modulation pair ("114:256"). Bare entries
// default to QAM256, the common EuroDOCSIS downstream constellation.
package channel

import (
	"fmt"
	"strconv"
	"strings"
)

// Modulation represents the QAM constellation of a downstream channel.
type Modulation int

const (
	// QAM64 is 64-point quadrature amplitude modulation.
	QAM64 Modulation = iota

	// QAM256 is 256-point quadrature amplitude modulation.
	QAM256
)

// Order returns the constellation order (64 or 256).
func (m Modulation) Order() int {
	switch m {
	case QAM64:
		return 64
	case QAM256:
		return 256
	default:
		return 0
	}
}

// Tag returns the lowercase metric tag for the modulation ("qam64", "qam256").
func (m Modulation) Tag() string {
	switch m {
	case QAM64:
		return "qam64"
	case QAM256:
		return "qam256"
	default:
		return "unknown"
	}
}

// String returns a human-readable name for the modulation.
func (m Modulation) String() string {
	switch m {
	case QAM64:
		return "QAM64"
	case QAM256:
		return "QAM256"
	default:
		return "unknown"
	}
}

// ParseModulation maps a plan token ("64", "256") to a Modulation.
func ParseModulation(token string) (Modulation, error) {
	switch token {
	case "64":
		return QAM64, nil
	case "256":
		return QAM256, nil
	default:
		return 0, fmt.Errorf("invalid modulation QAM_%s", token)
	}
}

// Tunable is one downstream channel: a frequency in MHz and its modulation.
// Values are immutable once produced by Parse.
type Tunable struct {
	// Frequency is the channel center frequency in MHz.
	Frequency int

	// Modulation is the QAM constellation to tune with.
	Modulation Modulation
}

// Tag returns the metric identity of the channel, e.g. "qam256.114".
func (t Tunable) Tag() string {
	return t.Modulation.Tag() + "." + strconv.Itoa(t.Frequency)
}

// String returns the canonical plan token for the channel, e.g. "114:256".
func (t Tunable) String() string {
	return strconv.Itoa(t.Frequency) + ":" + strconv.Itoa(t.Modulation.Order())
}

// Plan is an ordered list of channels walked once per scan cycle.
type Plan []Tunable

// String returns the canonical plan form, e.g. "114:256,120:64".
// Parsing the result yields an identical plan.
func (p Plan) String() string {
	tokens := make([]string, len(p))
	for i, t := range p {
		tokens[i] = t.String()
	}
	return strings.Join(tokens, ",")
}

// Parse resolves a plan string into an ordered channel list. Entry order is
// preserved. An entry with an unparseable frequency or an unsupported
// modulation fails the whole plan.
func Parse(s string) (Plan, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("empty channel plan")
	}

	entries := strings.Split(s, ",")
	plan := make(Plan, 0, len(entries))

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)

		freqToken := entry
		modToken := "256"
		if before, after, found := strings.Cut(entry, ":"); found {
			freqToken = before
			modToken = after
		}

		freq, err := strconv.Atoi(freqToken)
		if err != nil {
			return nil, fmt.Errorf("parsing frequency %q as integer: %w", freqToken, err)
		}
		if freq <= 0 {
			return nil, fmt.Errorf("frequency %d out of range", freq)
		}

		mod, err := ParseModulation(modToken)
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", freq, err)
		}

		plan = append(plan, Tunable{Frequency: freq, Modulation: mod})
	}

	return plan, nil
}
