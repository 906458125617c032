package snoosession

import "fmt"

// ThingKind is the type prefix of a Reddit fullname.
type ThingKind string

const (
	// KindComment is a comment (t1).
	KindComment ThingKind = "t1"
	// KindPost is a link or self post (t3).
	KindPost ThingKind = "t3"
	// KindMessage is a private message (t4). Messages appear in inbox
	// listings but are not valid targets for comment/vote/delete.
	KindMessage ThingKind = "t4"
)

// ThingID is a typed Reddit identifier of the form <kind>_<base36>, e.g.
// "t3_abc123". It round-trips unchanged through String.
type ThingID struct {
	Kind ThingKind
	ID   string
}

func (t ThingID) String() string {
	return string(t.Kind) + "_" + t.ID
}

// MarshalJSON encodes the id as its fullname string.
func (t ThingID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// ParseThingID parses a fullname. Only comment and post kinds are accepted;
// use parseAnyThingID internally for inbox entries.
func ParseThingID(s string) (ThingID, error) {
	t, err := parseAnyThingID(s)
	if err != nil {
		return ThingID{}, err
	}
	if t.Kind != KindComment && t.Kind != KindPost {
		return ThingID{}, fmt.Errorf("%w: unsupported kind %q in %q", ErrInvalidTarget, t.Kind, s)
	}
	return t, nil
}

func parseAnyThingID(s string) (ThingID, error) {
	if len(s) < 4 || s[0] != 't' || s[2] != '_' {
		return ThingID{}, fmt.Errorf("%w: malformed thing id %q", ErrInvalidTarget, s)
	}
	kind := ThingKind(s[:2])
	switch kind {
	case KindComment, KindPost, KindMessage:
	default:
		return ThingID{}, fmt.Errorf("%w: unsupported kind %q in %q", ErrInvalidTarget, kind, s)
	}
	id := s[3:]
	for _, r := range id {
		if (r < '0' || r > '9') && (r < 'a' || r > 'z') {
			return ThingID{}, fmt.Errorf("%w: non-base36 id in %q", ErrInvalidTarget, s)
		}
	}
	return ThingID{Kind: kind, ID: id}, nil
}
