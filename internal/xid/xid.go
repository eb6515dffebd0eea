package xid

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind is a closed set of record kinds; the only values are the ones
// declared here, so every prefix ApplyPrefix writes is one Strip knows.
type Kind struct {
	prefix string
}

var (
	KindSale     = Kind{"POS"}
	KindOrder    = Kind{"ORDER"}
	KindCustomer = Kind{"CUSTOMER"}
	KindIncome   = Kind{"INCOME"}
	KindAudit    = Kind{"AUDIT"}
)

func (k Kind) String() string {
	return k.prefix
}

var knownKinds = []Kind{KindSale, KindOrder, KindCustomer, KindIncome, KindAudit}

var ErrForeignKind = errors.New("identifier belongs to another kind")

// ID is a storage identifier tagged with the kind of record it points at.
// Raw is what gets persisted; the kind prefix only exists in display form.
type ID struct {
	Kind Kind
	Raw  string
}

func New(kind Kind) ID {
	return ID{Kind: kind, Raw: uuid.NewString()}
}

func (id ID) StorageKey() string {
	return id.Raw
}

func (id ID) String() string {
	return ApplyPrefix(id.Kind, id.Raw)
}

func (id ID) IsZero() bool {
	return id.Raw == ""
}

// ApplyPrefix returns the display form of storageID. The zero Kind has no
// prefix and leaves storageID as is.
func ApplyPrefix(kind Kind, storageID string) string {
	if storageID == "" || kind.prefix == "" {
		return storageID
	}
	return kind.prefix + "-" + storageID
}

// Strip removes exactly one known kind prefix. Values without a known prefix
// are already storage keys and come back unchanged, whitespace included.
// Strip(ApplyPrefix(k, id)) == id holds for every declared Kind and any id.
func Strip(displayID string) string {
	for _, kind := range knownKinds {
		if raw, ok := strings.CutPrefix(displayID, kind.prefix+"-"); ok {
			return raw
		}
	}
	return displayID
}

// Parse accepts either the display or the raw form of an id of the given kind.
func Parse(kind Kind, value string) (ID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ID{}, fmt.Errorf("empty %s id", strings.ToLower(kind.prefix))
	}
	if raw, ok := strings.CutPrefix(trimmed, kind.prefix+"-"); ok {
		if raw == "" {
			return ID{}, fmt.Errorf("empty %s id", strings.ToLower(kind.prefix))
		}
		return ID{Kind: kind, Raw: raw}, nil
	}
	for _, other := range knownKinds {
		if other != kind && strings.HasPrefix(trimmed, other.prefix+"-") {
			return ID{}, fmt.Errorf("%w: %s is not a %s id", ErrForeignKind, trimmed, kind)
		}
	}
	return ID{Kind: kind, Raw: trimmed}, nil
}
