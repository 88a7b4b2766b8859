package backup

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lherron/planbak/internal/domain"
)

// ChangeKind classifies a change.
type ChangeKind int

const (
	Added ChangeKind = iota
	Updated
	Deleted
)

var changeKindNames = [...]string{
	Added:   "Added",
	Updated: "Updated",
	Deleted: "Deleted",
}

func (k ChangeKind) String() string {
	if k < 0 || int(k) >= len(changeKindNames) {
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
	return changeKindNames[k]
}

// MarshalText encodes the kind by name.
func (k ChangeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *ChangeKind) UnmarshalText(text []byte) error {
	kind, ok := parseChangeKind(string(text))
	if !ok {
		return fmt.Errorf("unknown change kind %q", text)
	}
	*k = kind
	return nil
}

func parseChangeKind(s string) (ChangeKind, bool) {
	for i, name := range changeKindNames {
		if name == s {
			return ChangeKind(i), true
		}
	}
	return 0, false
}

// ErrInvalidChangeKey is returned when a string does not end in a change kind name.
var ErrInvalidChangeKey = errors.New("invalid change key")

// ChangeKey identifies one pending change. The same record id can carry
// changes of different kinds, so approvals are keyed on the pair.
type ChangeKey struct {
	RecordID string
	Kind     ChangeKind
}

// String returns the interop encoding: record id and kind name with no
// separator, e.g. "abcAdded".
func (k ChangeKey) String() string {
	return k.RecordID + k.Kind.String()
}

// MarshalText implements encoding.TextMarshaler.
func (k ChangeKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ChangeKey) UnmarshalText(text []byte) error {
	parsed, err := ParseChangeKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseChangeKey decodes the String form of a key.
func ParseChangeKey(s string) (ChangeKey, error) {
	for i, name := range changeKindNames {
		id, ok := strings.CutSuffix(s, name)
		if ok && id != "" {
			return ChangeKey{RecordID: id, Kind: ChangeKind(i)}, nil
		}
	}
	return ChangeKey{}, fmt.Errorf("%w: %q", ErrInvalidChangeKey, s)
}

// ParentRef points at the owner of a dependent record.
type ParentRef struct {
	Kind domain.Kind `json:"kind"`
	ID   string      `json:"id"`
}

// Change is the flat form of one selectable diff item, used where the
// concrete record type does not matter.
type Change struct {
	Key        ChangeKey     `json:"key"`
	Entity     domain.Kind   `json:"entity"`
	Record     domain.Record `json:"record"`
	Local      domain.Record `json:"local,omitempty"`
	ChangeInfo string        `json:"changeInfo,omitempty"`
	Selected   bool          `json:"selected"`
	Selectable bool          `json:"selectable"`
	Parent     *ParentRef    `json:"parent,omitempty"`
}
