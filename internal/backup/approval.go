package backup

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
)

// ErrUnknownChange is returned when a key does not name a change of the diff.
var ErrUnknownChange = errors.New("unknown change")

// ApprovalSet tracks which changes of one diff are approved. It starts with
// every change approved. An ApprovalSet has a single owner and is not safe for
// concurrent use.
type ApprovalSet struct {
	kinds    map[ChangeKey]ChangeKind
	approved map[ChangeKey]struct{}
}

// NewApprovalSet returns a set over changes with all of them approved.
func NewApprovalSet(changes []Change) *ApprovalSet {
	a := &ApprovalSet{
		kinds:    make(map[ChangeKey]ChangeKind, len(changes)),
		approved: make(map[ChangeKey]struct{}, len(changes)),
	}
	for _, c := range changes {
		a.kinds[c.Key] = c.Key.Kind
	}
	a.SelectAll()
	return a
}

// Known reports whether key names a change of the diff.
func (a *ApprovalSet) Known(key ChangeKey) bool {
	_, ok := a.kinds[key]
	return ok
}

// Contains reports whether key is approved.
func (a *ApprovalSet) Contains(key ChangeKey) bool {
	_, ok := a.approved[key]
	return ok
}

// Approve adds key to the set. Deletions can only be approved this way or
// through SelectAll.
func (a *ApprovalSet) Approve(key ChangeKey) error {
	if !a.Known(key) {
		return fmt.Errorf("%w: %s", ErrUnknownChange, key)
	}
	a.approved[key] = struct{}{}
	return nil
}

// Revoke removes key from the set.
func (a *ApprovalSet) Revoke(key ChangeKey) error {
	if !a.Known(key) {
		return fmt.Errorf("%w: %s", ErrUnknownChange, key)
	}
	delete(a.approved, key)
	return nil
}

// Toggle flips the approval of key and returns the new state.
func (a *ApprovalSet) Toggle(key ChangeKey) (bool, error) {
	if a.Contains(key) {
		return false, a.Revoke(key)
	}
	if err := a.Approve(key); err != nil {
		return false, err
	}
	return true, nil
}

// SelectAll approves every change.
func (a *ApprovalSet) SelectAll() {
	for key := range a.kinds {
		a.approved[key] = struct{}{}
	}
}

// DeselectAll clears the set.
func (a *ApprovalSet) DeselectAll() {
	clear(a.approved)
}

// SelectRecommended approves every addition and update and no deletion.
func (a *ApprovalSet) SelectRecommended() {
	clear(a.approved)
	for key, kind := range a.kinds {
		if kind != Deleted {
			a.approved[key] = struct{}{}
		}
	}
}

// ApproveStrings approves keys given in their string form, as stored by
// older selection state or typed on the command line. An entry containing
// glob characters (*, ?, [) approves every change key it matches and must
// match at least one. Nothing is approved unless every entry resolves.
func (a *ApprovalSet) ApproveStrings(keys []string) error {
	resolved, err := a.resolve(keys)
	if err != nil {
		return err
	}
	for _, key := range resolved {
		a.approved[key] = struct{}{}
	}
	return nil
}

// RevokeStrings is the inverse of ApproveStrings.
func (a *ApprovalSet) RevokeStrings(keys []string) error {
	resolved, err := a.resolve(keys)
	if err != nil {
		return err
	}
	for _, key := range resolved {
		delete(a.approved, key)
	}
	return nil
}

// Matching returns the keys of the diff whose string form matches pattern,
// sorted.
func (a *ApprovalSet) Matching(pattern string) ([]ChangeKey, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	var keys []ChangeKey
	for key := range a.kinds {
		if ok, _ := path.Match(pattern, key.String()); ok {
			keys = append(keys, key)
		}
	}
	sortKeys(keys)
	return keys, nil
}

func (a *ApprovalSet) resolve(entries []string) ([]ChangeKey, error) {
	resolved := make([]ChangeKey, 0, len(entries))
	for _, s := range entries {
		if isPattern(s) {
			matched, err := a.Matching(s)
			if err != nil {
				return nil, err
			}
			if len(matched) == 0 {
				return nil, fmt.Errorf("%w: nothing matches %s", ErrUnknownChange, s)
			}
			resolved = append(resolved, matched...)
			continue
		}

		key, err := ParseChangeKey(s)
		if err != nil {
			return nil, err
		}
		if !a.Known(key) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownChange, s)
		}
		resolved = append(resolved, key)
	}
	return resolved, nil
}

func isPattern(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

// Len returns the number of approved changes.
func (a *ApprovalSet) Len() int {
	return len(a.approved)
}

// Keys returns the approved keys sorted by string form.
func (a *ApprovalSet) Keys() []ChangeKey {
	keys := make([]ChangeKey, 0, len(a.approved))
	for key := range a.approved {
		keys = append(keys, key)
	}
	sortKeys(keys)
	return keys
}

func sortKeys(keys []ChangeKey) {
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
}

// Strings returns the approved keys in their string form, sorted.
func (a *ApprovalSet) Strings() []string {
	keys := a.Keys()
	out := make([]string, len(keys))
	for i, key := range keys {
		out[i] = key.String()
	}
	return out
}
