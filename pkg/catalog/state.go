package catalog

import "fmt"

// State is the catalog's current value: exactly one of Loading or Ready.
type State interface {
	isState()
}

// Loading indicates no list is available yet.
type Loading struct{}

// Ready carries the current ordered list of updates, unique by ID.
type Ready struct {
	Updates []Update
}

func (Loading) isState() {}
func (Ready) isState()   {}

// NewReady copies updates into a Ready state, keeping the first Update for any
// repeated ID.
func NewReady(updates []Update) Ready {
	out := make([]Update, 0, len(updates))
	seen := make(map[int]struct{}, len(updates))
	for _, u := range updates {
		if _, dup := seen[u.ID]; dup {
			continue
		}
		seen[u.ID] = struct{}{}
		out = append(out, u)
	}
	return Ready{Updates: out}
}

// Match dispatches on the variant of s. A nil State is treated as Loading.
func Match(s State, loading func(), ready func(Ready)) {
	switch v := s.(type) {
	case nil, Loading:
		loading()
	case Ready:
		ready(v)
	default:
		panic(fmt.Sprintf("catalog: unknown state %T", s))
	}
}

// Find returns the Update with the given id when s is Ready and contains it.
func Find(s State, id int) (Update, bool) {
	var (
		found Update
		ok    bool
	)
	Match(s, func() {}, func(r Ready) {
		if i := IndexOf(r.Updates, id); i != -1 {
			found, ok = r.Updates[i], true
		}
	})
	return found, ok
}

// Count returns the number of updates in s; Loading has none.
func Count(s State) int {
	n := 0
	Match(s, func() {}, func(r Ready) { n = len(r.Updates) })
	return n
}

// Transform computes a new State from the current one. Transforms must not
// modify the State they are given.
type Transform func(State) State

// Replace discards the current State in favor of updates.
func Replace(updates []Update) Transform {
	return func(State) State {
		return NewReady(updates)
	}
}

// Clear returns the catalog to Loading.
func Clear(State) State {
	return Loading{}
}

// SetInstalling sets the Installing flag of the Update with the given id. The
// State is returned unchanged when it is Loading or the id is absent.
func SetInstalling(id int, installing bool) Transform {
	return func(s State) State {
		next := s
		Match(s, func() {}, func(r Ready) {
			i := IndexOf(r.Updates, id)
			if i == -1 || r.Updates[i].Installing == installing {
				return
			}
			updates := append([]Update(nil), r.Updates...)
			updates[i].Installing = installing
			next = Ready{Updates: updates}
		})
		return next
	}
}

// Remove drops the Update with the given id. The State is returned unchanged
// when it is Loading or the id is absent.
func Remove(id int) Transform {
	return func(s State) State {
		next := s
		Match(s, func() {}, func(r Ready) {
			i := IndexOf(r.Updates, id)
			if i == -1 {
				return
			}
			updates := make([]Update, 0, len(r.Updates)-1)
			updates = append(updates, r.Updates[:i]...)
			updates = append(updates, r.Updates[i+1:]...)
			next = Ready{Updates: updates}
		})
		return next
	}
}
