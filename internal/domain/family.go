package domain

import "encoding/json"

// FamilyMember is one roster entry. Profile holds every field besides id so
// whatever the roster file carries reaches the browser unchanged.
type FamilyMember struct {
	ID      string
	Profile map[string]any
}

func (m FamilyMember) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Profile)+1)
	for k, v := range m.Profile {
		out[k] = v
	}
	out["id"] = m.ID
	return json.Marshal(out)
}

func (m *FamilyMember) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, _ := raw["id"].(string)
	delete(raw, "id")
	m.ID = id
	m.Profile = raw
	return nil
}

// Roster is the fixed set of family members loaded at startup. Its ids decide
// which @mentions are assignees.
type Roster struct {
	members []FamilyMember
	ids     map[string]struct{}
}

func NewRoster(members []FamilyMember) *Roster {
	r := &Roster{
		members: append([]FamilyMember(nil), members...),
		ids:     make(map[string]struct{}, len(members)),
	}
	for _, m := range members {
		r.ids[m.ID] = struct{}{}
	}
	return r
}

// Has reports whether id belongs to a roster member. A nil roster has no
// members.
func (r *Roster) Has(id string) bool {
	if r == nil {
		return false
	}
	_, ok := r.ids[id]
	return ok
}

// Members returns the roster in file order.
func (r *Roster) Members() []FamilyMember {
	if r == nil {
		return []FamilyMember{}
	}
	return append([]FamilyMember(nil), r.members...)
}

// IDs returns member ids in roster order.
func (r *Roster) IDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.members))
	for _, m := range r.members {
		ids = append(ids, m.ID)
	}
	return ids
}
