package models

import (
	"bytes"
	"encoding/json"
)

// Ref points at another backend document. The backend sends references
// either as a bare id string or as a populated object, depending on the
// endpoint; both decode into the same value.
type Ref struct {
	ID    string
	Gmail string
	Name  string
}

type refObject struct {
	ID    string `json:"_id,omitempty"`
	AltID string `json:"id,omitempty"`
	Gmail string `json:"gmail,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// IsZero reports whether the reference carries no data.
func (r Ref) IsZero() bool {
	return r.ID == "" && r.Gmail == "" && r.Name == ""
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = Ref{}
		return nil
	}

	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = Ref{ID: id}
		return nil
	}

	var obj refObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*r = Ref{ID: obj.ID, Gmail: obj.Gmail, Name: obj.Name}
	if r.ID == "" {
		r.ID = obj.AltID
	}
	if r.Gmail == "" {
		r.Gmail = obj.Email
	}
	return nil
}

// MarshalJSON implements json.Marshaler. A reference holding only an id is
// written back as a plain string.
func (r Ref) MarshalJSON() ([]byte, error) {
	if r.IsZero() {
		return []byte("null"), nil
	}
	if r.Gmail == "" && r.Name == "" {
		return json.Marshal(r.ID)
	}
	return json.Marshal(refObject{ID: r.ID, Gmail: r.Gmail, Name: r.Name})
}
