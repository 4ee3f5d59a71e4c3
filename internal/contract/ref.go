package contract

import (
	"bytes"
	"encoding/json"
	"strings"
)

type RefKind uint8

const (
	RefAbsent RefKind = iota
	RefID
	RefEmbedded
)

// Ref is a client, service or professional reference. The backend sends
// either a bare identifier or an embedded object with at least a name.
type Ref struct {
	Kind  RefKind
	ID    string
	Name  string
	Price Money
}

func RefTo(id string) Ref {
	if strings.TrimSpace(id) == "" {
		return Ref{}
	}
	return Ref{Kind: RefID, ID: strings.TrimSpace(id)}
}

func Embedded(id, name string, price float64) Ref {
	return Ref{Kind: RefEmbedded, ID: strings.TrimSpace(id), Name: strings.TrimSpace(name), Price: Money(price)}
}

type refObject struct {
	ID      Identifier `json:"id"`
	MongoID Identifier `json:"_id"`
	Name    string     `json:"name"`
	Price   Money      `json:"price"`
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	s := bytes.TrimSpace(data)
	if len(s) == 0 || bytes.Equal(s, []byte("null")) {
		*r = Ref{}
		return nil
	}
	if s[0] == '{' {
		var obj refObject
		if err := json.Unmarshal(s, &obj); err != nil {
			return err
		}
		id := string(obj.ID)
		if id == "" {
			id = string(obj.MongoID)
		}
		*r = Embedded(id, obj.Name, float64(obj.Price))
		return nil
	}
	var id Identifier
	if err := id.UnmarshalJSON(s); err != nil {
		return err
	}
	*r = RefTo(string(id))
	return nil
}

func (r Ref) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case RefID:
		return json.Marshal(r.ID)
	case RefEmbedded:
		return json.Marshal(refObject{ID: Identifier(r.ID), Name: r.Name, Price: r.Price})
	default:
		return []byte("null"), nil
	}
}

func (r Ref) Present() bool { return r.Kind != RefAbsent }

// Key identifies the referenced record; embedded objects without an id fall
// back to their name.
func (r Ref) Key() string {
	if r.ID != "" {
		return r.ID
	}
	return r.Name
}

// Label is the display name, or fallback when only an id (or nothing) is known.
func (r Ref) Label(fallback string) string {
	if r.Kind == RefEmbedded && r.Name != "" {
		return r.Name
	}
	return fallback
}
