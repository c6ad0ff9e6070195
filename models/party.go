package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleRider    Role = "rider"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleRider || r == RoleAdmin
}

type User struct {
	ID          string `json:"id"`
	Role        Role   `json:"role"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	VehicleType string `json:"vehicleType,omitempty"`
}

func (u *User) UnmarshalJSON(b []byte) error {
	type alias User
	aux := struct {
		*alias
		UnderscoreID string `json:"_id"`
	}{alias: (*alias)(u)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	u.ID = CanonicalID(u.ID, aux.UnderscoreID)
	return nil
}

// PartyRef is a customer or rider reference embedded in an order. The backend
// sends it either as a bare id or as an object keyed by id or _id.
type PartyRef struct {
	ID          string  `json:"id"`
	Name        string  `json:"name,omitempty"`
	Email       string  `json:"email,omitempty"`
	Phone       string  `json:"phone,omitempty"`
	VehicleType string  `json:"vehicleType,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
}

func (p *PartyRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*p = PartyRef{}
		return nil
	}
	if b[0] == '"' {
		var id string
		if err := json.Unmarshal(b, &id); err != nil {
			return err
		}
		*p = PartyRef{ID: NormalizeID(id)}
		return nil
	}
	var aux struct {
		ID           string          `json:"id"`
		UnderscoreID string          `json:"_id"`
		Name         string          `json:"name"`
		Email        string          `json:"email"`
		Phone        string          `json:"phone"`
		VehicleType  string          `json:"vehicleType"`
		Rating       json.RawMessage `json:"rating"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*p = PartyRef{
		ID:          CanonicalID(aux.ID, aux.UnderscoreID),
		Name:        aux.Name,
		Email:       aux.Email,
		Phone:       aux.Phone,
		VehicleType: aux.VehicleType,
	}
	if len(aux.Rating) > 0 {
		p.Rating, _ = ParseAmount(aux.Rating).Float64()
	}
	return nil
}

// NormalizeID trims an identifier so comparisons never depend on padding.
func NormalizeID(id string) string {
	return strings.TrimSpace(id)
}

// CanonicalID picks the identity from either the id or the _id field.
func CanonicalID(id, underscoreID string) string {
	if v := NormalizeID(id); v != "" {
		return v
	}
	return NormalizeID(underscoreID)
}
