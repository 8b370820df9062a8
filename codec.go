package vitalkeep

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var errNotAnObject = errors.New("not a json object")

// EncodeProfile serializes p for storage. Non-finite numbers are written as
// null and decode back as 0. Invalid UTF-8 in strings is replaced with
// U+FFFD, so only profiles with valid UTF-8 text round trip exactly.
func EncodeProfile(p UserProfile) (string, error) {
	raw, err := json.Marshal(&p)
	if err != nil {
		return "", fmt.Errorf("profile serialize: %w", err)
	}
	return string(raw), nil
}

func DecodeProfile(raw string) (UserProfile, error) {
	// "null" and bare scalars unmarshal without error, reject them here.
	if !bytes.HasPrefix(bytes.TrimSpace([]byte(raw)), []byte("{")) {
		return UserProfile{}, fmt.Errorf("profile deserialize: %w", errNotAnObject)
	}
	var p UserProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return UserProfile{}, fmt.Errorf("profile deserialize: %w", err)
	}
	return p, nil
}

// number is a float64 that encodes NaN and ±Inf as null instead of failing.
type number float64

func (n number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

func (v VitalSign) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Id    string    `json:"id"`
		Type  VitalType `json:"type"`
		Value number    `json:"value"`
		Unit  string    `json:"unit"`
		Date  string    `json:"date"`
		Time  string    `json:"time"`
	}{v.Id, v.Type, number(v.Value), v.Unit, v.Date, v.Time})
}

func (g HealthGoal) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Id      string   `json:"id"`
		Type    GoalType `json:"type"`
		Target  number   `json:"target"`
		Current number   `json:"current"`
		Unit    string   `json:"unit"`
	}{g.Id, g.Type, number(g.Target), number(g.Current), g.Unit})
}
