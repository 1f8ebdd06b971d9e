package domain

import "encoding/json"

// NullableString distinguishes an absent JSON key (Set false) from an
// explicit null (Set true, Value nil).
type NullableString struct {
	Set   bool
	Value *string
}

func (n *NullableString) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

// Val returns the value, "" when null or absent.
func (n NullableString) Val() string {
	return StrVal(n.Value)
}
