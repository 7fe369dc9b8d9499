package library

import (
	jsoniter "github.com/json-iterator/go"
)

// EncodeSnapshot renders the full state as JSON, the self-describing
// interchange format used by the export command and the catalog importer.
func EncodeSnapshot(s State) ([]byte, error) {
	return jsoniter.ConfigDefault.MarshalIndent(s, "", "  ")
}

// DecodeSnapshot parses a JSON snapshot produced by EncodeSnapshot.
func DecodeSnapshot(data []byte) (State, error) {
	var s State
	if err := jsoniter.ConfigDefault.Unmarshal(data, &s); err != nil {
		return State{}, err
	}
	return s, nil
}
