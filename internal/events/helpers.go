package events

import (
	"encoding/json"
	"fmt"
)

// setData stores typed data into the Data map; the data types here are plain
// structs, so marshaling cannot fail.
func (d *Diagnostic) setData(data interface{}) {
	dataMap, err := structToMap(data)
	if err != nil {
		return
	}
	d.Data = dataMap
}

// GetParseWarningData retrieves ParseWarningData from the Data field.
func (d *Diagnostic) GetParseWarningData() (*ParseWarningData, error) {
	var data ParseWarningData
	if err := mapToStruct(d.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse ParseWarningData: %w", err)
	}
	return &data, nil
}

// GetInsufficientDataData retrieves InsufficientDataData from the Data field.
func (d *Diagnostic) GetInsufficientDataData() (*InsufficientDataData, error) {
	var data InsufficientDataData
	if err := mapToStruct(d.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse InsufficientDataData: %w", err)
	}
	return &data, nil
}

// GetRuleFailureData retrieves RuleFailureData from the Data field.
func (d *Diagnostic) GetRuleFailureData() (*RuleFailureData, error) {
	var data RuleFailureData
	if err := mapToStruct(d.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse RuleFailureData: %w", err)
	}
	return &data, nil
}

// structToMap converts a struct to map[string]interface{} using JSON marshaling.
func structToMap(data interface{}) (map[string]interface{}, error) {
	bytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	if err := json.Unmarshal(bytes, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// mapToStruct converts a map[string]interface{} to a struct using JSON unmarshaling.
func mapToStruct(dataMap map[string]interface{}, target interface{}) error {
	bytes, err := json.Marshal(dataMap)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, target)
}
