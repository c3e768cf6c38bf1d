package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// StringArray custom type for handling JSONB string lists (key scopes,
// webhook event subscriptions)
type StringArray []string

// Scan implements the sql.Scanner interface
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}

	temp := make([]string, 0)
	if err := json.Unmarshal(bytes, &temp); err != nil {
		return err
	}

	*a = temp
	return nil
}

// Value implements the driver.Valuer interface
func (a StringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
