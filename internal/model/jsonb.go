package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JSONB 通用的 jsonb 字段类型
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = JSONB{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan JSONB: type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, j)
}

// StringList jsonb 存储的字符串数组（FCM token 等）
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan StringList: type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, l)
}

// Int64List jsonb 存储的 int64 数组（看护人 public_id 等）
type Int64List []int64

func (l Int64List) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

func (l *Int64List) Scan(value interface{}) error {
	if value == nil {
		*l = Int64List{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan Int64List: type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, l)
}

// IntList jsonb 存储的 int 数组（自定义星期几，0=周日）
type IntList []int

func (l IntList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

func (l *IntList) Scan(value interface{}) error {
	if value == nil {
		*l = IntList{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan IntList: type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, l)
}
