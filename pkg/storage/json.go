package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// SaveJSON marshals v with indentation and atomically stores it under name
func SaveJSON(ctx context.Context, s Storage, name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	if err := s.Save(ctx, name, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}

	return nil
}

// LoadJSON reads the named blob and unmarshals it into v.
// ErrNotExist is returned as is when the blob is absent.
func LoadJSON(ctx context.Context, s Storage, name string, v interface{}) error {
	reader, err := s.Load(ctx, name)
	if err != nil {
		return err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}

	return nil
}
